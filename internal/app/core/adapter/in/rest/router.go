package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JoeShih716/go-statement-ledger/pkg/metrics"
)

// NewRouter 組裝 REST 路由
//
// 參數:
//
//	h: 請求處理
//	tokens: bearer token 驗證
//	m: 指標，nil 代表不掛 /metrics
func NewRouter(h *Handler, tokens TokenVerifier, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if m != nil {
		r.Use(m.Middleware)
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", h.CreateUser)
		r.Post("/sessions", h.CreateSession)

		r.Group(func(pr chi.Router) {
			pr.Use(Authenticate(tokens))

			pr.Get("/profile", h.ShowProfile)
			pr.Route("/statements", func(sr chi.Router) {
				sr.Get("/balance", h.GetBalance)
				sr.Post("/deposit", h.Deposit)
				sr.Post("/withdraw", h.Withdraw)
				sr.Post("/transfers/{user_id}", h.Transfer)
				sr.Get("/{statement_id}", h.GetStatement)
			})
		})
	})

	return r
}
