package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// TokenVerifier 驗證 bearer token 並回傳帳戶 ID
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type ctxKey struct{}

// Authenticate 驗證 Authorization: Bearer <token>，失敗直接回 401
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, raw, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "bearer") || raw == "" {
				writeMessage(w, http.StatusUnauthorized, "missing authorization token")
				return
			}
			accountID, err := tokens.Verify(raw)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accountFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxKey{}).(uuid.UUID)
	return id
}
