package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// Handler REST 請求處理
type Handler struct {
	core   *usecase.CoreUseCase
	users  *usecase.UserUseCase
	logger *zap.Logger
}

func NewHandler(core *usecase.CoreUseCase, users *usecase.UserUseCase, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{core: core, users: users, logger: logger}
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  *domain.Account `json:"user"`
	Token string          `json:"token"`
}

// amount 可以是 JSON 數字或字串
type statementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type historyView struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	SenderID    *uuid.UUID       `json:"sender_id"`
	Type        string           `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Direction   domain.Direction `json:"direction"`
	CreatedAt   time.Time        `json:"created_at"`
}

type balanceView struct {
	Balance    decimal.Decimal `json:"balance"`
	Statements []historyView   `json:"statement"`
}

func toBalanceView(b domain.Balance) balanceView {
	view := balanceView{
		Balance:    b.Amount,
		Statements: make([]historyView, 0, len(b.History)),
	}
	for _, entry := range b.History {
		s := entry.Statement
		item := historyView{
			ID:          s.ID(),
			UserID:      s.UserID(),
			Type:        string(s.Type()),
			Amount:      s.Amount(),
			Description: s.Description(),
			Direction:   entry.Direction,
			CreatedAt:   s.CreatedAt(),
		}
		if sender, ok := s.SenderID(); ok {
			item.SenderID = &sender
		}
		view.Statements = append(view.Statements, item)
	}
	return view
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.users.CreateUser(r.Context(), usecase.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.users.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: result.Account, Token: result.Token})
}

func (h *Handler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	account, err := h.users.ShowUserProfile(r.Context(), accountFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.core.GetBalance(r.Context(), accountFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceView(balance))
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, domain.OperationTypeDeposit)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.createStatement(w, r, domain.OperationTypeWithdraw)
}

func (h *Handler) createStatement(w http.ResponseWriter, r *http.Request, opType domain.OperationType) {
	var req statementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	statement, err := h.core.CreateStatement(r.Context(), usecase.CreateStatementInput{
		AccountID:   accountFrom(r.Context()),
		Type:        opType,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, statement)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	payeeID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	var req statementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	statement, err := h.core.CreateTransfer(r.Context(), usecase.CreateTransferInput{
		PayerID:     accountFrom(r.Context()),
		PayeeID:     payeeID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, statement)
}

func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	statementID, err := uuid.Parse(chi.URLParam(r, "statement_id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid statement_id")
		return
	}
	statement, err := h.core.GetStatement(r.Context(), accountFrom(r.Context()), statementID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statement)
}
