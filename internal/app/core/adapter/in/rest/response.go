package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// 用戶端在回應前斷線 (nginx 慣例)
const statusClientClosedRequest = 499

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// writeError 領域錯誤依種類回應，其餘一律 500 並記錄
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	if kind, ok := domain.KindOf(err); ok {
		writeMessage(w, statusFor(kind), kind.String())
		return
	}
	if errors.Is(err, context.Canceled) {
		log.Info("request canceled by client", zap.Error(err))
		writeMessage(w, statusClientClosedRequest, "request canceled")
		return
	}
	log.Error("request failed", zap.Error(err))
	writeMessage(w, http.StatusInternalServerError, "internal server error")
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindAccountNotFound,
		domain.KindPayerNotFound,
		domain.KindPayeeNotFound,
		domain.KindStatementNotFound:
		return http.StatusNotFound
	case domain.KindSelfTransfer,
		domain.KindInsufficientFunds,
		domain.KindInvalidAmount,
		domain.KindInvalidOperation,
		domain.KindAccountAlreadyExists:
		return http.StatusBadRequest
	case domain.KindIncorrectCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
