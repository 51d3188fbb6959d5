package grpc

import (
	"time"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// 訊息以 JSON codec 傳輸，金額一律使用十進位字串避免精度遺失

type GetBalanceRequest struct{}

type BalanceResponse struct {
	Balance    string             `json:"balance"`
	Statements []StatementMessage `json:"statement"`
}

type CreateStatementRequest struct {
	Type        string `json:"type"` // deposit | withdraw
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type CreateTransferRequest struct {
	PayeeID     string `json:"payee_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type GetStatementRequest struct {
	StatementID string `json:"statement_id"`
}

type StatementResponse struct {
	Statement StatementMessage `json:"statement"`
}

type StatementMessage struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SenderID    string    `json:"sender_id,omitempty"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Direction   string    `json:"direction,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toStatementMessage(s domain.Statement) StatementMessage {
	msg := StatementMessage{
		ID:          s.ID().String(),
		UserID:      s.UserID().String(),
		Type:        string(s.Type()),
		Amount:      s.Amount().String(),
		Description: s.Description(),
		CreatedAt:   s.CreatedAt(),
	}
	if sender, ok := s.SenderID(); ok {
		msg.SenderID = sender.String()
	}
	return msg
}

func toBalanceResponse(b domain.Balance) *BalanceResponse {
	resp := &BalanceResponse{
		Balance:    b.Amount.String(),
		Statements: make([]StatementMessage, 0, len(b.History)),
	}
	for _, entry := range b.History {
		msg := toStatementMessage(entry.Statement)
		msg.Direction = string(entry.Direction)
		resp.Statements = append(resp.Statements, msg)
	}
	return resp
}
