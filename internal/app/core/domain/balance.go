package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryEntry 餘額明細中的一筆，附帶對該帳戶的方向
type HistoryEntry struct {
	Statement Statement
	Direction Direction
}

// Balance 帳戶餘額與完整歷史
type Balance struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	History   []HistoryEntry
}

// ComputeBalance 依序累加所有與帳戶相關的帳目
// 不相關的帳目會被略過
func ComputeBalance(accountID uuid.UUID, statements []Statement) Balance {
	balance := Balance{
		AccountID: accountID,
		Amount:    decimal.Zero,
		History:   make([]HistoryEntry, 0, len(statements)),
	}
	for _, s := range statements {
		if !s.Involves(accountID) {
			continue
		}
		balance.Amount = balance.Amount.Add(s.SignedAmountFor(accountID))
		balance.History = append(balance.History, HistoryEntry{
			Statement: s,
			Direction: s.DirectionFor(accountID),
		})
	}
	return balance
}

// Covers 餘額是否足以支付 amount
func (b Balance) Covers(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(b.Amount)
}
