package domain

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationType 帳目類型
type OperationType string

const (
	// 存款
	OperationTypeDeposit OperationType = "deposit"
	// 提款
	OperationTypeWithdraw OperationType = "withdraw"
	// 轉帳
	OperationTypeTransfer OperationType = "transfer"
)

// Valid 是否為已知的帳目類型
func (t OperationType) Valid() bool {
	switch t {
	case OperationTypeDeposit, OperationTypeWithdraw, OperationTypeTransfer:
		return true
	}
	return false
}

// Direction 從某一帳戶角度看帳目的方向
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// 金額精度與上限，與儲存層的 DECIMAL(20,4) / NUMERIC(20,4) 一致
const AmountScale = 4

var maxAmount = decimal.New(1, 20-AmountScale)

// ValidAmount 金額必須為正數、最多 AmountScale 位小數且整數位不超過儲存上限
// 尾端補零 (如 1.50000) 視為合法
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() || !amount.LessThan(maxAmount) {
		return false
	}
	return amount.Equal(amount.Truncate(AmountScale))
}

// Statement 帳目 (append-only ledger entry)
// 欄位全部不公開，建立後無法修改；以值傳遞
//
// 結構:
//
//	id: 全局唯一 ID
//	userID: 帳目所屬帳戶 (轉帳時為收款方)
//	senderID: 轉帳付款方，非轉帳為 uuid.Nil
//	opType: 帳目類型
//	amount: 金額，恆為正數且最多 AmountScale 位小數
//	description: 備註
//	createdAt: 建立時間
type Statement struct {
	id          uuid.UUID
	userID      uuid.UUID
	senderID    uuid.UUID
	opType      OperationType
	amount      decimal.Decimal
	description string
	createdAt   time.Time
}

// NewStatement 建立一筆新的帳目並指派 ID 與時間
//
// 參數:
//
//	userID: 所屬帳戶 (收款方)
//	senderID: 付款方，只有轉帳需要，其他傳 uuid.Nil
//	opType: 帳目類型
//	amount: 金額
//	description: 備註
//
// 回傳:
//
//	Statement: 帳目
//	error: ErrInvalidAmount / ErrInvalidOperation / ErrSelfTransfer
func NewStatement(userID, senderID uuid.UUID, opType OperationType, amount decimal.Decimal, description string) (Statement, error) {
	if !ValidAmount(amount) {
		return Statement{}, ErrInvalidAmount
	}
	if !opType.Valid() {
		return Statement{}, ErrInvalidOperation
	}
	if opType == OperationTypeTransfer {
		if senderID == uuid.Nil {
			return Statement{}, ErrInvalidOperation
		}
		if senderID == userID {
			return Statement{}, NewAccountError(KindSelfTransfer, userID)
		}
	} else if senderID != uuid.Nil {
		return Statement{}, ErrInvalidOperation
	}

	return Statement{
		id:          uuid.New(),
		userID:      userID,
		senderID:    senderID,
		opType:      opType,
		amount:      amount,
		description: description,
		createdAt:   time.Now().UTC(),
	}, nil
}

// RestoreStatement 由儲存層還原帳目，不做驗證
func RestoreStatement(id, userID, senderID uuid.UUID, opType OperationType, amount decimal.Decimal, description string, createdAt time.Time) Statement {
	return Statement{
		id:          id,
		userID:      userID,
		senderID:    senderID,
		opType:      opType,
		amount:      amount,
		description: description,
		createdAt:   createdAt,
	}
}

func (s Statement) ID() uuid.UUID           { return s.id }
func (s Statement) UserID() uuid.UUID       { return s.userID }
func (s Statement) Type() OperationType     { return s.opType }
func (s Statement) Amount() decimal.Decimal { return s.amount }
func (s Statement) Description() string     { return s.description }
func (s Statement) CreatedAt() time.Time    { return s.createdAt }

// SenderID 轉帳付款方；非轉帳回傳 false
func (s Statement) SenderID() (uuid.UUID, bool) {
	return s.senderID, s.senderID != uuid.Nil
}

// Involves 帳目是否與該帳戶有關 (所屬或付款方)
func (s Statement) Involves(accountID uuid.UUID) bool {
	return s.userID == accountID || (s.senderID != uuid.Nil && s.senderID == accountID)
}

// DirectionFor 從 accountID 的角度看，這筆帳目是入帳還是出帳
func (s Statement) DirectionFor(accountID uuid.UUID) Direction {
	switch s.opType {
	case OperationTypeWithdraw:
		return DirectionDebit
	case OperationTypeTransfer:
		if s.senderID == accountID {
			return DirectionDebit
		}
	}
	return DirectionCredit
}

// SignedAmountFor 對 accountID 餘額的影響 (出帳為負)
func (s Statement) SignedAmountFor(accountID uuid.UUID) decimal.Decimal {
	if s.DirectionFor(accountID) == DirectionDebit {
		return s.amount.Neg()
	}
	return s.amount
}

// LockIDs 回傳寫入這筆帳目前需要鎖定的帳號，並確保順序以避免死鎖
func (s Statement) LockIDs() []uuid.UUID {
	if s.senderID == uuid.Nil {
		return []uuid.UUID{s.userID}
	}
	return SortLockIDs(s.userID, s.senderID)
}

// SortLockIDs 去重並排序帳號，所有 Locker 實作都依此順序上鎖
func SortLockIDs(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}

type statementJSON struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	SenderID    *uuid.UUID      `json:"sender_id"`
	Type        OperationType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MarshalJSON 對外輸出格式
func (s Statement) MarshalJSON() ([]byte, error) {
	out := statementJSON{
		ID:          s.id,
		UserID:      s.userID,
		Type:        s.opType,
		Amount:      s.amount,
		Description: s.description,
		CreatedAt:   s.createdAt,
	}
	if sender, ok := s.SenderID(); ok {
		out.SenderID = &sender
	}
	return json.Marshal(out)
}
