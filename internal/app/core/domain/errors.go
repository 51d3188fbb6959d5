package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind 領域錯誤種類 (封閉集合)
// 邊界層 (REST / gRPC) 依 Kind 做完整的狀態碼對應，不依賴型別判斷
type ErrorKind uint8

const (
	// 找不到帳戶
	KindAccountNotFound ErrorKind = iota + 1
	// 轉帳付款方不存在
	KindPayerNotFound
	// 轉帳收款方不存在
	KindPayeeNotFound
	// 轉給自己
	KindSelfTransfer
	// 餘額不足
	KindInsufficientFunds
	// 找不到帳目 (或不屬於該帳戶)
	KindStatementNotFound
	// 金額必須為正數
	KindInvalidAmount
	// 不支援的操作類型
	KindInvalidOperation
	// 帳戶已存在
	KindAccountAlreadyExists
	// 帳號或密碼錯誤
	KindIncorrectCredentials
)

var kindNames = map[ErrorKind]string{
	KindAccountNotFound:      "account not found",
	KindPayerNotFound:        "payer not found",
	KindPayeeNotFound:        "payee not found",
	KindSelfTransfer:         "cannot transfer to yourself",
	KindInsufficientFunds:    "insufficient funds",
	KindStatementNotFound:    "statement not found",
	KindInvalidAmount:        "amount must be positive",
	KindInvalidOperation:     "invalid operation type",
	KindAccountAlreadyExists: "account already exists",
	KindIncorrectCredentials: "incorrect email or password",
}

// String 回傳 Kind 的可讀名稱
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown error kind %d", uint8(k))
}

// Error 領域錯誤
//
// 結構:
//
//	Kind: 錯誤種類
//	AccountID: 相關帳戶 (可為 uuid.Nil)
//	StatementID: 相關帳目 (可為 uuid.Nil)
type Error struct {
	Kind        ErrorKind
	AccountID   uuid.UUID
	StatementID uuid.UUID
}

func (e *Error) Error() string {
	switch {
	case e.StatementID != uuid.Nil:
		return fmt.Sprintf("%s: statement %s", e.Kind, e.StatementID)
	case e.AccountID != uuid.Nil:
		return fmt.Sprintf("%s: account %s", e.Kind, e.AccountID)
	default:
		return e.Kind.String()
	}
}

// Is 只比對 Kind，讓帶有 context 的錯誤也能 errors.Is(err, ErrXxx)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = &Error{Kind: KindAccountNotFound}

	// ErrPayerNotFound 付款方不存在
	ErrPayerNotFound = &Error{Kind: KindPayerNotFound}

	// ErrPayeeNotFound 收款方不存在
	ErrPayeeNotFound = &Error{Kind: KindPayeeNotFound}

	// ErrSelfTransfer 不可轉帳給自己
	ErrSelfTransfer = &Error{Kind: KindSelfTransfer}

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}

	// ErrStatementNotFound 找不到帳目
	ErrStatementNotFound = &Error{Kind: KindStatementNotFound}

	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = &Error{Kind: KindInvalidAmount}

	// ErrInvalidOperation 操作類型錯誤
	ErrInvalidOperation = &Error{Kind: KindInvalidOperation}

	// ErrAccountAlreadyExists 帳戶已存在
	ErrAccountAlreadyExists = &Error{Kind: KindAccountAlreadyExists}

	// ErrIncorrectCredentials 帳密錯誤
	ErrIncorrectCredentials = &Error{Kind: KindIncorrectCredentials}
)

// NewAccountError 建立帶有帳戶資訊的錯誤
func NewAccountError(kind ErrorKind, accountID uuid.UUID) *Error {
	return &Error{Kind: kind, AccountID: accountID}
}

// NewStatementNotFound 建立帶有帳目資訊的 StatementNotFound
func NewStatementNotFound(accountID, statementID uuid.UUID) *Error {
	return &Error{Kind: KindStatementNotFound, AccountID: accountID, StatementID: statementID}
}

// KindOf 取出錯誤鏈中的領域錯誤種類
// 非領域錯誤 (DB 斷線等) 回傳 false
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
