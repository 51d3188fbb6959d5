package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// UserDirectory 帳戶查詢
// 帳戶不存在時必須回傳 domain.ErrAccountNotFound
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// UserRepository 帳戶儲存 (註冊、登入用)
type UserRepository interface {
	UserDirectory
	// FindByEmail 不存在時回傳 domain.ErrAccountNotFound
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Create email 重複時回傳 domain.ErrAccountAlreadyExists
	Create(ctx context.Context, account *domain.Account) error
}

// StatementStore 帳目儲存，只能新增不能修改或刪除
type StatementStore interface {
	// Create 寫入一筆帳目
	Create(ctx context.Context, statement domain.Statement) error
	// FindByID 不存在時回傳 domain.ErrStatementNotFound
	FindByID(ctx context.Context, id uuid.UUID) (domain.Statement, error)
	// ListByAccount 列出帳戶為所屬方或付款方的所有帳目，依寫入順序
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Statement, error)
}

// AccountLocker 讓同一帳戶的「查餘額 -> 寫入」串行化
type AccountLocker interface {
	// WithAccountLock 依序鎖定 accountIDs 後執行 fn
	// fn 收到的 store 與鎖屬於同一個臨界區 (或同一個 DB 交易)
	// fn 回傳錯誤時不可留下任何寫入
	WithAccountLock(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context, store StatementStore) error) error
}

// Ledger 是帳務儲存的介面
type Ledger interface {
	StatementStore
	AccountLocker
}

// EventPublisher 帳目建立後的事件通知
type EventPublisher interface {
	PublishStatementCreated(ctx context.Context, statement domain.Statement) error
}

// TokenIssuer 登入成功後簽發 token
type TokenIssuer interface {
	Issue(accountID uuid.UUID) (string, error)
}

type noopPublisher struct{}

func (noopPublisher) PublishStatementCreated(context.Context, domain.Statement) error { return nil }
