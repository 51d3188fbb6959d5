package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層
// 負責存款、提款、轉帳、餘額與帳目查詢
type CoreUseCase struct {
	users     UserDirectory
	ledger    Ledger
	publisher EventPublisher
	logger    *zap.Logger
}

// Option 定義 CoreUseCase 的配置選項函數
type Option func(*CoreUseCase)

// WithPublisher 設定帳目事件的發布者
func WithPublisher(publisher EventPublisher) Option {
	return func(c *CoreUseCase) {
		if publisher != nil {
			c.publisher = publisher
		}
	}
}

// WithLogger 設定 logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *CoreUseCase) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCoreUseCase(users UserDirectory, ledger Ledger, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		users:     users,
		ledger:    ledger,
		publisher: noopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// findAccount 查詢帳戶，不存在時回傳指定 kind 的領域錯誤
func (c *CoreUseCase) findAccount(ctx context.Context, id uuid.UUID, kind domain.ErrorKind) (*domain.Account, error) {
	account, err := c.users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.NewAccountError(kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find account %s: %w", id, err)
	}
	return account, nil
}

// publish 發布失敗只記錄，不影響已寫入的帳目
func (c *CoreUseCase) publish(ctx context.Context, statement domain.Statement) {
	if err := c.publisher.PublishStatementCreated(ctx, statement); err != nil {
		c.logger.Warn("publish statement event failed",
			zap.String("statement_id", statement.ID().String()),
			zap.Error(err),
		)
	}
}
