package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// CreateStatementInput 存款 / 提款參數
type CreateStatementInput struct {
	AccountID   uuid.UUID
	Type        domain.OperationType
	Amount      decimal.Decimal
	Description string
}

// CreateStatement 處理存款與提款
//
// 參數:
//
//	ctx: 上下文
//	in: 存提款參數
//
// 回傳:
//
//	domain.Statement: 新建立的帳目
//	error: ErrInvalidAmount / ErrInvalidOperation / ErrAccountNotFound / ErrInsufficientFunds
func (c *CoreUseCase) CreateStatement(ctx context.Context, in CreateStatementInput) (domain.Statement, error) {
	if !domain.ValidAmount(in.Amount) {
		return domain.Statement{}, domain.ErrInvalidAmount
	}
	if in.Type != domain.OperationTypeDeposit && in.Type != domain.OperationTypeWithdraw {
		return domain.Statement{}, domain.ErrInvalidOperation
	}
	if _, err := c.findAccount(ctx, in.AccountID, domain.KindAccountNotFound); err != nil {
		return domain.Statement{}, err
	}

	statement, err := domain.NewStatement(in.AccountID, uuid.Nil, in.Type, in.Amount, in.Description)
	if err != nil {
		return domain.Statement{}, err
	}

	err = c.ledger.WithAccountLock(ctx, statement.LockIDs(), func(ctx context.Context, store StatementStore) error {
		// 提款需檢查餘額，存款不需要
		if in.Type == domain.OperationTypeWithdraw {
			balance, err := balanceOf(ctx, store, in.AccountID)
			if err != nil {
				return err
			}
			if !balance.Covers(in.Amount) {
				return domain.NewAccountError(domain.KindInsufficientFunds, in.AccountID)
			}
		}
		return store.Create(ctx, statement)
	})
	if err != nil {
		return domain.Statement{}, err
	}

	c.logger.Info("statement created",
		zap.String("statement_id", statement.ID().String()),
		zap.String("account_id", in.AccountID.String()),
		zap.String("type", string(in.Type)),
		zap.String("amount", in.Amount.String()),
	)
	c.publish(ctx, statement)
	return statement, nil
}
