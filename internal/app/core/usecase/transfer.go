package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// CreateTransferInput 轉帳參數
type CreateTransferInput struct {
	PayerID     uuid.UUID
	PayeeID     uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// CreateTransfer 處理轉帳
// 檢查順序對外可見，不可調整：
// 付款方存在 -> 不可轉給自己 -> 收款方存在 -> 金額 -> 餘額
//
// 回傳的帳目以收款方角度表示 (UserID 為收款方，SenderID 為付款方)
func (c *CoreUseCase) CreateTransfer(ctx context.Context, in CreateTransferInput) (domain.Statement, error) {
	if _, err := c.findAccount(ctx, in.PayerID, domain.KindPayerNotFound); err != nil {
		return domain.Statement{}, err
	}
	if in.PayerID == in.PayeeID {
		return domain.Statement{}, domain.NewAccountError(domain.KindSelfTransfer, in.PayerID)
	}
	if _, err := c.findAccount(ctx, in.PayeeID, domain.KindPayeeNotFound); err != nil {
		return domain.Statement{}, err
	}

	statement, err := domain.NewStatement(in.PayeeID, in.PayerID, domain.OperationTypeTransfer, in.Amount, in.Description)
	if err != nil {
		return domain.Statement{}, err
	}

	err = c.ledger.WithAccountLock(ctx, statement.LockIDs(), func(ctx context.Context, store StatementStore) error {
		balance, err := balanceOf(ctx, store, in.PayerID)
		if err != nil {
			return err
		}
		if !balance.Covers(in.Amount) {
			return domain.NewAccountError(domain.KindInsufficientFunds, in.PayerID)
		}
		return store.Create(ctx, statement)
	})
	if err != nil {
		return domain.Statement{}, err
	}

	c.logger.Info("transfer created",
		zap.String("statement_id", statement.ID().String()),
		zap.String("payer_id", in.PayerID.String()),
		zap.String("payee_id", in.PayeeID.String()),
		zap.String("amount", in.Amount.String()),
	)
	c.publish(ctx, statement)
	return statement, nil
}
