package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// GetBalance 取得帳戶餘額與完整帳目歷史
// 純讀取，不持有帳戶鎖
func (c *CoreUseCase) GetBalance(ctx context.Context, accountID uuid.UUID) (domain.Balance, error) {
	if _, err := c.findAccount(ctx, accountID, domain.KindAccountNotFound); err != nil {
		return domain.Balance{}, err
	}
	return balanceOf(ctx, c.ledger, accountID)
}

// balanceOf 從指定 store 重新計算餘額
// 在 WithAccountLock 內呼叫時必須傳入 fn 收到的 store
func balanceOf(ctx context.Context, store StatementStore, accountID uuid.UUID) (domain.Balance, error) {
	statements, err := store.ListByAccount(ctx, accountID)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("list statements of %s: %w", accountID, err)
	}
	return domain.ComputeBalance(accountID, statements), nil
}
