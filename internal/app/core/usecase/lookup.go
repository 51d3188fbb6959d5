package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
)

// GetStatement 取得帳戶的單筆帳目
// 帳目存在但與帳戶無關時同樣視為不存在
func (c *CoreUseCase) GetStatement(ctx context.Context, accountID, statementID uuid.UUID) (domain.Statement, error) {
	if _, err := c.findAccount(ctx, accountID, domain.KindAccountNotFound); err != nil {
		return domain.Statement{}, err
	}

	statement, err := c.ledger.FindByID(ctx, statementID)
	if errors.Is(err, domain.ErrStatementNotFound) {
		return domain.Statement{}, domain.NewStatementNotFound(accountID, statementID)
	}
	if err != nil {
		return domain.Statement{}, fmt.Errorf("find statement %s: %w", statementID, err)
	}
	if !statement.Involves(accountID) {
		return domain.Statement{}, domain.NewStatementNotFound(accountID, statementID)
	}
	return statement, nil
}
