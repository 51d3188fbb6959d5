package memory

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

func newStatement(t *testing.T, user, sender uuid.UUID, opType domain.OperationType, amount string) domain.Statement {
	t.Helper()
	s, err := domain.NewStatement(user, sender, opType, decimal.RequireFromString(amount), "test")
	require.NoError(t, err)
	return s
}

func TestMutexLedger_CreateAndQuery(t *testing.T) {
	ctx := context.Background()
	ledger, err := NewMutexLedger(nil)
	require.NoError(t, err)

	a, b := uuid.New(), uuid.New()
	deposit := newStatement(t, a, uuid.Nil, domain.OperationTypeDeposit, "750")
	transfer := newStatement(t, b, a, domain.OperationTypeTransfer, "150")
	require.NoError(t, ledger.Create(ctx, deposit))
	require.NoError(t, ledger.Create(ctx, transfer))

	// 同一筆不可重複寫入
	require.Error(t, ledger.Create(ctx, deposit))

	listA, err := ledger.ListByAccount(ctx, a)
	require.NoError(t, err)
	require.Len(t, listA, 2)
	assert.Equal(t, deposit.ID(), listA[0].ID())
	assert.Equal(t, transfer.ID(), listA[1].ID())

	listB, err := ledger.ListByAccount(ctx, b)
	require.NoError(t, err)
	require.Len(t, listB, 1)

	found, err := ledger.FindByID(ctx, transfer.ID())
	require.NoError(t, err)
	assert.Equal(t, transfer, found)

	_, err = ledger.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrStatementNotFound)
}

func TestMutexLedger_RecoverFromWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "statements.wal")

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	ledger, err := NewMutexLedger(w)
	require.NoError(t, err)

	a, b := uuid.New(), uuid.New()
	deposit := newStatement(t, a, uuid.Nil, domain.OperationTypeDeposit, "500.80")
	transfer := newStatement(t, b, a, domain.OperationTypeTransfer, "0.80")
	require.NoError(t, ledger.Create(ctx, deposit))
	require.NoError(t, ledger.Create(ctx, transfer))
	require.NoError(t, w.Close())

	w, err = wal.NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	recovered, err := NewMutexLedger(w)
	require.NoError(t, err)
	assert.Equal(t, 2, recovered.Len())

	list, err := recovered.ListByAccount(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 2)
	balance := domain.ComputeBalance(a, list)
	assert.True(t, balance.Amount.Equal(decimal.RequireFromString("500")), balance.Amount.String())

	got, err := recovered.FindByID(ctx, transfer.ID())
	require.NoError(t, err)
	sender, ok := got.SenderID()
	assert.True(t, ok)
	assert.Equal(t, a, sender)
	assert.True(t, got.Amount().Equal(transfer.Amount()))
	assert.True(t, got.CreatedAt().Equal(transfer.CreatedAt()))
}

func TestMutexLedger_WithAccountLockSerializes(t *testing.T) {
	ledger, err := NewMutexLedger(nil)
	require.NoError(t, err)

	id := uuid.New()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.WithAccountLock(context.Background(), []uuid.UUID{id}, func(ctx context.Context, store usecase.StatementStore) error {
				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, ledger.lockCount(), "idle account locks are released")
}

func TestMutexLedger_LocksReleasedAfterUse(t *testing.T) {
	ledger, err := NewMutexLedger(nil)
	require.NoError(t, err)

	a, b := uuid.New(), uuid.New()
	err = ledger.WithAccountLock(context.Background(), []uuid.UUID{a, b}, func(context.Context, usecase.StatementStore) error {
		assert.Equal(t, 2, ledger.lockCount())
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, ledger.lockCount())
}

func TestMutexLedger_WithAccountLockCanceled(t *testing.T) {
	ledger, err := NewMutexLedger(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = ledger.WithAccountLock(ctx, []uuid.UUID{uuid.New()}, func(context.Context, usecase.StatementStore) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
