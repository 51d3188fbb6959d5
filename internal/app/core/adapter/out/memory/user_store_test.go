package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

var oneUnit = decimal.NewFromInt(1)

func TestUserStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	store, err := NewUserStore(nil)
	require.NoError(t, err)

	john := domain.NewAccount("John", "John@Example.com", "hash")
	require.NoError(t, store.Create(ctx, john))

	byEmail, err := store.FindByEmail(ctx, "john@example.com ")
	require.NoError(t, err)
	assert.Equal(t, john.ID, byEmail.ID)

	byID, err := store.FindByID(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, "John", byID.Name)

	dup := domain.NewAccount("Other", "john@example.com", "hash")
	assert.ErrorIs(t, store.Create(ctx, dup), domain.ErrAccountAlreadyExists)

	_, err = store.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestUserStore_RecoverFromWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.wal")

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	store, err := NewUserStore(w)
	require.NoError(t, err)
	john := domain.NewAccount("John", "john@example.com", "secret-hash")
	require.NoError(t, store.Create(ctx, john))
	require.NoError(t, w.Close())

	w, err = wal.NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	recovered, err := NewUserStore(w)
	require.NoError(t, err)

	got, err := recovered.FindByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, john.ID, got.ID)
	assert.Equal(t, "secret-hash", got.PasswordHash)
}
