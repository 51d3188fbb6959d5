package mysql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestOpenWithRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		want := &gorm.DB{}
		db, err := openWithRetry(func() (*gorm.DB, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("connection refused")
			}
			return want, nil
		}, 5, 0, zap.NewNop())
		require.NoError(t, err)
		assert.Same(t, want, db)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after all attempts", func(t *testing.T) {
		calls := 0
		refused := errors.New("connection refused")
		_, err := openWithRetry(func() (*gorm.DB, error) {
			calls++
			return nil, refused
		}, 3, 0, zap.NewNop())
		require.ErrorIs(t, err, refused)
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, 3, calls)
	})
}
