package redislock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "ledger:lock", cfg.Prefix)
	assert.Equal(t, 5*time.Second, cfg.TTL)
	assert.Equal(t, 3*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.RetryInterval)

	custom := Config{Prefix: "x", TTL: time.Second}.withDefaults()
	assert.Equal(t, "x", custom.Prefix)
	assert.Equal(t, time.Second, custom.TTL)
}

func TestLedger_Key(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	inner, err := memory.NewMutexLedger(nil)
	require.NoError(t, err)
	l := NewLedger(inner, nil, Config{Prefix: "test"}, nil)
	assert.Equal(t, "test:00000000-0000-0000-0000-000000000001", l.key(id))
}

func TestLedger_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	inner, err := memory.NewMutexLedger(nil)
	require.NoError(t, err)
	l := NewLedger(inner, client, Config{WaitTimeout: 200 * time.Millisecond}, nil)

	called := false
	err = l.WithAccountLock(context.Background(), []uuid.UUID{uuid.New()}, func(ctx context.Context, store usecase.StatementStore) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called, "critical section must not run without the lock")
}

// unlockedLedger 直接執行臨界區不加鎖，互斥只能來自外層的 redis 鎖
type unlockedLedger struct {
	*memory.MutexLedger
	inside    atomic.Int32
	maxInside atomic.Int32
}

func (u *unlockedLedger) WithAccountLock(ctx context.Context, _ []uuid.UUID, fn func(ctx context.Context, store usecase.StatementStore) error) error {
	n := u.inside.Add(1)
	defer u.inside.Add(-1)
	for {
		cur := u.maxInside.Load()
		if n <= cur || u.maxInside.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return fn(ctx, u.MutexLedger)
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLedger_SerializesAcrossInstances(t *testing.T) {
	mr, client := newMiniredisClient(t)

	store, err := memory.NewMutexLedger(nil)
	require.NoError(t, err)
	shared := &unlockedLedger{MutexLedger: store}

	cfg := Config{Prefix: "test", WaitTimeout: 5 * time.Second, RetryInterval: time.Millisecond}
	instances := []*Ledger{
		NewLedger(shared, client, cfg, nil),
		NewLedger(shared, client, cfg, nil),
	}

	users, err := memory.NewUserStore(nil)
	require.NoError(t, err)
	john := domain.NewAccount("john", "john@example.com", "hash")
	require.NoError(t, users.Create(context.Background(), john))

	cores := []*usecase.CoreUseCase{
		usecase.NewCoreUseCase(users, instances[0]),
		usecase.NewCoreUseCase(users, instances[1]),
	}
	_, err = cores[0].CreateStatement(context.Background(), usecase.CreateStatementInput{
		AccountID: john.ID, Type: domain.OperationTypeDeposit, Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	// 兩個實例共用同一份儲存，每筆 30，只有三筆能成功
	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(core *usecase.CoreUseCase) {
			defer wg.Done()
			_, err := core.CreateStatement(context.Background(), usecase.CreateStatementInput{
				AccountID: john.ID, Type: domain.OperationTypeWithdraw, Amount: decimal.NewFromInt(30),
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(cores[i%2])
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok.Load())
	assert.Equal(t, int32(7), rejected.Load())
	assert.Equal(t, int32(1), shared.maxInside.Load())

	b, err := cores[1].GetBalance(context.Background(), john.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(b.Amount), "got %s", b.Amount)

	assert.False(t, mr.Exists(instances[0].key(john.ID)), "lock must be released")
}

func TestLedger_TimesOutWhileHeldByOther(t *testing.T) {
	mr, client := newMiniredisClient(t)
	inner, err := memory.NewMutexLedger(nil)
	require.NoError(t, err)
	l := NewLedger(inner, client, Config{Prefix: "test", WaitTimeout: 50 * time.Millisecond, RetryInterval: 5 * time.Millisecond}, nil)

	id := uuid.New()
	require.NoError(t, mr.Set(l.key(id), "someone-else"))

	called := false
	err = l.WithAccountLock(context.Background(), []uuid.UUID{id}, func(ctx context.Context, store usecase.StatementStore) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)

	got, err := mr.Get(l.key(id))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got, "foreign lock must stay untouched")
}

func TestLedger_ReleaseKeepsForeignToken(t *testing.T) {
	mr, client := newMiniredisClient(t)
	l := NewLedger(nil, client, Config{Prefix: "test"}, nil)

	key := l.key(uuid.New())
	require.NoError(t, mr.Set(key, "other-token"))

	l.release(key, "my-token")
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "other-token", got)

	l.release(key, "other-token")
	assert.False(t, mr.Exists(key))
}

func TestLedger_ReleasesAfterFailedCriticalSection(t *testing.T) {
	mr, client := newMiniredisClient(t)
	inner, err := memory.NewMutexLedger(nil)
	require.NoError(t, err)
	l := NewLedger(inner, client, Config{Prefix: "test"}, nil)

	a, b := uuid.New(), uuid.New()
	boom := errors.New("boom")
	err = l.WithAccountLock(context.Background(), []uuid.UUID{a, b}, func(ctx context.Context, store usecase.StatementStore) error {
		assert.True(t, mr.Exists(l.key(a)))
		assert.True(t, mr.Exists(l.key(b)))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(l.key(a)))
	assert.False(t, mr.Exists(l.key(b)))
}
