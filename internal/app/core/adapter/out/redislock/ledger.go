package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// ErrLockTimeout 等待分散式鎖逾時
var ErrLockTimeout = errors.New("redislock: timed out waiting for account lock")

// 只刪除自己持有的鎖
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config 分散式鎖配置
type Config struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	Prefix   string   `yaml:"prefix"`
	// 鎖的存活時間，持有者當機時自動釋放
	TTL time.Duration `yaml:"ttl"`
	// 等待取得鎖的最長時間
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	// 重試間隔
	RetryInterval time.Duration `yaml:"retry_interval"`
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = "ledger:lock"
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Second
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 3 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 20 * time.Millisecond
	}
	return c
}

// NewClient 建立 redis client，多個位址時使用 cluster
func NewClient(cfg Config) redis.UniversalClient {
	if len(cfg.Addrs) > 1 {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addrs[0],
		Password: cfg.Password,
	})
}

// Ledger 在其他 Ledger 之外再包一層跨實例的帳戶鎖
// 多個服務實例共用同一個記憶體以外的儲存時使用
type Ledger struct {
	usecase.Ledger
	client redis.UniversalClient
	cfg    Config
	logger *zap.Logger
}

func NewLedger(inner usecase.Ledger, client redis.UniversalClient, cfg Config, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		Ledger: inner,
		client: client,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// WithAccountLock 依排序取得所有帳戶的 redis 鎖，再交給內層 Ledger 的臨界區
func (l *Ledger) WithAccountLock(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context, store usecase.StatementStore) error) error {
	ids := domain.SortLockIDs(accountIDs...)
	token := uuid.NewString()

	held := make([]string, 0, len(ids))
	defer func() {
		for _, key := range held {
			l.release(key, token)
		}
	}()

	for _, id := range ids {
		key := l.key(id)
		if err := l.acquire(ctx, key, token); err != nil {
			return err
		}
		held = append(held, key)
	}

	return l.Ledger.WithAccountLock(ctx, ids, fn)
}

func (l *Ledger) key(id uuid.UUID) string {
	return l.cfg.Prefix + ":" + id.String()
}

func (l *Ledger) acquire(ctx context.Context, key, token string) error {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// release 使用獨立 context，呼叫端取消後仍要釋放鎖
func (l *Ledger) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Warn("release account lock failed", zap.String("key", key), zap.Error(err))
	}
}

var _ usecase.Ledger = (*Ledger)(nil)
