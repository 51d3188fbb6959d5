package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

// MutexLedger 是一個使用 Mutex 實現的帳本
// 每個帳戶一把鎖，互不相關的帳戶可以並行寫入
//
// 結構:
//
//	statementLog: 帳目資料
//	locks: 帳戶 ID -> 帳戶鎖，沒有人持有或等待時移除
//	locksMu: 保護 locks map 本身
type MutexLedger struct {
	*statementLog
	locks   map[uuid.UUID]*accountLock
	locksMu sync.Mutex
}

// accountLock 帶引用計數的帳戶鎖
type accountLock struct {
	mu   sync.Mutex
	refs int
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	wal: Write-Ahead Log 實例，nil 代表不落地
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(w *wal.WAL) (*MutexLedger, error) {
	log, err := newStatementLog(w)
	if err != nil {
		return nil, err
	}
	return &MutexLedger{
		statementLog: log,
		locks:        make(map[uuid.UUID]*accountLock),
	}, nil
}

// acquire 取得帳戶鎖，引用計數在等待前就先加上
func (m *MutexLedger) acquire(id uuid.UUID) *accountLock {
	m.locksMu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &accountLock{}
		m.locks[id] = lock
	}
	lock.refs++
	m.locksMu.Unlock()

	lock.mu.Lock()
	return lock
}

func (m *MutexLedger) release(id uuid.UUID, lock *accountLock) {
	lock.mu.Unlock()

	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, id)
	}
}

// lockCount 目前仍在 map 中的帳戶鎖數量
func (m *MutexLedger) lockCount() int {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	return len(m.locks)
}

// WithAccountLock 依排序後的順序取得帳戶鎖，避免死鎖
func (m *MutexLedger) WithAccountLock(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context, store usecase.StatementStore) error) error {
	ids := domain.SortLockIDs(accountIDs...)
	for _, id := range ids {
		lock := m.acquire(id)
		defer m.release(id, lock)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, m.statementLog)
}

var _ usecase.Ledger = (*MutexLedger)(nil)
