package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

// statementRecord WAL 中的一筆帳目
type statementRecord struct {
	ID          uuid.UUID            `json:"id"`
	UserID      uuid.UUID            `json:"user_id"`
	SenderID    uuid.UUID            `json:"sender_id"`
	Type        domain.OperationType `json:"type"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description"`
	CreatedAt   time.Time            `json:"created_at"`
}

func toRecord(s domain.Statement) statementRecord {
	sender, _ := s.SenderID()
	return statementRecord{
		ID:          s.ID(),
		UserID:      s.UserID(),
		SenderID:    sender,
		Type:        s.Type(),
		Amount:      s.Amount(),
		Description: s.Description(),
		CreatedAt:   s.CreatedAt(),
	}
}

func (r statementRecord) toDomain() domain.Statement {
	return domain.RestoreStatement(r.ID, r.UserID, r.SenderID, r.Type, r.Amount, r.Description, r.CreatedAt)
}

// statementLog 記憶體中的 append-only 帳目
// MutexLedger 與 LMAXLedger 共用，兩者只差在如何串行化寫入
//
// 結構:
//
//	statements: 依寫入順序排列的帳目
//	byID: 帳目 ID -> statements 索引
//	byAccount: 帳戶 ID -> 相關帳目索引 (所屬方與付款方都會建立索引)
//	wal: Write-Ahead Log 實例，可為 nil
type statementLog struct {
	mu         sync.RWMutex
	statements []domain.Statement
	byID       map[uuid.UUID]int
	byAccount  map[uuid.UUID][]int
	wal        *wal.WAL
}

func newStatementLog(w *wal.WAL) (*statementLog, error) {
	l := &statementLog{
		statements: make([]domain.Statement, 0),
		byID:       make(map[uuid.UUID]int),
		byAccount:  make(map[uuid.UUID][]int),
		wal:        w,
	}
	if err := l.recoverFromWAL(); err != nil {
		return nil, err
	}
	return l, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳目
// 只在建構時呼叫，無需 Lock (單執行緒)
func (l *statementLog) recoverFromWAL() error {
	if l.wal == nil {
		return nil
	}
	return wal.Replay(l.wal, func(r statementRecord) error {
		if _, ok := l.byID[r.ID]; ok {
			return fmt.Errorf("duplicate statement %s in wal", r.ID)
		}
		l.appendLocked(r.toDomain())
		return nil
	})
}

func (l *statementLog) appendLocked(s domain.Statement) {
	idx := len(l.statements)
	l.statements = append(l.statements, s)
	l.byID[s.ID()] = idx
	l.byAccount[s.UserID()] = append(l.byAccount[s.UserID()], idx)
	if sender, ok := s.SenderID(); ok {
		l.byAccount[sender] = append(l.byAccount[sender], idx)
	}
}

// Create 先寫 WAL 再更新記憶體
func (l *statementLog) Create(ctx context.Context, s domain.Statement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[s.ID()]; ok {
		return fmt.Errorf("statement %s already exists", s.ID())
	}
	// 1. 寫入 WAL (Critical Path)
	if l.wal != nil {
		if err := l.wal.Write(toRecord(s)); err != nil {
			return fmt.Errorf("write wal: %w", err)
		}
	}
	// 2. 寫入記憶體
	l.appendLocked(s)
	return nil
}

func (l *statementLog) FindByID(ctx context.Context, id uuid.UUID) (domain.Statement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.byID[id]
	if !ok {
		return domain.Statement{}, domain.ErrStatementNotFound
	}
	return l.statements[idx], nil
}

func (l *statementLog) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Statement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	indexes := l.byAccount[accountID]
	out := make([]domain.Statement, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, l.statements[idx])
	}
	return out, nil
}

// Len 目前帳目總數
func (l *statementLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.statements)
}
