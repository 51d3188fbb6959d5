package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

var (
	// ErrLedgerStopped 核心引擎已停止
	ErrLedgerStopped = errors.New("ledger engine stopped")
	// ErrLedgerNotStarted 尚未呼叫 Start
	ErrLedgerNotStarted = errors.New("ledger engine not started")
)

// lockRequest 臨界區請求包裝channel，讓WithAccountLock可以等待結果
type lockRequest struct {
	ctx    context.Context
	fn     func(ctx context.Context, store usecase.StatementStore) error
	Result chan error // 讓 WithAccountLock 等這個 channel
}

// LMAXLedger 單一寫入者帳本
// 所有臨界區都由同一個 goroutine 依序執行，不需要帳戶鎖
type LMAXLedger struct {
	*statementLog
	// 輸送帶 負責接收請求
	requestChan chan *lockRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	done        chan struct{}
	startOnce   sync.Once
	started     atomic.Bool
	// closed 與 pending 讓停止時不會遺漏已放上輸送帶的請求
	closedMu sync.RWMutex
	closed   bool
	pending  atomic.Int64
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例
// 需呼叫 Start 後才會處理寫入
//
// 參數:
//
//	wal: Write-Ahead Log 實例，nil 代表不落地
//	bufferSize: 輸送帶容量
func NewLMAXLedger(w *wal.WAL, bufferSize int) (*LMAXLedger, error) {
	log, err := newStatementLog(w)
	if err != nil {
		return nil, err
	}
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &LMAXLedger{
		statementLog: log,
		requestChan:  make(chan *lockRequest, bufferSize),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &lockRequest{
					Result: make(chan error, 1),
				}
			},
		},
		done: make(chan struct{}),
	}, nil
}

// WithAccountLock 把臨界區送上輸送帶並等待結果
// accountIDs 不需要：所有請求本來就是串行執行
//
// WithAccountLock(等待) -> Channel -> Run Loop (核心) -> fn -> Result Channel -> WithAccountLock(收到結果)
func (l *LMAXLedger) WithAccountLock(ctx context.Context, _ []uuid.UUID, fn func(ctx context.Context, store usecase.StatementStore) error) error {
	req := l.requestPool.Get().(*lockRequest)
	req.ctx = ctx
	req.fn = fn
	// 清空上一輪殘留的結果
	select {
	case <-req.Result:
	default:
	}

	l.closedMu.RLock()
	switch {
	case l.closed:
		l.closedMu.RUnlock()
		l.release(req)
		return ErrLedgerStopped
	case !l.started.Load():
		l.closedMu.RUnlock()
		l.release(req)
		return ErrLedgerNotStarted
	}
	l.pending.Add(1)
	l.closedMu.RUnlock()

	select {
	case l.requestChan <- req:
	case <-ctx.Done():
		l.pending.Add(-1)
		l.release(req)
		return ctx.Err()
	}

	// 已進入輸送帶後一定會被執行，必須等結果才能回收 req
	err := <-req.Result
	l.release(req)
	return err
}

// release 清掉引用後放回 Pool
func (l *LMAXLedger) release(req *lockRequest) {
	req.ctx = nil
	req.fn = nil
	l.requestPool.Put(req)
}

// Start 啟動核心引擎 (非同步)
// ctx 結束時會把剩下的請求處理完再停止
func (l *LMAXLedger) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		l.started.Store(true)
		go l.run(ctx)
	})
}

// Done 引擎停止後關閉
func (l *LMAXLedger) Done() <-chan struct{} {
	return l.done
}

func (l *LMAXLedger) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，拒絕新請求並把剩下的處理完
			l.closedMu.Lock()
			l.closed = true
			l.closedMu.Unlock()
			l.drain()
			close(l.done)
			return
		case req := <-l.requestChan:
			l.process(req)
		}
	}
}

func (l *LMAXLedger) drain() {
	for l.pending.Load() > 0 {
		select {
		case req := <-l.requestChan:
			l.process(req)
		case <-time.After(time.Millisecond):
		}
	}
}

// process 執行單一臨界區並回傳結果
func (l *LMAXLedger) process(req *lockRequest) {
	defer l.pending.Add(-1)
	if err := req.ctx.Err(); err != nil {
		req.Result <- err
		return
	}
	req.Result <- req.fn(req.ctx, l.statementLog)
}

var _ usecase.Ledger = (*LMAXLedger)(nil)
