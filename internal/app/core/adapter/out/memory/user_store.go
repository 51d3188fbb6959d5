package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

// UserStore 記憶體帳戶儲存
type UserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]domain.Account
	byEmail map[string]uuid.UUID
	wal     *wal.WAL
}

// NewUserStore 建立 UserStore，若有 WAL 則先恢復資料
func NewUserStore(w *wal.WAL) (*UserStore, error) {
	s := &UserStore{
		byID:    make(map[uuid.UUID]domain.Account),
		byEmail: make(map[string]uuid.UUID),
		wal:     w,
	}
	if w != nil {
		err := wal.Replay(w, func(a userRecord) error {
			s.put(a.toDomain())
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

type userRecord struct {
	domain.Account
	PasswordHash string `json:"password_hash"`
}

func (r userRecord) toDomain() domain.Account {
	a := r.Account
	a.PasswordHash = r.PasswordHash
	return a
}

func (s *UserStore) put(a domain.Account) {
	s.byID[a.ID] = a
	s.byEmail[a.Email] = a.ID
}

func (s *UserStore) Create(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[account.Email]; ok {
		return domain.ErrAccountAlreadyExists
	}
	if _, ok := s.byID[account.ID]; ok {
		return domain.ErrAccountAlreadyExists
	}
	if s.wal != nil {
		if err := s.wal.Write(userRecord{Account: *account, PasswordHash: account.PasswordHash}); err != nil {
			return fmt.Errorf("write wal: %w", err)
		}
	}
	s.put(*account)
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a := s.byID[id]
	return &a, nil
}

var _ usecase.UserRepository = (*UserStore)(nil)
