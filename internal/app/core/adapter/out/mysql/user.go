package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
)

// sqlUser 對應資料庫的 users 表
type sqlUser struct {
	ID        []byte    `gorm:"primaryKey;type:binary(16)"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Password  string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (*sqlUser) TableName() string {
	return "users"
}

func (u *sqlUser) toDomain() (*domain.Account, error) {
	id, err := uuid.FromBytes(u.ID)
	if err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}
	return &domain.Account{
		ID:           id,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.Password,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}, nil
}

// MySQLUserStore 以 MySQL 儲存帳戶
type MySQLUserStore struct {
	db *gorm.DB
}

func NewMySQLUserStore(client *mysql.Client) *MySQLUserStore {
	return &MySQLUserStore{db: client.DB()}
}

func (s *MySQLUserStore) Create(ctx context.Context, account *domain.Account) error {
	row := sqlUser{
		ID:        account.ID[:],
		Name:      account.Name,
		Email:     account.Email,
		Password:  account.PasswordHash,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAccountAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MySQLUserStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.first(ctx, "id = ?", id[:])
}

func (s *MySQLUserStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.first(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (s *MySQLUserStore) first(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var row sqlUser
	err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return row.toDomain()
}

var _ usecase.UserRepository = (*MySQLUserStore)(nil)
