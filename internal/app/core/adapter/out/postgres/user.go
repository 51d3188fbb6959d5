package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// PostgresUserStore 以 Postgres 儲存帳戶
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (s *PostgresUserStore) Create(ctx context.Context, account *domain.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		account.ID.String(), account.Name, account.Email, account.PasswordHash, account.CreatedAt, account.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAccountAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.first(ctx, `id = $1::uuid`, id.String())
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.first(ctx, `email = $1`, domain.NormalizeEmail(email))
}

func (s *PostgresUserStore) first(ctx context.Context, where string, arg any) (*domain.Account, error) {
	var (
		id      string
		account domain.Account
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, name, email, password, created_at, updated_at
		FROM users WHERE `+where, arg).
		Scan(&id, &account.Name, &account.Email, &account.PasswordHash, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if account.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}
	return &account, nil
}

var _ usecase.UserRepository = (*PostgresUserStore)(nil)
