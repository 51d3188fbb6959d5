package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
)

// querier 讓同一份查詢可以跑在 pool 或 tx 上
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const statementColumns = `id::text, user_id::text, sender_id::text, type::text, amount::text, description, created_at`

// statementStore 帳目的查詢與寫入
type statementStore struct {
	q querier
}

func (s *statementStore) Create(ctx context.Context, statement domain.Statement) error {
	var sender *string
	if id, ok := statement.SenderID(); ok {
		str := id.String()
		sender = &str
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO statements (id, user_id, sender_id, type, amount, description, created_at)
		VALUES ($1::uuid, $2::uuid, $3::uuid, $4::statement_type, $5::numeric, $6, $7)`,
		statement.ID().String(),
		statement.UserID().String(),
		sender,
		string(statement.Type()),
		statement.Amount().String(),
		statement.Description(),
		statement.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert statement: %w", err)
	}
	return nil
}

func (s *statementStore) FindByID(ctx context.Context, id uuid.UUID) (domain.Statement, error) {
	row := s.q.QueryRow(ctx, `SELECT `+statementColumns+` FROM statements WHERE id = $1::uuid`, id.String())
	statement, err := scanStatement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Statement{}, domain.ErrStatementNotFound
	}
	if err != nil {
		return domain.Statement{}, fmt.Errorf("select statement: %w", err)
	}
	return statement, nil
}

func (s *statementStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Statement, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+statementColumns+`
		FROM statements
		WHERE user_id = $1::uuid OR sender_id = $1::uuid
		ORDER BY seq ASC`, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("select statements: %w", err)
	}
	defer rows.Close()

	var out []domain.Statement
	for rows.Next() {
		statement, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		out = append(out, statement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return out, nil
}

func scanStatement(row pgx.Row) (domain.Statement, error) {
	var (
		id, user, opType, amount, description string
		sender                                *string
		createdAt                             time.Time
	)
	if err := row.Scan(&id, &user, &sender, &opType, &amount, &description, &createdAt); err != nil {
		return domain.Statement{}, err
	}

	statementID, err := uuid.Parse(id)
	if err != nil {
		return domain.Statement{}, err
	}
	userID, err := uuid.Parse(user)
	if err != nil {
		return domain.Statement{}, err
	}
	senderID := uuid.Nil
	if sender != nil {
		if senderID, err = uuid.Parse(*sender); err != nil {
			return domain.Statement{}, err
		}
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Statement{}, err
	}
	return domain.RestoreStatement(statementID, userID, senderID, domain.OperationType(opType), value, description, createdAt.UTC()), nil
}

// PostgresLedger 以 Postgres 儲存帳目
// 臨界區使用 SERIALIZABLE 交易並鎖定 users 列，遇到序列化衝突自動重試
type PostgresLedger struct {
	*statementStore
	pool       *pgxpool.Pool
	maxRetries int
}

func NewPostgresLedger(pool *pgxpool.Pool, maxRetries int) *PostgresLedger {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &PostgresLedger{
		statementStore: &statementStore{q: pool},
		pool:           pool,
		maxRetries:     maxRetries,
	}
}

// WithAccountLock 在 SERIALIZABLE 交易中執行 fn
// 只有 SQLSTATE 40001 / 40P01 會重試，領域錯誤直接回傳
func (l *PostgresLedger) WithAccountLock(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context, store usecase.StatementStore) error) error {
	ids := domain.SortLockIDs(accountIDs...)
	lockIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		lockIDs = append(lockIDs, id.String())
	}

	var err error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		err = l.runInTx(ctx, lockIDs, fn)
		if !isRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("serialization retries exhausted: %w", err)
}

func (l *PostgresLedger) runInTx(ctx context.Context, lockIDs []string, fn func(ctx context.Context, store usecase.StatementStore) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT id FROM users WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`, lockIDs)
	if err != nil {
		return fmt.Errorf("lock accounts: %w", err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock accounts: %w", err)
	}

	if err := fn(ctx, &statementStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

var _ usecase.Ledger = (*PostgresLedger)(nil)
