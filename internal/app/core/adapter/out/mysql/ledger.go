package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
)

// sqlStatement 對應資料庫的 statements 表
// Seq 是寫入順序，歷史一律依 Seq 排序
type sqlStatement struct {
	Seq         int64           `gorm:"primaryKey;autoIncrement"`
	ID          []byte          `gorm:"column:id;type:binary(16);uniqueIndex"`
	UserID      []byte          `gorm:"column:user_id;type:binary(16);not null;index"`
	SenderID    []byte          `gorm:"column:sender_id;type:binary(16);index"` // 非轉帳為 NULL
	Type        string          `gorm:"type:enum('deposit','withdraw','transfer');not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Description string          `gorm:"type:varchar(255)"`
	CreatedAt   time.Time       `gorm:"not null"`
}

func (*sqlStatement) TableName() string {
	return "statements"
}

func toSQLStatement(s domain.Statement) sqlStatement {
	id := s.ID()
	user := s.UserID()
	row := sqlStatement{
		ID:          id[:],
		UserID:      user[:],
		Type:        string(s.Type()),
		Amount:      s.Amount(),
		Description: s.Description(),
		CreatedAt:   s.CreatedAt(),
	}
	if sender, ok := s.SenderID(); ok {
		row.SenderID = sender[:]
	}
	return row
}

func (row *sqlStatement) toDomain() (domain.Statement, error) {
	id, err := uuid.FromBytes(row.ID)
	if err != nil {
		return domain.Statement{}, fmt.Errorf("decode statement id: %w", err)
	}
	user, err := uuid.FromBytes(row.UserID)
	if err != nil {
		return domain.Statement{}, fmt.Errorf("decode user id: %w", err)
	}
	sender := uuid.Nil
	if len(row.SenderID) > 0 {
		if sender, err = uuid.FromBytes(row.SenderID); err != nil {
			return domain.Statement{}, fmt.Errorf("decode sender id: %w", err)
		}
	}
	return domain.RestoreStatement(id, user, sender, domain.OperationType(row.Type), row.Amount, row.Description, row.CreatedAt), nil
}

// MySQLLedger 以 MySQL 儲存帳目
// 臨界區使用 DB 交易 + SELECT ... FOR UPDATE 鎖定 users 列
type MySQLLedger struct {
	db *gorm.DB
}

func NewMySQLLedger(client *mysql.Client) *MySQLLedger {
	return &MySQLLedger{
		db: client.DB(),
	}
}

// Migrate 建立 users 與 statements 表
func Migrate(client *mysql.Client) error {
	return client.DB().AutoMigrate(&sqlUser{}, &sqlStatement{})
}

func (ledger *MySQLLedger) Create(ctx context.Context, statement domain.Statement) error {
	row := toSQLStatement(statement)
	if err := ledger.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert statement: %w", err)
	}
	return nil
}

func (ledger *MySQLLedger) FindByID(ctx context.Context, id uuid.UUID) (domain.Statement, error) {
	var row sqlStatement
	err := ledger.db.WithContext(ctx).Where("id = ?", id[:]).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Statement{}, domain.ErrStatementNotFound
	}
	if err != nil {
		return domain.Statement{}, fmt.Errorf("select statement: %w", err)
	}
	return row.toDomain()
}

func (ledger *MySQLLedger) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Statement, error) {
	var rows []sqlStatement
	err := ledger.db.WithContext(ctx).
		Where("user_id = ? OR sender_id = ?", accountID[:], accountID[:]).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select statements: %w", err)
	}

	out := make([]domain.Statement, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// WithAccountLock 在同一個交易內鎖定帳戶列後執行 fn
// fn 失敗時整個交易 rollback
func (ledger *MySQLLedger) WithAccountLock(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context, store usecase.StatementStore) error) error {
	ids := domain.SortLockIDs(accountIDs...)
	lockIDs := make([][]byte, 0, len(ids))
	for _, id := range ids {
		lockIDs = append(lockIDs, id[:])
	}

	return ledger.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 取得鎖定帳號 悲觀鎖
		var users []sqlUser
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", lockIDs).
			Order("id").
			Find(&users).Error; err != nil {
			return fmt.Errorf("lock accounts: %w", err)
		}
		return fn(ctx, &MySQLLedger{db: tx})
	})
}

var _ usecase.Ledger = (*MySQLLedger)(nil)
