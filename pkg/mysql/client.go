package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client 封裝 GORM DB 實例
type Client struct {
	db *gorm.DB
}

// NewClient 建立並回傳一個新的 MySQL 客戶端實例 (GORM)
//
// 參數:
//
//	cfg: Config - MySQL 連線配置
//	log: *zap.Logger - 重試時記錄用
//
// 回傳值:
//
//	*Client: 封裝後的 MySQL 客戶端
//	error: 若連線失敗則回傳錯誤
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	// 需要原子性的寫入一律走 db.Transaction
	// TranslateError 讓 duplicate key 變成 gorm.ErrDuplicatedKey
	gormConfig := &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 newLogger(cfg.LogLevel),
	}

	db, err := openWithRetry(func() (*gorm.DB, error) {
		db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.Ping(); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	}, connectAttempts, connectRetryInterval, log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Client{db: db}, nil
}

const (
	connectAttempts      = 10
	connectRetryInterval = 2 * time.Second
)

// openWithRetry 容器啟動時 MySQL 可能尚未就緒，失敗就等 interval 後重試
func openWithRetry(connect func() (*gorm.DB, error), attempts int, interval time.Duration, log *zap.Logger) (*gorm.DB, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var db *gorm.DB
		if db, err = connect(); err == nil {
			return db, nil
		}
		if i < attempts-1 {
			log.Warn("failed to connect to mysql, retrying",
				zap.Int("attempt", i+1),
				zap.Int("max_retries", attempts),
				zap.Duration("retry_in", interval),
				zap.Error(err),
			)
			time.Sleep(interval)
		}
	}
	return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", attempts, err)
}

// DB 回傳底層的 *gorm.DB 實例，供業務邏輯層使用
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close 關閉資料庫連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger 根據配置建立 GORM Logger
func newLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error
	}

	return logger.Default.LogMode(logLevel)
}
