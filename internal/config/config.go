package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/kafka"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/redislock"
	"github.com/JoeShih716/go-statement-ledger/pkg/logger"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
	"github.com/JoeShih716/go-statement-ledger/pkg/postgres"
)

// LedgerDriver 決定帳務儲存與串行化方式
type LedgerDriver string

const (
	DriverMySQL    LedgerDriver = "mysql"
	DriverPostgres LedgerDriver = "postgres"
	DriverMutex    LedgerDriver = "mutex"
	DriverLMAX     LedgerDriver = "lmax"
)

// Config 服務完整配置
type Config struct {
	Log      logger.Config   `yaml:"log"`
	HTTP     ServerConfig    `yaml:"http"`
	GRPC     ServerConfig    `yaml:"grpc"`
	Auth     AuthConfig      `yaml:"auth"`
	Ledger   LedgerConfig    `yaml:"ledger"`
	MySQL    mysql.Config    `yaml:"mysql"`
	Postgres postgres.Config `yaml:"postgres"`
	Redis    RedisConfig     `yaml:"redis"`
	Kafka    kafka.Config    `yaml:"kafka"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

type LedgerConfig struct {
	Driver LedgerDriver `yaml:"driver"`
	// 記憶體模式的 WAL 目錄，空字串代表不落地
	WALDir string `yaml:"wal_dir"`
	// LMAX 模式的請求佇列長度
	BufferSize int `yaml:"buffer_size"`
}

// RedisConfig 啟用後在 Ledger 外包一層跨實例的帳戶鎖
type RedisConfig struct {
	Enabled          bool `yaml:"enabled"`
	redislock.Config `yaml:",inline"`
}

// Load 讀取 yaml 配置，再以 .env 與環境變數覆寫
// 設定檔不存在時只使用預設值與環境變數
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Env, "APP_ENV")
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.GRPC.Addr, "GRPC_ADDR")
	setString(&c.Auth.Secret, "AUTH_SECRET")
	if v, ok := os.LookupEnv("LEDGER_DRIVER"); ok {
		c.Ledger.Driver = LedgerDriver(strings.ToLower(v))
	}
	setString(&c.Ledger.WALDir, "LEDGER_WAL_DIR")

	setString(&c.MySQL.Host, "MYSQL_HOST")
	setString(&c.MySQL.User, "MYSQL_USER")
	setString(&c.MySQL.Password, "MYSQL_PASSWORD")
	setString(&c.MySQL.DBName, "MYSQL_DB_NAME")
	if v, ok := os.LookupEnv("MYSQL_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", v, err)
		}
		c.MySQL.Port = port
	}

	setString(&c.Postgres.URL, "POSTGRES_URL")

	if v, ok := os.LookupEnv("REDIS_ADDR"); ok && v != "" {
		c.Redis.Enabled = true
		c.Redis.Addrs = splitList(v)
	}
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = splitList(v)
	}
	return nil
}

// applyDefaults 補全 yaml 沒寫的設定
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.GRPC.ShutdownTimeout == 0 {
		c.GRPC.ShutdownTimeout = 10 * time.Second
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "go-statement-ledger"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = DriverMutex
	}
	if c.Ledger.BufferSize == 0 {
		c.Ledger.BufferSize = 4096
	}

	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}

	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 20
	}
	if c.Postgres.MaxTxRetries == 0 {
		c.Postgres.MaxTxRetries = 3
	}

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "statements"
	}
}

// Validate 檢查配置是否可用
func (c *Config) Validate() error {
	switch c.Ledger.Driver {
	case DriverMutex, DriverLMAX:
	case DriverMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			return errors.New("config: mysql driver requires mysql.host and mysql.db_name")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("config: postgres driver requires postgres.url")
		}
	default:
		return fmt.Errorf("config: unknown ledger driver %q", c.Ledger.Driver)
	}

	if c.Auth.Secret == "" {
		return errors.New("config: auth.secret must not be empty")
	}
	if c.Redis.Enabled && len(c.Redis.Addrs) == 0 {
		return errors.New("config: redis enabled without addrs")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("config: kafka enabled without brokers")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
