package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/in/grpc"
	rest_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/in/rest"
	kafka_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/kafka"
	memory_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/mysql"
	postgres_adapter "github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/postgres"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/adapter/out/redislock"
	"github.com/JoeShih716/go-statement-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-statement-ledger/internal/config"
	"github.com/JoeShih716/go-statement-ledger/pkg/logger"
	"github.com/JoeShih716/go-statement-ledger/pkg/metrics"
	"github.com/JoeShih716/go-statement-ledger/pkg/mysql"
	"github.com/JoeShih716/go-statement-ledger/pkg/postgres"
	"github.com/JoeShih716/go-statement-ledger/pkg/token"
	"github.com/JoeShih716/go-statement-ledger/pkg/wal"
)

// stores 依 driver 建立的儲存層
type stores struct {
	users   usecase.UserRepository
	ledger  usecase.Ledger
	closers []func() error
}

func (s *stores) close(log *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn("close resource failed", zap.Error(err))
		}
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	zlog.Info("server exited")
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)

	// 2. 儲存層
	st, err := openStores(ctx, cfg, zlog)
	if err != nil {
		cancel()
		return err
	}
	defer st.close(zlog)
	// 先於 st.close 執行，讓 LMAX 引擎停下
	defer cancel()

	ledger := st.ledger
	if cfg.Redis.Enabled {
		client := redislock.NewClient(cfg.Redis.Config)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		st.closers = append(st.closers, client.Close)
		ledger = redislock.NewLedger(ledger, client, cfg.Redis.Config, zlog)
		zlog.Info("distributed account lock enabled", zap.Strings("addrs", cfg.Redis.Addrs))
	}

	// 3. 事件
	opts := []usecase.Option{usecase.WithLogger(zlog)}
	if cfg.Kafka.Enabled {
		publisher := kafka_adapter.NewPublisher(cfg.Kafka)
		st.closers = append(st.closers, publisher.Close)
		opts = append(opts, usecase.WithPublisher(publisher))
		zlog.Info("kafka publisher enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 4. UseCase
	tokens := token.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	coreUseCase := usecase.NewCoreUseCase(st.users, ledger, opts...)
	userUseCase := usecase.NewUserUseCase(st.users, tokens, cfg.Auth.BcryptCost, zlog)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 5. gRPC
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPC.Addr, err)
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(m.UnaryServerInterceptor()))
	grpc_adapter.RegisterStatementServiceServer(grpcServer, grpc_adapter.NewGrpcServer(coreUseCase, tokens, zlog))
	reflection.Register(grpcServer)

	// 6. REST
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           rest_adapter.NewRouter(rest_adapter.NewHandler(coreUseCase, userUseCase, zlog), tokens, m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		zlog.Info("starting grpc server", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("serve grpc: %w", err)
		}
	}()
	go func() {
		zlog.Info("starting http server", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve http: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		zlog.Info("shutting down server...")
	case serveErr = <-errCh:
	}

	// Graceful Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(cfg.GRPC.ShutdownTimeout):
		grpcServer.Stop()
	}
	return serveErr
}

func openStores(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.Ledger.Driver {
	case config.DriverMySQL:
		client, err := mysql.NewClient(cfg.MySQL, zlog)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		st.closers = append(st.closers, client.Close)
		if cfg.MySQL.AutoMigrate {
			if err := mysql_adapter.Migrate(client); err != nil {
				st.close(zlog)
				return nil, fmt.Errorf("migrate mysql: %w", err)
			}
		}
		st.users = mysql_adapter.NewMySQLUserStore(client)
		st.ledger = mysql_adapter.NewMySQLLedger(client)
		zlog.Info("connected to mysql", zap.String("host", cfg.MySQL.Host))

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres, zlog)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() error { pool.Close(); return nil })
		if cfg.Postgres.AutoMigrate {
			if err := postgres_adapter.Migrate(ctx, pool); err != nil {
				st.close(zlog)
				return nil, err
			}
		}
		st.users = postgres_adapter.NewPostgresUserStore(pool)
		st.ledger = postgres_adapter.NewPostgresLedger(pool, cfg.Postgres.MaxTxRetries)
		zlog.Info("connected to postgres")

	case config.DriverMutex, config.DriverLMAX:
		statementWAL, userWAL, err := openWALs(cfg.Ledger.WALDir)
		if err != nil {
			return nil, err
		}
		for _, w := range []*wal.WAL{userWAL, statementWAL} {
			if w != nil {
				st.closers = append(st.closers, w.Close)
			}
		}

		users, err := memory_adapter.NewUserStore(userWAL)
		if err != nil {
			st.close(zlog)
			return nil, fmt.Errorf("init user store: %w", err)
		}
		st.users = users

		if cfg.Ledger.Driver == config.DriverMutex {
			mutexLedger, err := memory_adapter.NewMutexLedger(statementWAL)
			if err != nil {
				st.close(zlog)
				return nil, fmt.Errorf("init mutex ledger: %w", err)
			}
			st.ledger = mutexLedger
			zlog.Info("using in-memory mutex ledger", zap.Int("recovered_statements", mutexLedger.Len()))
			break
		}

		lmaxLedger, err := memory_adapter.NewLMAXLedger(statementWAL, cfg.Ledger.BufferSize)
		if err != nil {
			st.close(zlog)
			return nil, fmt.Errorf("init lmax ledger: %w", err)
		}
		// 引擎在 ctx 結束後把佇列處理完，WAL 要等它停下才能關
		lmaxLedger.Start(ctx)
		st.closers = append(st.closers, func() error {
			<-lmaxLedger.Done()
			return nil
		})
		st.ledger = lmaxLedger
		zlog.Info("using in-memory lmax ledger", zap.Int("recovered_statements", lmaxLedger.Len()))

	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
	return st, nil
}

// openWALs dir 為空時不落地
func openWALs(dir string) (statements, users *wal.WAL, err error) {
	if dir == "" {
		return nil, nil, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create wal dir: %w", err)
	}
	statements, err = wal.NewWAL(filepath.Join(dir, "statements.wal"))
	if err != nil {
		return nil, nil, fmt.Errorf("open statements wal: %w", err)
	}
	users, err = wal.NewWAL(filepath.Join(dir, "users.wal"))
	if err != nil {
		_ = statements.Close()
		return nil, nil, fmt.Errorf("open users wal: %w", err)
	}
	return statements, users, nil
}
