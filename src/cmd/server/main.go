package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/securebank-core/src/internal/adapter/repository/memory"
	"github.com/api-sage/securebank-core/src/internal/adapter/repository/postgres"
	"github.com/api-sage/securebank-core/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/securebank-core/src/internal/clock"
	"github.com/api-sage/securebank-core/src/internal/config"
	"github.com/api-sage/securebank-core/src/internal/lock"
	"github.com/api-sage/securebank-core/src/internal/logger"
	"github.com/api-sage/securebank-core/src/internal/metrics"
	"github.com/api-sage/securebank-core/src/internal/reference"
	"github.com/api-sage/securebank-core/src/internal/usecase/service_interfaces"
	"github.com/api-sage/securebank-core/src/internal/usecase/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	accounts repo_interfaces.AccountRepository
	ledger   repo_interfaces.LedgerRepository
	loans    repo_interfaces.LoanRepository
	owners   repo_interfaces.OwnerDirectory
	seeder   ownerSeeder
	close    func() error
}

type application struct {
	ledger service_interfaces.LedgerService
	loans  service_interfaces.LoanService
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Environment: cfg.Environment, Level: cfg.LogLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server exited with error", err, nil)
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped", nil)
}

func run(ctx context.Context, cfg config.Config) error {
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.close(); err != nil {
			logger.Error("close repositories failed", err, nil)
		}
	}()

	locker, closeLocker, err := openLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLocker(); err != nil {
			logger.Error("close locker failed", err, nil)
		}
	}()

	collector := metrics.NewCollector()
	clk := clock.System()
	app := newApplication(repos, locker, clk, collector, cfg.LedgerMaxAttempts)

	// No transport is mounted; SEED_DEMO drives the services once at startup.
	if cfg.SeedDemo {
		if _, err := seedDemo(ctx, repos.seeder, repos.accounts, app, clk.Now()); err != nil {
			return err
		}
	}

	metricsServer := collector.StartMetricsServer(cfg.MetricsAddr)
	logger.Info("metrics server listening", logger.Fields{
		"storage":     cfg.Storage,
		"lockBackend": cfg.LockBackend,
		"metricsAddr": cfg.MetricsAddr,
		"seedDemo":    cfg.SeedDemo,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown requested", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newApplication(repos repositories, locker lock.Locker, clk clock.Clock, collector *metrics.Collector, maxAttempts int) application {
	return application{
		ledger: services.NewLedgerService(repos.accounts, repos.ledger, locker, reference.NewRandom(), clk, collector, maxAttempts),
		loans:  services.NewLoanService(repos.loans, repos.owners, locker, clk, collector),
	}
}

func openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	if cfg.Storage == config.StorageMemory {
		return memoryRepositories(memory.NewStore()), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := postgres.Open(connectCtx, cfg.DatabaseDSN)
	if err != nil {
		return repositories{}, err
	}

	if err := postgres.RunMigrations(connectCtx, db, cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return repositories{}, fmt.Errorf("run migrations: %w", err)
	}

	return postgresRepositories(db), nil
}

func memoryRepositories(store *memory.Store) repositories {
	owners := memory.NewOwnerDirectory(store)
	return repositories{
		accounts: memory.NewAccountRepository(store),
		ledger:   memory.NewLedgerRepository(store),
		loans:    memory.NewLoanRepository(store),
		owners:   owners,
		seeder:   owners,
		close:    func() error { return nil },
	}
}

func postgresRepositories(db *sql.DB) repositories {
	owners := postgres.NewOwnerDirectory(db)
	return repositories{
		accounts: postgres.NewAccountRepository(db),
		ledger:   postgres.NewLedgerRepository(db),
		loans:    postgres.NewLoanRepository(db),
		owners:   owners,
		seeder:   owners,
		close:    db.Close,
	}
}

func openLocker(ctx context.Context, cfg config.Config) (lock.Locker, func() error, error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return lock.NewMemory(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	locker, err := lock.NewRedis(client, lock.RedisOptions{
		Expiry:      cfg.LockExpiry,
		Tries:       cfg.LockTries,
		RetryDelay:  cfg.LockRetryDelay,
		DriftFactor: lock.DefaultRedisOptions().DriftFactor,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("configure redis locker: %w", err)
	}

	return locker, client.Close, nil
}
