// Package server assembles the account service from configuration: it picks
// the account store and mail transport, wires metrics and tracing, and runs
// the gRPC and metrics servers until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const (
	dbConnectAttempts = 8
	dbConnectBackoff  = 250 * time.Millisecond
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	accounts *services.AccountService
	recorder *metrics.Recorder
	tracer   *sdktrace.TracerProvider
	closers  []io.Closer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{config: c, logger: logger.With("module", "app")}

	repo, err := app.openStore(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.recorder = metrics.NewRecorder()
	app.tracer = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(app.tracer)

	app.accounts = services.NewAccountService(repo, c, app.newMailer(), logger, nil)

	return app, nil
}

// openStore connects the configured account store. Connections are closed
// by Close.
func (app *App) openStore(ctx context.Context) (accounts.Repository, error) {
	switch app.config.StoreDriver {
	case config.StorePostgres:
		db, err := sql.Open("pgx", app.config.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.closers = append(app.closers, db)

		if err := repomanager.WaitForDB(ctx, db, dbConnectAttempts, dbConnectBackoff); err != nil {
			return nil, fmt.Errorf("db connect error: %w", err)
		}

		rm, err := repomanager.NewPostgresRepositoryManager(db)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := rm.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("db migration error: %w", err)
		}

		app.logger.Info(ctx, "account store ready", "driver", config.StorePostgres)
		return rm.Accounts(db), nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     app.config.RedisAddr,
			Password: app.config.RedisPassword,
			DB:       app.config.RedisDB,
		})
		app.closers = append(app.closers, rdb)

		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis connect error: %w", err)
		}

		app.logger.Info(ctx, "account store ready", "driver", config.StoreRedis, "addr", app.config.RedisAddr)
		return accounts.NewRedisRepository(rdb), nil

	case config.StoreMemory:
		app.logger.Warn(ctx, "using in-memory account store, data is lost on exit")
		return accounts.NewMemoryRepository(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", app.config.StoreDriver)
	}
}

func (app *App) newMailer() mail.Sender {
	if app.config.MailDriver == config.MailSMTP {
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     app.config.SMTPHost,
			Port:     app.config.SMTPPort,
			Username: app.config.SMTPUsername,
			Password: app.config.SMTPPassword,
			From:     app.config.MailFrom,
		})
	}
	return mail.NewLogSender(app.logger)
}

// Run serves gRPC and metrics until ctx is done or either server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.logger.Info(ctx, "Starting app...")

	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accounts,
		gs.WithMetrics(app.recorder),
		gs.WithTracerProvider(app.tracer),
	)
	metricsServer := metrics.NewServer(app.config.MetricsAddr, app.recorder, app.logger)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, "server failed", "server", name, "err", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancel()
			}
		}()
	}

	run("grpc", grpcServer.Run)
	run("metrics", metricsServer.Run)

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")

	return errors.Join(errs...)
}

// Close releases the store connections and flushes the tracer.
func (app *App) Close() error {
	var errs []error
	if app.tracer != nil {
		errs = append(errs, app.tracer.Shutdown(context.Background()))
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i].Close())
	}
	return errors.Join(errs...)
}
