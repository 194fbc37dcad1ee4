// Package server initializes and runs the Pawkit API server: it connects to
// the database with retries, starts the HTTP endpoint and shuts it down
// gracefully on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/pawkit/pawkit/internal/logging"
	"github.com/pawkit/pawkit/internal/server/config"
	"github.com/pawkit/pawkit/internal/server/http"
	"github.com/pawkit/pawkit/internal/server/repositories/repomanager"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	zl, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	logger := logging.NewZapLogger(zl)

	repos, err := connectWithRetry(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return &App{
		config: cfg,
		logger: logger,
		server: http.NewServer(cfg, repos, logger),
	}, nil
}

// connectWithRetry keeps probing the database with exponential backoff so
// the server survives the database coming up after it in compose setups.
func connectWithRetry(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(time.Second))

	var repos repomanager.RepositoryManager
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		repos, err = repomanager.NewPostgresRepositoryManager(ctx, dsn)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repos, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			app.logger.Error(ctx, "server stopped", "error", err)
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}
}
