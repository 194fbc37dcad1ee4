// Package cli implements the interactive Pawkit client: a small REPL over
// the local store, the sync engine, and the device coordinator.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pawkit/pawkit/internal/client/api"
	"github.com/pawkit/pawkit/internal/client/config"
	"github.com/pawkit/pawkit/internal/client/device"
	"github.com/pawkit/pawkit/internal/client/services"
	"github.com/pawkit/pawkit/internal/client/store"
	enginepkg "github.com/pawkit/pawkit/internal/client/sync"
	"github.com/pawkit/pawkit/internal/logging"
	"github.com/pawkit/pawkit/internal/models"
)

// App wires the client together. The sync engine is created on login, when
// the workspace is known, and torn down on logout.
type App struct {
	config      *config.Config
	logger      logging.Logger
	store       *store.Store
	api         *api.Client
	coordinator *device.Coordinator
	records     services.RecordService
	backups     services.BackupService

	engine       *enginepkg.Engine
	engineCancel context.CancelFunc

	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	apiClient, err := api.NewClient(cfg.ServerBaseURL)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	deviceID, err := st.Meta.DeviceID(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	app := &App{
		config:  cfg,
		logger:  logger,
		store:   st,
		api:     apiClient,
		records: services.NewRecordService(st.DB, apiClient),
		backups: services.NewBackupService(st.DB, apiClient),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	app.coordinator = device.NewCoordinator(cfg.StateDir, apiClient, logger, device.Options{
		DeviceID:          deviceID,
		DeviceName:        hostname,
		HeartbeatInterval: cfg.HeartbeatInterval,
		// Becoming the active device is the CLI's foreground moment:
		// flush anything queued while this instance was passive.
		OnPromote: app.notifyEngineActive,
	})

	return app, nil
}

func (a *App) notifyEngineActive() {
	if a.engine != nil {
		a.engine.NotifyActive()
	}
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// workspaceID is the account's workspace. Pawkit gives each account exactly
// one, so the login name doubles as its id.
func (a *App) workspaceID() string {
	return a.userName
}

// startEngine creates and runs the sync engine for the current workspace.
func (a *App) startEngine(ctx context.Context) {
	if a.engine != nil {
		a.engine.Resume()
		return
	}

	a.engine = enginepkg.NewEngine(a.store, a.api, a.logger, enginepkg.Options{
		WorkspaceID:         a.workspaceID(),
		SyncInterval:        a.config.SyncInterval,
		OnlineCheckInterval: a.config.OnlineCheckInterval,
		OnDrop: func(m *models.Mutation, err error) {
			fmt.Fprintf(a.out, "Failed to save %s %s: change discarded by server (%v)\n",
				m.Kind, m.RecordID, err)
		},
	})

	engineCtx, cancel := context.WithCancel(ctx)
	a.engineCancel = cancel
	go a.engine.Run(engineCtx)

	// Flush edits made before this login.
	a.engine.NotifyActive()
}

func (a *App) stopEngine() {
	if a.engine == nil {
		return
	}
	_ = a.engine.Close()
	a.engineCancel()
	a.engine = nil
	a.engineCancel = nil
}

// Run starts the coordinator and the REPL, and tears everything down when
// the user exits.
func (a *App) Run(ctx context.Context) error {
	if err := a.coordinator.Start(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.promptStatus, scanner)

	a.stopEngine()
	_ = a.coordinator.Stop()
	return a.store.Close()
}

func (a *App) promptStatus() string {
	if !a.isLoggedIn() {
		return "logged out"
	}
	return a.userName
}
