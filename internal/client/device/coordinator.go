// Package device coordinates which device instance is the active one for an
// account on a shared state directory. The active device is recorded in a
// marker file; other instances watch the marker and step down the moment a
// different device claims it.
package device

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pawkit/pawkit/internal/logging"
	"github.com/pawkit/pawkit/internal/models"
)

// Role is this instance's current standing in the coordination protocol.
type Role string

const (
	RoleActive  Role = "active"
	RolePassive Role = "passive"
)

const markerFileName = "active.device"

// Heartbeater reports the active device's session to the server.
type Heartbeater interface {
	Heartbeat(ctx context.Context, session models.DeviceSession) error
}

// Options configures a Coordinator.
type Options struct {
	DeviceID          string
	DeviceName        string
	HeartbeatInterval time.Duration

	// OnPromote is called after this device becomes active, whether by
	// takeover or by resuming the role on start. May be nil.
	OnPromote func()
}

// Coordinator tracks and changes this device's role. All transitions are
// driven either by Takeover or by marker file events; heartbeats run only
// while the role is active.
type Coordinator struct {
	stateDir string
	marker   string
	server   Heartbeater
	logger   logging.Logger
	opts     Options

	mu       sync.Mutex
	role     Role
	hbCancel context.CancelFunc

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewCoordinator(stateDir string, server Heartbeater, logger logging.Logger, opts Options) *Coordinator {
	return &Coordinator{
		stateDir: stateDir,
		marker:   filepath.Join(stateDir, markerFileName),
		server:   server,
		logger:   logger,
		opts:     opts,
		role:     RolePassive,
		done:     make(chan struct{}),
	}
}

// Start determines the initial role from the marker file and begins watching
// for claims by other devices. A device that held the active role before a
// restart resumes it.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := os.MkdirAll(c.stateDir, 0o700); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(c.stateDir); err != nil {
		_ = watcher.Close()
		return err
	}
	c.watcher = watcher

	if c.readMarker() == c.opts.DeviceID {
		c.promote(ctx)
	}

	c.wg.Add(1)
	go c.watch(ctx)

	return nil
}

// Role returns the current role.
func (c *Coordinator) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Takeover claims the active role for this device. The marker is written via
// a temp file and rename so watchers never observe a partial claim. Other
// instances see the event and demote themselves.
func (c *Coordinator) Takeover(ctx context.Context) error {
	tmp, err := os.CreateTemp(c.stateDir, markerFileName+".tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(c.opts.DeviceID + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.marker); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	c.promote(ctx)
	return nil
}

// Stop ends watching and heartbeats. The role is left as-is on disk so the
// device can resume it on next start.
func (c *Coordinator) Stop() error {
	close(c.done)

	c.mu.Lock()
	if c.hbCancel != nil {
		c.hbCancel()
		c.hbCancel = nil
	}
	c.mu.Unlock()

	var err error
	if c.watcher != nil {
		err = c.watcher.Close()
	}
	c.wg.Wait()

	return err
}

func (c *Coordinator) readMarker() string {
	b, err := os.ReadFile(c.marker)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (c *Coordinator) promote(ctx context.Context) {
	c.mu.Lock()

	if c.role == RoleActive {
		c.mu.Unlock()
		return
	}
	c.role = RoleActive

	hbCtx, cancel := context.WithCancel(ctx)
	c.hbCancel = cancel
	c.wg.Add(1)
	go c.heartbeatLoop(hbCtx)
	c.mu.Unlock()

	c.logger.Info(ctx, "device is now active", "deviceId", c.opts.DeviceID)

	// Outside the lock so the hook may call back into the coordinator.
	if c.opts.OnPromote != nil {
		c.opts.OnPromote()
	}
}

func (c *Coordinator) demote(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.role == RolePassive {
		return
	}
	c.role = RolePassive

	if c.hbCancel != nil {
		c.hbCancel()
		c.hbCancel = nil
	}

	c.logger.Info(ctx, "device demoted to passive", "deviceId", c.opts.DeviceID)
}

func (c *Coordinator) watch(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != markerFileName {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if owner := c.readMarker(); owner != "" && owner != c.opts.DeviceID {
				c.demote(ctx)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn(ctx, "marker watch error", "error", err)
		}
	}
}

func (c *Coordinator) heartbeatLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			session := models.DeviceSession{
				DeviceID:   c.opts.DeviceID,
				DeviceName: c.opts.DeviceName,
				Client:     "pawkit-cli",
				OS:         runtime.GOOS,
				LastSeen:   time.Now().UTC(),
			}
			if err := c.server.Heartbeat(ctx, session); err != nil {
				c.logger.Warn(ctx, "heartbeat failed", "error", err)
			}
		}
	}
}
