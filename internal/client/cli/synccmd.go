package cli

import (
	"context"
	"fmt"
)

// Sync runs one full cycle immediately.
func (a *App) Sync(ctx context.Context) error {
	if a.engine == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	if err := a.engine.SyncNow(ctx); err != nil {
		fmt.Fprintln(a.out, "Sync failed:", err)
		return err
	}
	fmt.Fprintln(a.out, "Sync complete")
	return nil
}

// Status reports the engine state, pending queue length, and device role.
func (a *App) Status(ctx context.Context) error {
	if a.engine == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	pending, err := a.engine.PendingCount(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}

	fmt.Fprintf(a.out, "sync:    %s\n", a.engine.Status())
	if lastErr := a.engine.LastError(); lastErr != nil {
		fmt.Fprintf(a.out, "error:   %v\n", lastErr)
	}
	fmt.Fprintf(a.out, "pending: %d\n", pending)
	fmt.Fprintf(a.out, "device:  %s\n", a.coordinator.Role())
	return nil
}

// Devices lists the account's device sessions as the server sees them.
func (a *App) Devices(ctx context.Context) error {
	sessions, err := a.api.Sessions(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(a.out, "No active devices")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(a.out, "%s  %s (%s/%s)  last seen %s\n",
			s.DeviceID, s.DeviceName, s.Client, s.OS, s.LastSeen.Local().Format(dateTimeLayout))
	}
	return nil
}

// Takeover claims the active-device role for this process.
func (a *App) Takeover(ctx context.Context) error {
	if err := a.coordinator.Takeover(ctx); err != nil {
		fmt.Fprintln(a.out, "Takeover failed:", err)
		return err
	}
	fmt.Fprintln(a.out, "This device is now active")
	return nil
}

// Backup exports the workspace and uploads it through a presigned URL.
func (a *App) Backup(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	name, err := a.backups.Upload(ctx, a.workspaceID())
	if err != nil {
		fmt.Fprintln(a.out, "Backup failed:", err)
		return err
	}
	fmt.Fprintln(a.out, "Backup uploaded as", name)
	return nil
}
