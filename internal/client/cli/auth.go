package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/pawkit/pawkit/internal/common"
)

// Register prompts for credentials and creates the account. The user still
// has to log in afterwards.
func (a *App) Register(ctx context.Context) error {
	login, err := GetSimpleText(a.reader, "Choose a login", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.api.Register(ctx, login, password); err != nil {
		if errors.Is(err, common.ErrLoginAlreadyExists) || errors.Is(err, common.ErrRejected) {
			fmt.Fprintln(a.out, "Registration failed:", err)
			return err
		}
		fmt.Fprintln(a.out, "Server error:", err)
		return err
	}

	fmt.Fprintln(a.out, "Account created, you can log in now")
	return nil
}

// Login authenticates against the server and starts the sync engine for the
// account's workspace.
func (a *App) Login(ctx context.Context) error {
	login, err := GetSimpleText(a.reader, "Login", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.api.Login(ctx, login, password); err != nil {
		fmt.Fprintln(a.out, "Login failed:", err)
		return err
	}

	a.userName = login
	a.startEngine(ctx)

	fmt.Fprintln(a.out, "Logged in as", login)
	return nil
}

// Logout drains pending work best-effort, stops the engine, and ends the
// server session.
func (a *App) Logout(ctx context.Context) error {
	a.stopEngine()

	if err := a.api.Logout(ctx); err != nil && !errors.Is(err, common.ErrUnavailable) {
		fmt.Fprintln(a.out, "Logout error:", err)
	}

	a.userName = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
