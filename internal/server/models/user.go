// Package models holds the server-side entities that never cross the wire
// as-is. Synced records reuse the shared envelope in internal/models.
package models

import "time"

// User is an account. Workspace is derived from the login: every account owns
// exactly one workspace named after it.
type User struct {
	ID           string
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Workspace returns the id of the user's workspace.
func (u *User) Workspace() string {
	return u.Login
}
