package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pawkit/pawkit/internal/models"
	"github.com/pawkit/pawkit/internal/server/repositories/sessions"
)

type SessionService struct {
	repo       sessions.Repository
	staleAfter time.Duration
	now        func() time.Time
}

// NewSessionService builds the heartbeat service. staleAfter controls how
// long a silent device still counts as active.
func NewSessionService(repo sessions.Repository, staleAfter time.Duration) *SessionService {
	return &SessionService{
		repo:       repo,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Heartbeat upserts the device's session; last_seen is always server time.
func (s *SessionService) Heartbeat(ctx context.Context, workspaceID string, session *models.DeviceSession) error {
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	session.LastSeen = s.now()
	return s.repo.Upsert(ctx, workspaceID, session)
}

// ListActive returns the devices seen within the staleness window.
func (s *SessionService) ListActive(ctx context.Context, workspaceID string) ([]models.DeviceSession, error) {
	return s.repo.ListActive(ctx, workspaceID, s.now().Add(-s.staleAfter))
}
