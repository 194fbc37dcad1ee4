// Package services contains the server's application services. The records
// service owns the conflict rule: last-write-wins by updated timestamp, the
// same rule the client applies, so both ends converge on the same state.
package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/models"
	"github.com/pawkit/pawkit/internal/server/repositories/records"
)

type RecordService struct {
	repo records.Repository
	now  func() time.Time
}

func NewRecordService(repo records.Repository) *RecordService {
	return &RecordService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Upsert applies a client push. Absent records are inserted; existing ones
// are replaced only when the pushed copy is strictly newer. An update that is
// newer than a tombstone resurrects the record. The stored version is
// returned either way, so a losing push still tells the client the truth.
func (s *RecordService) Upsert(ctx context.Context, workspaceID string, rec *models.Record) (*models.Record, error) {
	if err := validatePayload(rec); err != nil {
		return nil, err
	}

	// workspace comes from the session, never from the body
	rec.WorkspaceID = workspaceID

	existing, err := s.repo.Get(ctx, workspaceID, rec.Kind, rec.ID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		if err := s.repo.Upsert(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	if !rec.NewerThan(existing) {
		return existing, nil
	}

	rec.CreatedAt = existing.CreatedAt
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Changed lists records of one kind modified strictly after since, tombstones
// included.
func (s *RecordService) Changed(ctx context.Context, workspaceID string, kind models.Kind, since time.Time) ([]models.Record, error) {
	return s.repo.Changed(ctx, workspaceID, kind, since)
}

// SoftDelete tombstones a record at server time. Deleting a tombstone again
// is a no-op returning the current state.
func (s *RecordService) SoftDelete(ctx context.Context, workspaceID string, kind models.Kind, id string) (*models.Record, error) {
	existing, err := s.repo.Get(ctx, workspaceID, kind, id)
	if err != nil {
		return nil, err
	}
	if existing.Deleted {
		return existing, nil
	}

	at := s.now()
	existing.Deleted = true
	existing.DeletedAt = &at
	existing.UpdatedAt = at

	if err := s.repo.Upsert(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Purge removes a record permanently.
func (s *RecordService) Purge(ctx context.Context, workspaceID string, kind models.Kind, id string) error {
	return s.repo.Purge(ctx, workspaceID, kind, id)
}

// validatePayload rejects card URLs that could be used to probe internal
// infrastructure once the server fetches previews: only http(s), no loopback,
// link-local or private hosts.
func validatePayload(rec *models.Record) error {
	if rec.Kind != models.KindCard {
		return nil
	}

	var card models.Card
	if err := rec.Unwrap(&card); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidPayload, err)
	}
	if card.URL == "" {
		return nil
	}

	u, err := url.Parse(card.URL)
	if err != nil {
		return fmt.Errorf("%w: invalid url", common.ErrInvalidPayload)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported url scheme %q", common.ErrInvalidPayload, u.Scheme)
	}

	host := u.Hostname()
	if host == "" || host == "localhost" {
		return fmt.Errorf("%w: forbidden host", common.ErrInvalidPayload)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("%w: forbidden host", common.ErrInvalidPayload)
		}
	}
	return nil
}
