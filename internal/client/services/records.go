// Package services contains the client's application services: optimistic
// record writes that land in the local store and the mutation queue together,
// and backup export with presigned upload.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawkit/pawkit/internal/client/repositories/queue"
	"github.com/pawkit/pawkit/internal/client/repositories/records"
	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/dbx"
	"github.com/pawkit/pawkit/internal/models"
)

// RecordService applies user edits optimistically: the local store reflects
// the change immediately and the matching mutation is queued for the server.
// Both writes share one transaction so a crash cannot separate them.
type RecordService interface {
	Add(ctx context.Context, workspaceID string, kind models.Kind, payload any) (*models.Record, error)
	Update(ctx context.Context, kind models.Kind, id string, payload any) (*models.Record, error)
	Delete(ctx context.Context, kind models.Kind, id string) error
	Purge(ctx context.Context, kind models.Kind, id string) error
	Get(ctx context.Context, kind models.Kind, id string) (*models.Record, error)
	List(ctx context.Context, kind models.Kind, includeDeleted bool) ([]*models.Record, error)
}

// Purger permanently removes a record on the server. Purges bypass the queue:
// they are issued immediately and the local copy is removed regardless.
type Purger interface {
	Purge(ctx context.Context, kind models.Kind, id string) error
}

type recordService struct {
	db     *sql.DB
	purger Purger
	now    func() time.Time
}

func NewRecordService(db *sql.DB, purger Purger) RecordService {
	return &recordService{db: db, purger: purger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *recordService) Add(ctx context.Context, workspaceID string, kind models.Kind, payload any) (*models.Record, error) {
	rec, err := models.Wrap(kind, uuid.NewString(), workspaceID, payload, s.now())
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := records.NewSQLiteRepository(tx).Upsert(ctx, rec); err != nil {
			return err
		}
		return queue.NewSQLiteRepository(tx).Enqueue(ctx, &models.Mutation{
			Op:         models.OpCreate,
			Kind:       kind,
			RecordID:   rec.ID,
			Record:     rec,
			EnqueuedAt: rec.UpdatedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("saving record: %w", err)
	}
	return rec, nil
}

func (s *recordService) Update(ctx context.Context, kind models.Kind, id string, payload any) (*models.Record, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	var rec *models.Record
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		recordRepo := records.NewSQLiteRepository(tx)

		existing, err := recordRepo.GetByID(ctx, kind, id)
		if err != nil {
			return err
		}

		existing.Payload = b
		existing.UpdatedAt = s.now()
		existing.Deleted = false
		existing.DeletedAt = nil
		rec = existing

		if err := recordRepo.Upsert(ctx, existing); err != nil {
			return err
		}
		return queue.NewSQLiteRepository(tx).Enqueue(ctx, &models.Mutation{
			Op:         models.OpUpdate,
			Kind:       kind,
			RecordID:   id,
			Record:     existing,
			EnqueuedAt: existing.UpdatedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}
	return rec, nil
}

// Delete soft-deletes locally and queues the deletion. The record stays
// visible in the trash view until purged.
func (s *recordService) Delete(ctx context.Context, kind models.Kind, id string) error {
	at := s.now()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := records.NewSQLiteRepository(tx).SoftDelete(ctx, kind, id, at); err != nil {
			return err
		}
		return queue.NewSQLiteRepository(tx).Enqueue(ctx, &models.Mutation{
			Op:         models.OpDelete,
			Kind:       kind,
			RecordID:   id,
			EnqueuedAt: at,
		})
	})
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// Purge removes the record locally and asks the server to do the same. A
// server that is unreachable does not fail the local purge; the remote copy
// was already soft-deleted and holds no payload worth keeping.
func (s *recordService) Purge(ctx context.Context, kind models.Kind, id string) error {
	if err := records.NewSQLiteRepository(s.db).Purge(ctx, kind, id); err != nil {
		return fmt.Errorf("purging record: %w", err)
	}

	if err := s.purger.Purge(ctx, kind, id); err != nil &&
		!errors.Is(err, common.ErrUnavailable) && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("purging record on server: %w", err)
	}
	return nil
}

func (s *recordService) Get(ctx context.Context, kind models.Kind, id string) (*models.Record, error) {
	return records.NewSQLiteRepository(s.db).GetByID(ctx, kind, id)
}

func (s *recordService) List(ctx context.Context, kind models.Kind, includeDeleted bool) ([]*models.Record, error) {
	return records.NewSQLiteRepository(s.db).List(ctx, kind, includeDeleted)
}
