package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pawkit/pawkit/internal/client/repositories/records"
	"github.com/pawkit/pawkit/internal/models"
	"github.com/pawkit/pawkit/internal/netx"
)

// Presigner obtains a presigned upload URL for a backup object.
type Presigner interface {
	PresignBackup(ctx context.Context, fileName string) (string, error)
}

// BackupService exports a workspace snapshot and ships it to object storage
// through a server-issued presigned URL.
type BackupService interface {
	Export(ctx context.Context, workspaceID string) ([]byte, error)
	Upload(ctx context.Context, workspaceID string) (string, error)
}

type backupExport struct {
	WorkspaceID string           `json:"workspaceId"`
	ExportedAt  time.Time        `json:"exportedAt"`
	Records     []*models.Record `json:"records"`
}

type backupService struct {
	db        *sql.DB
	presigner Presigner
	now       func() time.Time
}

func NewBackupService(db *sql.DB, presigner Presigner) BackupService {
	return &backupService{db: db, presigner: presigner, now: func() time.Time { return time.Now().UTC() }}
}

// Export serializes every record in the workspace, tombstones included, so a
// restore reproduces the store exactly.
func (s *backupService) Export(ctx context.Context, workspaceID string) ([]byte, error) {
	recs, err := records.NewSQLiteRepository(s.db).ListWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("reading workspace: %w", err)
	}

	b, err := json.MarshalIndent(backupExport{
		WorkspaceID: workspaceID,
		ExportedAt:  s.now(),
		Records:     recs,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}
	return b, nil
}

// Upload exports the workspace and PUTs it to a presigned URL. Returns the
// object name used on the server side.
func (s *backupService) Upload(ctx context.Context, workspaceID string) (string, error) {
	data, err := s.Export(ctx, workspaceID)
	if err != nil {
		return "", err
	}

	fileName := fmt.Sprintf("%s-%s.json", workspaceID, s.now().Format("20060102-150405"))

	url, err := s.presigner.PresignBackup(ctx, fileName)
	if err != nil {
		return "", fmt.Errorf("requesting upload url: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, url, data); err != nil {
		return "", fmt.Errorf("uploading backup: %w", err)
	}
	return fileName, nil
}
