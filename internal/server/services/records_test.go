package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/models"
	"github.com/pawkit/pawkit/internal/server/repositories/records"
)

func newRecordService(t *testing.T) (*RecordService, *records.InMemoryRepository) {
	t.Helper()
	repo := records.NewInMemoryRepository()
	return NewRecordService(repo), repo
}

func todoRecord(id string, updatedAt time.Time) *models.Record {
	return &models.Record{
		ID:        id,
		Kind:      models.KindTodo,
		Payload:   json.RawMessage(`{"title":"x"}`),
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func TestUpsertInsertsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	svc, repo := newRecordService(t)
	now := time.Now().UTC()

	stored, err := svc.Upsert(ctx, "alice", todoRecord("t1", now))
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.WorkspaceID)

	got, err := repo.Get(ctx, "alice", models.KindTodo, "t1")
	require.NoError(t, err)
	assert.Equal(t, now, got.UpdatedAt)
}

func TestUpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		incoming  time.Time
		wantSaved bool
	}{
		{"older incoming is rejected", base.Add(-time.Minute), false},
		{"equal timestamp keeps stored copy", base, false},
		{"newer incoming wins", base.Add(time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newRecordService(t)

			_, err := svc.Upsert(ctx, "alice", todoRecord("t1", base))
			require.NoError(t, err)

			in := todoRecord("t1", tt.incoming)
			in.Payload = json.RawMessage(`{"title":"incoming"}`)

			stored, err := svc.Upsert(ctx, "alice", in)
			require.NoError(t, err)

			if tt.wantSaved {
				assert.JSONEq(t, `{"title":"incoming"}`, string(stored.Payload))
				assert.Equal(t, tt.incoming, stored.UpdatedAt)
			} else {
				assert.JSONEq(t, `{"title":"x"}`, string(stored.Payload))
				assert.Equal(t, base, stored.UpdatedAt)
			}
		})
	}
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRecordService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := svc.Upsert(ctx, "alice", todoRecord("t1", base))
	require.NoError(t, err)

	in := todoRecord("t1", base.Add(time.Hour))
	in.CreatedAt = base.Add(time.Hour)

	stored, err := svc.Upsert(ctx, "alice", in)
	require.NoError(t, err)
	assert.Equal(t, base, stored.CreatedAt)
}

func TestNewerUpdateResurrectsTombstone(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRecordService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := svc.Upsert(ctx, "alice", todoRecord("t1", base))
	require.NoError(t, err)

	_, err = svc.SoftDelete(ctx, "alice", models.KindTodo, "t1")
	require.NoError(t, err)

	// a later edit from another device arrives after the delete
	in := todoRecord("t1", time.Now().UTC().Add(time.Minute))
	stored, err := svc.Upsert(ctx, "alice", in)
	require.NoError(t, err)
	assert.False(t, stored.Deleted)
	assert.Nil(t, stored.DeletedAt)
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRecordService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := svc.Upsert(ctx, "alice", todoRecord("t1", base))
	require.NoError(t, err)

	deleted, err := svc.SoftDelete(ctx, "alice", models.KindTodo, "t1")
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	require.NotNil(t, deleted.DeletedAt)
	assert.True(t, deleted.UpdatedAt.After(base))

	// idempotent
	again, err := svc.SoftDelete(ctx, "alice", models.KindTodo, "t1")
	require.NoError(t, err)
	assert.Equal(t, deleted.UpdatedAt, again.UpdatedAt)

	_, err = svc.SoftDelete(ctx, "alice", models.KindTodo, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestChangedSince(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRecordService(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"t1", "t2", "t3"} {
		_, err := svc.Upsert(ctx, "alice", todoRecord(id, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := svc.SoftDelete(ctx, "alice", models.KindTodo, "t1")
	require.NoError(t, err)

	changed, err := svc.Changed(ctx, "alice", models.KindTodo, base)
	require.NoError(t, err)
	// t1 (tombstone, bumped past base), t2, t3; t1's original write is older
	// than its delete so only the tombstone version appears
	require.Len(t, changed, 3)

	changed, err = svc.Changed(ctx, "alice", models.KindTodo, base.Add(90*time.Second))
	require.NoError(t, err)
	var ids []string
	for _, rec := range changed {
		ids = append(ids, rec.ID)
	}
	assert.Contains(t, ids, "t3")
	assert.NotContains(t, ids, "t2")
}

func TestChangedIsWorkspaceScoped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRecordService(t)
	now := time.Now().UTC()

	_, err := svc.Upsert(ctx, "alice", todoRecord("t1", now))
	require.NoError(t, err)

	changed, err := svc.Changed(ctx, "bob", models.KindTodo, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	svc, repo := newRecordService(t)

	_, err := svc.Upsert(ctx, "alice", todoRecord("t1", time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, svc.Purge(ctx, "alice", models.KindTodo, "t1"))

	_, err = repo.Get(ctx, "alice", models.KindTodo, "t1")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.ErrorIs(t, svc.Purge(ctx, "alice", models.KindTodo, "t1"), common.ErrNotFound)
}

func TestCardURLValidation(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"public https", "https://example.com/article", false},
		{"public http", "http://example.com", false},
		{"note card without url", "", false},
		{"file scheme", "file:///etc/passwd", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"localhost", "http://localhost:8080/admin", true},
		{"loopback ip", "http://127.0.0.1/metrics", true},
		{"private ip", "http://10.0.0.5/internal", true},
		{"link local", "http://169.254.169.254/latest/meta-data", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newRecordService(t)

			rec, err := models.Wrap(models.KindCard, "c1", "alice",
				models.Card{Type: "url", URL: tt.url, Title: "t"}, now)
			require.NoError(t, err)

			_, err = svc.Upsert(ctx, "alice", rec)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrInvalidPayload)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
