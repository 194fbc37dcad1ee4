package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/logging"
	"github.com/pawkit/pawkit/internal/models"
	sc "github.com/pawkit/pawkit/internal/server/config"
	"github.com/pawkit/pawkit/internal/server/repositories/repomanager"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.AuthRateLimit = 1000

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(cfg, repomanager.NewInMemoryRepositoryManager(), logger)
}

func doRequest(t *testing.T, srv *Server, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, srv *Server, login string) []*http.Cookie {
	t.Helper()

	creds := map[string]string{"login": login, "password": "password1"}

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/register", creds)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/auth/login", creds)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func makeCard(t *testing.T, id, title string, updatedAt time.Time) models.Record {
	t.Helper()
	rec, err := models.Wrap(models.KindCard, id, "", models.Card{Type: "note", Title: title}, updatedAt)
	require.NoError(t, err)
	return *rec
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t)

	creds := map[string]string{"login": "alice", "password": "password1"}

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/register", creds)
	assert.Equal(t, http.StatusCreated, rec.Code)

	t.Run("duplicate login conflicts", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/auth/register", creds)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/auth/register",
			map[string]string{"login": "bob", "password": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	creds := map[string]string{"login": "alice", "password": "password1"}
	rec := doRequest(t, srv, http.MethodPost, "/api/auth/register", creds)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("valid credentials set session cookie", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/auth/login", creds)
		require.Equal(t, http.StatusOK, rec.Code)

		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == common.SessionCookieName {
				session = c
			}
		}
		require.NotNil(t, session)
		assert.NotEmpty(t, session.Value)
		assert.True(t, session.HttpOnly)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/auth/login",
			map[string]string{"login": "alice", "password": "wrongpass"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown login rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/auth/login",
			map[string]string{"login": "nobody", "password": "password1"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/cards", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/cards", nil,
		&http.Cookie{Name: common.SessionCookieName, Value: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownResource(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	rec := doRequest(t, srv, http.MethodGet, "/api/widgets", nil, cookies...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordLifecycle(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	card := makeCard(t, "card-1", "first", time.Now().UTC())

	rec := doRequest(t, srv, http.MethodPost, "/api/cards", card, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "card-1", stored.ID)
	assert.Equal(t, "alice", stored.WorkspaceID)

	rec = doRequest(t, srv, http.MethodGet, "/api/cards", nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var changed []models.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changed))
	require.Len(t, changed, 1)

	rec = doRequest(t, srv, http.MethodDelete, "/api/cards/card-1", nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var tombstone models.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tombstone))
	assert.True(t, tombstone.Deleted)

	rec = doRequest(t, srv, http.MethodDelete, "/api/cards/card-1/permanent", nil, cookies...)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/cards", nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changed))
	assert.Empty(t, changed)
}

func TestUpdateOlderVersionLoses(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	now := time.Now().UTC()
	current := makeCard(t, "card-1", "current", now)

	rec := doRequest(t, srv, http.MethodPost, "/api/cards", current, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	stale := makeCard(t, "card-1", "stale", now.Add(-time.Minute))
	rec = doRequest(t, srv, http.MethodPatch, "/api/cards/card-1", stale, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.JSONEq(t, string(current.Payload), string(stored.Payload))
}

func TestUpdateIDMismatch(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	card := makeCard(t, "card-1", "first", time.Now().UTC())

	rec := doRequest(t, srv, http.MethodPatch, "/api/cards/card-2", card, cookies...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangedSinceFilter(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	base := time.Now().UTC()
	old := makeCard(t, "card-old", "old", base.Add(-time.Hour))
	fresh := makeCard(t, "card-new", "new", base)

	for _, card := range []models.Record{old, fresh} {
		rec := doRequest(t, srv, http.MethodPost, "/api/cards", card, cookies...)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	since := base.Add(-time.Minute).Format(time.RFC3339Nano)
	rec := doRequest(t, srv, http.MethodGet, "/api/cards?since="+since, nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var changed []models.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changed))
	require.Len(t, changed, 1)
	assert.Equal(t, "card-new", changed[0].ID)

	t.Run("malformed since rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/cards?since=yesterday", nil, cookies...)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWorkspaceIsolation(t *testing.T) {
	srv := newTestServer(t)
	alice := registerAndLogin(t, srv, "alice")
	bob := registerAndLogin(t, srv, "bob")

	card := makeCard(t, "card-1", "private", time.Now().UTC())
	rec := doRequest(t, srv, http.MethodPost, "/api/cards", card, alice...)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/cards", nil, bob...)
	require.Equal(t, http.StatusOK, rec.Code)

	var changed []models.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changed))
	assert.Empty(t, changed)

	rec = doRequest(t, srv, http.MethodDelete, "/api/cards/card-1", nil, bob...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardURLValidation(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	payload, err := json.Marshal(models.Card{Type: "url", URL: "http://localhost/admin", Title: "x"})
	require.NoError(t, err)

	card := models.Record{
		ID:        "card-1",
		Kind:      models.KindCard,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/cards", card, cookies...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	session := models.DeviceSession{
		DeviceID:   "device-1",
		DeviceName: "laptop",
		Client:     "pawkit-cli",
		OS:         "linux",
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/sessions/heartbeat", session, cookies...)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/sessions", nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var active []models.DeviceSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, "device-1", active[0].DeviceID)
	assert.False(t, active[0].LastSeen.IsZero())
}

func TestPresignBackup(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	rec := doRequest(t, srv, http.MethodPost, "/api/backups/presign",
		map[string]string{"fileName": "export.json"}, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp presignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Key, "backups/alice/")
	assert.Contains(t, resp.URL, resp.Key)
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t)
	srv.config.AuthRateLimit = 1

	// Rebuild so the limiter picks up the lowered rate.
	srv = NewServer(srv.config, repomanager.NewInMemoryRepositoryManager(),
		logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	limited := false
	for i := 0; i < 10; i++ {
		rec := doRequest(t, srv, http.MethodPost, "/api/auth/login",
			map[string]string{"login": fmt.Sprintf("user%d", i), "password": "password1"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t)
	cookies := registerAndLogin(t, srv, "alice")

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/logout", nil, cookies...)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.Empty(t, session.Value)
}
