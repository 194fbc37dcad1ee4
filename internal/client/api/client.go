// Package api implements the JSON client for the sync server. Authentication
// uses the session cookie set by the server on login, so the client carries a
// cookie jar. Transport failures and server status codes are mapped onto the
// sentinel errors in internal/common so callers can classify them with
// errors.Is.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/models"
)

// Client talks to the sync server over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient validates baseURL and returns a client with a fresh cookie jar.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, common.ErrInvalidURL
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: &http.Client{Jar: jar, Timeout: 30 * time.Second},
		baseURL:    u.Scheme + "://" + u.Host,
	}, nil
}

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register creates a new account on the server.
func (c *Client) Register(ctx context.Context, login string, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", credentials{Login: login, Password: password}, nil)
}

// Login authenticates and stores the session cookie in the jar.
func (c *Client) Login(ctx context.Context, login string, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/login", credentials{Login: login, Password: password}, nil)
}

// Logout terminates the current session on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Ping checks server reachability without touching user data.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// Changes lists records of the given kind modified since the given instant,
// tombstones included. A zero since returns everything.
func (c *Client) Changes(ctx context.Context, kind models.Kind, since time.Time) ([]models.Record, error) {
	path := "/api/" + kind.Resource()
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}

	var out []models.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create pushes a new record and returns the server's stored version.
func (c *Client) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	var out models.Record
	if err := c.do(ctx, http.MethodPost, "/api/"+rec.Kind.Resource(), rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update pushes a changed record and returns the server's stored version.
func (c *Client) Update(ctx context.Context, rec *models.Record) (*models.Record, error) {
	var out models.Record
	if err := c.do(ctx, http.MethodPatch, "/api/"+rec.Kind.Resource()+"/"+rec.ID, rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete soft-deletes a record on the server.
func (c *Client) Delete(ctx context.Context, kind models.Kind, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+kind.Resource()+"/"+id, nil, nil)
}

// Purge permanently removes a record on the server.
func (c *Client) Purge(ctx context.Context, kind models.Kind, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+kind.Resource()+"/"+id+"/permanent", nil, nil)
}

// Heartbeat reports this device's session as alive.
func (c *Client) Heartbeat(ctx context.Context, session models.DeviceSession) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/heartbeat", session, nil)
}

// Sessions lists the account's device sessions.
func (c *Client) Sessions(ctx context.Context) ([]models.DeviceSession, error) {
	var out []models.DeviceSession
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type presignRequest struct {
	FileName string `json:"fileName"`
}

type presignResponse struct {
	URL string `json:"url"`
}

// PresignBackup asks the server for a presigned upload URL for a backup file.
func (c *Client) PresignBackup(ctx context.Context, fileName string) (string, error) {
	var out presignResponse
	if err := c.do(ctx, http.MethodPost, "/api/backups/presign", presignRequest{FileName: fileName}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return common.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return common.ErrNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if eb.Message != "" {
			return fmt.Errorf("%w: %s", common.ErrRejected, eb.Message)
		}
		return fmt.Errorf("%w: status %d", common.ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", common.ErrUnavailable, resp.StatusCode)
	}
}
