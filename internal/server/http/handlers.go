package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/models"
	"github.com/pawkit/pawkit/internal/server/auth"
)

type credentials struct {
	Login    string `json:"login" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

type presignRequest struct {
	FileName string `json:"fileName" validate:"required"`
}

type presignResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := s.users.Register(c.Request().Context(), creds.Login, creds.Password)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"login": user.Login})
}

func (s *Server) handleLogin(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := s.users.Login(c.Request().Context(), creds.Login, creds.Password)
	if err != nil {
		return httpError(err)
	}

	token, err := auth.GenerateToken(user.ID, user.Workspace(), []byte(s.config.SecretKey), s.config.SessionTokenValidity)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.config.SessionTokenValidity),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, map[string]string{"login": user.Login})
}

func (s *Server) handleLogout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}

// resourceKind resolves the :resource path segment, 404ing unknown ones.
func resourceKind(c echo.Context) (models.Kind, error) {
	kind, err := models.KindFromResource(c.Param("resource"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusNotFound, "unknown resource")
	}
	return kind, nil
}

func (s *Server) handleChanged(c echo.Context) error {
	kind, err := resourceKind(c)
	if err != nil {
		return err
	}

	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		since, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since parameter")
		}
	}

	changed, err := s.records.Changed(c.Request().Context(), workspaceID(c), kind, since)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, changed)
}

func (s *Server) handleCreate(c echo.Context) error {
	kind, err := resourceKind(c)
	if err != nil {
		return err
	}

	var rec models.Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if rec.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "record id required")
	}
	rec.Kind = kind

	stored, err := s.records.Upsert(c.Request().Context(), workspaceID(c), &rec)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, stored)
}

func (s *Server) handleUpdate(c echo.Context) error {
	kind, err := resourceKind(c)
	if err != nil {
		return err
	}

	var rec models.Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id := c.Param("id")
	if rec.ID != "" && rec.ID != id {
		return echo.NewHTTPError(http.StatusBadRequest, "record id does not match path")
	}
	rec.ID = id
	rec.Kind = kind

	stored, err := s.records.Upsert(c.Request().Context(), workspaceID(c), &rec)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, stored)
}

func (s *Server) handleDelete(c echo.Context) error {
	kind, err := resourceKind(c)
	if err != nil {
		return err
	}

	tombstone, err := s.records.SoftDelete(c.Request().Context(), workspaceID(c), kind, c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, tombstone)
}

func (s *Server) handlePurge(c echo.Context) error {
	kind, err := resourceKind(c)
	if err != nil {
		return err
	}

	if err := s.records.Purge(c.Request().Context(), workspaceID(c), kind, c.Param("id")); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHeartbeat(c echo.Context) error {
	var session models.DeviceSession
	if err := c.Bind(&session); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if session.DeviceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device id required")
	}

	if err := s.sessions.Heartbeat(c.Request().Context(), workspaceID(c), &session); err != nil {
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListSessions(c echo.Context) error {
	active, err := s.sessions.ListActive(c.Request().Context(), workspaceID(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, active)
}

func (s *Server) handlePresignBackup(c echo.Context) error {
	var req presignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	key, url, err := s.backups.GetPresignedPutUrl(c.Request().Context(), workspaceID(c), req.FileName)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, presignResponse{Key: key, URL: url})
}
