package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Fetcher defines the interface for triggering one fetch pass.
type Fetcher interface {
	RunScheduledFetch(ctx context.Context) error
}

// TriggerHandler handles external scheduler pings that request an
// immediate fetch outside the cron cadence.
type TriggerHandler struct {
	fetcher Fetcher
	secret  string
	log     *slog.Logger
}

// NewTriggerHandler creates a new TriggerHandler. An empty secret leaves
// the endpoint ungated.
func NewTriggerHandler(fetcher Fetcher, secret string, log *slog.Logger) *TriggerHandler {
	return &TriggerHandler{fetcher: fetcher, secret: secret, log: log}
}

// Trigger runs one fetch using the configured keyword and window. When a
// secret is configured, the request must carry it as a bearer token;
// mismatches get an explicit 401, never a silent no-op.
func (h *TriggerHandler) Trigger(c echo.Context) error {
	if h.secret != "" && bearerToken(c) != h.secret {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.fetcher.RunScheduledFetch(c.Request().Context()); err != nil {
		h.log.Error("triggered fetch failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "fetch failed"})
	}

	return c.JSON(http.StatusOK, StatusResponse{Status: "fetch completed"})
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return token
}
