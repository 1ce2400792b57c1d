package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ksaito/mercari-watcher/internal/metrics"
)

// InteractiveHandler defines the interface for handling one parsed text
// message event.
type InteractiveHandler interface {
	HandleInteractiveRequest(ctx context.Context, text, replyToken string) error
}

// webhookEnvelope is the LINE webhook event envelope.
type webhookEnvelope struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string         `json:"type"`
	ReplyToken string         `json:"replyToken"`
	Message    webhookMessage `json:"message"`
}

type webhookMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// WebhookHandler handles inbound LINE webhook deliveries.
type WebhookHandler struct {
	engine InteractiveHandler
	log    *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(engine InteractiveHandler, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{engine: engine, log: log}
}

// Handle processes every text message event in the envelope. A malformed
// or unsupported event is skipped; it never aborts the rest of the batch.
// LINE expects 200 regardless of per-event outcomes.
func (h *WebhookHandler) Handle(c echo.Context) error {
	var envelope webhookEnvelope
	if err := c.Bind(&envelope); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	ctx := c.Request().Context()

	for i := range envelope.Events {
		ev := &envelope.Events[i]

		if ev.Type != "message" || ev.Message.Type != "text" ||
			ev.Message.Text == "" || ev.ReplyToken == "" {
			metrics.WebhookEventsSkippedTotal.Inc()
			h.log.Debug("webhook event skipped",
				"event_type", ev.Type,
				"message_type", ev.Message.Type,
			)
			continue
		}

		metrics.WebhookEventsTotal.Inc()

		if err := h.engine.HandleInteractiveRequest(ctx, ev.Message.Text, ev.ReplyToken); err != nil {
			h.log.Error("interactive request failed",
				"text", ev.Message.Text,
				"error", err,
			)
		}
	}

	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}
