package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type processor interface {
	Process(ctx context.Context, raw []byte)
}

// WebhookHandler receives inbound channel events. The provider retries on
// non-2xx responses, so any parseable payload is acknowledged with 200 even
// when it ends up dropped downstream.
type WebhookHandler struct {
	pipeline processor
	logger   *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, pipeline processor) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		pipeline: pipeline,
		logger:   log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhook", h.Receive)
}

func (h *WebhookHandler) Receive(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"status":  "error",
			"message": "could not read request body",
		})
	}
	if !json.Valid(raw) {
		h.logger.Warn("webhook payload is not valid JSON")
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"status":  "error",
			"message": "invalid JSON payload",
		})
	}

	h.pipeline.Process(c.Request().Context(), raw)
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
