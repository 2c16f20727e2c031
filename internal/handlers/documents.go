package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type ingester interface {
	Ingest(ctx context.Context, title, content string) (string, error)
}

type ingestRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// DocumentsHandler manages the knowledge base used by document_search.
type DocumentsHandler struct {
	ingester ingester
	validate *validator.Validate
	logger   *slog.Logger
}

func NewDocumentsHandler(log *slog.Logger, ing ingester) *DocumentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DocumentsHandler{
		ingester: ing,
		validate: validator.New(),
		logger:   log.With(slog.String("handler", "documents")),
	}
}

func (h *DocumentsHandler) Register(e *echo.Echo) {
	e.POST("/documents", h.Create)
}

func (h *DocumentsHandler) Create(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"status":  "error",
			"message": "title and content are required",
		})
	}

	id, err := h.ingester.Ingest(c.Request().Context(), req.Title, req.Content)
	if err != nil {
		h.logger.Error("document ingest failed", "title", req.Title, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": "could not index document",
		})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"status": "ok",
		"id":     id,
	})
}
