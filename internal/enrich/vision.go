package enrich

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/lexbotdev/lexbot/internal/gemini"
	"github.com/lexbotdev/lexbot/internal/media"
)

const defaultVisionPrompt = "Descreva esta imagem em detalhes, em português. Se houver texto na imagem, transcreva-o integralmente."

// Describer produces a textual description of an image, trying a list of
// vision-capable models in order. Exhaustion yields "" rather than an error.
type Describer struct {
	gemini *gemini.Client
	models []string
	logger *slog.Logger
}

func NewDescriber(log *slog.Logger, gc *gemini.Client, models []string) *Describer {
	if log == nil {
		log = slog.Default()
	}
	return &Describer{
		gemini: gc,
		models: models,
		logger: log.With(slog.String("service", "vision")),
	}
}

// Describe returns a description of the image, guided by prompt when given.
// sourceURL only matters for MIME detection when the magic bytes are
// unrecognized.
func (d *Describer) Describe(ctx context.Context, data []byte, sourceURL, prompt string) string {
	if prompt == "" {
		prompt = defaultVisionPrompt
	}
	mime := media.DetectImageMime(data, sourceURL)

	for _, model := range d.models {
		resp, err := d.gemini.GenerateContent(ctx, model, gemini.GenerateRequest{
			Contents: []gemini.Content{{
				Role: "user",
				Parts: []gemini.Part{
					{Text: prompt},
					{InlineData: &gemini.InlineData{
						MimeType: mime,
						Data:     base64.StdEncoding.EncodeToString(data),
					}},
				},
			}},
		})
		if err != nil {
			d.logger.Warn("vision model failed", "model", model, "error", err)
			continue
		}
		if text := strings.TrimSpace(resp.Text()); text != "" {
			return text
		}
	}

	d.logger.Error("all vision models exhausted", "mime", mime)
	return ""
}
