package enrich

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/lexbotdev/lexbot/internal/config"
	"github.com/lexbotdev/lexbot/internal/gemini"
	"github.com/lexbotdev/lexbot/internal/media"
)

const transcribePrompt = "Transcreva este áudio em português. Retorne apenas o texto transcrito, sem comentários adicionais."

// Transcriber turns voice notes into text. It tries a list of Gemini models
// in order and falls back to Whisper when all of them fail. Exhausting every
// backend is not an error: the caller gets an empty string and decides what
// to do with an unenrichable message.
type Transcriber struct {
	gemini       *gemini.Client
	models       []string
	openAIKey    string
	openAIBase   string
	whisperModel string
	language     string
	client       *http.Client
	logger       *slog.Logger
}

func NewTranscriber(log *slog.Logger, gc *gemini.Client, models []string, oa config.OpenAIConfig) *Transcriber {
	if log == nil {
		log = slog.Default()
	}
	if oa.BaseURL == "" {
		oa.BaseURL = "https://api.openai.com/v1"
	}
	if oa.WhisperModel == "" {
		oa.WhisperModel = "whisper-1"
	}
	if oa.Language == "" {
		oa.Language = "pt"
	}
	timeout := time.Duration(oa.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Transcriber{
		gemini:       gc,
		models:       models,
		openAIKey:    oa.APIKey,
		openAIBase:   oa.BaseURL,
		whisperModel: oa.WhisperModel,
		language:     oa.Language,
		client:       &http.Client{Timeout: timeout},
		logger:       log.With(slog.String("service", "transcribe")),
	}
}

// Transcribe returns the transcript of the audio payload, or "" when every
// backend fails. mimeHint is the MIME type asserted by the sender; the real
// container is detected from the payload bytes.
func (t *Transcriber) Transcribe(ctx context.Context, data []byte, mimeHint string) string {
	mime, ext := media.DetectAudioMime(data, mimeHint)

	for _, model := range t.models {
		text, err := t.viaGemini(ctx, model, data, mime)
		if err != nil {
			t.logger.Warn("transcription model failed", "model", model, "error", err)
			continue
		}
		if text != "" {
			return text
		}
	}

	if t.openAIKey != "" {
		text, err := t.viaWhisper(ctx, data, ext)
		if err != nil {
			t.logger.Warn("whisper fallback failed", "error", err)
		} else if text != "" {
			return text
		}
	}

	t.logger.Error("all transcription backends exhausted", "mime", mime)
	return ""
}

func (t *Transcriber) viaGemini(ctx context.Context, model string, data []byte, mime string) (string, error) {
	resp, err := t.gemini.GenerateContent(ctx, model, gemini.GenerateRequest{
		Contents: []gemini.Content{{
			Role: "user",
			Parts: []gemini.Part{
				{Text: transcribePrompt},
				{InlineData: &gemini.InlineData{
					MimeType: mime,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (t *Transcriber) viaWhisper(ctx context.Context, data []byte, ext string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", "audio."+ext)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.WriteField("model", t.whisperModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := w.WriteField("language", t.language); err != nil {
		return "", fmt.Errorf("write language field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.openAIBase+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.openAIKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whisper status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
