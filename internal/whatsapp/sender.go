package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	minPresenceDelay = 1 * time.Second
	maxPresenceDelay = 15 * time.Second

	typingCharsPerSecond = 150
	recordingMsPerKB     = 300
)

// Sender dispatches outbound messages through the UAZAPI gateway.
type Sender struct {
	baseURL    string
	instance   string
	token      string
	chunkDelay time.Duration
	client     *http.Client
	logger     *slog.Logger

	// sleep is swapped in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSender(log *slog.Logger, baseURL, instance, token string, chunkDelay, timeout time.Duration) *Sender {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Sender{
		baseURL:    baseURL,
		instance:   instance,
		token:      token,
		chunkDelay: chunkDelay,
		client:     &http.Client{Timeout: timeout},
		logger:     log.With(slog.String("service", "whatsapp")),
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SendText delivers a plain text message.
func (s *Sender) SendText(ctx context.Context, to, text string) error {
	payload := map[string]any{
		"to":    to,
		"type":  "text",
		"text":  map[string]any{"body": text},
		"delay": int(TypingDelay(text).Seconds()),
	}
	return s.post(ctx, payload)
}

// SendAudio delivers one voice message carrying the MP3 payload.
func (s *Sender) SendAudio(ctx context.Context, to string, audio []byte) error {
	payload := map[string]any{
		"to":   to,
		"type": "audio",
		"audio": map[string]any{
			"base64":   base64.StdEncoding.EncodeToString(audio),
			"mimetype": "audio/mpeg",
		},
		"delay": int(RecordingDelay(len(audio)).Seconds()),
	}
	return s.post(ctx, payload)
}

// SendAudioChunks delivers the clips in order, pausing between sends so the
// channel is not flooded. The first failed chunk aborts the sequence.
func (s *Sender) SendAudioChunks(ctx context.Context, to string, clips [][]byte) error {
	for i, clip := range clips {
		if i > 0 && s.chunkDelay > 0 {
			if err := s.sleep(ctx, s.chunkDelay); err != nil {
				return err
			}
		}
		if err := s.SendAudio(ctx, to, clip); err != nil {
			return fmt.Errorf("audio chunk %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Sender) post(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages/send", s.baseURL, s.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return fmt.Errorf("send status %d: %s", resp.StatusCode, raw)
	}
	s.logger.Debug("message dispatched", "to", payload["to"], "type", payload["type"])
	return nil
}

// TypingDelay estimates how long a human would take to type text, clamped to
// a sane presence-hint range. Purely cosmetic.
func TypingDelay(text string) time.Duration {
	d := time.Duration(len(text)) * time.Second / typingCharsPerSecond
	return clampDelay(d)
}

// RecordingDelay estimates a recording duration from the audio payload size.
func RecordingDelay(sizeBytes int) time.Duration {
	d := time.Duration(sizeBytes) * recordingMsPerKB * time.Millisecond / 1024
	return clampDelay(d)
}

func clampDelay(d time.Duration) time.Duration {
	if d < minPresenceDelay {
		return minPresenceDelay
	}
	if d > maxPresenceDelay {
		return maxPresenceDelay
	}
	return d
}
