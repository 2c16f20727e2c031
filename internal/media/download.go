package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultDownloadTimeout = 30 * time.Second

// Downloader fetches remote media payloads with a bounded size and timeout.
type Downloader struct {
	client *http.Client
	logger *slog.Logger
}

func NewDownloader(log *slog.Logger, timeout time.Duration) *Downloader {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &Downloader{
		client: &http.Client{Timeout: timeout},
		logger: log.With(slog.String("service", "media")),
	}
}

// Fetch downloads url and returns its body. Bodies larger than
// MaxDownloadBytes fail with ErrPayloadTooLarge.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// Some CDNs reject requests without a browser-looking user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; lexbot/1.0)")
	req.Header.Set("Accept", "*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrDownloadFailed, resp.StatusCode)
	}

	data, err := ReadAllWithLimit(resp.Body, MaxDownloadBytes)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("media downloaded", "url", url, "bytes", len(data))
	return data, nil
}
