package media

import "errors"

var (
	// ErrPayloadTooLarge indicates the payload exceeds the max download size.
	ErrPayloadTooLarge = errors.New("media payload too large")
	// ErrDownloadFailed indicates the remote host returned a non-success status.
	ErrDownloadFailed = errors.New("media download failed")
)
