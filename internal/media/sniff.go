package media

import (
	"bytes"
	"strings"
)

// Audio container detection by magic bytes. Providers routinely mislabel
// voice notes, so the asserted MIME type is only a fallback.

// DetectAudioMime inspects the payload's magic bytes and returns the actual
// container MIME type plus a matching file extension. When detection fails it
// falls back to the hinted MIME type, defaulting to OGG (the common voice-note
// container).
func DetectAudioMime(data []byte, hint string) (mime, ext string) {
	switch {
	case isOGG(data):
		return "audio/ogg", "ogg"
	case isMP3(data):
		return "audio/mpeg", "mp3"
	case isWAV(data):
		return "audio/wav", "wav"
	}
	hint = strings.ToLower(strings.TrimSpace(hint))
	// Strip codec parameters: "audio/ogg; codecs=opus" -> "audio/ogg".
	if i := strings.IndexByte(hint, ';'); i >= 0 {
		hint = strings.TrimSpace(hint[:i])
	}
	switch hint {
	case "audio/mpeg", "audio/mp3":
		return "audio/mpeg", "mp3"
	case "audio/wav", "audio/x-wav":
		return "audio/wav", "wav"
	case "audio/ogg", "":
		return "audio/ogg", "ogg"
	default:
		return hint, "ogg"
	}
}

func isOGG(data []byte) bool {
	return bytes.HasPrefix(data, []byte("OggS"))
}

func isMP3(data []byte) bool {
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}
	if len(data) < 2 || data[0] != 0xFF {
		return false
	}
	switch data[1] {
	case 0xFB, 0xF3, 0xFA, 0xF2:
		return true
	}
	return false
}

func isWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.HasPrefix(data, []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// DetectImageMime inspects magic bytes first, then falls back to the URL
// extension, then defaults to JPEG.
func DetectImageMime(data []byte, sourceURL string) string {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
		return "image/gif"
	case isWEBP(data):
		return "image/webp"
	}

	lower := strings.ToLower(sourceURL)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func isWEBP(data []byte) bool {
	return len(data) >= 12 &&
		bytes.HasPrefix(data, []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WEBP"))
}
