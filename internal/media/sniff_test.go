package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectAudioMime(t *testing.T) {
	t.Parallel()

	wav := append([]byte("RIFF"), 0, 0, 0, 0)
	wav = append(wav, []byte("WAVE")...)

	tests := []struct {
		name     string
		data     []byte
		hint     string
		wantMime string
		wantExt  string
	}{
		{"ogg magic", []byte("OggS\x00\x02rest"), "audio/mpeg", "audio/ogg", "ogg"},
		{"id3 tag", []byte("ID3\x04\x00"), "", "audio/mpeg", "mp3"},
		{"mp3 frame sync fb", []byte{0xFF, 0xFB, 0x90}, "", "audio/mpeg", "mp3"},
		{"mp3 frame sync f3", []byte{0xFF, 0xF3, 0x90}, "", "audio/mpeg", "mp3"},
		{"wav riff", wav, "", "audio/wav", "wav"},
		{"fallback to hint", []byte("garbage"), "audio/mpeg", "audio/mpeg", "mp3"},
		{"hint with codec params", []byte("garbage"), "audio/ogg; codecs=opus", "audio/ogg", "ogg"},
		{"no hint defaults ogg", []byte("garbage"), "", "audio/ogg", "ogg"},
		{"short payload", []byte{0xFF}, "", "audio/ogg", "ogg"},
		{"empty payload", nil, "audio/wav", "audio/wav", "wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mime, ext := DetectAudioMime(tt.data, tt.hint)
			require.Equal(t, tt.wantMime, mime)
			require.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestDetectImageMime(t *testing.T) {
	t.Parallel()

	webp := append([]byte("RIFF"), 0, 0, 0, 0)
	webp = append(webp, []byte("WEBP")...)

	tests := []struct {
		name string
		data []byte
		url  string
		want string
	}{
		{"jpeg magic", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "", "image/jpeg"},
		{"png magic", []byte("\x89PNG\r\n\x1a\n"), "", "image/png"},
		{"gif87a", []byte("GIF87a"), "", "image/gif"},
		{"gif89a", []byte("GIF89a"), "", "image/gif"},
		{"webp riff", webp, "", "image/webp"},
		{"url extension png", []byte("unknown"), "https://cdn.example.com/photo.PNG", "image/png"},
		{"url extension with query", []byte("unknown"), "https://cdn.example.com/pic.webp?token=abc", "image/webp"},
		{"default jpeg", []byte("unknown"), "https://cdn.example.com/blob", "image/jpeg"},
		{"empty payload default", nil, "", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, DetectImageMime(tt.data, tt.url))
		})
	}
}
