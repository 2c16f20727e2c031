package inbound

// Kind classifies the primary content of an inbound message.
type Kind string

const (
	KindText     Kind = "text"
	KindAudio    Kind = "audio"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
	KindUnknown  Kind = "unknown"
)

// AudioRef points at downloadable voice content.
type AudioRef struct {
	URL      string
	MimeType string
}

// ImageRef points at downloadable image content.
type ImageRef struct {
	URL string
}

// Message is the canonical inbound event, immutable once built by the
// Normalizer. SenderID is always digits-only international format.
type Message struct {
	SenderID  string
	MessageID string
	Kind      Kind
	Text      string
	Audio     *AudioRef
	Image     *ImageRef
	IsEcho    bool
}

// HasContent reports whether the message carries anything to process.
func (m Message) HasContent() bool {
	return m.Text != "" || m.Audio != nil || m.Image != nil
}
