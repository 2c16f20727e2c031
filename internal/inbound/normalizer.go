package inbound

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
)

// ErrUnrecognizedPayload means no known provider schema matched the event.
// Callers treat it as a no-op, not a failure.
var ErrUnrecognizedPayload = errors.New("unrecognized payload")

// Normalizer folds heterogeneous provider webhook payloads into a canonical
// Message. Known schema shapes are attempted in a fixed priority order and
// the first one that yields a sender plus some content wins.
type Normalizer struct {
	countryCode string
	logger      *slog.Logger
}

func NewNormalizer(log *slog.Logger, countryCode string) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(countryCode) == "" {
		countryCode = "55"
	}
	return &Normalizer{
		countryCode: countryCode,
		logger:      log.With(slog.String("service", "inbound")),
	}
}

type shapeMatcher func(map[string]any) (Message, bool)

// Normalize parses the raw event and attempts each schema shape in order.
func (n *Normalizer) Normalize(raw []byte) (Message, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Message{}, err
	}
	return n.NormalizeMap(payload)
}

// NormalizeMap is Normalize for an already-decoded payload.
func (n *Normalizer) NormalizeMap(payload map[string]any) (Message, error) {
	matchers := []shapeMatcher{
		matchFlatShape,
		matchEventShape,
		matchMetaShape,
	}
	for _, match := range matchers {
		msg, ok := match(payload)
		if !ok {
			continue
		}
		msg.SenderID = NormalizePhone(msg.SenderID, n.countryCode)
		if msg.SenderID == "" || !msg.HasContent() {
			continue
		}
		msg.Kind = inferKind(msg)
		n.logger.Debug("payload normalized",
			slog.String("sender", msg.SenderID),
			slog.String("kind", string(msg.Kind)),
			slog.Bool("is_echo", msg.IsEcho),
		)
		return msg, nil
	}
	return Message{}, ErrUnrecognizedPayload
}

// NormalizePhone strips transport suffixes (everything from '@'), drops
// non-digits, and prefixes the default country code when absent.
func NormalizePhone(phone, countryCode string) string {
	if at := strings.IndexByte(phone, '@'); at >= 0 {
		phone = phone[:at]
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, countryCode) {
		return countryCode + digits
	}
	return digits
}

// --- shape matchers ---

// matchFlatShape handles the flat provider style:
//
//	{"phone": "...", "text": {"message": "oi"}, "audio": {"audioUrl": ...}, "fromMe": false}
func matchFlatShape(payload map[string]any) (Message, bool) {
	sender := firstString(payload, "phone", "sender", "from", "chatId")
	if sender == "" {
		return Message{}, false
	}
	msg := extractFields(payload)
	msg.SenderID = sender
	return msg, true
}

// matchEventShape handles the nested event style:
//
//	{"event": {"data": {"from": "...", "message": {...}}}}
//
// with the data object optionally at the top level.
func matchEventShape(payload map[string]any) (Message, bool) {
	data, ok := childMap(payload, "event", "data")
	if !ok {
		data, ok = childMap(payload, "data")
	}
	if !ok {
		return Message{}, false
	}

	sender := firstString(data, "from", "phone", "sender")
	inner, hasInner := childMap(data, "message")
	if hasInner {
		if sender == "" {
			sender = firstString(inner, "from", "phone", "sender")
		}
		msg := extractFields(inner)
		msg.SenderID = sender
		if !msg.IsEcho {
			msg.IsEcho = firstBool(data, "fromMe", "isEcho", "from_me")
		}
		return msg, true
	}

	msg := extractFields(data)
	msg.SenderID = sender
	return msg, true
}

// matchMetaShape handles the Meta Cloud API style:
//
//	{"entry": [{"changes": [{"value": {"messages": [{...}]}}]}]}
func matchMetaShape(payload map[string]any) (Message, bool) {
	entry, ok := firstElem(payload, "entry")
	if !ok {
		return Message{}, false
	}
	change, ok := firstElem(entry, "changes")
	if !ok {
		return Message{}, false
	}
	value, ok := childMap(change, "value")
	if !ok {
		return Message{}, false
	}
	item, ok := firstElem(value, "messages")
	if !ok {
		return Message{}, false
	}
	msg := extractFields(item)
	msg.SenderID = firstString(item, "from", "phone")
	return msg, true
}

// extractFields pulls the shared message fields out of a message-like map,
// trying every known alias per field in order.
func extractFields(m map[string]any) Message {
	var msg Message
	msg.MessageID = firstString(m, "messageId", "message_id", "id")
	msg.IsEcho = firstBool(m, "fromMe", "isEcho", "from_me")

	parts := make([]string, 0, 2)
	if text := foldText(m["text"]); text != "" {
		parts = append(parts, text)
	} else if body := foldText(m["body"]); body != "" {
		parts = append(parts, body)
	}

	if audio, ok := childMap(m, "audio"); ok {
		url := firstString(audio, "audioUrl", "url", "link")
		if url != "" {
			msg.Audio = &AudioRef{
				URL:      url,
				MimeType: firstString(audio, "mimeType", "mimetype", "mime_type"),
			}
		}
	} else if url := firstString(m, "audioUrl", "audio_url"); url != "" {
		msg.Audio = &AudioRef{URL: url, MimeType: firstString(m, "mimeType", "mimetype")}
	}

	var caption string
	if image, ok := childMap(m, "image"); ok {
		url := firstString(image, "imageUrl", "url", "link")
		if url != "" {
			msg.Image = &ImageRef{URL: url}
		}
		caption = foldText(image["caption"])
	} else if url := firstString(m, "imageUrl", "image_url"); url != "" {
		msg.Image = &ImageRef{URL: url}
	}
	if caption == "" {
		caption = foldText(m["caption"])
	}
	// Caption goes after any independently detected text, blanks dropped.
	if caption != "" {
		parts = append(parts, caption)
	}
	msg.Text = strings.Join(parts, " ")

	if kind := firstString(m, "type", "messageType", "message_type"); kind != "" {
		msg.Kind = Kind(strings.ToLower(kind))
	}
	return msg
}

// inferKind fills in the content kind when the provider did not label it.
func inferKind(msg Message) Kind {
	switch msg.Kind {
	case KindText, KindAudio, KindImage, KindVideo, KindDocument:
		return msg.Kind
	}
	switch {
	case msg.Audio != nil:
		return KindAudio
	case msg.Image != nil:
		return KindImage
	case msg.Text != "":
		return KindText
	default:
		return KindUnknown
	}
}

// --- duck-typed field helpers ---

// foldText accepts a bare string or a {message|body: string} object.
func foldText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if s, ok := t["message"].(string); ok {
			return strings.TrimSpace(s)
		}
		if s, ok := t["body"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func firstBool(m map[string]any, keys ...string) bool {
	for _, key := range keys {
		if b, ok := m[key].(bool); ok {
			return b
		}
	}
	return false
}

func childMap(m map[string]any, path ...string) (map[string]any, bool) {
	current := m
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func firstElem(m map[string]any, key string) (map[string]any, bool) {
	list, ok := m[key].([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	elem, ok := list[0].(map[string]any)
	return elem, ok
}
