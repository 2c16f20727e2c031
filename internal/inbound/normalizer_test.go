package inbound

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{name: "bare local number", phone: "85999998888", want: "5585999998888"},
		{name: "already international", phone: "5585999998888", want: "5585999998888"},
		{name: "transport suffix", phone: "5585999998888@s.whatsapp.net", want: "5585999998888"},
		{name: "formatted", phone: "+55 (85) 99999-8888", want: "5585999998888"},
		{name: "suffix and formatting", phone: "85 99999-8888@c.us", want: "5585999998888"},
		{name: "empty", phone: "", want: ""},
		{name: "no digits", phone: "@broadcast", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, NormalizePhone(tt.phone, "55"))
		})
	}
}

func TestNormalizeFlatShape(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(nil, "55")

	msg, err := n.Normalize([]byte(`{"phone":"85999998888","text":{"message":"oi"}}`))
	require.NoError(t, err)
	require.Equal(t, "5585999998888", msg.SenderID)
	require.Equal(t, KindText, msg.Kind)
	require.Equal(t, "oi", msg.Text)
	require.False(t, msg.IsEcho)
}

func TestNormalizeFlatShapeAliases(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(nil, "55")

	tests := []struct {
		name string
		raw  string
		want Message
	}{
		{
			name: "bare string text and sender alias",
			raw:  `{"sender":"5585999998888","text":"bom dia"}`,
			want: Message{SenderID: "5585999998888", Kind: KindText, Text: "bom dia"},
		},
		{
			name: "body object text",
			raw:  `{"from":"85999998888","text":{"body":"ola"}}`,
			want: Message{SenderID: "5585999998888", Kind: KindText, Text: "ola"},
		},
		{
			name: "audio with mimetype alias",
			raw:  `{"phone":"85999998888","audio":{"url":"https://cdn/a.ogg","mimetype":"audio/ogg"}}`,
			want: Message{
				SenderID: "5585999998888",
				Kind:     KindAudio,
				Audio:    &AudioRef{URL: "https://cdn/a.ogg", MimeType: "audio/ogg"},
			},
		},
		{
			name: "audioUrl preferred over url",
			raw:  `{"phone":"85999998888","audio":{"audioUrl":"https://cdn/first.ogg","url":"https://cdn/second.ogg"}}`,
			want: Message{
				SenderID: "5585999998888",
				Kind:     KindAudio,
				Audio:    &AudioRef{URL: "https://cdn/first.ogg"},
			},
		},
		{
			name: "flat audioUrl",
			raw:  `{"phone":"85999998888","audioUrl":"https://cdn/a.mp3","mimeType":"audio/mpeg"}`,
			want: Message{
				SenderID: "5585999998888",
				Kind:     KindAudio,
				Audio:    &AudioRef{URL: "https://cdn/a.mp3", MimeType: "audio/mpeg"},
			},
		},
		{
			name: "message id passthrough",
			raw:  `{"phone":"85999998888","messageId":"wamid.1","text":"oi"}`,
			want: Message{SenderID: "5585999998888", MessageID: "wamid.1", Kind: KindText, Text: "oi"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := n.Normalize([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, msg)
		})
	}
}

func TestNormalizeCaptionConcatenation(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(nil, "55")

	// Caption comes after independently detected text, space-joined.
	msg, err := n.Normalize([]byte(`{"phone":"85999998888","text":"veja isso","image":{"url":"https://cdn/i.jpg","caption":"contrato assinado"}}`))
	require.NoError(t, err)
	require.Equal(t, "veja isso contrato assinado", msg.Text)
	require.Equal(t, KindImage, msg.Kind)
	require.NotNil(t, msg.Image)

	// Blank text is dropped, caption stands alone.
	msg, err = n.Normalize([]byte(`{"phone":"85999998888","image":{"url":"https://cdn/i.jpg","caption":"só a foto"}}`))
	require.NoError(t, err)
	require.Equal(t, "só a foto", msg.Text)
}

func TestNormalizeEventShape(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(nil, "55")

	msg, err := n.Normalize([]byte(`{"event":{"data":{"from":"85999998888@s.whatsapp.net","message":{"text":{"message":"preciso de ajuda"},"id":"m-7"}}}}`))
	require.NoError(t, err)
	require.Equal(t, "5585999998888", msg.SenderID)
	require.Equal(t, "m-7", msg.MessageID)
	require.Equal(t, "preciso de ajuda", msg.Text)

	// Echo flag on the data envelope.
	msg, err = n.Normalize([]byte(`{"event":{"data":{"from":"85999998888","fromMe":true,"message":{"text":"eco"}}}}`))
	require.NoError(t, err)
	require.True(t, msg.IsEcho)
}

func TestNormalizeMetaShape(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(nil, "55")

	raw := `{"entry":[{"changes":[{"value":{"messages":[{"from":"5585999998888","id":"wamid.X","type":"audio","audio":{"link":"https://cdn/voice.ogg","mime_type":"audio/ogg; codecs=opus"}}]}}]}]}`
	msg, err := n.Normalize([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "5585999998888", msg.SenderID)
	require.Equal(t, "wamid.X", msg.MessageID)
	require.Equal(t, KindAudio, msg.Kind)
	require.Equal(t, "https://cdn/voice.ogg", msg.Audio.URL)
	require.Equal(t, "audio/ogg; codecs=opus", msg.Audio.MimeType)
}

func TestNormalizeUnrecognized(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(nil, "55")

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty object", raw: `{}`},
		{name: "sender without content", raw: `{"phone":"85999998888"}`},
		{name: "content without sender", raw: `{"text":"oi"}`},
		{name: "status update", raw: `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.Y"}]}}]}]}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := n.Normalize([]byte(tt.raw))
			require.ErrorIs(t, err, ErrUnrecognizedPayload)
		})
	}
}

func TestNormalizeEchoFlag(t *testing.T) {
	t.Parallel()
	n := NewNormalizer(nil, "55")

	msg, err := n.Normalize([]byte(`{"phone":"85999998888","fromMe":true,"text":"resposta do bot"}`))
	require.NoError(t, err)
	require.True(t, msg.IsEcho)
}
