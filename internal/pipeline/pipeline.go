package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lexbotdev/lexbot/internal/chat"
	"github.com/lexbotdev/lexbot/internal/conversation"
	"github.com/lexbotdev/lexbot/internal/inbound"
)

// ApologyReply is sent when generation fails entirely; the user never sees a
// raw error.
const ApologyReply = "Desculpe, ocorreu um erro ao processar sua mensagem. Por favor, tente novamente."

type normalizer interface {
	Normalize(raw []byte) (inbound.Message, error)
}

type downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeHint string) string
}

type describer interface {
	Describe(ctx context.Context, data []byte, sourceURL, prompt string) string
}

type store interface {
	FindOrCreate(ctx context.Context, phone string) (conversation.Conversation, error)
	Append(ctx context.Context, conversationID int64, msg conversation.Message) error
	Recent(ctx context.Context, conversationID int64, limit int) ([]conversation.Message, error)
}

type engine interface {
	Generate(ctx context.Context, history []chat.Turn, userText string) (string, error)
}

type formatter interface {
	FormatForAudio(text string) []string
}

type synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type sender interface {
	SendText(ctx context.Context, to, text string) error
	SendAudioChunks(ctx context.Context, to string, clips [][]byte) error
}

// Pipeline processes one inbound webhook event end to end: normalize,
// enrich, generate, dispatch. Every failure resolves to either silence or a
// degraded reply; nothing here is fatal.
type Pipeline struct {
	normalizer   normalizer
	downloader   downloader
	transcriber  transcriber
	describer    describer
	store        store
	engine       engine
	formatter    formatter
	synthesizer  synthesizer
	sender       sender
	historyLimit int
	logger       *slog.Logger
}

type Deps struct {
	Normalizer   normalizer
	Downloader   downloader
	Transcriber  transcriber
	Describer    describer
	Store        store
	Engine       engine
	Formatter    formatter
	Synthesizer  synthesizer
	Sender       sender
	HistoryLimit int
}

func New(log *slog.Logger, deps Deps) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = 20
	}
	return &Pipeline{
		normalizer:   deps.Normalizer,
		downloader:   deps.Downloader,
		transcriber:  deps.Transcriber,
		describer:    deps.Describer,
		store:        deps.Store,
		engine:       deps.Engine,
		formatter:    deps.Formatter,
		synthesizer:  deps.Synthesizer,
		sender:       deps.Sender,
		historyLimit: deps.HistoryLimit,
		logger:       log.With(slog.String("service", "pipeline")),
	}
}

// Process handles one raw webhook payload. Unrecognized payloads, echoes and
// un-enrichable media all end the event silently.
func (p *Pipeline) Process(ctx context.Context, raw []byte) {
	msg, err := p.normalizer.Normalize(raw)
	if err != nil {
		if errors.Is(err, inbound.ErrUnrecognizedPayload) {
			p.logger.Debug("payload not recognized, dropping")
			return
		}
		p.logger.Error("normalization failed", "error", err)
		return
	}
	if msg.IsEcho {
		p.logger.Debug("echo of own message, dropping", "sender", msg.SenderID)
		return
	}

	text, mediaURL := p.enrich(ctx, &msg)
	if strings.TrimSpace(text) == "" {
		p.logger.Info("nothing to generate from, dropping event",
			"sender", msg.SenderID, "kind", msg.Kind)
		return
	}

	conv, err := p.store.FindOrCreate(ctx, msg.SenderID)
	if err != nil {
		p.logger.Error("conversation lookup failed", "error", err)
		return
	}

	history := p.loadHistory(ctx, conv.ID)

	if err := p.store.Append(ctx, conv.ID, conversation.Message{
		Role:             "user",
		Content:          text,
		OriginalKind:     string(msg.Kind),
		OriginalMediaURL: mediaURL,
	}); err != nil {
		p.logger.Error("persist user turn failed", "error", err)
	}

	reply, err := p.engine.Generate(ctx, history, text)
	if err != nil {
		p.logger.Error("generation failed", "error", err)
		reply = ApologyReply
	}

	if err := p.store.Append(ctx, conv.ID, conversation.Message{
		Role:    "assistant",
		Content: reply,
	}); err != nil {
		p.logger.Error("persist assistant turn failed", "error", err)
	}

	p.dispatch(ctx, msg, reply)
}

// enrich resolves the message to plain text, downloading and transcribing or
// describing media as needed. The second return value is the source media
// URL, when any.
func (p *Pipeline) enrich(ctx context.Context, msg *inbound.Message) (string, string) {
	switch msg.Kind {
	case inbound.KindAudio:
		if msg.Audio == nil {
			return msg.Text, ""
		}
		data, err := p.downloader.Fetch(ctx, msg.Audio.URL)
		if err != nil {
			p.logger.Warn("audio download failed", "error", err)
			return msg.Text, msg.Audio.URL
		}
		transcript := p.transcriber.Transcribe(ctx, data, msg.Audio.MimeType)
		return joinNonEmpty(msg.Text, transcript), msg.Audio.URL

	case inbound.KindImage:
		if msg.Image == nil {
			return msg.Text, ""
		}
		data, err := p.downloader.Fetch(ctx, msg.Image.URL)
		if err != nil {
			p.logger.Warn("image download failed", "error", err)
			return msg.Text, msg.Image.URL
		}
		description := p.describer.Describe(ctx, data, msg.Image.URL, "")
		return joinNonEmpty(msg.Text, description), msg.Image.URL

	default:
		return msg.Text, ""
	}
}

func (p *Pipeline) loadHistory(ctx context.Context, conversationID int64) []chat.Turn {
	msgs, err := p.store.Recent(ctx, conversationID, p.historyLimit)
	if err != nil {
		p.logger.Warn("history load failed, generating without context", "error", err)
		return nil
	}
	turns := make([]chat.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, chat.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// dispatch sends the reply. Voice-origin messages get a voice reply; any
// failure along the audio path falls back to exactly one text send.
func (p *Pipeline) dispatch(ctx context.Context, msg inbound.Message, reply string) {
	if msg.Kind == inbound.KindAudio {
		if p.dispatchAudio(ctx, msg.SenderID, reply) {
			return
		}
		p.logger.Warn("audio dispatch failed, falling back to text", "to", msg.SenderID)
	}
	if err := p.sender.SendText(ctx, msg.SenderID, reply); err != nil {
		p.logger.Error("text dispatch failed", "to", msg.SenderID, "error", err)
	}
}

func (p *Pipeline) dispatchAudio(ctx context.Context, to, reply string) bool {
	chunks := p.formatter.FormatForAudio(reply)
	if len(chunks) == 0 {
		return false
	}

	clips := make([][]byte, 0, len(chunks))
	for _, chunk := range chunks {
		clip, err := p.synthesizer.Synthesize(ctx, chunk)
		if err != nil {
			p.logger.Warn("speech synthesis failed", "error", err)
			return false
		}
		clips = append(clips, clip)
	}

	if err := p.sender.SendAudioChunks(ctx, to, clips); err != nil {
		p.logger.Warn("audio send failed", "error", err)
		return false
	}
	return true
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
