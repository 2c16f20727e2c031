package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service persists conversations and their messages in Postgres.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "conversation")),
	}
}

// FindOrCreate returns the conversation for phone, creating it on first
// contact.
func (s *Service) FindOrCreate(ctx context.Context, phone string) (Conversation, error) {
	var conv Conversation
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (phone_number)
		VALUES ($1)
		ON CONFLICT (phone_number) DO UPDATE SET updated_at = now()
		RETURNING id, phone_number, created_at, updated_at`,
		phone,
	).Scan(&conv.ID, &conv.PhoneNumber, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return Conversation{}, fmt.Errorf("find or create conversation: %w", err)
	}
	return conv, nil
}

// Append stores one turn in the conversation.
func (s *Service) Append(ctx context.Context, conversationID int64, msg Message) error {
	var mediaURL any
	if msg.OriginalMediaURL != "" {
		mediaURL = msg.OriginalMediaURL
	}
	kind := msg.OriginalKind
	if kind == "" {
		kind = "text"
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (conversation_id, role, content, original_kind, original_media_url)
		VALUES ($1, $2, $3, $4, $5)`,
		conversationID, msg.Role, msg.Content, kind, mediaURL,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages of the conversation in chronological
// order.
func (s *Service) Recent(ctx context.Context, conversationID int64, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, original_kind,
		       COALESCE(original_media_url, ''), created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content,
			&m.OriginalKind, &m.OriginalMediaURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Newest-first from the query, oldest-first for the model.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
