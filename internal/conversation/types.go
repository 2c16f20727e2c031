package conversation

import "time"

// Conversation groups all exchanges with one phone number.
type Conversation struct {
	ID          int64
	PhoneNumber string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one stored turn. OriginalKind records what the user actually
// sent (text, audio, image) before enrichment; OriginalMediaURL keeps the
// source media location for auditing.
type Message struct {
	ID               int64
	ConversationID   int64
	Role             string
	Content          string
	OriginalKind     string
	OriginalMediaURL string
	CreatedAt        time.Time
}
