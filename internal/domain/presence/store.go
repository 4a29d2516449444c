package presence

import (
	"context"
	"time"
)

// Store persists typing indicators and presence rows. Find methods return nil, nil
// when no row exists.
type Store interface {
	UpsertTyping(ctx context.Context, indicator *TypingIndicator) error
	DeleteTyping(ctx context.Context, conversationID, userID string) error
	FindTyping(ctx context.Context, conversationID, userID string) (*TypingIndicator, error)
	DeleteTypingBefore(ctx context.Context, cutoff time.Time) (int64, error)

	UpsertPresence(ctx context.Context, p *Presence) error
	FindPresence(ctx context.Context, userID string) (*Presence, error)
	MarkOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ConversationPartners returns the users that share a conversation with userID.
	ConversationPartners(ctx context.Context, userID string) ([]string, error)
}
