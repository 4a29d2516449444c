package messaging

import (
	"context"
	"time"
)

// Store is the persistence surface of the messaging domain. Two implementations exist:
// the relational store and the in-memory fixture store used in mock mode.
type Store interface {
	// CreateMessage inserts the message and upserts the conversation of its canonical pair
	// as one unit. It returns the conversation after the upsert.
	CreateMessage(ctx context.Context, msg *Message) (*Conversation, error)

	// FetchConversation returns one page of the pair's messages ordered by sent_at then id,
	// and in the same unit of work records receipts, stamped readAt, for every message
	// the other user sent to userID that has none. The returned count is the number of
	// receipts created.
	FetchConversation(ctx context.Context, userID, otherUserID string, page Page, readAt time.Time) ([]*Message, int64, error)

	// ListConversations returns the inbox of userID, most recent first.
	ListConversations(ctx context.Context, userID string, page Page) ([]*ConversationSummary, error)

	FindMessage(ctx context.Context, id string) (*Message, error)
	UpsertReadReceipt(ctx context.Context, receipt *ReadReceipt) (*ReadReceipt, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	SearchMessages(ctx context.Context, userID, query string, limit int) ([]*SearchResult, error)

	FindConversation(ctx context.Context, id string) (*Conversation, error)
	FindConversationByPair(ctx context.Context, pair Pair) (*Conversation, error)

	// DeleteConversation removes the conversation with its messages, their receipts and
	// the typing indicators of the conversation.
	DeleteConversation(ctx context.Context, conv *Conversation) error

	// DeleteConversationByPair removes only the conversation row (and its typing indicators).
	// Messages stay. It reports whether a row existed.
	DeleteConversationByPair(ctx context.Context, pair Pair) (bool, error)

	Ping(ctx context.Context) error
}
