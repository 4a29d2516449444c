package entities

import (
	"time"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
)

// Conversation is the conversations table. user_id_1 < user_id_2 always holds.
type Conversation struct {
	ID            string    `gorm:"primaryKey;type:varchar(50)"`
	UserID1       string    `gorm:"column:user_id_1;type:varchar(50);not null;uniqueIndex:uq_conversations_pair,priority:1;index:idx_conversations_user_1"`
	UserID2       string    `gorm:"column:user_id_2;type:varchar(50);not null;uniqueIndex:uq_conversations_pair,priority:2;index:idx_conversations_user_2"`
	LastMessageID *string   `gorm:"type:varchar(50)"`
	LastMessageAt time.Time `gorm:"not null;index:idx_conversations_last_message_at"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName pins the table name shared with the SQL migrations.
func (Conversation) TableName() string { return "conversations" }

// EtoD maps the row to a domain conversation.
func (e *Conversation) EtoD() *messaging.Conversation {
	return &messaging.Conversation{
		ID:            e.ID,
		UserID1:       e.UserID1,
		UserID2:       e.UserID2,
		LastMessageID: e.LastMessageID,
		LastMessageAt: e.LastMessageAt.UTC(),
		CreatedAt:     e.CreatedAt.UTC(),
		UpdatedAt:     e.UpdatedAt.UTC(),
	}
}

// ConversationSummaryRow is one row of the inbox query.
type ConversationSummaryRow struct {
	ConversationID      string
	OtherUserID         string
	OtherUserName       *string
	PhotoURL            *string
	LastMessage         *string
	LastMessageAt       time.Time
	LastMessageSenderID *string
	UnreadCount         int64
}

// EtoD maps the row as seen by userID.
func (e *ConversationSummaryRow) EtoD(userID string) *messaging.ConversationSummary {
	return &messaging.ConversationSummary{
		ConversationID:    e.ConversationID,
		OtherUserID:       e.OtherUserID,
		OtherUserName:     e.OtherUserName,
		PhotoURL:          e.PhotoURL,
		LastMessage:       e.LastMessage,
		LastMessageAt:     e.LastMessageAt.UTC(),
		UnreadCount:       e.UnreadCount,
		LastMessageFromMe: e.LastMessageSenderID != nil && *e.LastMessageSenderID == userID,
	}
}

// ReadReceipt is the message_read_receipts table.
type ReadReceipt struct {
	ID        string    `gorm:"primaryKey;type:varchar(50)"`
	MessageID string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_receipts_message_user,priority:1"`
	UserID    string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_receipts_message_user,priority:2;index:idx_receipts_user"`
	ReadAt    time.Time `gorm:"not null"`
}

// TableName pins the table name shared with the SQL migrations.
func (ReadReceipt) TableName() string { return "message_read_receipts" }

// NewSchemaReadReceipt maps a domain receipt to its row.
func NewSchemaReadReceipt(r *messaging.ReadReceipt) *ReadReceipt {
	return &ReadReceipt{ID: r.ID, MessageID: r.MessageID, UserID: r.UserID, ReadAt: r.ReadAt}
}

// EtoD maps the row to a domain receipt.
func (e *ReadReceipt) EtoD() *messaging.ReadReceipt {
	return &messaging.ReadReceipt{ID: e.ID, MessageID: e.MessageID, UserID: e.UserID, ReadAt: e.ReadAt.UTC()}
}

// User is the read-only view of the users table owned by the profile subsystem.
type User struct {
	ID       string  `gorm:"primaryKey;type:varchar(50)"`
	Name     string  `gorm:"type:varchar(255)"`
	PhotoURL *string `gorm:"type:varchar(500)"`
}

// TableName pins the table name shared with the SQL migrations.
func (User) TableName() string { return "users" }
