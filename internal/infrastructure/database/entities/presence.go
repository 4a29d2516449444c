package entities

import (
	"time"

	"github.com/alumunity/messaging-api/internal/domain/presence"
)

// TypingIndicator is the typing_indicators table.
type TypingIndicator struct {
	ID              string    `gorm:"primaryKey;type:varchar(50)"`
	ConversationID  string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_typing_conversation_user,priority:1"`
	UserID          string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_typing_conversation_user,priority:2"`
	TypingStartedAt time.Time `gorm:"not null;index:idx_typing_started_at"`
}

// TableName pins the table name shared with the SQL migrations.
func (TypingIndicator) TableName() string { return "typing_indicators" }

// EtoD maps the row to a domain indicator.
func (e *TypingIndicator) EtoD() *presence.TypingIndicator {
	return &presence.TypingIndicator{
		ID:              e.ID,
		ConversationID:  e.ConversationID,
		UserID:          e.UserID,
		TypingStartedAt: e.TypingStartedAt.UTC(),
	}
}

// UserPresence is the user_presence table.
type UserPresence struct {
	ID                    string    `gorm:"primaryKey;type:varchar(50)"`
	UserID                string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_presence_user"`
	Status                string    `gorm:"type:varchar(20);not null;default:offline"`
	LastSeenAt            time.Time `gorm:"not null;index:idx_presence_last_seen"`
	CurrentConversationID *string   `gorm:"type:varchar(50)"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName pins the table name shared with the SQL migrations.
func (UserPresence) TableName() string { return "user_presence" }

// EtoD maps the row to domain presence.
func (e *UserPresence) EtoD() *presence.Presence {
	return &presence.Presence{
		UserID:                e.UserID,
		Status:                presence.Status(e.Status),
		LastSeenAt:            e.LastSeenAt.UTC(),
		CurrentConversationID: e.CurrentConversationID,
	}
}

// All lists every table the service migrates with AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Message{},
		&Conversation{},
		&ReadReceipt{},
		&TypingIndicator{},
		&UserPresence{},
	}
}
