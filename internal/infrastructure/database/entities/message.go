package entities

import (
	"time"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
)

// Message is the messages table.
type Message struct {
	ID             string    `gorm:"primaryKey;type:varchar(50)"`
	SenderID       string    `gorm:"type:varchar(50);not null;index:idx_messages_sender_recipient,priority:1;index:idx_messages_sender"`
	RecipientID    string    `gorm:"type:varchar(50);not null;index:idx_messages_sender_recipient,priority:2;index:idx_messages_recipient"`
	MessageText    string    `gorm:"type:text;not null"`
	AttachmentURL  *string   `gorm:"type:varchar(500)"`
	AttachmentType *string   `gorm:"type:varchar(10)"`
	SentAt         time.Time `gorm:"not null;index:idx_messages_sent_at"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the table name shared with the SQL migrations.
func (Message) TableName() string { return "messages" }

// NewSchemaMessage maps a domain message to its row.
func NewSchemaMessage(m *messaging.Message) *Message {
	row := &Message{
		ID:            m.ID,
		SenderID:      m.SenderID,
		RecipientID:   m.RecipientID,
		MessageText:   m.Text,
		AttachmentURL: m.AttachmentURL,
		SentAt:        m.SentAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.AttachmentType != nil {
		kind := string(*m.AttachmentType)
		row.AttachmentType = &kind
	}
	return row
}

// EtoD maps the row to a domain message. Read state is filled by the caller.
func (e *Message) EtoD() *messaging.Message {
	m := &messaging.Message{
		ID:            e.ID,
		SenderID:      e.SenderID,
		RecipientID:   e.RecipientID,
		Text:          e.MessageText,
		AttachmentURL: e.AttachmentURL,
		SentAt:        e.SentAt.UTC(),
		CreatedAt:     e.CreatedAt.UTC(),
		UpdatedAt:     e.UpdatedAt.UTC(),
	}
	if e.AttachmentType != nil {
		kind := messaging.AttachmentType(*e.AttachmentType)
		m.AttachmentType = &kind
	}
	return m
}

// MessageWithReceipt is a message joined with the recipient's receipt.
type MessageWithReceipt struct {
	Message
	ReadAt *time.Time
}

// EtoD maps the joined row, projecting the receipt into Read.
func (e *MessageWithReceipt) EtoD() *messaging.Message {
	m := e.Message.EtoD()
	if e.ReadAt != nil {
		readAt := e.ReadAt.UTC()
		m.Read = true
		m.ReadAt = &readAt
	}
	return m
}

// SearchRow is a message joined with its sender's name and the recipient's receipt.
type SearchRow struct {
	MessageWithReceipt
	SenderName *string
}

// EtoD maps the search row.
func (e *SearchRow) EtoD() *messaging.SearchResult {
	return &messaging.SearchResult{Message: *e.MessageWithReceipt.EtoD(), SenderName: e.SenderName}
}
