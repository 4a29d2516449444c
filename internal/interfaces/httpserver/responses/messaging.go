package responses

import (
	"time"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/domain/presence"
)

// MessageResponse is a message as seen by the caller.
type MessageResponse struct {
	ID             string     `json:"id"`
	SenderID       string     `json:"sender_id"`
	RecipientID    string     `json:"recipient_id"`
	Message        string     `json:"message"`
	AttachmentURL  *string    `json:"attachment_url"`
	AttachmentType *string    `json:"attachment_type"`
	SentAt         time.Time  `json:"sent_at"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// SearchResultResponse adds the sender's display name to a message.
type SearchResultResponse struct {
	MessageResponse
	SenderName *string `json:"sender_name"`
}

// ConversationSummaryResponse is one inbox row.
type ConversationSummaryResponse struct {
	ConversationID    string    `json:"conversation_id"`
	OtherUserID       string    `json:"other_user_id"`
	OtherUserName     *string   `json:"other_user_name"`
	PhotoURL          *string   `json:"photo_url"`
	LastMessage       *string   `json:"last_message"`
	LastMessageAt     time.Time `json:"last_message_at"`
	UnreadCount       int64     `json:"unread_count"`
	LastMessageFromMe bool      `json:"last_message_from_me"`
}

type ReadReceiptResponse struct {
	ID     string    `json:"id"`
	Read   bool      `json:"read"`
	ReadAt time.Time `json:"read_at"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type DeletedResponse struct {
	ID string `json:"id"`
}

type BlockedResponse struct {
	BlockedUserID string `json:"blocked_user_id"`
}

type TypingResponse struct {
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	Typing         bool       `json:"typing"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

type PresenceResponse struct {
	UserID                string          `json:"user_id"`
	Status                presence.Status `json:"status"`
	LastSeenAt            time.Time       `json:"last_seen_at"`
	CurrentConversationID *string         `json:"current_conversation_id,omitempty"`
}

func NewMessageResponse(m *messaging.Message) MessageResponse {
	var attachmentType *string
	if m.AttachmentType != nil {
		t := string(*m.AttachmentType)
		attachmentType = &t
	}
	return MessageResponse{
		ID:             m.ID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Message:        m.Text,
		AttachmentURL:  m.AttachmentURL,
		AttachmentType: attachmentType,
		SentAt:         m.SentAt,
		Read:           m.Read,
		ReadAt:         m.ReadAt,
	}
}

func NewMessageListResponse(msgs []*messaging.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, NewMessageResponse(m))
	}
	return out
}

func NewSearchResultListResponse(results []*messaging.SearchResult) []SearchResultResponse {
	out := make([]SearchResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResultResponse{
			MessageResponse: NewMessageResponse(&r.Message),
			SenderName:      r.SenderName,
		})
	}
	return out
}

func NewConversationListResponse(summaries []*messaging.ConversationSummary) []ConversationSummaryResponse {
	out := make([]ConversationSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, ConversationSummaryResponse{
			ConversationID:    s.ConversationID,
			OtherUserID:       s.OtherUserID,
			OtherUserName:     s.OtherUserName,
			PhotoURL:          s.PhotoURL,
			LastMessage:       s.LastMessage,
			LastMessageAt:     s.LastMessageAt,
			UnreadCount:       s.UnreadCount,
			LastMessageFromMe: s.LastMessageFromMe,
		})
	}
	return out
}

func NewReadReceiptResponse(r *messaging.ReadReceipt) ReadReceiptResponse {
	return ReadReceiptResponse{ID: r.MessageID, Read: true, ReadAt: r.ReadAt}
}

func NewTypingResponse(s *presence.TypingState) TypingResponse {
	return TypingResponse{
		ConversationID: s.ConversationID,
		UserID:         s.UserID,
		Typing:         s.Typing,
		StartedAt:      s.StartedAt,
	}
}

func NewPresenceResponse(p *presence.Presence) PresenceResponse {
	return PresenceResponse{
		UserID:                p.UserID,
		Status:                p.Status,
		LastSeenAt:            p.LastSeenAt,
		CurrentConversationID: p.CurrentConversationID,
	}
}
