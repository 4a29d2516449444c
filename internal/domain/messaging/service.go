package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/domain/event"
	"github.com/alumunity/messaging-api/internal/utils/idgen"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
	"github.com/alumunity/messaging-api/internal/utils/redact"
)

// MaxMessageLength bounds message_text. The column is LONGTEXT, the limit keeps payloads sane.
const MaxMessageLength = 10000

// SendMessageInput carries the fields of a new message.
type SendMessageInput struct {
	SenderID       string
	RecipientID    string
	Text           string
	AttachmentURL  *string
	AttachmentType *AttachmentType
}

// Service describes the messaging operations.
type Service interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*Message, error)
	GetConversation(ctx context.Context, userID, otherUserID string, limit, offset int) ([]*Message, error)
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationSummary, error)
	MarkAsRead(ctx context.Context, userID, messageID string) (*ReadReceipt, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	SearchMessages(ctx context.Context, userID, query string, limit int) ([]*SearchResult, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) error
	BlockUser(ctx context.Context, blockerID, blockedID string) error
	FindConversationByPair(ctx context.Context, userID, otherUserID string) (*Conversation, error)
}

// MessageReadPayload is published when receipts are recorded.
type MessageReadPayload struct {
	ReaderID   string    `json:"reader_id"`
	MessageIDs []string  `json:"message_ids,omitempty"`
	SenderID   string    `json:"sender_id"`
	Count      int64     `json:"count"`
	ReadAt     time.Time `json:"read_at"`
}

// MessageCreatedPayload is published to both participants of a new message.
type MessageCreatedPayload struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	SenderID       string          `json:"sender_id"`
	RecipientID    string          `json:"recipient_id"`
	MessageText    string          `json:"message_text"`
	AttachmentURL  *string         `json:"attachment_url,omitempty"`
	AttachmentType *AttachmentType `json:"attachment_type,omitempty"`
	SentAt         time.Time       `json:"sent_at"`
}

type service struct {
	store     Store
	publisher event.Publisher
	redactor  *redact.Redactor
	log       zerolog.Logger
	now       func() time.Time
}

// NewService wires the messaging service. A nil publisher drops events.
func NewService(store Store, publisher event.Publisher, redactor *redact.Redactor, log zerolog.Logger) Service {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &service{
		store:     store,
		publisher: publisher,
		redactor:  redactor,
		log:       log.With().Str("component", "messaging-service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) SendMessage(ctx context.Context, in SendMessageInput) (*Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, validationError(ctx, "message_text cannot be empty", "send-empty-text")
	}
	if len([]rune(text)) > MaxMessageLength {
		return nil, validationError(ctx, fmt.Sprintf("message_text exceeds %d characters", MaxMessageLength), "send-text-too-long")
	}
	sender := strings.TrimSpace(in.SenderID)
	recipient := strings.TrimSpace(in.RecipientID)
	if sender == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "sender is not authenticated", nil, "send-missing-sender")
	}
	if recipient == "" {
		return nil, validationError(ctx, "recipient_id is required", "send-missing-recipient")
	}

	var (
		attachmentURL  *string
		attachmentType *AttachmentType
	)
	if in.AttachmentURL != nil && strings.TrimSpace(*in.AttachmentURL) != "" {
		url := strings.TrimSpace(*in.AttachmentURL)
		attachmentURL = &url
		kind := InferAttachmentType(url)
		if in.AttachmentType != nil && *in.AttachmentType != "" {
			kind = *in.AttachmentType
		}
		if !kind.Valid() {
			return nil, validationError(ctx, "attachment_type must be one of image, file, video", "send-bad-attachment-type")
		}
		attachmentType = &kind
	} else if in.AttachmentType != nil && *in.AttachmentType != "" {
		return nil, validationError(ctx, "attachment_type requires attachment_url", "send-orphan-attachment-type")
	}

	now := s.now()
	msg := &Message{
		ID:             idgen.NewMessageIDAt(now),
		SenderID:       sender,
		RecipientID:    recipient,
		Text:           text,
		AttachmentURL:  attachmentURL,
		AttachmentType: attachmentType,
		SentAt:         now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	conv, err := s.store.CreateMessage(ctx, msg)
	if err != nil {
		s.log.Error().Err(err).
			Str("sender", s.redactor.UserID(sender)).
			Str("recipient", s.redactor.UserID(recipient)).
			Msg("send message")
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to send message")
	}

	s.log.Debug().
		Str("message_id", msg.ID).
		Str("conversation_id", conv.ID).
		Str("text", s.redactor.MessageText(text)).
		Msg("message sent")

	s.publish(ctx, []string{sender, recipient}, event.New(event.TypeMessageCreated, MessageCreatedPayload{
		ID:             msg.ID,
		ConversationID: conv.ID,
		SenderID:       msg.SenderID,
		RecipientID:    msg.RecipientID,
		MessageText:    msg.Text,
		AttachmentURL:  msg.AttachmentURL,
		AttachmentType: msg.AttachmentType,
		SentAt:         msg.SentAt,
	}))

	return msg, nil
}

func (s *service) GetConversation(ctx context.Context, userID, otherUserID string, limit, offset int) ([]*Message, error) {
	if strings.TrimSpace(otherUserID) == "" {
		return nil, validationError(ctx, "user_id is required", "conversation-missing-user")
	}

	readAt := s.now()
	messages, marked, err := s.store.FetchConversation(ctx, userID, otherUserID, NormalizePage(limit, offset, DefaultPageLimit), readAt)
	if err != nil {
		s.log.Error().Err(err).Str("user", s.redactor.UserID(userID)).Msg("fetch conversation")
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to fetch conversation")
	}

	if marked > 0 && otherUserID != userID {
		s.publish(ctx, []string{otherUserID}, event.New(event.TypeMessageRead, MessageReadPayload{
			ReaderID: userID,
			SenderID: otherUserID,
			Count:    marked,
			ReadAt:   readAt,
		}))
	}
	return messages, nil
}

func (s *service) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationSummary, error) {
	summaries, err := s.store.ListConversations(ctx, userID, NormalizePage(limit, offset, DefaultPageLimit))
	if err != nil {
		s.log.Error().Err(err).Str("user", s.redactor.UserID(userID)).Msg("list conversations")
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	return summaries, nil
}

func (s *service) MarkAsRead(ctx context.Context, userID, messageID string) (*ReadReceipt, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, validationError(ctx, "message_id is required", "mark-missing-message")
	}

	msg, err := s.store.FindMessage(ctx, messageID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to mark message as read")
	}
	if msg.RecipientID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"only the recipient can mark a message as read", nil, "mark-not-recipient")
	}

	receipt, err := s.store.UpsertReadReceipt(ctx, &ReadReceipt{
		ID:        idgen.NewUUID(),
		MessageID: msg.ID,
		UserID:    userID,
		ReadAt:    s.now(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("message_id", messageID).Msg("upsert read receipt")
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to mark message as read")
	}

	if msg.SenderID != userID {
		s.publish(ctx, []string{msg.SenderID}, event.New(event.TypeMessageRead, MessageReadPayload{
			ReaderID:   userID,
			SenderID:   msg.SenderID,
			MessageIDs: []string{msg.ID},
			Count:      1,
			ReadAt:     receipt.ReadAt,
		}))
	}
	return receipt, nil
}

func (s *service) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Str("user", s.redactor.UserID(userID)).Msg("count unread")
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to count unread messages")
	}
	return count, nil
}

func (s *service) SearchMessages(ctx context.Context, userID, query string, limit int) ([]*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError(ctx, "query cannot be empty", "search-empty-query")
	}

	results, err := s.store.SearchMessages(ctx, userID, query, NormalizePage(limit, 0, DefaultSearchLimit).Limit)
	if err != nil {
		s.log.Error().Err(err).Str("query", s.redactor.MessageText(query)).Msg("search messages")
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to search messages")
	}
	return results, nil
}

func (s *service) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return validationError(ctx, "conversation_id is required", "delete-missing-conversation")
	}

	conv, err := s.store.FindConversation(ctx, conversationID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}
	if !conv.HasParticipant(userID) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"not a participant of this conversation", nil, "delete-not-participant")
	}

	if err := s.store.DeleteConversation(ctx, conv); err != nil {
		s.log.Error().Err(err).Str("conversation_id", conversationID).Msg("delete conversation")
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}

	s.log.Info().Str("conversation_id", conversationID).Str("user", s.redactor.UserID(userID)).Msg("conversation deleted")
	return nil
}

func (s *service) BlockUser(ctx context.Context, blockerID, blockedID string) error {
	if strings.TrimSpace(blockedID) == "" {
		return validationError(ctx, "blocked_user_id is required", "block-missing-user")
	}

	// TODO: persist a block list so a blocked user cannot recreate the conversation by sending again.
	existed, err := s.store.DeleteConversationByPair(ctx, CanonicalPair(blockerID, strings.TrimSpace(blockedID)))
	if err != nil {
		s.log.Error().Err(err).Msg("block user")
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to block user")
	}

	s.log.Info().
		Str("blocker", s.redactor.UserID(blockerID)).
		Str("blocked", s.redactor.UserID(blockedID)).
		Bool("conversation_removed", existed).
		Msg("user blocked")
	return nil
}

func (s *service) FindConversationByPair(ctx context.Context, userID, otherUserID string) (*Conversation, error) {
	conv, err := s.store.FindConversationByPair(ctx, CanonicalPair(userID, otherUserID))
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to find conversation")
	}
	return conv, nil
}

func (s *service) publish(ctx context.Context, userIDs []string, evt event.Event) {
	if err := s.publisher.Publish(ctx, dedupe(userIDs), evt); err != nil {
		s.log.Warn().Err(err).Str("event", string(evt.Type)).Msg("publish event")
	}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func validationError(ctx context.Context, message, code string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, nil, code)
}
