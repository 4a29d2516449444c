package messaginghandler

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/infrastructure/metrics"
	"github.com/alumunity/messaging-api/internal/infrastructure/observability"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/requests"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/responses"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

// MessagingHandler adapts the messaging service to response DTOs.
type MessagingHandler struct {
	service messaging.Service
}

func NewMessagingHandler(service messaging.Service) *MessagingHandler {
	return &MessagingHandler{service: service}
}

func (h *MessagingHandler) SendMessage(ctx context.Context, userID string, req *requests.SendMessageRequest) (*responses.MessageResponse, error) {
	ctx, span := observability.StartSpan(ctx, "MessagingHandler.SendMessage")
	defer span.End()

	msg, err := h.service.SendMessage(ctx, req.ToInput(userID))
	if err != nil {
		return nil, observe(ctx, "send_message", err)
	}
	observability.AddSpanAttributes(ctx, attribute.String("message.id", msg.ID))

	resp := responses.NewMessageResponse(msg)
	return &resp, nil
}

func (h *MessagingHandler) GetConversation(ctx context.Context, userID, otherUserID string, page requests.PageQuery) ([]responses.MessageResponse, error) {
	ctx, span := observability.StartSpan(ctx, "MessagingHandler.GetConversation")
	defer span.End()

	msgs, err := h.service.GetConversation(ctx, userID, otherUserID, page.Limit, page.Offset)
	if err != nil {
		return nil, observe(ctx, "get_conversation", err)
	}
	observability.AddSpanAttributes(ctx, attribute.Int("messages.count", len(msgs)))
	return responses.NewMessageListResponse(msgs), nil
}

func (h *MessagingHandler) ListConversations(ctx context.Context, userID string, page requests.PageQuery) ([]responses.ConversationSummaryResponse, error) {
	ctx, span := observability.StartSpan(ctx, "MessagingHandler.ListConversations")
	defer span.End()

	summaries, err := h.service.ListConversations(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, observe(ctx, "list_conversations", err)
	}
	return responses.NewConversationListResponse(summaries), nil
}

func (h *MessagingHandler) MarkAsRead(ctx context.Context, userID, messageID string) (*responses.ReadReceiptResponse, error) {
	ctx, span := observability.StartSpan(ctx, "MessagingHandler.MarkAsRead")
	defer span.End()

	receipt, err := h.service.MarkAsRead(ctx, userID, messageID)
	if err != nil {
		return nil, observe(ctx, "mark_as_read", err)
	}
	resp := responses.NewReadReceiptResponse(receipt)
	return &resp, nil
}

func (h *MessagingHandler) GetUnreadCount(ctx context.Context, userID string) (*responses.UnreadCountResponse, error) {
	count, err := h.service.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, observe(ctx, "unread_count", err)
	}
	return &responses.UnreadCountResponse{UnreadCount: count}, nil
}

func (h *MessagingHandler) SearchMessages(ctx context.Context, userID string, q requests.SearchQuery) ([]responses.SearchResultResponse, error) {
	ctx, span := observability.StartSpan(ctx, "MessagingHandler.SearchMessages")
	defer span.End()

	results, err := h.service.SearchMessages(ctx, userID, q.Query, q.Limit)
	if err != nil {
		return nil, observe(ctx, "search_messages", err)
	}
	return responses.NewSearchResultListResponse(results), nil
}

func (h *MessagingHandler) DeleteConversation(ctx context.Context, userID, conversationID string) (*responses.DeletedResponse, error) {
	ctx, span := observability.StartSpan(ctx, "MessagingHandler.DeleteConversation")
	defer span.End()

	if err := h.service.DeleteConversation(ctx, conversationID, userID); err != nil {
		return nil, observe(ctx, "delete_conversation", err)
	}
	metrics.RecordConversationDeleted("delete")
	return &responses.DeletedResponse{ID: conversationID}, nil
}

func (h *MessagingHandler) BlockUser(ctx context.Context, userID string, req *requests.BlockUserRequest) (*responses.BlockedResponse, error) {
	ctx, span := observability.StartSpan(ctx, "MessagingHandler.BlockUser")
	defer span.End()

	if err := h.service.BlockUser(ctx, userID, req.BlockedUserID); err != nil {
		return nil, observe(ctx, "block_user", err)
	}
	metrics.RecordConversationDeleted("block")
	return &responses.BlockedResponse{BlockedUserID: req.BlockedUserID}, nil
}

// observe records err on the span and counts storage failures by operation.
func observe(ctx context.Context, operation string, err error) error {
	observability.RecordError(ctx, err)
	if IsStorageError(err) {
		metrics.RecordStoreError(operation)
	}
	return err
}

// IsStorageError reports failures that are not the caller's fault.
func IsStorageError(err error) bool {
	pe := platformerrors.GetPlatformError(err)
	if pe == nil {
		return true
	}
	switch pe.Type {
	case platformerrors.ErrorTypeDatabaseError, platformerrors.ErrorTypeInternal, platformerrors.ErrorTypeExternal:
		return true
	}
	return false
}
