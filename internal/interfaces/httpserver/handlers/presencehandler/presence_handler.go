package presencehandler

import (
	"context"

	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/infrastructure/observability"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/requests"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/responses"
)

// PresenceHandler adapts typing and presence operations to response DTOs.
type PresenceHandler struct {
	service presence.Service
}

func NewPresenceHandler(service presence.Service) *PresenceHandler {
	return &PresenceHandler{service: service}
}

func (h *PresenceHandler) SetTyping(ctx context.Context, userID, otherUserID string, req *requests.TypingRequest) (*responses.TypingResponse, error) {
	state, err := h.service.SetTyping(ctx, userID, otherUserID, *req.Typing)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	resp := responses.NewTypingResponse(state)
	return &resp, nil
}

func (h *PresenceHandler) GetTyping(ctx context.Context, userID, otherUserID string) (*responses.TypingResponse, error) {
	state, err := h.service.GetTyping(ctx, userID, otherUserID)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	resp := responses.NewTypingResponse(state)
	return &resp, nil
}

func (h *PresenceHandler) UpdatePresence(ctx context.Context, userID string, req *requests.PresenceRequest) (*responses.PresenceResponse, error) {
	p, err := h.service.UpdatePresence(ctx, userID, req.Status, req.CurrentConversationID)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	resp := responses.NewPresenceResponse(p)
	return &resp, nil
}

func (h *PresenceHandler) GetPresence(ctx context.Context, userID string) (*responses.PresenceResponse, error) {
	p, err := h.service.GetPresence(ctx, userID)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, err
	}
	resp := responses.NewPresenceResponse(p)
	return &resp, nil
}
