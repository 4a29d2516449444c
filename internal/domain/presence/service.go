package presence

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/domain/event"
	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/utils/idgen"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

// ConversationFinder resolves the conversation of a pair. messaging.Service satisfies it.
type ConversationFinder interface {
	FindConversationByPair(ctx context.Context, userID, otherUserID string) (*messaging.Conversation, error)
}

// Settings tunes expiry of typing and presence state.
type Settings struct {
	TypingTTL  time.Duration
	StaleAfter time.Duration
}

// Service describes typing indicator and presence operations.
type Service interface {
	SetTyping(ctx context.Context, userID, otherUserID string, typing bool) (*TypingState, error)
	GetTyping(ctx context.Context, userID, otherUserID string) (*TypingState, error)
	UpdatePresence(ctx context.Context, userID string, status Status, currentConversationID *string) (*Presence, error)
	GetPresence(ctx context.Context, userID string) (*Presence, error)
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
}

// TypingPayload is published to the other participant.
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Typing         bool   `json:"typing"`
}

// PresencePayload is published to a user's conversation partners.
type PresencePayload struct {
	UserID     string    `json:"user_id"`
	Status     Status    `json:"status"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type service struct {
	store         Store
	conversations ConversationFinder
	publisher     event.Publisher
	settings      Settings
	log           zerolog.Logger
	now           func() time.Time
}

// NewService wires the presence service.
func NewService(store Store, conversations ConversationFinder, publisher event.Publisher, settings Settings, log zerolog.Logger) Service {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &service{
		store:         store,
		conversations: conversations,
		publisher:     publisher,
		settings:      settings,
		log:           log.With().Str("component", "presence-service").Logger(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) SetTyping(ctx context.Context, userID, otherUserID string, typing bool) (*TypingState, error) {
	conv, err := s.conversationFor(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}

	state := &TypingState{ConversationID: conv.ID, UserID: userID, Typing: typing}
	if typing {
		startedAt := s.now()
		if err := s.store.UpsertTyping(ctx, &TypingIndicator{
			ID:              idgen.NewUUID(),
			ConversationID:  conv.ID,
			UserID:          userID,
			TypingStartedAt: startedAt,
		}); err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to record typing")
		}
		state.StartedAt = &startedAt
	} else if err := s.store.DeleteTyping(ctx, conv.ID, userID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to clear typing")
	}

	if otherUserID != userID {
		s.publish(ctx, []string{otherUserID}, event.New(event.TypeTyping, TypingPayload{
			ConversationID: conv.ID,
			UserID:         userID,
			Typing:         typing,
		}))
	}
	return state, nil
}

func (s *service) GetTyping(ctx context.Context, userID, otherUserID string) (*TypingState, error) {
	conv, err := s.conversationFor(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}

	indicator, err := s.store.FindTyping(ctx, conv.ID, otherUserID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to read typing state")
	}

	state := &TypingState{ConversationID: conv.ID, UserID: otherUserID}
	if indicator != nil && s.now().Sub(indicator.TypingStartedAt) < s.settings.TypingTTL {
		startedAt := indicator.TypingStartedAt
		state.Typing = true
		state.StartedAt = &startedAt
	}
	return state, nil
}

func (s *service) UpdatePresence(ctx context.Context, userID string, status Status, currentConversationID *string) (*Presence, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "user is not authenticated", nil, "presence-missing-user")
	}
	if !status.Valid() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"status must be one of online, away, offline, do_not_disturb", nil, "presence-bad-status")
	}
	if currentConversationID != nil && strings.TrimSpace(*currentConversationID) == "" {
		currentConversationID = nil
	}

	p := &Presence{
		UserID:                userID,
		Status:                status,
		LastSeenAt:            s.now(),
		CurrentConversationID: currentConversationID,
	}
	if err := s.store.UpsertPresence(ctx, p); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update presence")
	}

	partners, err := s.store.ConversationPartners(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Msg("load conversation partners")
	} else if len(partners) > 0 {
		s.publish(ctx, partners, event.New(event.TypePresence, PresencePayload{
			UserID:     userID,
			Status:     status,
			LastSeenAt: p.LastSeenAt,
		}))
	}
	return p, nil
}

func (s *service) GetPresence(ctx context.Context, userID string) (*Presence, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "user_id is required", nil, "presence-missing-target")
	}

	p, err := s.store.FindPresence(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to read presence")
	}
	if p == nil {
		return &Presence{UserID: userID, Status: StatusOffline}, nil
	}
	if p.Status != StatusOffline && s.now().Sub(p.LastSeenAt) > s.settings.StaleAfter {
		p.Status = StatusOffline
	}
	return p, nil
}

func (s *service) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	expired, err := s.store.DeleteTypingBefore(ctx, now.Add(-s.settings.TypingTTL))
	if err != nil {
		return result, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to expire typing indicators")
	}
	result.ExpiredTyping = expired

	offline, err := s.store.MarkOfflineBefore(ctx, now.Add(-s.settings.StaleAfter))
	if err != nil {
		return result, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to mark stale users offline")
	}
	result.MarkedOffline = offline

	if expired > 0 || offline > 0 {
		s.log.Debug().Int64("expired_typing", expired).Int64("marked_offline", offline).Msg("presence sweep")
	}
	return result, nil
}

func (s *service) conversationFor(ctx context.Context, userID, otherUserID string) (*messaging.Conversation, error) {
	if strings.TrimSpace(otherUserID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "user_id is required", nil, "typing-missing-user")
	}
	conv, err := s.conversations.FindConversationByPair(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *service) publish(ctx context.Context, userIDs []string, evt event.Event) {
	if err := s.publisher.Publish(ctx, userIDs, evt); err != nil {
		s.log.Warn().Err(err).Str("event", string(evt.Type)).Msg("publish event")
	}
}
