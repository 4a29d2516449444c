package fixturerepo

import (
	"context"
	"sort"
	"time"

	"github.com/alumunity/messaging-api/internal/domain/presence"
)

func (s *Store) UpsertTyping(_ context.Context, indicator *presence.TypingIndicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := typingKey{conversationID: indicator.ConversationID, userID: indicator.UserID}
	if existing, ok := s.typing[key]; ok {
		existing.TypingStartedAt = indicator.TypingStartedAt
		return nil
	}
	stored := *indicator
	s.typing[key] = &stored
	return nil
}

func (s *Store) DeleteTyping(_ context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.typing, typingKey{conversationID: conversationID, userID: userID})
	return nil
}

func (s *Store) FindTyping(_ context.Context, conversationID, userID string) (*presence.TypingIndicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.typing[typingKey{conversationID: conversationID, userID: userID}]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

func (s *Store) DeleteTypingBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, t := range s.typing {
		if t.TypingStartedAt.Before(cutoff) {
			delete(s.typing, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) UpsertPresence(_ context.Context, p *presence.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *p
	if p.CurrentConversationID != nil {
		id := *p.CurrentConversationID
		stored.CurrentConversationID = &id
	}
	s.presence[p.UserID] = &stored
	return nil
}

func (s *Store) FindPresence(_ context.Context, userID string) (*presence.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.presence[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (s *Store) MarkOfflineBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	for _, p := range s.presence {
		if p.Status != presence.StatusOffline && p.LastSeenAt.Before(cutoff) {
			p.Status = presence.StatusOffline
			p.CurrentConversationID = nil
			updated++
		}
	}
	return updated, nil
}

func (s *Store) ConversationPartners(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partners := make([]string, 0)
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			if other := c.OtherParticipant(userID); other != userID {
				partners = append(partners, other)
			}
		}
	}
	sort.Strings(partners)
	return partners, nil
}
