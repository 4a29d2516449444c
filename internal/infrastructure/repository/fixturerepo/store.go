// Package fixturerepo is the in-memory store behind mock mode. It keeps the same invariants as
// the relational store: one conversation per canonical pair, one receipt per (message, user),
// and unread state derived from receipts.
package fixturerepo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/utils/idgen"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

// User is the display data the fixture store joins into inbox and search rows.
type User struct {
	ID       string
	Name     string
	PhotoURL *string
}

type receiptKey struct {
	messageID string
	userID    string
}

type typingKey struct {
	conversationID string
	userID         string
}

// Store is a mutex guarded in-memory implementation of messaging.Store and presence.Store.
type Store struct {
	mu            sync.RWMutex
	users         map[string]User
	messages      map[string]*messaging.Message
	conversations map[string]*messaging.Conversation
	byPair        map[messaging.Pair]string
	receipts      map[receiptKey]*messaging.ReadReceipt
	typing        map[typingKey]*presence.TypingIndicator
	presence      map[string]*presence.Presence
	log           zerolog.Logger
}

var (
	_ messaging.Store = (*Store)(nil)
	_ presence.Store  = (*Store)(nil)
)

// New creates an empty store.
func New(log zerolog.Logger) *Store {
	return &Store{
		users:         make(map[string]User),
		messages:      make(map[string]*messaging.Message),
		conversations: make(map[string]*messaging.Conversation),
		byPair:        make(map[messaging.Pair]string),
		receipts:      make(map[receiptKey]*messaging.ReadReceipt),
		typing:        make(map[typingKey]*presence.TypingIndicator),
		presence:      make(map[string]*presence.Presence),
		log:           log.With().Str("component", "fixture-store").Logger(),
	}
}

// PutUser registers display data for a user.
func (s *Store) PutUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) CreateMessage(ctx context.Context, msg *messaging.Message) (*messaging.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; exists {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
			fmt.Sprintf("message already exists: %s", msg.ID), nil, "fixture-duplicate-message")
	}

	stored := cloneMessage(msg)
	stored.Read, stored.ReadAt = false, nil
	s.messages[stored.ID] = stored

	pair := messaging.CanonicalPair(msg.SenderID, msg.RecipientID)
	lastID := msg.ID
	if id, ok := s.byPair[pair]; ok {
		conv := s.conversations[id]
		conv.LastMessageID = &lastID
		conv.LastMessageAt = msg.SentAt
		conv.UpdatedAt = msg.SentAt
		return cloneConversation(conv), nil
	}

	conv := &messaging.Conversation{
		ID:            idgen.NewUUID(),
		UserID1:       pair.UserID1,
		UserID2:       pair.UserID2,
		LastMessageID: &lastID,
		LastMessageAt: msg.SentAt,
		CreatedAt:     msg.SentAt,
		UpdatedAt:     msg.SentAt,
	}
	s.conversations[conv.ID] = conv
	s.byPair[pair] = conv.ID
	return cloneConversation(conv), nil
}

func (s *Store) FetchConversation(_ context.Context, userID, otherUserID string, page messaging.Page, readAt time.Time) ([]*messaging.Message, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var marked int64
	for _, m := range s.messages {
		if m.SenderID != otherUserID || m.RecipientID != userID || m.SenderID == m.RecipientID {
			continue
		}
		key := receiptKey{messageID: m.ID, userID: userID}
		if _, ok := s.receipts[key]; ok {
			continue
		}
		s.receipts[key] = &messaging.ReadReceipt{ID: idgen.NewUUID(), MessageID: m.ID, UserID: userID, ReadAt: readAt}
		marked++
	}

	thread := make([]*messaging.Message, 0)
	for _, m := range s.messages {
		if (m.SenderID == userID && m.RecipientID == otherUserID) || (m.SenderID == otherUserID && m.RecipientID == userID) {
			thread = append(thread, m)
		}
	}
	sortChronological(thread)

	return s.project(paginate(thread, page)), marked, nil
}

func (s *Store) ListConversations(_ context.Context, userID string, page messaging.Page) ([]*messaging.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]*messaging.Conversation, 0)
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			convs = append(convs, c)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].LastMessageAt.Equal(convs[j].LastMessageAt) {
			return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
		}
		return convs[i].ID > convs[j].ID
	})

	start, end := bounds(len(convs), page)
	out := make([]*messaging.ConversationSummary, 0, end-start)
	for _, c := range convs[start:end] {
		other := c.OtherParticipant(userID)
		summary := &messaging.ConversationSummary{
			ConversationID: c.ID,
			OtherUserID:    other,
			LastMessageAt:  c.LastMessageAt,
			UnreadCount:    s.unreadFrom(userID, other),
		}
		if u, ok := s.users[other]; ok {
			name := u.Name
			summary.OtherUserName = &name
			summary.PhotoURL = u.PhotoURL
		}
		if c.LastMessageID != nil {
			if last, ok := s.messages[*c.LastMessageID]; ok {
				text := last.Text
				summary.LastMessage = &text
				summary.LastMessageAt = last.SentAt
				summary.LastMessageFromMe = last.SenderID == userID
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Store) FindMessage(ctx context.Context, id string) (*messaging.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("message not found: %s", id), nil, "fixture-message-not-found")
	}
	return s.projectOne(m), nil
}

func (s *Store) UpsertReadReceipt(ctx context.Context, receipt *messaging.ReadReceipt) (*messaging.ReadReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[receipt.MessageID]; !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("message not found: %s", receipt.MessageID), nil, "fixture-receipt-message-missing")
	}

	key := receiptKey{messageID: receipt.MessageID, userID: receipt.UserID}
	if existing, ok := s.receipts[key]; ok {
		existing.ReadAt = receipt.ReadAt
		copied := *existing
		return &copied, nil
	}
	stored := *receipt
	s.receipts[key] = &stored
	copied := stored
	return &copied, nil
}

func (s *Store) CountUnread(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, m := range s.messages {
		if m.RecipientID != userID || m.SenderID == userID {
			continue
		}
		if _, ok := s.receipts[receiptKey{messageID: m.ID, userID: userID}]; !ok {
			count++
		}
	}
	return count, nil
}

func (s *Store) SearchMessages(_ context.Context, userID, query string, limit int) ([]*messaging.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	matches := make([]*messaging.Message, 0)
	for _, m := range s.messages {
		if m.SenderID != userID && m.RecipientID != userID {
			continue
		}
		if strings.Contains(strings.ToLower(m.Text), needle) {
			matches = append(matches, m)
		}
	}
	sortChronological(matches)
	// newest first
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*messaging.SearchResult, 0, len(matches))
	for _, m := range matches {
		result := &messaging.SearchResult{Message: *s.projectOne(m)}
		if u, ok := s.users[m.SenderID]; ok {
			name := u.Name
			result.SenderName = &name
		}
		out = append(out, result)
	}
	return out, nil
}

func (s *Store) FindConversation(ctx context.Context, id string) (*messaging.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("conversation not found: %s", id), nil, "fixture-conversation-not-found")
	}
	return cloneConversation(c), nil
}

func (s *Store) FindConversationByPair(ctx context.Context, pair messaging.Pair) (*messaging.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[pair]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"conversation not found", nil, "fixture-pair-not-found")
	}
	return cloneConversation(s.conversations[id]), nil
}

func (s *Store) DeleteConversation(ctx context.Context, conv *messaging.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conv.ID]; !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("conversation not found: %s", conv.ID), nil, "fixture-delete-not-found")
	}

	for id, m := range s.messages {
		if messaging.CanonicalPair(m.SenderID, m.RecipientID) != conv.Pair() {
			continue
		}
		for key := range s.receipts {
			if key.messageID == id {
				delete(s.receipts, key)
			}
		}
		delete(s.messages, id)
	}
	s.dropConversation(conv.ID)
	return nil
}

func (s *Store) DeleteConversationByPair(_ context.Context, pair messaging.Pair) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPair[pair]
	if !ok {
		return false, nil
	}
	s.dropConversation(id)
	return true, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// dropConversation removes the row, its pair index and typing rows. Caller holds the lock.
func (s *Store) dropConversation(id string) {
	if c, ok := s.conversations[id]; ok {
		delete(s.byPair, c.Pair())
	}
	delete(s.conversations, id)
	for key := range s.typing {
		if key.conversationID == id {
			delete(s.typing, key)
		}
	}
}

// unreadFrom counts messages from other to userID without a userID receipt. Caller holds the lock.
func (s *Store) unreadFrom(userID, other string) int64 {
	if userID == other {
		return 0
	}
	var count int64
	for _, m := range s.messages {
		if m.SenderID != other || m.RecipientID != userID {
			continue
		}
		if _, ok := s.receipts[receiptKey{messageID: m.ID, userID: userID}]; !ok {
			count++
		}
	}
	return count
}

func (s *Store) project(msgs []*messaging.Message) []*messaging.Message {
	out := make([]*messaging.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.projectOne(m))
	}
	return out
}

// projectOne fills Read from the recipient's receipt.
func (s *Store) projectOne(m *messaging.Message) *messaging.Message {
	out := cloneMessage(m)
	if r, ok := s.receipts[receiptKey{messageID: m.ID, userID: m.RecipientID}]; ok {
		readAt := r.ReadAt
		out.Read = true
		out.ReadAt = &readAt
	}
	return out
}

func sortChronological(msgs []*messaging.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].SentAt.Equal(msgs[j].SentAt) {
			return msgs[i].SentAt.Before(msgs[j].SentAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}

func bounds(n int, page messaging.Page) (int, int) {
	start := page.Offset
	if start > n {
		start = n
	}
	end := n
	if page.Limit > 0 && start+page.Limit < n {
		end = start + page.Limit
	}
	return start, end
}

func paginate(msgs []*messaging.Message, page messaging.Page) []*messaging.Message {
	start, end := bounds(len(msgs), page)
	return msgs[start:end]
}

func cloneMessage(m *messaging.Message) *messaging.Message {
	out := *m
	if m.AttachmentURL != nil {
		url := *m.AttachmentURL
		out.AttachmentURL = &url
	}
	if m.AttachmentType != nil {
		kind := *m.AttachmentType
		out.AttachmentType = &kind
	}
	if m.ReadAt != nil {
		readAt := *m.ReadAt
		out.ReadAt = &readAt
	}
	return &out
}

func cloneConversation(c *messaging.Conversation) *messaging.Conversation {
	out := *c
	if c.LastMessageID != nil {
		id := *c.LastMessageID
		out.LastMessageID = &id
	}
	return &out
}
