package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/handlers/messaginghandler"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/handlers/presencehandler"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/middlewares"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/responses"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

type fakeMessaging struct {
	SendMessageFunc        func(ctx context.Context, in messaging.SendMessageInput) (*messaging.Message, error)
	GetConversationFunc    func(ctx context.Context, userID, otherUserID string, limit, offset int) ([]*messaging.Message, error)
	ListConversationsFunc  func(ctx context.Context, userID string, limit, offset int) ([]*messaging.ConversationSummary, error)
	MarkAsReadFunc         func(ctx context.Context, userID, messageID string) (*messaging.ReadReceipt, error)
	GetUnreadCountFunc     func(ctx context.Context, userID string) (int64, error)
	SearchMessagesFunc     func(ctx context.Context, userID, query string, limit int) ([]*messaging.SearchResult, error)
	DeleteConversationFunc func(ctx context.Context, conversationID, userID string) error
	BlockUserFunc          func(ctx context.Context, blockerID, blockedID string) error
}

func (f *fakeMessaging) SendMessage(ctx context.Context, in messaging.SendMessageInput) (*messaging.Message, error) {
	return f.SendMessageFunc(ctx, in)
}

func (f *fakeMessaging) GetConversation(ctx context.Context, userID, otherUserID string, limit, offset int) ([]*messaging.Message, error) {
	return f.GetConversationFunc(ctx, userID, otherUserID, limit, offset)
}

func (f *fakeMessaging) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*messaging.ConversationSummary, error) {
	return f.ListConversationsFunc(ctx, userID, limit, offset)
}

func (f *fakeMessaging) MarkAsRead(ctx context.Context, userID, messageID string) (*messaging.ReadReceipt, error) {
	return f.MarkAsReadFunc(ctx, userID, messageID)
}

func (f *fakeMessaging) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	return f.GetUnreadCountFunc(ctx, userID)
}

func (f *fakeMessaging) SearchMessages(ctx context.Context, userID, query string, limit int) ([]*messaging.SearchResult, error) {
	return f.SearchMessagesFunc(ctx, userID, query, limit)
}

func (f *fakeMessaging) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	return f.DeleteConversationFunc(ctx, conversationID, userID)
}

func (f *fakeMessaging) BlockUser(ctx context.Context, blockerID, blockedID string) error {
	return f.BlockUserFunc(ctx, blockerID, blockedID)
}

func (f *fakeMessaging) FindConversationByPair(context.Context, string, string) (*messaging.Conversation, error) {
	return nil, errors.New("not used")
}

type fakePresence struct {
	presence.Service
	SetTypingFunc   func(ctx context.Context, userID, otherUserID string, typing bool) (*presence.TypingState, error)
	GetPresenceFunc func(ctx context.Context, userID string) (*presence.Presence, error)
}

func (f *fakePresence) SetTyping(ctx context.Context, userID, otherUserID string, typing bool) (*presence.TypingState, error) {
	return f.SetTypingFunc(ctx, userID, otherUserID, typing)
}

func (f *fakePresence) GetPresence(ctx context.Context, userID string) (*presence.Presence, error) {
	return f.GetPresenceFunc(ctx, userID)
}

type fakeSockets struct {
	userID string
}

func (f *fakeSockets) Serve(_ http.ResponseWriter, _ *http.Request, userID string) error {
	f.userID = userID
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Total   *int            `json:"total"`
	Message string          `json:"message"`
}

func newRouter(t *testing.T, msgs *fakeMessaging, pres *fakePresence, mockMode bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if pres == nil {
		pres = &fakePresence{}
	}

	route := NewMessagingRoute(
		messaginghandler.NewMessagingHandler(msgs),
		presencehandler.NewPresenceHandler(pres),
		&fakeSockets{},
		responses.NewWriter(mockMode, zerolog.Nop()),
	)

	engine := gin.New()
	engine.Use(middlewares.RequestID())
	api := engine.Group("/", middlewares.AuthMiddleware(nil, "", zerolog.Nop()))
	route.RegisterRouter(api)
	return engine
}

func do(engine *gin.Engine, method, target, body, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSendMessageAcceptsFormAndJSON(t *testing.T) {
	var got messaging.SendMessageInput
	msgs := &fakeMessaging{
		SendMessageFunc: func(_ context.Context, in messaging.SendMessageInput) (*messaging.Message, error) {
			got = in
			return &messaging.Message{ID: "m1", SenderID: in.SenderID, RecipientID: in.RecipientID, Text: in.Text, SentAt: time.Now()}, nil
		},
	}
	engine := newRouter(t, msgs, nil, false)

	form := url.Values{"recipient_id": {"bob"}, "message_text": {"  hi bob "}}
	rec := do(engine, http.MethodPost, "/api/messages/send", form.Encode(), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Message sent successfully", env.Message)
	assert.Equal(t, "alice", got.SenderID)
	assert.Equal(t, "hi bob", got.Text)

	rec = do(engine, http.MethodPost, "/api/messages/send", `{"recipient_id":"bob","message_text":"json"}`, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "json", got.Text)
}

func TestSendMessageRejectsBlankText(t *testing.T) {
	called := false
	msgs := &fakeMessaging{
		SendMessageFunc: func(context.Context, messaging.SendMessageInput) (*messaging.Message, error) {
			called = true
			return nil, nil
		},
	}
	engine := newRouter(t, msgs, nil, false)

	rec := do(engine, http.MethodPost, "/api/messages/send", `{"recipient_id":"bob","message_text":"   "}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Message cannot be empty")
	assert.False(t, called)
}

func TestMockModeSuffix(t *testing.T) {
	msgs := &fakeMessaging{
		GetUnreadCountFunc: func(context.Context, string) (int64, error) { return 3, nil },
	}
	engine := newRouter(t, msgs, nil, true)

	rec := do(engine, http.MethodGet, "/api/messages/unread-count", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "Unread count retrieved successfully"+responses.MockModeSuffix, env.Message)
	assert.JSONEq(t, `{"unread_count":3}`, string(env.Data))
}

func TestInboxCarriesTotal(t *testing.T) {
	msgs := &fakeMessaging{
		ListConversationsFunc: func(_ context.Context, _ string, limit, offset int) ([]*messaging.ConversationSummary, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 5, offset)
			return []*messaging.ConversationSummary{
				{ConversationID: "c1", OtherUserID: "bob"},
				{ConversationID: "c2", OtherUserID: "carol"},
			}, nil
		},
	}
	engine := newRouter(t, msgs, nil, false)

	rec := do(engine, http.MethodGet, "/api/messages/inbox?limit=10&offset=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Total)
	assert.Equal(t, 2, *env.Total)
	assert.Equal(t, "Conversations retrieved successfully", env.Message)
}

func TestPaginationValidation(t *testing.T) {
	msgs := &fakeMessaging{}
	engine := newRouter(t, msgs, nil, false)

	for _, target := range []string{
		"/api/messages/inbox?limit=0x",
		"/api/messages/inbox?limit=101",
		"/api/messages/conversation/bob?offset=-1",
	} {
		rec := do(engine, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestConversationDegradesOnStorageError(t *testing.T) {
	msgs := &fakeMessaging{
		GetConversationFunc: func(ctx context.Context, _, _ string, _, _ int) ([]*messaging.Message, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "database unavailable", errors.New("dial tcp"), "test")
		},
	}
	engine := newRouter(t, msgs, nil, false)

	rec := do(engine, http.MethodGet, "/api/messages/conversation/bob", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.Equal(t, "Failed to retrieve conversation: database unavailable. Returning empty data.", env.Message)
}

func TestConversationKeepsClientErrors(t *testing.T) {
	msgs := &fakeMessaging{
		GetConversationFunc: func(ctx context.Context, _, _ string, _, _ int) ([]*messaging.Message, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "other user id is required", nil, "test")
		},
	}
	engine := newRouter(t, msgs, nil, false)

	rec := do(engine, http.MethodGet, "/api/messages/conversation/%20", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkAsReadErrors(t *testing.T) {
	cases := []struct {
		name      string
		errorType platformerrors.ErrorType
		status    int
	}{
		{"missing message", platformerrors.ErrorTypeNotFound, http.StatusNotFound},
		{"not the recipient", platformerrors.ErrorTypeForbidden, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msgs := &fakeMessaging{
				MarkAsReadFunc: func(ctx context.Context, _, _ string) (*messaging.ReadReceipt, error) {
					return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, tc.errorType, tc.name, nil, "test")
				},
			}
			engine := newRouter(t, msgs, nil, false)
			rec := do(engine, http.MethodPut, "/api/messages/mark-as-read/m1", "", "")
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestMarkAsReadReturnsReceipt(t *testing.T) {
	readAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msgs := &fakeMessaging{
		MarkAsReadFunc: func(_ context.Context, userID, messageID string) (*messaging.ReadReceipt, error) {
			return &messaging.ReadReceipt{ID: "r1", MessageID: messageID, UserID: userID, ReadAt: readAt}, nil
		},
	}
	engine := newRouter(t, msgs, nil, false)

	rec := do(engine, http.MethodPut, "/api/messages/mark-as-read/m1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "Message marked as read", env.Message)
	assert.JSONEq(t, `{"id":"m1","read":true,"read_at":"2024-05-01T10:00:00Z"}`, string(env.Data))
}

func TestSearchRequiresQuery(t *testing.T) {
	engine := newRouter(t, &fakeMessaging{}, nil, false)

	rec := do(engine, http.MethodGet, "/api/messages/search", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlockUserReadsQueryOrBody(t *testing.T) {
	var blocked []string
	msgs := &fakeMessaging{
		BlockUserFunc: func(_ context.Context, blockerID, blockedID string) error {
			assert.Equal(t, "alice", blockerID)
			blocked = append(blocked, blockedID)
			return nil
		},
	}
	engine := newRouter(t, msgs, nil, false)

	rec := do(engine, http.MethodPost, "/api/messages/block-user?blocked_user_id=bob", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(engine, http.MethodPost, "/api/messages/block-user", `{"blocked_user_id":"carol"}`, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(engine, http.MethodPost, "/api/messages/block-user", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []string{"bob", "carol"}, blocked)
}

func TestDeleteConversation(t *testing.T) {
	msgs := &fakeMessaging{
		DeleteConversationFunc: func(ctx context.Context, conversationID, userID string) error {
			if conversationID == "foreign" {
				return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "not a participant", nil, "test")
			}
			return nil
		},
	}
	engine := newRouter(t, msgs, nil, false)

	rec := do(engine, http.MethodDelete, "/api/messages/conversation/c1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "Conversation deleted successfully", env.Message)
	assert.JSONEq(t, `{"id":"c1"}`, string(env.Data))

	rec = do(engine, http.MethodDelete, "/api/messages/conversation/foreign", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTypingRequiresFlag(t *testing.T) {
	pres := &fakePresence{
		SetTypingFunc: func(_ context.Context, userID, otherUserID string, typing bool) (*presence.TypingState, error) {
			return &presence.TypingState{ConversationID: "c1", UserID: userID, Typing: typing}, nil
		},
	}
	engine := newRouter(t, &fakeMessaging{}, pres, false)

	rec := do(engine, http.MethodPost, "/api/messages/typing/bob", `{}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(engine, http.MethodPost, "/api/messages/typing/bob", `{"typing":false}`, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.JSONEq(t, `{"conversation_id":"c1","user_id":"alice","typing":false}`, string(env.Data))
}

func TestGetPresence(t *testing.T) {
	seen := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pres := &fakePresence{
		GetPresenceFunc: func(_ context.Context, userID string) (*presence.Presence, error) {
			return &presence.Presence{UserID: userID, Status: presence.StatusOffline, LastSeenAt: seen}, nil
		},
	}
	engine := newRouter(t, &fakeMessaging{}, pres, false)

	rec := do(engine, http.MethodGet, "/api/messages/presence/bob", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.JSONEq(t, `{"user_id":"bob","status":"offline","last_seen_at":"2024-05-01T10:00:00Z"}`, string(env.Data))
}

func TestUnauthenticatedRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	route := NewMessagingRoute(
		messaginghandler.NewMessagingHandler(&fakeMessaging{}),
		presencehandler.NewPresenceHandler(&fakePresence{}),
		&fakeSockets{},
		responses.NewWriter(false, zerolog.Nop()),
	)
	engine := gin.New()
	route.RegisterRouter(engine)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/messages/unread-count", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSocketRouteHandsOffUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sockets := &fakeSockets{}
	route := NewMessagingRoute(
		messaginghandler.NewMessagingHandler(&fakeMessaging{}),
		presencehandler.NewPresenceHandler(&fakePresence{}),
		sockets,
		responses.NewWriter(false, zerolog.Nop()),
	)
	engine := gin.New()
	route.RegisterRouter(engine.Group("/", middlewares.AuthMiddleware(nil, "", zerolog.Nop())))

	req := httptest.NewRequest(http.MethodGet, "/api/messages/ws", nil)
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, "alice", sockets.userID)
}
