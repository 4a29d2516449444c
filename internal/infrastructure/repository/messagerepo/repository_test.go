package messagerepo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumunity/messaging-api/internal/config"
	"github.com/alumunity/messaging-api/internal/domain/event"
	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/infrastructure/database"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/entities"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/transaction"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
	"github.com/alumunity/messaging-api/internal/utils/redact"
)

func newTestRepository(t *testing.T) (*Repository, *transaction.Database) {
	t.Helper()
	cfg := database.Config{
		Driver:       config.DriverSQLite,
		DSN:          "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}
	db, err := database.Connect(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, cfg, zerolog.Nop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	txdb := transaction.NewDatabase(db)
	return NewRepository(txdb), txdb
}

func newMessage(id, from, to, text string, at time.Time) *messaging.Message {
	return &messaging.Message{ID: id, SenderID: from, RecipientID: to, Text: text, SentAt: at, CreatedAt: at, UpdatedAt: at}
}

func TestCreateMessageUpsertsCanonicalConversation(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	first, err := repo.CreateMessage(ctx, newMessage("m1", "user-002", "user-001", "hello", base))
	require.NoError(t, err)
	assert.Equal(t, "user-001", first.UserID1)
	assert.Equal(t, "user-002", first.UserID2)

	second, err := repo.CreateMessage(ctx, newMessage("m2", "user-001", "user-002", "hi back", base.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.LastMessageID)
	assert.Equal(t, "m2", *second.LastMessageID)
	assert.True(t, second.LastMessageAt.Equal(base.Add(time.Minute)))

	var rows int64
	require.NoError(t, txdb.DB().Model(&entities.Conversation{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	_, err = repo.CreateMessage(ctx, newMessage("m2", "user-001", "user-002", "again", base))
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
}

func TestFetchConversationRecordsReceiptsOnce(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"m1", "m2", "m3"} {
		_, err := repo.CreateMessage(ctx, newMessage(id, "a", "b", "note "+id, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := repo.CreateMessage(ctx, newMessage("m4", "b", "a", "reply", base.Add(10*time.Minute)))
	require.NoError(t, err)

	unread, err := repo.CountUnread(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	readAt := base.Add(time.Hour)
	page, marked, err := repo.FetchConversation(ctx, "b", "a", messaging.Page{Limit: 2}, readAt)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)
	require.Len(t, page, 2)
	assert.Equal(t, "m1", page[0].ID)
	assert.Equal(t, "m2", page[1].ID)
	assert.True(t, page[0].Read)
	require.NotNil(t, page[0].ReadAt)
	assert.True(t, page[0].ReadAt.Equal(readAt))

	rest, _, err := repo.FetchConversation(ctx, "b", "a", messaging.Page{Limit: 10, Offset: 2}, readAt)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "m4", rest[1].ID)
	assert.False(t, rest[1].Read, "b's own reply stays unread until a opens the thread")

	_, marked, err = repo.FetchConversation(ctx, "b", "a", messaging.Page{Limit: 50}, readAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, marked)

	unread, err = repo.CountUnread(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestListConversationsDerivesUnreadCounts(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	photo := "https://cdn.example.com/b.png"
	require.NoError(t, txdb.DB().Create(&entities.User{ID: "b", Name: "Bea", PhotoURL: &photo}).Error)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	_, err := repo.CreateMessage(ctx, newMessage("m1", "b", "a", "first", base))
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, newMessage("m2", "b", "a", "second", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, newMessage("m3", "a", "c", "to carl", base.Add(2*time.Minute)))
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, newMessage("m4", "a", "a", "note to self", base.Add(-time.Hour)))
	require.NoError(t, err)

	inbox, err := repo.ListConversations(ctx, "a", messaging.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, inbox, 3)

	assert.Equal(t, "c", inbox[0].OtherUserID)
	assert.True(t, inbox[0].LastMessageFromMe)
	assert.Zero(t, inbox[0].UnreadCount)
	assert.Nil(t, inbox[0].OtherUserName)

	assert.Equal(t, "b", inbox[1].OtherUserID)
	assert.Equal(t, int64(2), inbox[1].UnreadCount)
	require.NotNil(t, inbox[1].OtherUserName)
	assert.Equal(t, "Bea", *inbox[1].OtherUserName)
	require.NotNil(t, inbox[1].PhotoURL)
	require.NotNil(t, inbox[1].LastMessage)
	assert.Equal(t, "second", *inbox[1].LastMessage)
	assert.False(t, inbox[1].LastMessageFromMe)

	assert.Equal(t, "a", inbox[2].OtherUserID)
	assert.Zero(t, inbox[2].UnreadCount, "self-sent messages never count as unread")

	paged, err := repo.ListConversations(ctx, "a", messaging.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "b", paged[0].OtherUserID)
}

func TestUpsertReadReceiptKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	_, err := repo.CreateMessage(ctx, newMessage("m1", "a", "b", "ping", base))
	require.NoError(t, err)

	first, err := repo.UpsertReadReceipt(ctx, &messaging.ReadReceipt{ID: "r1", MessageID: "m1", UserID: "b", ReadAt: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "r1", first.ID)

	second, err := repo.UpsertReadReceipt(ctx, &messaging.ReadReceipt{ID: "r2", MessageID: "m1", UserID: "b", ReadAt: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, "r1", second.ID)
	assert.True(t, second.ReadAt.Equal(base.Add(2*time.Minute)))

	var rows int64
	require.NoError(t, txdb.DB().Model(&entities.ReadReceipt{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	msg, err := repo.FindMessage(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, msg.Read)

	_, err = repo.UpsertReadReceipt(ctx, &messaging.ReadReceipt{ID: "r3", MessageID: "missing", UserID: "b", ReadAt: base})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = repo.FindMessage(ctx, "missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestSearchMessagesMatchesLiteralText(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	require.NoError(t, txdb.DB().Create(&entities.User{ID: "a", Name: "Ada"}).Error)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	_, err := repo.CreateMessage(ctx, newMessage("m1", "a", "b", "Project KICKOFF tomorrow", base))
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, newMessage("m2", "b", "a", "kickoff moved", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, newMessage("m3", "c", "d", "kickoff elsewhere", base.Add(2*time.Minute)))
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, newMessage("m4", "a", "b", "50% done", base.Add(3*time.Minute)))
	require.NoError(t, err)

	results, err := repo.SearchMessages(ctx, "a", "kickoff", 20)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "m2", results[0].ID)
	assert.Equal(t, "m1", results[1].ID)
	require.NotNil(t, results[1].SenderName)
	assert.Equal(t, "Ada", *results[1].SenderName)
	assert.Nil(t, results[0].SenderName)

	results, err = repo.SearchMessages(ctx, "a", "%", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m4", results[0].ID)

	results, err = repo.SearchMessages(ctx, "a", "kickoff", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDeleteConversationRemovesHistory(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	conv, err := repo.CreateMessage(ctx, newMessage("m1", "a", "b", "one", base))
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, newMessage("m2", "b", "a", "two", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, newMessage("m3", "a", "c", "other thread", base.Add(2*time.Minute)))
	require.NoError(t, err)
	_, err = repo.UpsertReadReceipt(ctx, &messaging.ReadReceipt{ID: "r1", MessageID: "m1", UserID: "b", ReadAt: base})
	require.NoError(t, err)
	require.NoError(t, txdb.DB().Create(&entities.TypingIndicator{ID: "t1", ConversationID: conv.ID, UserID: "a", TypingStartedAt: base}).Error)

	require.NoError(t, repo.DeleteConversation(ctx, conv))

	_, err = repo.FindConversation(ctx, conv.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	var messages, receipts, typing int64
	require.NoError(t, txdb.DB().Model(&entities.Message{}).Count(&messages).Error)
	require.NoError(t, txdb.DB().Model(&entities.ReadReceipt{}).Count(&receipts).Error)
	require.NoError(t, txdb.DB().Model(&entities.TypingIndicator{}).Count(&typing).Error)
	assert.Equal(t, int64(1), messages)
	assert.Zero(t, receipts)
	assert.Zero(t, typing)

	err = repo.DeleteConversation(ctx, conv)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestDeleteConversationByPairKeepsMessages(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	_, err := repo.CreateMessage(ctx, newMessage("m1", "a", "b", "one", base))
	require.NoError(t, err)

	removed, err := repo.DeleteConversationByPair(ctx, messaging.CanonicalPair("b", "a"))
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = repo.FindConversationByPair(ctx, messaging.CanonicalPair("a", "b"))
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	msg, err := repo.FindMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "one", msg.Text)

	removed, err = repo.DeleteConversationByPair(ctx, messaging.CanonicalPair("a", "b"))
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repo.Ping(ctx))
}

func TestCreateMessageRollsBackOnUpsertFailure(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	require.NoError(t, txdb.DB().Migrator().DropTable(&entities.Conversation{}))

	_, err := repo.CreateMessage(ctx, newMessage("m1", "user-001", "user-002", "hello", time.Now().UTC()))
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeDatabaseError))

	var rows int64
	require.NoError(t, txdb.DB().Model(&entities.Message{}).Count(&rows).Error)
	assert.Zero(t, rows, "message insert must not survive a failed conversation upsert")
}

func TestConcurrentSendsKeepOneConversation(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	svc := messaging.NewService(repo, event.NoopPublisher{}, redact.New("hashed", "test"), zerolog.Nop())

	const sends = 40
	var wg sync.WaitGroup
	errs := make(chan error, sends)
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "user-001", "user-002"
			if i%2 == 1 {
				from, to = to, from
			}
			_, err := svc.SendMessage(ctx, messaging.SendMessageInput{
				SenderID:    from,
				RecipientID: to,
				Text:        fmt.Sprintf("message %d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var conversations, messages int64
	require.NoError(t, txdb.DB().Model(&entities.Conversation{}).Count(&conversations).Error)
	require.NoError(t, txdb.DB().Model(&entities.Message{}).Count(&messages).Error)
	assert.Equal(t, int64(1), conversations)
	assert.Equal(t, int64(sends), messages)
}
