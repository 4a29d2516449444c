package presencerepo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumunity/messaging-api/internal/config"
	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/infrastructure/database"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/entities"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/transaction"
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

func TestTypingUpsertAndExpiry(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertTyping(ctx, &presence.TypingIndicator{ConversationID: "c1", UserID: "a", TypingStartedAt: base}))
	require.NoError(t, repo.UpsertTyping(ctx, &presence.TypingIndicator{ConversationID: "c1", UserID: "a", TypingStartedAt: base.Add(5 * time.Second)}))
	require.NoError(t, repo.UpsertTyping(ctx, &presence.TypingIndicator{ConversationID: "c1", UserID: "b", TypingStartedAt: base.Add(-time.Minute)}))

	var rows int64
	require.NoError(t, txdb.DB().Model(&entities.TypingIndicator{}).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)

	found, err := repo.FindTyping(ctx, "c1", "a")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.TypingStartedAt.Equal(base.Add(5*time.Second)))

	expired, err := repo.DeleteTypingBefore(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	missing, err := repo.FindTyping(ctx, "c1", "b")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.DeleteTyping(ctx, "c1", "a"))
	found, err = repo.FindTyping(ctx, "c1", "a")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestPresenceUpsertAndSweep(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	conv := "c1"

	require.NoError(t, repo.UpsertPresence(ctx, &presence.Presence{UserID: "a", Status: presence.StatusOnline, LastSeenAt: base.Add(-10 * time.Minute), CurrentConversationID: &conv}))
	require.NoError(t, repo.UpsertPresence(ctx, &presence.Presence{UserID: "b", Status: presence.StatusAway, LastSeenAt: base}))
	require.NoError(t, repo.UpsertPresence(ctx, &presence.Presence{UserID: "b", Status: presence.StatusOnline, LastSeenAt: base}))

	b, err := repo.FindPresence(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, presence.StatusOnline, b.Status)

	updated, err := repo.MarkOfflineBefore(ctx, base.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	a, err := repo.FindPresence(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, presence.StatusOffline, a.Status)
	assert.Nil(t, a.CurrentConversationID)

	nobody, err := repo.FindPresence(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, nobody)
}

func TestConversationPartners(t *testing.T) {
	ctx := context.Background()
	repo, txdb := newTestRepository(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, c := range []entities.Conversation{
		{ID: "c1", UserID1: "a", UserID2: "c", LastMessageAt: now},
		{ID: "c2", UserID1: "a", UserID2: "b", LastMessageAt: now},
		{ID: "c3", UserID1: "a", UserID2: "a", LastMessageAt: now},
		{ID: "c4", UserID1: "b", UserID2: "c", LastMessageAt: now},
	} {
		row := c
		require.NoError(t, txdb.DB().Create(&row).Error)
	}

	partners, err := repo.ConversationPartners(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, partners)
}
