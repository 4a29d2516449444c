package presencerepo

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/entities"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/transaction"
	"github.com/alumunity/messaging-api/internal/utils/idgen"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

// Repository is the relational presence.Store.
type Repository struct {
	db *transaction.Database
}

var _ presence.Store = (*Repository)(nil)

func NewRepository(db *transaction.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UpsertTyping(ctx context.Context, indicator *presence.TypingIndicator) error {
	id := indicator.ID
	if id == "" {
		id = idgen.NewUUID()
	}
	row := entities.TypingIndicator{
		ID:              id,
		ConversationID:  indicator.ConversationID,
		UserID:          indicator.UserID,
		TypingStartedAt: indicator.TypingStartedAt,
	}
	if err := r.db.GetTx(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"typing_started_at"}),
	}).Create(&row).Error; err != nil {
		return dbError(ctx, err, "failed to upsert typing indicator", "presencerepo-upsert-typing")
	}
	return nil
}

func (r *Repository) DeleteTyping(ctx context.Context, conversationID, userID string) error {
	if err := r.db.GetTx(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&entities.TypingIndicator{}).Error; err != nil {
		return dbError(ctx, err, "failed to delete typing indicator", "presencerepo-delete-typing")
	}
	return nil
}

func (r *Repository) FindTyping(ctx context.Context, conversationID, userID string) (*presence.TypingIndicator, error) {
	var row entities.TypingIndicator
	err := r.db.GetTx(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(ctx, err, "failed to fetch typing indicator", "presencerepo-find-typing")
	}
	return row.EtoD(), nil
}

func (r *Repository) DeleteTypingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.GetTx(ctx).
		Where("typing_started_at < ?", cutoff).
		Delete(&entities.TypingIndicator{})
	if result.Error != nil {
		return 0, dbError(ctx, result.Error, "failed to expire typing indicators", "presencerepo-expire-typing")
	}
	return result.RowsAffected, nil
}

func (r *Repository) UpsertPresence(ctx context.Context, p *presence.Presence) error {
	row := entities.UserPresence{
		ID:                    idgen.NewUUID(),
		UserID:                p.UserID,
		Status:                string(p.Status),
		LastSeenAt:            p.LastSeenAt,
		CurrentConversationID: p.CurrentConversationID,
		CreatedAt:             p.LastSeenAt,
		UpdatedAt:             p.LastSeenAt,
	}
	if err := r.db.GetTx(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_seen_at", "current_conversation_id", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return dbError(ctx, err, "failed to upsert presence", "presencerepo-upsert-presence")
	}
	return nil
}

func (r *Repository) FindPresence(ctx context.Context, userID string) (*presence.Presence, error) {
	var row entities.UserPresence
	err := r.db.GetTx(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(ctx, err, "failed to fetch presence", "presencerepo-find-presence")
	}
	return row.EtoD(), nil
}

// MarkOfflineBefore flips every non-offline user last seen before cutoff to offline.
func (r *Repository) MarkOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.GetTx(ctx).Model(&entities.UserPresence{}).
		Where("status <> ? AND last_seen_at < ?", string(presence.StatusOffline), cutoff).
		Updates(map[string]any{
			"status":                  string(presence.StatusOffline),
			"current_conversation_id": nil,
		})
	if result.Error != nil {
		return 0, dbError(ctx, result.Error, "failed to mark users offline", "presencerepo-mark-offline")
	}
	return result.RowsAffected, nil
}

func (r *Repository) ConversationPartners(ctx context.Context, userID string) ([]string, error) {
	var convs []entities.Conversation
	if err := r.db.GetTx(ctx).
		Select("user_id_1", "user_id_2").
		Where("user_id_1 = ? OR user_id_2 = ?", userID, userID).
		Find(&convs).Error; err != nil {
		return nil, dbError(ctx, err, "failed to load conversation partners", "presencerepo-partners")
	}

	partners := make([]string, 0, len(convs))
	for _, c := range convs {
		other := c.UserID1
		if other == userID {
			other = c.UserID2
		}
		if other != userID {
			partners = append(partners, other)
		}
	}
	sort.Strings(partners)
	return partners, nil
}

func dbError(ctx context.Context, err error, message, code string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, message, err, code)
}
