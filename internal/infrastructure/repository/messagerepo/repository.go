package messagerepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/entities"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/transaction"
	"github.com/alumunity/messaging-api/internal/utils/idgen"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

// Repository is the relational messaging.Store.
type Repository struct {
	db *transaction.Database
}

var _ messaging.Store = (*Repository)(nil)

// NewRepository builds a messaging repository.
func NewRepository(db *transaction.Database) *Repository {
	return &Repository{db: db}
}

const receiptJoin = "LEFT JOIN message_read_receipts r ON r.message_id = messages.id AND r.user_id = messages.recipient_id"

// CreateMessage inserts the message and upserts its conversation in one transaction.
func (r *Repository) CreateMessage(ctx context.Context, msg *messaging.Message) (*messaging.Conversation, error) {
	pair := messaging.CanonicalPair(msg.SenderID, msg.RecipientID)
	var conv entities.Conversation

	err := r.db.Transaction(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)

		if err := tx.Create(entities.NewSchemaMessage(msg)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
					fmt.Sprintf("message already exists: %s", msg.ID), err, "messagerepo-duplicate-message")
			}
			return dbError(ctx, err, "failed to create message", "messagerepo-create-message")
		}

		lastID := msg.ID
		upsert := entities.Conversation{
			ID:            idgen.NewUUID(),
			UserID1:       pair.UserID1,
			UserID2:       pair.UserID2,
			LastMessageID: &lastID,
			LastMessageAt: msg.SentAt,
			CreatedAt:     msg.SentAt,
			UpdatedAt:     msg.SentAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id_1"}, {Name: "user_id_2"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_message_id", "last_message_at", "updated_at"}),
		}).Create(&upsert).Error; err != nil {
			return dbError(ctx, err, "failed to upsert conversation", "messagerepo-upsert-conversation")
		}

		if err := tx.Where("user_id_1 = ? AND user_id_2 = ?", pair.UserID1, pair.UserID2).
			First(&conv).Error; err != nil {
			return dbError(ctx, err, "failed to reload conversation", "messagerepo-reload-conversation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv.EtoD(), nil
}

// FetchConversation records receipts for unread incoming messages, then returns one page of the thread.
func (r *Repository) FetchConversation(ctx context.Context, userID, otherUserID string, page messaging.Page, readAt time.Time) ([]*messaging.Message, int64, error) {
	var (
		rows   []entities.MessageWithReceipt
		marked int64
	)

	err := r.db.Transaction(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)

		if userID != otherUserID {
			var unreadIDs []string
			if err := tx.Model(&entities.Message{}).
				Where("sender_id = ? AND recipient_id = ?", otherUserID, userID).
				Where("NOT EXISTS (SELECT 1 FROM message_read_receipts r WHERE r.message_id = messages.id AND r.user_id = ?)", userID).
				Pluck("id", &unreadIDs).Error; err != nil {
				return dbError(ctx, err, "failed to load unread messages", "messagerepo-unread-ids")
			}

			if len(unreadIDs) > 0 {
				receipts := make([]entities.ReadReceipt, 0, len(unreadIDs))
				for _, id := range unreadIDs {
					receipts = append(receipts, entities.ReadReceipt{ID: idgen.NewUUID(), MessageID: id, UserID: userID, ReadAt: readAt})
				}
				result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(receipts, 200)
				if result.Error != nil {
					return dbError(ctx, result.Error, "failed to record read receipts", "messagerepo-bulk-receipts")
				}
				marked = result.RowsAffected
			}
		}

		query := tx.Table("messages").
			Select("messages.*, r.read_at AS read_at").
			Joins(receiptJoin).
			Where("(messages.sender_id = ? AND messages.recipient_id = ?) OR (messages.sender_id = ? AND messages.recipient_id = ?)",
				userID, otherUserID, otherUserID, userID).
			Order("messages.sent_at ASC").
			Order("messages.id ASC")
		if page.Limit > 0 {
			query = query.Limit(page.Limit)
		}
		if page.Offset > 0 {
			query = query.Offset(page.Offset)
		}
		if err := query.Scan(&rows).Error; err != nil {
			return dbError(ctx, err, "failed to fetch conversation", "messagerepo-fetch-thread")
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]*messaging.Message, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, marked, nil
}

const inboxQuery = `
SELECT
	c.id AS conversation_id,
	CASE WHEN c.user_id_1 = @user THEN c.user_id_2 ELSE c.user_id_1 END AS other_user_id,
	u.name AS other_user_name,
	u.photo_url AS photo_url,
	m.message_text AS last_message,
	c.last_message_at AS last_message_at,
	m.sender_id AS last_message_sender_id,
	(
		SELECT COUNT(*) FROM messages um
		WHERE um.recipient_id = @user
			AND um.sender_id <> um.recipient_id
			AND um.sender_id = CASE WHEN c.user_id_1 = @user THEN c.user_id_2 ELSE c.user_id_1 END
			AND NOT EXISTS (
				SELECT 1 FROM message_read_receipts rr
				WHERE rr.message_id = um.id AND rr.user_id = @user
			)
	) AS unread_count
FROM conversations c
LEFT JOIN users u ON u.id = CASE WHEN c.user_id_1 = @user THEN c.user_id_2 ELSE c.user_id_1 END
LEFT JOIN messages m ON m.id = c.last_message_id
WHERE c.user_id_1 = @user OR c.user_id_2 = @user
ORDER BY c.last_message_at DESC, c.id DESC
LIMIT @limit OFFSET @offset`

// ListConversations returns the inbox of userID with derived unread counts.
func (r *Repository) ListConversations(ctx context.Context, userID string, page messaging.Page) ([]*messaging.ConversationSummary, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = messaging.DefaultPageLimit
	}

	var rows []entities.ConversationSummaryRow
	if err := r.db.GetTx(ctx).Raw(inboxQuery, map[string]any{
		"user":   userID,
		"limit":  limit,
		"offset": page.Offset,
	}).Scan(&rows).Error; err != nil {
		return nil, dbError(ctx, err, "failed to list conversations", "messagerepo-list-conversations")
	}

	out := make([]*messaging.ConversationSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD(userID))
	}
	return out, nil
}

func (r *Repository) FindMessage(ctx context.Context, id string) (*messaging.Message, error) {
	var rows []entities.MessageWithReceipt
	if err := r.db.GetTx(ctx).Table("messages").
		Select("messages.*, r.read_at AS read_at").
		Joins(receiptJoin).
		Where("messages.id = ?", id).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, dbError(ctx, err, "failed to fetch message", "messagerepo-find-message")
	}
	if len(rows) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("message not found: %s", id), nil, "messagerepo-message-not-found")
	}
	return rows[0].EtoD(), nil
}

// UpsertReadReceipt writes the receipt, refreshing read_at when one already exists.
func (r *Repository) UpsertReadReceipt(ctx context.Context, receipt *messaging.ReadReceipt) (*messaging.ReadReceipt, error) {
	var stored entities.ReadReceipt

	err := r.db.Transaction(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)

		var exists int64
		if err := tx.Model(&entities.Message{}).Where("id = ?", receipt.MessageID).Count(&exists).Error; err != nil {
			return dbError(ctx, err, "failed to check message", "messagerepo-receipt-check")
		}
		if exists == 0 {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("message not found: %s", receipt.MessageID), nil, "messagerepo-receipt-message-missing")
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"read_at"}),
		}).Create(entities.NewSchemaReadReceipt(receipt)).Error; err != nil {
			return dbError(ctx, err, "failed to upsert read receipt", "messagerepo-upsert-receipt")
		}

		if err := tx.Where("message_id = ? AND user_id = ?", receipt.MessageID, receipt.UserID).
			First(&stored).Error; err != nil {
			return dbError(ctx, err, "failed to reload read receipt", "messagerepo-reload-receipt")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored.EtoD(), nil
}

// CountUnread counts messages addressed to userID by someone else that have no receipt from userID.
func (r *Repository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.GetTx(ctx).Model(&entities.Message{}).
		Where("recipient_id = ? AND sender_id <> recipient_id", userID).
		Where("NOT EXISTS (SELECT 1 FROM message_read_receipts r WHERE r.message_id = messages.id AND r.user_id = ?)", userID).
		Count(&count).Error; err != nil {
		return 0, dbError(ctx, err, "failed to count unread messages", "messagerepo-count-unread")
	}
	return count, nil
}

// SearchMessages does a case-insensitive substring match over the user's messages, newest first.
func (r *Repository) SearchMessages(ctx context.Context, userID, query string, limit int) ([]*messaging.SearchResult, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	q := r.db.GetTx(ctx).Table("messages").
		Select("messages.*, r.read_at AS read_at, u.name AS sender_name").
		Joins(receiptJoin).
		Joins("LEFT JOIN users u ON u.id = messages.sender_id").
		Where("messages.sender_id = ? OR messages.recipient_id = ?", userID, userID).
		Where("LOWER(messages.message_text) LIKE ? ESCAPE '!'", pattern).
		Order("messages.sent_at DESC").
		Order("messages.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []entities.SearchRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, dbError(ctx, err, "failed to search messages", "messagerepo-search")
	}

	out := make([]*messaging.SearchResult, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (r *Repository) FindConversation(ctx context.Context, id string) (*messaging.Conversation, error) {
	var conv entities.Conversation
	if err := r.db.GetTx(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("conversation not found: %s", id), nil, "messagerepo-conversation-not-found")
		}
		return nil, dbError(ctx, err, "failed to fetch conversation", "messagerepo-find-conversation")
	}
	return conv.EtoD(), nil
}

func (r *Repository) FindConversationByPair(ctx context.Context, pair messaging.Pair) (*messaging.Conversation, error) {
	var conv entities.Conversation
	if err := r.db.GetTx(ctx).
		Where("user_id_1 = ? AND user_id_2 = ?", pair.UserID1, pair.UserID2).
		First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"conversation not found", nil, "messagerepo-pair-not-found")
		}
		return nil, dbError(ctx, err, "failed to fetch conversation", "messagerepo-find-pair")
	}
	return conv.EtoD(), nil
}

// DeleteConversation removes the conversation row, its typing rows, and every message
// exchanged by the pair together with their receipts.
func (r *Repository) DeleteConversation(ctx context.Context, conv *messaging.Conversation) error {
	return r.db.Transaction(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)

		removed, err := dropConversation(ctx, tx, conv.ID)
		if err != nil {
			return err
		}
		if !removed {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("conversation not found: %s", conv.ID), nil, "messagerepo-delete-not-found")
		}

		pairMessages := tx.Session(&gorm.Session{NewDB: true}).
			Model(&entities.Message{}).
			Select("id").
			Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
				conv.UserID1, conv.UserID2, conv.UserID2, conv.UserID1)

		if err := tx.Where("message_id IN (?)", pairMessages).Delete(&entities.ReadReceipt{}).Error; err != nil {
			return dbError(ctx, err, "failed to delete read receipts", "messagerepo-delete-receipts")
		}
		if err := tx.Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			conv.UserID1, conv.UserID2, conv.UserID2, conv.UserID1).
			Delete(&entities.Message{}).Error; err != nil {
			return dbError(ctx, err, "failed to delete messages", "messagerepo-delete-messages")
		}
		return nil
	})
}

// DeleteConversationByPair removes only the conversation row and its typing rows.
func (r *Repository) DeleteConversationByPair(ctx context.Context, pair messaging.Pair) (bool, error) {
	var removed bool
	err := r.db.Transaction(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)

		var conv entities.Conversation
		err := tx.Where("user_id_1 = ? AND user_id_2 = ?", pair.UserID1, pair.UserID2).First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return dbError(ctx, err, "failed to fetch conversation", "messagerepo-block-find")
		}

		removed, err = dropConversation(ctx, tx, conv.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB().DB()
	if err != nil {
		return dbError(ctx, err, "failed to access database", "messagerepo-ping-handle")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(ctx, err, "database unreachable", "messagerepo-ping")
	}
	return nil
}

// dropConversation deletes typing rows, detaches presence rows and removes the conversation.
func dropConversation(ctx context.Context, tx *gorm.DB, conversationID string) (bool, error) {
	if err := tx.Where("conversation_id = ?", conversationID).Delete(&entities.TypingIndicator{}).Error; err != nil {
		return false, dbError(ctx, err, "failed to delete typing indicators", "messagerepo-delete-typing")
	}
	if err := tx.Model(&entities.UserPresence{}).
		Where("current_conversation_id = ?", conversationID).
		Update("current_conversation_id", nil).Error; err != nil {
		return false, dbError(ctx, err, "failed to detach presence", "messagerepo-detach-presence")
	}
	result := tx.Where("id = ?", conversationID).Delete(&entities.Conversation{})
	if result.Error != nil {
		return false, dbError(ctx, result.Error, "failed to delete conversation", "messagerepo-delete-conversation")
	}
	return result.RowsAffected > 0, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func dbError(ctx context.Context, err error, message, code string) error {
	if platformerrors.GetPlatformError(err) != nil {
		return err
	}
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, message, err, code)
}
