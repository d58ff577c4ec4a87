package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) error
	ListByDiscussion(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID) ([]*types.Message, error)
	ListRecentByDiscussion(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID, limit int) ([]*types.Message, error)
	DeleteByDiscussion(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(messages) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&messages).Error
}

func (r *messageRepo) ListByDiscussion(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Message
	if err := transaction.WithContext(ctx).
		Where("discussion_id = ?", discussionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListRecentByDiscussion returns the newest messages first-trimmed: the result
// is the last `limit` messages in chronological order.
func (r *messageRepo) ListRecentByDiscussion(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Message
	if err := transaction.WithContext(ctx).
		Where("discussion_id = ?", discussionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

func (r *messageRepo) DeleteByDiscussion(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("discussion_id = ?", discussionID).
		Delete(&types.Message{}).Error
}
