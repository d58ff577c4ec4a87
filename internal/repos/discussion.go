package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/types"
)

type DiscussionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, discussion *types.Discussion) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Discussion, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Discussion, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type discussionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDiscussionRepo(db *gorm.DB, baseLog *logger.Logger) DiscussionRepo {
	return &discussionRepo{db: db, log: baseLog.With("repo", "DiscussionRepo")}
}

func (r *discussionRepo) Create(ctx context.Context, tx *gorm.DB, discussion *types.Discussion) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(discussion).Error
}

func (r *discussionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Discussion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Discussion
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *discussionRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Discussion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Discussion
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *discussionRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Discussion{}).Error
}
