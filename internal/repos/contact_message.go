package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/types"
)

type ContactMessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, messages []*types.ContactMessage) error
	ListByContact(ctx context.Context, tx *gorm.DB, contactID string) ([]*types.ContactMessage, error)
	ListRecentByContact(ctx context.Context, tx *gorm.DB, contactID string, limit int) ([]*types.ContactMessage, error)
	LastByContact(ctx context.Context, tx *gorm.DB, contactID string) (*types.ContactMessage, error)
	CountByContact(ctx context.Context, tx *gorm.DB, contactID string) (int64, error)
}

type contactMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContactMessageRepo(db *gorm.DB, baseLog *logger.Logger) ContactMessageRepo {
	return &contactMessageRepo{db: db, log: baseLog.With("repo", "ContactMessageRepo")}
}

func (r *contactMessageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.ContactMessage) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(messages) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&messages).Error
}

func (r *contactMessageRepo) ListByContact(ctx context.Context, tx *gorm.DB, contactID string) ([]*types.ContactMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContactMessage
	if err := transaction.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("sent_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contactMessageRepo) ListRecentByContact(ctx context.Context, tx *gorm.DB, contactID string, limit int) ([]*types.ContactMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ContactMessage
	if err := transaction.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

func (r *contactMessageRepo) LastByContact(ctx context.Context, tx *gorm.DB, contactID string) (*types.ContactMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ContactMessage
	err := transaction.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("sent_at DESC").
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *contactMessageRepo) CountByContact(ctx context.Context, tx *gorm.DB, contactID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContactMessage{}).
		Where("contact_id = ?", contactID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
