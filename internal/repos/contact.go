package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/types"
)

type ContactRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, contacts []*types.Contact) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Contact, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Contact, error)
}

type contactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContactRepo(db *gorm.DB, baseLog *logger.Logger) ContactRepo {
	return &contactRepo{db: db, log: baseLog.With("repo", "ContactRepo")}
}

func (r *contactRepo) Upsert(ctx context.Context, tx *gorm.DB, contacts []*types.Contact) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(contacts) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Save(&contacts).Error
}

func (r *contactRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Contact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Contact
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

func (r *contactRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Contact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Contact
	if err := transaction.WithContext(ctx).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
