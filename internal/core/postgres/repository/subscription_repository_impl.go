package repository

import (
	"context"
	"errors"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new instance of SubscriptionRepository
func NewSubscriptionRepository(db *gorm.DB) ports.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Upsert(ctx context.Context, s *domain.WorkflowCollectionSubscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.WorkflowCollectionSubscription
		err := tx.Where("user_id = ? AND workflow_collection_id = ?", s.UserID, s.WorkflowCollectionID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			for i := range s.Schedules {
				s.Schedules[i].SubscriptionID = s.ID
			}
			return translate(tx.Create(s).Error)
		case err != nil:
			return err
		}

		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
		if err := tx.Model(&existing).Update("active", s.Active).Error; err != nil {
			return err
		}
		if err := tx.Where("subscription_id = ?", existing.ID).
			Delete(&domain.WorkflowCollectionSubscriptionSchedule{}).Error; err != nil {
			return err
		}
		for i := range s.Schedules {
			s.Schedules[i].SubscriptionID = existing.ID
		}
		if len(s.Schedules) > 0 {
			if err := tx.Create(&s.Schedules).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionSubscription, error) {
	var s domain.WorkflowCollectionSubscription
	err := r.db.WithContext(ctx).
		Preload("Schedules").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionSubscription, error) {
	var out []domain.WorkflowCollectionSubscription
	err := r.db.WithContext(ctx).
		Preload("Schedules").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *subscriptionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowCollectionSubscription{}).
		Where("id = ?", id).
		Update("active", false)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
