package repository

import (
	"context"
	"errors"
	"time"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository creates a new instance of EngagementRepository
func NewEngagementRepository(db *gorm.DB) ports.EngagementRepository {
	return &engagementRepository{db: db}
}

func byStarted(db *gorm.DB) *gorm.DB {
	return db.Order("started ASC")
}

func (r *engagementRepository) Create(ctx context.Context, e *domain.WorkflowCollectionEngagement) error {
	err := r.db.WithContext(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &domain.DuplicateEngagementError{UserID: e.UserID, CollectionID: e.WorkflowCollectionID, Kind: "engagement"}
	}
	return err
}

func (r *engagementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionEngagement, error) {
	var e domain.WorkflowCollectionEngagement
	err := r.db.WithContext(ctx).
		Preload("Details", byStarted).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// Lock takes a row lock on the engagement so concurrent submissions for it
// are serialized until the surrounding transaction ends.
func (r *engagementRepository) Lock(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionEngagement, error) {
	var e domain.WorkflowCollectionEngagement
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *engagementRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionEngagement, error) {
	var out []domain.WorkflowCollectionEngagement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started DESC").
		Find(&out).Error
	return out, err
}

func (r *engagementRepository) FindOpen(ctx context.Context, userID, collectionID uuid.UUID) (*domain.WorkflowCollectionEngagement, error) {
	var e domain.WorkflowCollectionEngagement
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND workflow_collection_id = ? AND finished IS NULL", userID, collectionID).
		Order("started DESC").
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *engagementRepository) ListDetails(ctx context.Context, engagementID uuid.UUID) ([]domain.WorkflowCollectionEngagementDetail, error) {
	var out []domain.WorkflowCollectionEngagementDetail
	err := r.db.WithContext(ctx).
		Where("engagement_id = ?", engagementID).
		Order("started ASC").
		Find(&out).Error
	return out, err
}

// UpsertDetail writes the (engagement, step) row. On conflict the response is
// replaced but an existing finished timestamp wins, so COMPLETE never reverts.
func (r *engagementRepository) UpsertDetail(ctx context.Context, d *domain.WorkflowCollectionEngagementDetail) error {
	db := r.db.WithContext(ctx)
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "engagement_id"}, {Name: "workflow_step_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"user_response": gorm.Expr("EXCLUDED.user_response"),
			"finished":      gorm.Expr("COALESCE(workflow_collection_engagement_details.finished, EXCLUDED.finished)"),
			"updated_at":    gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(d).Error
	if err != nil {
		return err
	}

	// The conflicting row keeps its original id and started time
	var stored domain.WorkflowCollectionEngagementDetail
	err = db.Where("engagement_id = ? AND workflow_step_id = ?", d.EngagementID, d.WorkflowStepID).
		First(&stored).Error
	if err != nil {
		return translate(err)
	}
	*d = stored
	return nil
}

func (r *engagementRepository) MarkFinished(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowCollectionEngagement{}).
		Where("id = ? AND finished IS NULL", id).
		Update("finished", at)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.ErrEngagementFinished
	}

	return nil
}
