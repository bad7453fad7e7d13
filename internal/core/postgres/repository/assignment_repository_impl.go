package repository

import (
	"context"
	"errors"
	"time"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new instance of AssignmentRepository
func NewAssignmentRepository(db *gorm.DB) ports.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, a *domain.WorkflowCollectionAssignment) error {
	err := r.db.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &domain.DuplicateEngagementError{UserID: a.UserID, CollectionID: a.WorkflowCollectionID, Kind: "assignment"}
	}
	return err
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionAssignment, error) {
	var a domain.WorkflowCollectionAssignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *assignmentRepository) ListByUser(ctx context.Context, userID uuid.UUID, statuses ...domain.AssignmentStatus) ([]domain.WorkflowCollectionAssignment, error) {
	var out []domain.WorkflowCollectionAssignment
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", stringsOf(statuses))
	}
	err := q.Order("assigned_on DESC").Find(&out).Error
	return out, err
}

func (r *assignmentRepository) FindOpen(ctx context.Context, userID, collectionID uuid.UUID) (*domain.WorkflowCollectionAssignment, error) {
	var a domain.WorkflowCollectionAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND workflow_collection_id = ? AND status IN ?",
			userID, collectionID, stringsOf(domain.OpenAssignmentStatuses)).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *assignmentRepository) LinkEngagement(ctx context.Context, id, engagementID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowCollectionAssignment{}).
		Where("id = ? AND status IN ?", id, stringsOf(domain.OpenAssignmentStatuses)).
		Updates(map[string]interface{}{
			"engagement_id": engagementID,
			"status":        string(domain.AssignmentInProgress),
		})

	if result.Error != nil {
		return translate(result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *assignmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AssignmentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowCollectionAssignment{}).
		Where("id = ?", id).
		Update("status", string(status))

	if result.Error != nil {
		return translate(result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// CloseForEngagement only touches open assignments, so a replayed event
// cannot overwrite a status an administrator already set.
func (r *assignmentRepository) CloseForEngagement(ctx context.Context, engagementID uuid.UUID, status domain.AssignmentStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowCollectionAssignment{}).
		Where("engagement_id = ? AND status IN ?", engagementID, stringsOf(domain.OpenAssignmentStatuses)).
		Update("status", string(status))

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *assignmentRepository) ListFinishedOpen(ctx context.Context, finishedBefore time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.WorkflowCollectionAssignment{}).
		Joins("JOIN workflow_collection_engagements e ON e.id = workflow_collection_assignments.engagement_id").
		Where("workflow_collection_assignments.status IN ? AND e.finished IS NOT NULL AND e.finished < ?",
			stringsOf(domain.OpenAssignmentStatuses), finishedBefore).
		Order("e.finished").
		Limit(limit).
		Pluck("workflow_collection_assignments.engagement_id", &ids).Error
	return ids, err
}
