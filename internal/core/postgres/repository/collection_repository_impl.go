package repository

import (
	"context"
	"time"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type collectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository creates a new instance of CollectionRepository
func NewCollectionRepository(db *gorm.DB) ports.CollectionRepository {
	return &collectionRepository{db: db}
}

func bySortOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

func (r *collectionRepository) Create(ctx context.Context, c *domain.WorkflowCollection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int
		if err := tx.Model(&domain.WorkflowCollection{}).
			Where("code = ?", c.Code).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error; err != nil {
			return err
		}
		c.Version = latest + 1

		// Reuse existing tags so (type, text) stays unique.
		for i := range c.Tags {
			tag := &c.Tags[i]
			if err := tx.Where("type = ? AND text = ?", tag.Type, tag.Text).
				Attrs(domain.WorkflowCollectionTag{ID: uuid.New()}).
				FirstOrCreate(tag).Error; err != nil {
				return err
			}
		}

		for i := range c.Members {
			c.Members[i].WorkflowCollectionID = c.ID
		}

		return translate(tx.Create(c).Error)
	})
}

func (r *collectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollection, error) {
	var c domain.WorkflowCollection
	err := r.db.WithContext(ctx).
		Preload("Members", bySortOrder).
		Preload("Tags").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *collectionRepository) GetStructure(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollection, error) {
	var c domain.WorkflowCollection
	err := r.db.WithContext(ctx).
		Preload("Members", bySortOrder).
		Preload("Members.Workflow").
		Preload("Members.Workflow.Steps", bySortOrder).
		Preload("Members.Workflow.Steps.Inputs").
		Preload("Members.Workflow.Steps.Inputs.ResponseSchema").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *collectionRepository) GetLatestByCode(ctx context.Context, code string) (*domain.WorkflowCollection, error) {
	var c domain.WorkflowCollection
	err := r.db.WithContext(ctx).
		Preload("Members", bySortOrder).
		Preload("Tags").
		Where("code = ?", code).
		Order("version DESC").
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *collectionRepository) List(ctx context.Context, filter ports.CollectionFilter) ([]domain.WorkflowCollection, error) {
	var out []domain.WorkflowCollection
	q := r.db.WithContext(ctx).Model(&domain.WorkflowCollection{}).Preload("Tags")
	if filter.Category != "" {
		q = q.Where("workflow_collections.category = ?", string(filter.Category))
	}
	if filter.ActiveOnly {
		q = q.Where("workflow_collections.active = ?", true)
	}
	if filter.Tag != "" {
		q = q.Joins("JOIN workflow_collection_tag_assignments ta ON ta.workflow_collection_id = workflow_collections.id").
			Joins("JOIN workflow_collection_tags t ON t.id = ta.workflow_collection_tag_id").
			Where("t.text = ?", filter.Tag)
	}
	err := q.Order("workflow_collections.code ASC, workflow_collections.version DESC").Find(&out).Error
	return out, err
}

func (r *collectionRepository) ListForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.WorkflowCollection, error) {
	db := r.db.WithContext(ctx)

	assigned := db.Model(&domain.WorkflowCollectionAssignment{}).
		Select("workflow_collection_id").
		Where("user_id = ? AND status IN ?", userID, stringsOf(domain.OpenAssignmentStatuses))
	subscribed := db.Model(&domain.WorkflowCollectionSubscription{}).
		Select("workflow_collection_id").
		Where("user_id = ? AND active = ?", userID, true)
	recommended := db.Model(&domain.WorkflowCollectionRecommendation{}).
		Select("workflow_collection_id").
		Where("user_id = ? AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)", userID, now, now)

	var out []domain.WorkflowCollection
	err := db.Preload("Tags").
		Where("active = ?", true).
		Where(db.Where("id IN (?)", assigned).
			Or("id IN (?)", subscribed).
			Or("id IN (?)", recommended)).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

func (r *collectionRepository) CreateRecommendation(ctx context.Context, rec *domain.WorkflowCollectionRecommendation) error {
	return r.db.WithContext(ctx).Create(rec).Error
}
