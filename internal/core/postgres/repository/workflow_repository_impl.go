package repository

import (
	"context"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new instance of WorkflowRepository
func NewWorkflowRepository(db *gorm.DB) ports.WorkflowRepository {
	return &workflowRepository{db: db}
}

// Create stores the workflow with steps and step content in one transaction
func (r *workflowRepository) Create(ctx context.Context, w *domain.Workflow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int
		if err := tx.Model(&domain.Workflow{}).
			Where("code = ?", w.Code).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error; err != nil {
			return err
		}
		w.Version = latest + 1

		for i := range w.Steps {
			step := &w.Steps[i]
			step.WorkflowID = w.ID
			for j := range step.DataGroups {
				g := &step.DataGroups[j]
				if err := tx.Where("code = ?", g.Code).
					Attrs(domain.WorkflowStepDataGroup{ID: uuid.New(), Description: g.Description}).
					FirstOrCreate(g).Error; err != nil {
					return err
				}
			}
		}

		return translate(tx.Create(w).Error)
	})
}

func (r *workflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	var w domain.Workflow
	err := r.db.WithContext(ctx).
		Preload("Steps", bySortOrder).
		Preload("Steps.Inputs").
		Preload("Steps.Inputs.ResponseSchema").
		Preload("Steps.Texts").
		Preload("Steps.Images").
		Preload("Steps.Audios").
		Preload("Steps.Videos").
		Preload("Steps.DataGroups").
		Where("id = ?", id).
		First(&w).Error
	if err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (r *workflowRepository) List(ctx context.Context) ([]domain.Workflow, error) {
	var out []domain.Workflow
	err := r.db.WithContext(ctx).Order("code ASC, version DESC").Find(&out).Error
	return out, err
}

func (r *workflowRepository) CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Workflow{}).
		Where("id IN ?", ids).
		Count(&count).Error
	return count, err
}

func (r *workflowRepository) CreateSchema(ctx context.Context, s *domain.JSONSchema) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *workflowRepository) GetSchema(ctx context.Context, id uuid.UUID) (*domain.JSONSchema, error) {
	var s domain.JSONSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}
