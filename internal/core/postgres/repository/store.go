package repository

import (
	"context"
	"errors"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"

	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

// NewStore creates a ports.Store backed by db. db should be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func NewStore(db *gorm.DB) ports.Store {
	return &store{db: db}
}

func (s *store) Collections() ports.CollectionRepository     { return NewCollectionRepository(s.db) }
func (s *store) Workflows() ports.WorkflowRepository         { return NewWorkflowRepository(s.db) }
func (s *store) Engagements() ports.EngagementRepository     { return NewEngagementRepository(s.db) }
func (s *store) Assignments() ports.AssignmentRepository     { return NewAssignmentRepository(s.db) }
func (s *store) Subscriptions() ports.SubscriptionRepository { return NewSubscriptionRepository(s.db) }

func (s *store) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&domain.JSONSchema{},
		&domain.WorkflowStepDataGroup{},
		&domain.Workflow{},
		&domain.WorkflowStep{},
		&domain.WorkflowStepInput{},
		&domain.WorkflowStepText{},
		&domain.WorkflowStepImage{},
		&domain.WorkflowStepAudio{},
		&domain.WorkflowStepVideo{},
		&domain.WorkflowCollectionTag{},
		&domain.WorkflowCollection{},
		&domain.WorkflowCollectionMember{},
		&domain.WorkflowCollectionRecommendation{},
		&domain.WorkflowCollectionEngagement{},
		&domain.WorkflowCollectionEngagementDetail{},
		&domain.WorkflowCollectionAssignment{},
		&domain.WorkflowCollectionSubscription{},
		&domain.WorkflowCollectionSubscriptionSchedule{},
	}
}

// Migrate creates or updates the schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(Models()...)
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrConflict
	}
	return err
}

func stringsOf[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
