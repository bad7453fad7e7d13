package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-engage/internal/api/dto"
	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/logging/logkeys"

	"github.com/google/uuid"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

type CollectionService interface {
	CreateCollection(ctx context.Context, createdBy uuid.UUID, req dto.CreateCollectionRequest) (*domain.WorkflowCollection, error)
	GetCollection(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollection, error)
	GetLatestByCode(ctx context.Context, code string) (*domain.WorkflowCollection, error)
	ListCollections(ctx context.Context, filter ports.CollectionFilter) ([]domain.WorkflowCollection, error)

	// ListForUser returns the collections a user is assigned, subscribed or recommended to.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollection, error)

	Recommend(ctx context.Context, collectionID uuid.UUID, req dto.CreateRecommendationRequest) (*domain.WorkflowCollectionRecommendation, error)
}

type collectionService struct {
	store  ports.Store
	logger log.Logger
	now    func() time.Time
}

func NewCollectionService(store ports.Store, logger log.Logger) CollectionService {
	if logger == nil {
		logger = log.NopLogger
	}
	return &collectionService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *collectionService) CreateCollection(ctx context.Context, createdBy uuid.UUID, req dto.CreateCollectionRequest) (*domain.WorkflowCollection, error) {
	category := domain.CollectionCategory(req.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, req.Category)
	}

	c := domain.NewCollection(req.Code, req.Name, category, createdBy)
	c.Description = req.Description
	c.AssignmentOnly = req.AssignmentOnly
	c.Recommendable = req.Recommendable
	if req.Ordered != nil {
		c.Ordered = *req.Ordered
	}

	orders := make(map[int]struct{}, len(req.Workflows))
	workflowIDs := make([]uuid.UUID, 0, len(req.Workflows))
	seen := make(map[uuid.UUID]struct{}, len(req.Workflows))
	for i, m := range req.Workflows {
		if _, dup := orders[m.Order]; dup {
			return nil, &domain.StructuralValidationError{
				Field:   fmt.Sprintf("workflows[%d].order", i),
				Message: fmt.Sprintf("order %d is used by another workflow", m.Order),
			}
		}
		orders[m.Order] = struct{}{}
		if _, dup := seen[m.WorkflowID]; dup {
			return nil, &domain.StructuralValidationError{
				Field:   fmt.Sprintf("workflows[%d].workflow_id", i),
				Message: "workflow is listed more than once",
			}
		}
		seen[m.WorkflowID] = struct{}{}
		workflowIDs = append(workflowIDs, m.WorkflowID)

		c.Members = append(c.Members, domain.WorkflowCollectionMember{
			ID:                   uuid.New(),
			WorkflowCollectionID: c.ID,
			WorkflowID:           m.WorkflowID,
			Order:                m.Order,
		})
	}

	found, err := s.store.Workflows().CountExisting(ctx, workflowIDs)
	if err != nil {
		return nil, err
	}
	if found != int64(len(workflowIDs)) {
		return nil, &domain.StructuralValidationError{Field: "workflows", Message: "unknown workflow"}
	}

	for _, t := range req.Tags {
		c.Tags = append(c.Tags, domain.WorkflowCollectionTag{Type: t.Type, Text: t.Text})
	}

	if err := s.store.Collections().Create(ctx, c); err != nil {
		return nil, err
	}

	ctxlog.Logger(ctx, s.logger).Info(logkeys.Message, "collection created",
		logkeys.CollectionID, c.ID, "code", c.Code, "version", c.Version, logkeys.GenericCount, len(c.Members))
	return c, nil
}

func (s *collectionService) GetCollection(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollection, error) {
	return s.store.Collections().GetByID(ctx, id)
}

func (s *collectionService) GetLatestByCode(ctx context.Context, code string) (*domain.WorkflowCollection, error) {
	return s.store.Collections().GetLatestByCode(ctx, code)
}

func (s *collectionService) ListCollections(ctx context.Context, filter ports.CollectionFilter) ([]domain.WorkflowCollection, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, filter.Category)
	}
	return s.store.Collections().List(ctx, filter)
}

func (s *collectionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollection, error) {
	return s.store.Collections().ListForUser(ctx, userID, s.now())
}

func (s *collectionService) Recommend(ctx context.Context, collectionID uuid.UUID, req dto.CreateRecommendationRequest) (*domain.WorkflowCollectionRecommendation, error) {
	c, err := s.store.Collections().GetByID(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !c.Recommendable {
		return nil, &domain.StructuralValidationError{Field: "workflow_collection_id", Message: "collection is not recommendable"}
	}

	rec := &domain.WorkflowCollectionRecommendation{
		ID:                   uuid.New(),
		UserID:               req.UserID,
		WorkflowCollectionID: c.ID,
		Start:                s.now(),
		End:                  req.End,
		CreatedAt:            s.now(),
	}
	if req.Start != nil {
		rec.Start = *req.Start
	}
	if rec.End != nil && !rec.End.After(rec.Start) {
		return nil, &domain.StructuralValidationError{Field: "end", Message: "end must be after start"}
	}

	if err := s.store.Collections().CreateRecommendation(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// requireCollection loads a collection, reporting a missing one as a
// structural error on field.
func requireCollection(ctx context.Context, store ports.Store, id uuid.UUID, field string) (*domain.WorkflowCollection, error) {
	c, err := store.Collections().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.StructuralValidationError{Field: field, Message: "unknown collection"}
	}
	return c, err
}
