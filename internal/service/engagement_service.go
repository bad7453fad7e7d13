package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-engage/internal/api/dto"
	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/engagement"
	"go-engage/internal/logging/logkeys"
	"go-engage/internal/metrics"

	"github.com/google/uuid"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/datatypes"
)

type EngagementService interface {
	// StartEngagement opens an engagement for (user, collection) and links
	// the user's open assignment, if any.
	StartEngagement(ctx context.Context, userID, collectionID uuid.UUID) (*dto.EngagementResponse, error)

	GetEngagement(ctx context.Context, userID, engagementID uuid.UUID) (*dto.EngagementResponse, error)
	ListEngagements(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionEngagement, error)

	// SubmitDetail records the user's response for one step. It is the only
	// way an engagement advances.
	SubmitDetail(ctx context.Context, userID, engagementID, stepID uuid.UUID, response []byte, finished bool) (*dto.DetailResponse, error)

	FinishEngagement(ctx context.Context, userID, engagementID uuid.UUID) (*dto.EngagementResponse, error)
}

type engagementService struct {
	store     ports.Store
	eventBus  ports.EventBus
	cache     ports.StateCache
	validator *engagement.Validator
	metrics   *metrics.Metrics
	logger    log.Logger
	now       func() time.Time
}

// NewEngagementService wires the engagement engine. cache may be nil to
// disable state caching.
func NewEngagementService(
	store ports.Store,
	bus ports.EventBus,
	cache ports.StateCache,
	validator *engagement.Validator,
	m *metrics.Metrics,
	logger log.Logger,
) EngagementService {
	if cache == nil {
		cache = noopStateCache{}
	}
	if validator == nil {
		validator = engagement.NewValidator(nil)
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if logger == nil {
		logger = log.NopLogger
	}
	return &engagementService{
		store:     store,
		eventBus:  bus,
		cache:     cache,
		validator: validator,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *engagementService) StartEngagement(ctx context.Context, userID, collectionID uuid.UUID) (*dto.EngagementResponse, error) {
	c, err := requireCollection(ctx, s.store, collectionID, "workflow_collection_id")
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, &domain.StructuralValidationError{Field: "workflow_collection_id", Message: "collection is not active"}
	}

	idx, err := s.loadIndex(ctx, s.store, collectionID)
	if err != nil {
		return nil, err
	}

	var e *domain.WorkflowCollectionEngagement
	var linked *domain.WorkflowCollectionAssignment
	err = s.store.WithinTx(ctx, func(tx ports.Store) error {
		_, err := tx.Engagements().FindOpen(ctx, userID, collectionID)
		switch {
		case err == nil:
			return &domain.DuplicateEngagementError{UserID: userID, CollectionID: collectionID, Kind: "engagement"}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		assignment, err := tx.Assignments().FindOpen(ctx, userID, collectionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if assignment == nil && c.AssignmentOnly {
			return domain.ErrForbidden
		}

		e = domain.NewEngagement(userID, collectionID)
		e.Started = s.now()
		if err := tx.Engagements().Create(ctx, e); err != nil {
			return err
		}

		if assignment != nil {
			if err := tx.Assignments().LinkEngagement(ctx, assignment.ID, e.ID); err != nil {
				return err
			}
			linked = assignment
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EngagementsStarted.Inc()
	logger := ctxlog.Logger(ctx, s.logger).With(logkeys.CollectionID, collectionID, logkeys.EngagementID, e.ID)
	if linked != nil {
		logger.Info(logkeys.Message, "engagement started", logkeys.AssignmentID, linked.ID)
	} else {
		logger.Info(logkeys.Message, "engagement started")
	}

	return &dto.EngagementResponse{Engagement: e, State: engagement.Compute(idx, nil)}, nil
}

func (s *engagementService) GetEngagement(ctx context.Context, userID, engagementID uuid.UUID) (*dto.EngagementResponse, error) {
	e, err := s.store.Engagements().GetByID(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, domain.ErrForbidden
	}

	// The version ties the cached state to the detail rows just read, so an
	// entry written by a slower reader is never served for newer rows.
	version := engagement.StateVersion(e.Details)
	st, err := s.cache.Get(ctx, e.ID, version)
	if err != nil {
		ctxlog.Logger(ctx, s.logger).Info(logkeys.Message, "state cache read failed", logkeys.EngagementID, e.ID, logkeys.Error, err)
	}
	if st != nil {
		s.metrics.StateCacheLookups.WithLabelValues("hit").Inc()
		return &dto.EngagementResponse{Engagement: e, State: *st}, nil
	}
	s.metrics.StateCacheLookups.WithLabelValues("miss").Inc()

	computed, err := s.computeState(ctx, s.store, e.WorkflowCollectionID, e.Details)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, e.ID, version, computed); err != nil {
		ctxlog.Logger(ctx, s.logger).Info(logkeys.Message, "state cache write failed", logkeys.EngagementID, e.ID, logkeys.Error, err)
	}

	return &dto.EngagementResponse{Engagement: e, State: computed}, nil
}

func (s *engagementService) ListEngagements(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionEngagement, error) {
	return s.store.Engagements().ListByUser(ctx, userID)
}

func (s *engagementService) SubmitDetail(ctx context.Context, userID, engagementID, stepID uuid.UUID, response []byte, finished bool) (*dto.DetailResponse, error) {
	logger := ctxlog.Logger(ctx, s.logger).With(logkeys.EngagementID, engagementID, logkeys.StepID, stepID)

	res, err := s.submitDetail(ctx, userID, engagementID, stepID, response, finished)
	s.metrics.ObserveSubmission(finished, err)
	if err != nil {
		if domain.IsValidationError(err) {
			logger.Debug(logkeys.Message, "detail rejected", logkeys.Error, err)
		} else if !isClientError(err) {
			logger.Info(logkeys.Message, "detail submission failed", logkeys.Error, err)
		}
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, engagementID); err != nil {
		logger.Info(logkeys.Message, "state cache invalidation failed", logkeys.Error, err)
	}

	logger.Debug(logkeys.Message, "detail saved", "status", res.Detail.Status(), logkeys.GenericCount, res.State.StepsCompletedInCollection)
	return res, nil
}

// submitDetail runs the locked read-validate-write cycle. The engagement row
// lock serializes concurrent submissions, so the state validated against is
// the state the write applies to.
func (s *engagementService) submitDetail(ctx context.Context, userID, engagementID, stepID uuid.UUID, response []byte, finished bool) (*dto.DetailResponse, error) {
	if len(response) > 0 && !json.Valid(response) {
		return nil, &domain.StructuralValidationError{Field: "user_response", Message: "response is not valid JSON"}
	}

	var res *dto.DetailResponse
	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		e, err := tx.Engagements().Lock(ctx, engagementID)
		if err != nil {
			return err
		}
		if e.UserID != userID {
			return domain.ErrForbidden
		}
		if e.IsFinished() {
			return domain.ErrEngagementFinished
		}

		c, err := tx.Collections().GetStructure(ctx, e.WorkflowCollectionID)
		if err != nil {
			return err
		}
		idx, err := engagement.NewIndex(c)
		if err != nil {
			return fmt.Errorf("collection %s: %w", c.ID, err)
		}

		details, err := tx.Engagements().ListDetails(ctx, e.ID)
		if err != nil {
			return err
		}
		current := engagement.Compute(idx, details)
		hasHistory := len(engagement.CompletedSteps(details)) > 0

		if err := s.validator.ValidateNavigation(c.Category, idx, current, hasHistory, stepID); err != nil {
			return err
		}

		pos, _ := idx.Lookup(stepID)
		existing := findDetail(details, stepID)
		// A completed step stays completed, so a later draft is held to the
		// same rules as a final answer.
		effectiveFinished := finished || (existing != nil && existing.Finished != nil)
		if err := s.validator.ValidateResponse(pos.Step, response, effectiveFinished); err != nil {
			return err
		}

		now := s.now()
		d := &domain.WorkflowCollectionEngagementDetail{
			EngagementID:   e.ID,
			WorkflowStepID: stepID,
			UserResponse:   datatypes.JSON(response),
			Started:        now,
		}
		if effectiveFinished {
			d.Finished = &now
		}
		if err := tx.Engagements().UpsertDetail(ctx, d); err != nil {
			return err
		}

		res = &dto.DetailResponse{
			Detail: d,
			State:  engagement.Compute(idx, replaceDetail(details, *d)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *engagementService) FinishEngagement(ctx context.Context, userID, engagementID uuid.UUID) (*dto.EngagementResponse, error) {
	var e *domain.WorkflowCollectionEngagement
	var st engagement.State
	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		var err error
		e, err = tx.Engagements().Lock(ctx, engagementID)
		if err != nil {
			return err
		}
		if e.UserID != userID {
			return domain.ErrForbidden
		}
		if e.IsFinished() {
			return domain.ErrEngagementFinished
		}

		now := s.now()
		if err := tx.Engagements().MarkFinished(ctx, e.ID, now); err != nil {
			return err
		}
		e.Finished = &now

		details, err := tx.Engagements().ListDetails(ctx, e.ID)
		if err != nil {
			return err
		}
		e.Details = details
		st, err = s.computeState(ctx, tx, e.WorkflowCollectionID, details)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EngagementsClosed.Inc()
	logger := ctxlog.Logger(ctx, s.logger).With(logkeys.EngagementID, e.ID)

	if err := s.cache.Invalidate(ctx, e.ID); err != nil {
		logger.Info(logkeys.Message, "state cache invalidation failed", logkeys.Error, err)
	}

	event := domain.EngagementFinishedEvent{
		EngagementID: e.ID,
		CollectionID: e.WorkflowCollectionID,
		UserID:       userID,
		Finished:     *e.Finished,
		Complete:     st.IsComplete(),
	}
	if err := s.eventBus.PublishEngagementFinished(ctx, event); err != nil {
		logger.Info(logkeys.Message, "failed to publish finish event", logkeys.Error, err)
	}

	logger.Info(logkeys.Message, "engagement finished", "complete", event.Complete)
	return &dto.EngagementResponse{Engagement: e, State: st}, nil
}

func (s *engagementService) loadIndex(ctx context.Context, store ports.Store, collectionID uuid.UUID) (*engagement.Index, error) {
	c, err := store.Collections().GetStructure(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	idx, err := engagement.NewIndex(c)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", c.ID, err)
	}
	return idx, nil
}

func (s *engagementService) computeState(ctx context.Context, store ports.Store, collectionID uuid.UUID, details []domain.WorkflowCollectionEngagementDetail) (engagement.State, error) {
	timer := prometheus.NewTimer(s.metrics.StateComputation)
	defer timer.ObserveDuration()

	idx, err := s.loadIndex(ctx, store, collectionID)
	if err != nil {
		return engagement.State{}, err
	}
	return engagement.Compute(idx, details), nil
}

func findDetail(details []domain.WorkflowCollectionEngagementDetail, stepID uuid.UUID) *domain.WorkflowCollectionEngagementDetail {
	for i := range details {
		if details[i].WorkflowStepID == stepID {
			return &details[i]
		}
	}
	return nil
}

func replaceDetail(details []domain.WorkflowCollectionEngagementDetail, d domain.WorkflowCollectionEngagementDetail) []domain.WorkflowCollectionEngagementDetail {
	out := make([]domain.WorkflowCollectionEngagementDetail, 0, len(details)+1)
	for _, existing := range details {
		if existing.WorkflowStepID != d.WorkflowStepID {
			out = append(out, existing)
		}
	}
	return append(out, d)
}

func isClientError(err error) bool {
	var dup *domain.DuplicateEngagementError
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrEngagementFinished) ||
		errors.As(err, &dup)
}

type noopStateCache struct{}

func (noopStateCache) Get(context.Context, uuid.UUID, int) (*engagement.State, error) {
	return nil, nil
}

func (noopStateCache) Set(context.Context, uuid.UUID, int, engagement.State) error { return nil }

func (noopStateCache) Invalidate(context.Context, uuid.UUID) error { return nil }
