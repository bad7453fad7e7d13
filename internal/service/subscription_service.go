package service

import (
	"context"
	"fmt"
	"time"

	"go-engage/internal/api/dto"
	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/logging/logkeys"

	"github.com/google/uuid"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
	"gorm.io/datatypes"
)

type SubscriptionService interface {
	// Subscribe creates or replaces the user's subscription to a collection.
	Subscribe(ctx context.Context, userID uuid.UUID, req dto.UpsertSubscriptionRequest) (*domain.WorkflowCollectionSubscription, error)
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionSubscription, error)
	Unsubscribe(ctx context.Context, userID, id uuid.UUID) error
}

type subscriptionService struct {
	store  ports.Store
	logger log.Logger
}

func NewSubscriptionService(store ports.Store, logger log.Logger) SubscriptionService {
	if logger == nil {
		logger = log.NopLogger
	}
	return &subscriptionService{
		store:  store,
		logger: logger,
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, userID uuid.UUID, req dto.UpsertSubscriptionRequest) (*domain.WorkflowCollectionSubscription, error) {
	if _, err := requireCollection(ctx, s.store, req.WorkflowCollectionID, "workflow_collection_id"); err != nil {
		return nil, err
	}

	sub := domain.NewSubscription(userID, req.WorkflowCollectionID)
	if req.Active != nil {
		sub.Active = *req.Active
	}

	slots := make(map[string]struct{}, len(req.Schedules))
	for i, sch := range req.Schedules {
		field := fmt.Sprintf("schedules[%d]", i)
		if sch.DayOfWeek < 1 || sch.DayOfWeek > 7 {
			return nil, &domain.StructuralValidationError{Field: field + ".day_of_week", Message: "must be between 1 (Monday) and 7 (Sunday)"}
		}
		tod, err := parseTimeOfDay(sch.TimeOfDay)
		if err != nil {
			return nil, &domain.StructuralValidationError{Field: field + ".time_of_day", Message: err.Error()}
		}
		key := fmt.Sprintf("%d@%s", sch.DayOfWeek, tod.String())
		if _, dup := slots[key]; dup {
			return nil, &domain.StructuralValidationError{Field: field, Message: "duplicate schedule"}
		}
		slots[key] = struct{}{}

		sub.Schedules = append(sub.Schedules, domain.WorkflowCollectionSubscriptionSchedule{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			DayOfWeek:      sch.DayOfWeek,
			TimeOfDay:      tod,
		})
	}

	if err := s.store.Subscriptions().Upsert(ctx, sub); err != nil {
		return nil, err
	}

	ctxlog.Logger(ctx, s.logger).Info(logkeys.Message, "subscription saved",
		logkeys.UserID, userID, logkeys.CollectionID, sub.WorkflowCollectionID, logkeys.GenericCount, len(sub.Schedules))
	return sub, nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionSubscription, error) {
	return s.store.Subscriptions().ListByUser(ctx, userID)
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, userID, id uuid.UUID) error {
	sub, err := s.store.Subscriptions().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return domain.ErrForbidden
	}
	return s.store.Subscriptions().Deactivate(ctx, id)
}

// parseTimeOfDay accepts HH:MM or HH:MM:SS.
func parseTimeOfDay(v string) (datatypes.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q, want HH:MM or HH:MM:SS", v)
}
