package worker

import (
	"context"
	"errors"
	"fmt"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/engagement"
	"go-engage/internal/logging/logkeys"

	"github.com/google/uuid"
	"github.com/micromdm/nanolib/log"
)

// JobHandler is the blueprint for any function that processes a job
type JobHandler func(ctx context.Context, job domain.Job) error

// Registry holds the handler for each job kind
type Registry map[domain.JobKind]JobHandler

// InitRegistry wires up the job handlers
func InitRegistry(store ports.Store, logger log.Logger) Registry {
	if logger == nil {
		logger = log.NopLogger
	}
	registry := make(Registry)

	closeAssignment := func(ctx context.Context, engagementID uuid.UUID, complete bool) error {
		status := domain.AssignmentClosedIncomplete
		if complete {
			status = domain.AssignmentClosedComplete
		}
		closed, err := store.Assignments().CloseForEngagement(ctx, engagementID, status)
		if err != nil {
			return err
		}
		if closed {
			logger.Info(logkeys.Message, "assignment closed", logkeys.EngagementID, engagementID, "status", status)
		} else {
			logger.Debug(logkeys.Message, "no open assignment for engagement", logkeys.EngagementID, engagementID)
		}
		return nil
	}

	registry[domain.JobCloseAssignment] = func(ctx context.Context, job domain.Job) error {
		return closeAssignment(ctx, job.EngagementID, job.Complete)
	}

	registry[domain.JobReconcileAssignment] = func(ctx context.Context, job domain.Job) error {
		e, err := store.Engagements().GetByID(ctx, job.EngagementID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug(logkeys.Message, "engagement gone", logkeys.EngagementID, job.EngagementID)
			return nil
		} else if err != nil {
			return err
		}
		if !e.IsFinished() {
			return nil
		}

		c, err := store.Collections().GetStructure(ctx, e.WorkflowCollectionID)
		if err != nil {
			return err
		}
		idx, err := engagement.NewIndex(c)
		if err != nil {
			return fmt.Errorf("collection %s: %w", c.ID, err)
		}
		return closeAssignment(ctx, e.ID, engagement.Compute(idx, e.Details).IsComplete())
	}

	return registry
}
