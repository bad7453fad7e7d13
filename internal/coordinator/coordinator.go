package coordinator

import (
	"context"
	"time"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/logging/logkeys"

	"github.com/micromdm/nanolib/log"
)

// sweepBatch caps the jobs queued by a single sweep.
const sweepBatch = 100

// Coordinator turns finished-engagement events into queued jobs for the worker pool.
type Coordinator struct {
	queue    ports.JobQueue
	eventBus ports.EventBus
	logger   log.Logger

	assignments   ports.AssignmentRepository
	sweepInterval time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSweep re-queues, every interval, the assignments still open although
// their engagement finished more than one interval ago. Finish events are
// fire-and-forget, so this closes the ones whose event was lost.
func WithSweep(assignments ports.AssignmentRepository, interval time.Duration) Option {
	return func(c *Coordinator) {
		c.assignments = assignments
		c.sweepInterval = interval
	}
}

func NewCoordinator(queue ports.JobQueue, bus ports.EventBus, logger log.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = log.NopLogger
	}
	c := &Coordinator{
		queue:    queue,
		eventBus: bus,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start subscribes and then blocks in the listening loop. Call this in main.go as a goroutine.
func (c *Coordinator) Start(ctx context.Context) error {
	eventChannel, err := c.eventBus.SubscribeToEngagementFinished(ctx)
	if err != nil {
		return err
	}
	c.logger.Info(logkeys.Message, "coordinator started, listening for events")

	var sweep <-chan time.Time
	if c.assignments != nil && c.sweepInterval > 0 {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info(logkeys.Message, "coordinator shutting down")
			return nil

		case event, ok := <-eventChannel:
			if !ok {
				return nil
			}
			c.handleEngagementFinished(ctx, event)

		case <-sweep:
			if err := c.Sweep(ctx); err != nil && ctx.Err() == nil {
				c.logger.Info(logkeys.Message, "assignment sweep failed", logkeys.Error, err)
			}
		}
	}
}

// Sweep queues a reconcile job for each engagement that finished before the
// last sweep interval but still has an open assignment. It is a no-op
// unless WithSweep was given.
func (c *Coordinator) Sweep(ctx context.Context) error {
	if c.assignments == nil {
		return nil
	}
	ids, err := c.assignments.ListFinishedOpen(ctx, time.Now().Add(-c.sweepInterval), sweepBatch)
	if err != nil {
		return err
	}
	for _, id := range ids {
		job := domain.Job{Kind: domain.JobReconcileAssignment, EngagementID: id}
		if err := c.queue.Push(ctx, job); err != nil {
			return err
		}
	}
	if len(ids) > 0 {
		c.logger.Info(logkeys.Message, "queued stale assignment closes", logkeys.GenericCount, len(ids))
	}
	return nil
}

func (c *Coordinator) handleEngagementFinished(ctx context.Context, event domain.EngagementFinishedEvent) {
	c.logger.Debug(logkeys.Message, "engagement finished",
		logkeys.EngagementID, event.EngagementID,
		logkeys.UserID, event.UserID,
		logkeys.CollectionID, event.CollectionID)

	job := domain.Job{
		Kind:         domain.JobCloseAssignment,
		EngagementID: event.EngagementID,
		Complete:     event.Complete,
	}
	if err := c.queue.Push(ctx, job); err != nil {
		c.logger.Info(logkeys.Message, "failed to queue assignment close", logkeys.EngagementID, event.EngagementID, logkeys.Error, err)
	}
}
