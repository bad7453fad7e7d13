package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-engage/internal/core/ports"
	"go-engage/internal/logging/logkeys"

	"github.com/google/uuid"
	"github.com/micromdm/nanolib/log"
)

// ErrUnknownJob is returned for a job kind with no registered handler.
var ErrUnknownJob = errors.New("unknown job kind")

const popErrorBackoff = time.Second

type Worker struct {
	workerID    string
	queue       ports.JobQueue
	registry    Registry
	maxAttempts int
	logger      log.Logger
	wg          sync.WaitGroup
}

func NewWorker(q ports.JobQueue, reg Registry, maxAttempts int, logger log.Logger) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = log.NopLogger
	}
	id := uuid.New().String()
	return &Worker{
		workerID:    id,
		queue:       q,
		registry:    reg,
		maxAttempts: maxAttempts,
		logger:      logger.With("worker_id", id),
	}
}

// ProcessNextJob handles exactly ONE job. A failed job is pushed back until
// it has been attempted maxAttempts times.
func (w *Worker) ProcessNextJob(ctx context.Context) error {
	job, err := w.queue.Pop(ctx)
	if err != nil {
		return err
	}

	handler, exists := w.registry[job.Kind]
	if !exists {
		w.logger.Info(logkeys.Message, "dropping job", "kind", job.Kind, logkeys.Error, ErrUnknownJob)
		return ErrUnknownJob
	}

	err = handler(ctx, job)
	if err == nil {
		return nil
	}

	job.Attempt++
	if job.Attempt >= w.maxAttempts {
		w.logger.Info(logkeys.Message, "job exhausted all attempts",
			"kind", job.Kind, logkeys.EngagementID, job.EngagementID,
			logkeys.GenericCount, job.Attempt, logkeys.Error, err)
		return err
	}

	w.logger.Info(logkeys.Message, "retrying job",
		"kind", job.Kind, logkeys.EngagementID, job.EngagementID,
		logkeys.GenericCount, job.Attempt, logkeys.Error, err)
	if pushErr := w.queue.Push(ctx, job); pushErr != nil {
		w.logger.Info(logkeys.Message, "failed to requeue job", logkeys.EngagementID, job.EngagementID, logkeys.Error, pushErr)
	}
	return err
}

// StartPool launches concurrent worker loops that run until ctx is done.
func (w *Worker) StartPool(ctx context.Context, concurrency int) {
	w.logger.Info(logkeys.Message, "starting worker pool", logkeys.GenericCount, concurrency)

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go func(threadID int) {
			defer w.wg.Done()
			for {
				if ctx.Err() != nil {
					w.logger.Debug(logkeys.Message, "worker thread shutting down", "thread", threadID)
					return
				}
				err := w.ProcessNextJob(ctx)
				if err == nil || errors.Is(err, ports.ErrQueueEmpty) || errors.Is(err, ErrUnknownJob) {
					continue
				}
				if ctx.Err() != nil {
					continue
				}
				// Back off on queue errors
				select {
				case <-ctx.Done():
				case <-time.After(popErrorBackoff):
				}
			}
		}(i)
	}
}

// Wait blocks until every loop started by StartPool has returned.
func (w *Worker) Wait() {
	w.wg.Wait()
}
