package ports

import (
	"context"
	"errors"
	"time"

	"go-engage/internal/domain"
	"go-engage/internal/engagement"

	"github.com/google/uuid"
)

// EventBus represents the event bus operations
type EventBus interface {
	// Publish "engagement X was finished" to Redis Pub/Sub
	PublishEngagementFinished(ctx context.Context, event domain.EngagementFinishedEvent) error

	// Subscribe to finished engagements (Used by Coordinator)
	SubscribeToEngagementFinished(ctx context.Context) (<-chan domain.EngagementFinishedEvent, error)
}

// JobQueue represents the background job queue
type JobQueue interface {
	Push(ctx context.Context, job domain.Job) error

	// Pop blocks until a job is available or the queue's poll timeout passes,
	// in which case it returns ErrQueueEmpty.
	Pop(ctx context.Context) (domain.Job, error)
}

// ErrQueueEmpty is returned by JobQueue.Pop when no job arrived in time.
var ErrQueueEmpty = errors.New("queue empty")

// StateCache holds computed engagement states tagged with the
// engagement.StateVersion they were computed from. Get reports a miss when
// the stored version differs from the caller's. The write path always
// recomputes from the detail rows.
type StateCache interface {
	Get(ctx context.Context, engagementID uuid.UUID, version int) (*engagement.State, error)
	Set(ctx context.Context, engagementID uuid.UUID, version int, state engagement.State) error
	Invalidate(ctx context.Context, engagementID uuid.UUID) error
}

type CollectionFilter struct {
	Category   domain.CollectionCategory
	ActiveOnly bool
	Tag        string
}

// CollectionRepository represents the workflow collection operations
type CollectionRepository interface {
	// Create stores a new collection version. The version is max(version)+1 for its code.
	Create(ctx context.Context, collection *domain.WorkflowCollection) error

	// GetByID loads the collection with members and tags, but no step content.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollection, error)

	// GetStructure loads members → workflows → steps → inputs → schemas.
	GetStructure(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollection, error)

	GetLatestByCode(ctx context.Context, code string) (*domain.WorkflowCollection, error)
	List(ctx context.Context, filter CollectionFilter) ([]domain.WorkflowCollection, error)

	// ListForUser returns active collections the user is assigned (open),
	// subscribed (active) or recommended (in window) to.
	ListForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.WorkflowCollection, error)

	CreateRecommendation(ctx context.Context, rec *domain.WorkflowCollectionRecommendation) error
}

// WorkflowRepository represents the workflow authoring operations
type WorkflowRepository interface {
	// Create stores the workflow and its steps with all step content.
	// The version is max(version)+1 for its code.
	Create(ctx context.Context, workflow *domain.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	List(ctx context.Context) ([]domain.Workflow, error)
	CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error)

	CreateSchema(ctx context.Context, schema *domain.JSONSchema) error
	GetSchema(ctx context.Context, id uuid.UUID) (*domain.JSONSchema, error)
}

// EngagementRepository represents the engagement operations
type EngagementRepository interface {
	Create(ctx context.Context, e *domain.WorkflowCollectionEngagement) error

	// GetByID loads the engagement with all its details.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionEngagement, error)

	// Lock loads the engagement row FOR UPDATE. Only meaningful inside WithinTx.
	Lock(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionEngagement, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionEngagement, error)

	// FindOpen returns the unfinished engagement for (user, collection), or ErrNotFound.
	FindOpen(ctx context.Context, userID, collectionID uuid.UUID) (*domain.WorkflowCollectionEngagement, error)

	ListDetails(ctx context.Context, engagementID uuid.UUID) ([]domain.WorkflowCollectionEngagementDetail, error)

	// UpsertDetail inserts or updates the one detail row for (engagement, step).
	// A stored Finished timestamp is never cleared.
	UpsertDetail(ctx context.Context, d *domain.WorkflowCollectionEngagementDetail) error

	MarkFinished(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AssignmentRepository represents the assignment operations
type AssignmentRepository interface {
	// Create fails with *domain.DuplicateEngagementError if an open assignment exists.
	Create(ctx context.Context, a *domain.WorkflowCollectionAssignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionAssignment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, statuses ...domain.AssignmentStatus) ([]domain.WorkflowCollectionAssignment, error)
	FindOpen(ctx context.Context, userID, collectionID uuid.UUID) (*domain.WorkflowCollectionAssignment, error)

	// LinkEngagement attaches an engagement and moves the assignment to IN_PROGRESS.
	LinkEngagement(ctx context.Context, id, engagementID uuid.UUID) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AssignmentStatus) error

	// CloseForEngagement moves the open assignment linked to engagementID to status.
	// It reports whether a row changed.
	CloseForEngagement(ctx context.Context, engagementID uuid.UUID, status domain.AssignmentStatus) (bool, error)

	// ListFinishedOpen returns up to limit engagements finished before the
	// cutoff whose linked assignment is still open, oldest first.
	ListFinishedOpen(ctx context.Context, finishedBefore time.Time, limit int) ([]uuid.UUID, error)
}

// SubscriptionRepository represents the subscription operations
type SubscriptionRepository interface {
	// Upsert creates or reactivates the (user, collection) subscription and
	// replaces its schedules.
	Upsert(ctx context.Context, s *domain.WorkflowCollectionSubscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionSubscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WorkflowCollectionSubscription, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// Store groups the repositories sharing one connection or transaction.
type Store interface {
	Collections() CollectionRepository
	Workflows() WorkflowRepository
	Engagements() EngagementRepository
	Assignments() AssignmentRepository
	Subscriptions() SubscriptionRepository

	// WithinTx runs fn against a Store bound to a single transaction.
	// The transaction commits when fn returns nil.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
