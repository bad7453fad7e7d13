package domain

import (
	"time"

	"github.com/google/uuid"
)

// EngagementFinishedEvent is published when a caller explicitly finishes an engagement.
// The coordinator consumes it to close the linked assignment.
type EngagementFinishedEvent struct {
	EngagementID uuid.UUID `json:"engagement_id"`
	CollectionID uuid.UUID `json:"collection_id"`
	UserID       uuid.UUID `json:"user_id"`
	Finished     time.Time `json:"finished"`
	Complete     bool      `json:"complete"` // every step was completed
}

type JobKind string

const (
	// JobCloseAssignment closes the open assignment linked to an engagement.
	JobCloseAssignment JobKind = "close_assignment"

	// JobReconcileAssignment closes the assignment of a finished engagement,
	// working out completeness from the stored details.
	JobReconcileAssignment JobKind = "reconcile_assignment"
)

// Job is a unit of background work carried on the redis queue.
type Job struct {
	Kind         JobKind   `json:"kind"`
	EngagementID uuid.UUID `json:"engagement_id"`
	Complete     bool      `json:"complete,omitempty"`
	Attempt      int       `json:"attempt"`
}
