package domain

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	AssignmentAssigned         AssignmentStatus = "ASSIGNED"
	AssignmentInProgress       AssignmentStatus = "IN_PROGRESS"
	AssignmentClosedIncomplete AssignmentStatus = "CLOSED_INCOMPLETE"
	AssignmentClosedComplete   AssignmentStatus = "CLOSED_COMPLETE"
)

// OpenAssignmentStatuses are the states counted by the one-open-assignment rule.
var OpenAssignmentStatuses = []AssignmentStatus{AssignmentAssigned, AssignmentInProgress}

// WorkflowCollectionAssignment grants a collection to a user.
// The partial unique index allows one open assignment per (user, collection).
type WorkflowCollectionAssignment struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primary_key;" json:"id"`
	UserID               uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_open_assignment,where:status IN ('ASSIGNED','IN_PROGRESS')" json:"user_id"`
	WorkflowCollectionID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_open_assignment,where:status IN ('ASSIGNED','IN_PROGRESS')" json:"workflow_collection_id"`
	EngagementID         *uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"engagement_id,omitempty"`
	AssignedOn           time.Time        `gorm:"not null" json:"assigned_on"`
	Status               AssignmentStatus `gorm:"type:varchar(20);not null;default:'ASSIGNED';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- FACTORY ---
func NewAssignment(userID, collectionID uuid.UUID) *WorkflowCollectionAssignment {
	now := time.Now()
	return &WorkflowCollectionAssignment{
		ID:                   uuid.New(),
		UserID:               userID,
		WorkflowCollectionID: collectionID,
		AssignedOn:           now,
		Status:               AssignmentAssigned,
		CreatedAt:            now,
	}
}

// --- METHODS ---
func (a *WorkflowCollectionAssignment) IsOpen() bool {
	return a.Status == AssignmentAssigned || a.Status == AssignmentInProgress
}

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentInProgress, AssignmentClosedIncomplete, AssignmentClosedComplete:
		return true
	}
	return false
}
