package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WorkflowCollectionEngagement is a user's attempt at a collection.
// A user has at most one unfinished engagement per collection.
type WorkflowCollectionEngagement struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	UserID               uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_open_engagement,where:finished IS NULL" json:"user_id"`
	WorkflowCollectionID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_open_engagement,where:finished IS NULL" json:"workflow_collection_id"`
	Started              time.Time  `gorm:"not null" json:"started"`
	Finished             *time.Time `json:"finished,omitempty"`

	Details []WorkflowCollectionEngagementDetail `gorm:"foreignKey:EngagementID" json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowCollectionEngagementDetail is a user's response to one step.
// A nil Finished marks scratch state that does not count as progress.
type WorkflowCollectionEngagementDetail struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id"`
	EngagementID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_detail_engagement_step" json:"engagement_id"`
	WorkflowStepID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_detail_engagement_step" json:"workflow_step_id"`
	UserResponse   datatypes.JSON `gorm:"type:jsonb" json:"user_response,omitempty"`
	Started        time.Time      `gorm:"not null" json:"started"`
	Finished       *time.Time     `json:"finished,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DetailStatus string

const (
	DetailUnstarted  DetailStatus = "UNSTARTED"
	DetailInProgress DetailStatus = "IN_PROGRESS"
	DetailComplete   DetailStatus = "COMPLETE"
)

// --- FACTORY ---
func NewEngagement(userID, collectionID uuid.UUID) *WorkflowCollectionEngagement {
	now := time.Now()
	return &WorkflowCollectionEngagement{
		ID:                   uuid.New(),
		UserID:               userID,
		WorkflowCollectionID: collectionID,
		Started:              now,
		CreatedAt:            now,
	}
}

// --- METHODS ---
func (e *WorkflowCollectionEngagement) IsFinished() bool {
	return e.Finished != nil
}

func (d *WorkflowCollectionEngagementDetail) Status() DetailStatus {
	if d == nil {
		return DetailUnstarted
	}
	if d.Finished != nil {
		return DetailComplete
	}
	return DetailInProgress
}
