package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WorkflowCollectionSubscription is a recurring opt-in to a collection.
type WorkflowCollectionSubscription struct {
	ID                   uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_user_collection" json:"user_id"`
	WorkflowCollectionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_user_collection" json:"workflow_collection_id"`
	Active               bool      `gorm:"not null" json:"active"`

	Schedules []WorkflowCollectionSubscriptionSchedule `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE" json:"schedules,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowCollectionSubscriptionSchedule is one notification slot.
// DayOfWeek follows ISO numbering, Monday=1 through Sunday=7.
type WorkflowCollectionSubscriptionSchedule struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id"`
	SubscriptionID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_schedule_slot" json:"subscription_id"`
	DayOfWeek      int            `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"day_of_week"`
	TimeOfDay      datatypes.Time `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"time_of_day"`
}

// --- FACTORY ---
func NewSubscription(userID, collectionID uuid.UUID) *WorkflowCollectionSubscription {
	return &WorkflowCollectionSubscription{
		ID:                   uuid.New(),
		UserID:               userID,
		WorkflowCollectionID: collectionID,
		Active:               true,
		CreatedAt:            time.Now(),
	}
}
