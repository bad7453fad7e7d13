package domain

import (
	"time"

	"github.com/google/uuid"
)

type CollectionCategory string

const (
	CategorySurvey   CollectionCategory = "SURVEY"
	CategoryActivity CollectionCategory = "ACTIVITY"
)

// Valid reports whether c is one of the fixed categories. Matching is exact.
func (c CollectionCategory) Valid() bool {
	return c == CategorySurvey || c == CategoryActivity
}

// WorkflowCollection groups workflows into a survey or an activity.
// Rows are immutable once versioned; a new version is a new row sharing Code.
type WorkflowCollection struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key;" json:"id"`
	Code           string             `gorm:"type:varchar(200);not null;uniqueIndex:idx_collection_code_version" json:"code"`
	Version        int                `gorm:"not null;default:1;uniqueIndex:idx_collection_code_version" json:"version"`
	Name           string             `gorm:"type:varchar(200);not null" json:"name"`
	Description    string             `gorm:"type:text" json:"description"`
	Category       CollectionCategory `gorm:"type:varchar(20);not null" json:"category"`
	Ordered        bool               `gorm:"not null" json:"ordered"`
	Active         bool               `gorm:"not null;index" json:"active"`
	AssignmentOnly bool               `gorm:"default:false" json:"assignment_only"`
	Recommendable  bool               `gorm:"default:false" json:"recommendable"`
	CreatedBy      uuid.UUID          `gorm:"type:uuid;index" json:"created_by"`

	Members []WorkflowCollectionMember `gorm:"foreignKey:WorkflowCollectionID" json:"members,omitempty"`
	Tags    []WorkflowCollectionTag    `gorm:"many2many:workflow_collection_tag_assignments;" json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowCollectionMember places a workflow into a collection at a given order.
type WorkflowCollectionMember struct {
	ID                   uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowCollectionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_order;uniqueIndex:idx_member_workflow" json:"workflow_collection_id"`
	WorkflowID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_workflow" json:"workflow_id"`
	Order                int       `gorm:"column:sort_order;not null;uniqueIndex:idx_member_order" json:"order"`

	Workflow *Workflow `gorm:"foreignKey:WorkflowID" json:"workflow,omitempty"`
}

type WorkflowCollectionTag struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Type string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_tag_type_text" json:"type"`
	Text string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_tag_type_text" json:"text"`
}

// WorkflowCollectionRecommendation surfaces a collection to a user for a window of time.
type WorkflowCollectionRecommendation struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	UserID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	WorkflowCollectionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"workflow_collection_id"`
	Start                time.Time  `gorm:"column:starts_at;not null" json:"start"`
	End                  *time.Time `gorm:"column:ends_at" json:"end,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// --- FACTORY ---
func NewCollection(code, name string, category CollectionCategory, createdBy uuid.UUID) *WorkflowCollection {
	return &WorkflowCollection{
		ID:        uuid.New(),
		Code:      code,
		Version:   1,
		Name:      name,
		Category:  category,
		Ordered:   true,
		Active:    true,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
}

// --- METHODS ---
func (r *WorkflowCollectionRecommendation) IsActive(now time.Time) bool {
	if now.Before(r.Start) {
		return false
	}
	return r.End == nil || now.Before(*r.End)
}
