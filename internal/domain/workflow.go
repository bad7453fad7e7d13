package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Workflow is a named, versioned, ordered sequence of steps.
type Workflow struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Code     string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_workflow_code_version" json:"code"`
	Version  int       `gorm:"not null;default:1;uniqueIndex:idx_workflow_code_version" json:"version"`
	Name     string    `gorm:"type:varchar(200);not null" json:"name"`
	AuthorID uuid.UUID `gorm:"type:uuid;index" json:"author_id"`

	// Relationships
	Steps []WorkflowStep `gorm:"foreignKey:WorkflowID" json:"steps,omitempty"`

	// Audit
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowStep is the atomic unit of engagement.
type WorkflowStep struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_step_order;uniqueIndex:idx_step_code" json:"workflow_id"`
	Code       string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_step_code" json:"code"`
	Order      int       `gorm:"column:sort_order;not null;uniqueIndex:idx_step_order" json:"order"`

	Inputs     []WorkflowStepInput     `gorm:"foreignKey:WorkflowStepID" json:"inputs,omitempty"`
	Texts      []WorkflowStepText      `gorm:"foreignKey:WorkflowStepID" json:"texts,omitempty"`
	Images     []WorkflowStepImage     `gorm:"foreignKey:WorkflowStepID" json:"images,omitempty"`
	Audios     []WorkflowStepAudio     `gorm:"foreignKey:WorkflowStepID" json:"audios,omitempty"`
	Videos     []WorkflowStepVideo     `gorm:"foreignKey:WorkflowStepID" json:"videos,omitempty"`
	DataGroups []WorkflowStepDataGroup `gorm:"many2many:workflow_step_data_group_assignments;" json:"data_groups,omitempty"`
}

// WorkflowStepInput is a question. Answers are validated against ResponseSchema.
type WorkflowStepInput struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowStepID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_input_ui" json:"workflow_step_id"`
	UIIdentifier     string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_input_ui" json:"ui_identifier"`
	Content          string     `gorm:"type:text" json:"content"`
	Required         bool       `gorm:"default:false" json:"required"`
	ResponseSchemaID *uuid.UUID `gorm:"type:uuid" json:"response_schema_id,omitempty"`

	ResponseSchema *JSONSchema `gorm:"foreignKey:ResponseSchemaID" json:"response_schema,omitempty"`
}

// JSONSchema is a stored Draft-07 document shared between inputs.
type JSONSchema struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id"`
	Code        string         `gorm:"type:varchar(200);not null;uniqueIndex" json:"code"`
	Description string         `gorm:"type:text" json:"description"`
	Schema      datatypes.JSON `gorm:"type:jsonb;not null" json:"schema"`
}

type WorkflowStepText struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowStepID uuid.UUID `gorm:"type:uuid;not null;index" json:"workflow_step_id"`
	UIIdentifier   string    `gorm:"type:varchar(200);not null" json:"ui_identifier"`
	Content        string    `gorm:"type:text" json:"content"`
}

type WorkflowStepImage struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowStepID uuid.UUID `gorm:"type:uuid;not null;index" json:"workflow_step_id"`
	UIIdentifier   string    `gorm:"type:varchar(200);not null" json:"ui_identifier"`
	URL            string    `gorm:"type:text;not null" json:"url"`
}

type WorkflowStepAudio struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowStepID uuid.UUID `gorm:"type:uuid;not null;index" json:"workflow_step_id"`
	UIIdentifier   string    `gorm:"type:varchar(200);not null" json:"ui_identifier"`
	URL            string    `gorm:"type:text;not null" json:"url"`
}

type WorkflowStepVideo struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowStepID uuid.UUID `gorm:"type:uuid;not null;index" json:"workflow_step_id"`
	UIIdentifier   string    `gorm:"type:varchar(200);not null" json:"ui_identifier"`
	URL            string    `gorm:"type:text;not null" json:"url"`
}

// WorkflowStepDataGroup tags steps for reporting.
type WorkflowStepDataGroup struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Code        string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"code"`
	Description string    `gorm:"type:text" json:"description"`
}

// --- FACTORY ---
func NewWorkflow(code, name string, authorID uuid.UUID) *Workflow {
	return &Workflow{
		ID:        uuid.New(),
		Code:      code,
		Version:   1,
		Name:      name,
		AuthorID:  authorID,
		CreatedAt: time.Now(),
	}
}

// --- METHODS ---
func (s *WorkflowStep) HasRequiredInputs() bool {
	for _, in := range s.Inputs {
		if in.Required {
			return true
		}
	}
	return false
}
