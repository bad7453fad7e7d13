package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateJSONSchemaRequest struct {
	Code        string          `json:"code" binding:"required"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema" binding:"required"`
}

type StepInputDTO struct {
	UIIdentifier     string     `json:"ui_identifier" binding:"required"`
	Content          string     `json:"content"`
	Required         bool       `json:"required"`
	ResponseSchemaID *uuid.UUID `json:"response_schema_id"`
}

type StepTextDTO struct {
	UIIdentifier string `json:"ui_identifier" binding:"required"`
	Content      string `json:"content"`
}

type StepMediaDTO struct {
	UIIdentifier string `json:"ui_identifier" binding:"required"`
	URL          string `json:"url" binding:"required"`
}

type DataGroupDTO struct {
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
}

type WorkflowStepDTO struct {
	Code       string         `json:"code" binding:"required"`
	Order      int            `json:"order" binding:"min=1"`
	Inputs     []StepInputDTO `json:"inputs" binding:"dive"`
	Texts      []StepTextDTO  `json:"texts" binding:"dive"`
	Images     []StepMediaDTO `json:"images" binding:"dive"`
	Audios     []StepMediaDTO `json:"audios" binding:"dive"`
	Videos     []StepMediaDTO `json:"videos" binding:"dive"`
	DataGroups []DataGroupDTO `json:"data_groups" binding:"dive"`
}

type CreateWorkflowRequest struct {
	Code  string            `json:"code" binding:"required"`
	Name  string            `json:"name" binding:"required"`
	Steps []WorkflowStepDTO `json:"steps" binding:"required,min=1,dive"`
}

type CollectionMemberDTO struct {
	WorkflowID uuid.UUID `json:"workflow_id" binding:"required"`
	Order      int       `json:"order" binding:"min=1"`
}

type TagDTO struct {
	Type string `json:"type" binding:"required"`
	Text string `json:"text" binding:"required"`
}

type CreateCollectionRequest struct {
	Code           string                `json:"code" binding:"required"`
	Name           string                `json:"name" binding:"required"`
	Description    string                `json:"description"`
	Category       string                `json:"category" binding:"required"`
	Ordered        *bool                 `json:"ordered"`
	AssignmentOnly bool                  `json:"assignment_only"`
	Recommendable  bool                  `json:"recommendable"`
	Workflows      []CollectionMemberDTO `json:"workflows" binding:"required,min=1,dive"`
	Tags           []TagDTO              `json:"tags" binding:"dive"`
}

type CreateRecommendationRequest struct {
	UserID uuid.UUID  `json:"user_id" binding:"required"`
	Start  *time.Time `json:"start"`
	End    *time.Time `json:"end"`
}

type StartEngagementRequest struct {
	WorkflowCollectionID uuid.UUID `json:"workflow_collection_id" binding:"required"`
}

type SubmitDetailRequest struct {
	WorkflowStepID uuid.UUID       `json:"workflow_step_id" binding:"required"`
	UserResponse   json.RawMessage `json:"user_response"`
	Finished       bool            `json:"finished"`
}

type CreateAssignmentRequest struct {
	UserID               uuid.UUID `json:"user_id" binding:"required"`
	WorkflowCollectionID uuid.UUID `json:"workflow_collection_id" binding:"required"`
}

type UpdateAssignmentRequest struct {
	Status string `json:"status" binding:"required"`
}

type ScheduleDTO struct {
	DayOfWeek int    `json:"day_of_week" binding:"min=1,max=7"`
	TimeOfDay string `json:"time_of_day" binding:"required"`
}

type UpsertSubscriptionRequest struct {
	WorkflowCollectionID uuid.UUID     `json:"workflow_collection_id" binding:"required"`
	Active               *bool         `json:"active"`
	Schedules            []ScheduleDTO `json:"schedules" binding:"dive"`
}
