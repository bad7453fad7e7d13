package dto

import (
	"go-engage/internal/domain"
	"go-engage/internal/engagement"
)

// EngagementResponse is returned by every engagement read or write.
type EngagementResponse struct {
	Engagement *domain.WorkflowCollectionEngagement `json:"engagement"`
	State      engagement.State                     `json:"state"`
}

type DetailResponse struct {
	Detail *domain.WorkflowCollectionEngagementDetail `json:"detail"`
	State  engagement.State                           `json:"state"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}
