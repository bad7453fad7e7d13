// Package logkeys defines static logging keys for consistent structured logging output.
package logkeys

const (
	Message = "msg"
	Error   = "err"

	UserID       = "user_id"
	CollectionID = "collection_id"
	EngagementID = "engagement_id"
	AssignmentID = "assignment_id"
	StepID       = "step_id"

	// a context-dependent numerical count/length of something
	GenericCount = "count"
)
