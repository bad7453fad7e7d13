package engagement

import (
	"go-engage/internal/domain"

	"github.com/google/uuid"
)

// State is a user's position within a collection.
type State struct {
	NextStepID                   *uuid.UUID  `json:"next_step_id"`
	PrevStepID                   *uuid.UUID  `json:"prev_step_id"`
	NextWorkflow                 *uuid.UUID  `json:"next_workflow"`
	PrevWorkflow                 *uuid.UUID  `json:"prev_workflow"`
	StepsCompletedInCollection   int         `json:"steps_completed_in_collection"`
	StepsInCollection            int         `json:"steps_in_collection"`
	StepsCompletedInWorkflow     int         `json:"steps_completed_in_workflow"`
	StepsInWorkflow              int         `json:"steps_in_workflow"`
	PreviouslyCompletedWorkflows []uuid.UUID `json:"previously_completed_workflows"`
}

// StateVersion identifies the finished-step set a State was computed from.
// Finished details never revert, so the set only grows and its size is
// enough to tell two versions apart.
func StateVersion(details []domain.WorkflowCollectionEngagementDetail) int {
	return len(CompletedSteps(details))
}

// CompletedSteps returns the steps with a finished detail. Scratch details
// (Finished == nil) are ignored.
func CompletedSteps(details []domain.WorkflowCollectionEngagementDetail) map[uuid.UUID]struct{} {
	done := make(map[uuid.UUID]struct{}, len(details))
	for _, d := range details {
		if d.Finished != nil {
			done[d.WorkflowStepID] = struct{}{}
		}
	}
	return done
}

// Compute derives the state of an engagement from the collection order and
// its details. A nil or empty details slice yields the state of a fresh
// engagement.
func Compute(idx *Index, details []domain.WorkflowCollectionEngagementDetail) State {
	done := CompletedSteps(details)

	st := State{
		StepsInCollection:            idx.Len(),
		PreviouslyCompletedWorkflows: []uuid.UUID{},
	}

	highest := -1
	for stepID := range done {
		p, ok := idx.Lookup(stepID)
		if !ok {
			continue
		}
		st.StepsCompletedInCollection++
		if p.Index > highest {
			highest = p.Index
		}
	}

	if highest >= 0 {
		prev := idx.At(highest)
		st.PrevStepID = ptr(prev.StepID)
		st.PrevWorkflow = ptr(prev.WorkflowID)
	}
	if highest+1 < idx.Len() {
		next := idx.At(highest + 1)
		st.NextStepID = ptr(next.StepID)
		st.NextWorkflow = ptr(next.WorkflowID)
	}

	current := st.NextWorkflow
	if current == nil {
		current = st.PrevWorkflow
	}
	if current == nil {
		return st
	}

	for _, p := range idx.WorkflowSteps(*current) {
		st.StepsInWorkflow++
		if _, ok := done[p.StepID]; ok {
			st.StepsCompletedInWorkflow++
		}
	}

	rank := idx.workflowRank(*current)
	for _, wfID := range idx.Workflows()[:rank] {
		if workflowComplete(idx, wfID, done) {
			st.PreviouslyCompletedWorkflows = append(st.PreviouslyCompletedWorkflows, wfID)
		}
	}

	return st
}

// IsComplete reports whether every step of the collection has been finished.
func (s State) IsComplete() bool {
	return s.StepsInCollection > 0 && s.StepsCompletedInCollection == s.StepsInCollection
}

func workflowComplete(idx *Index, workflowID uuid.UUID, done map[uuid.UUID]struct{}) bool {
	steps := idx.WorkflowSteps(workflowID)
	if len(steps) == 0 {
		return false
	}
	for _, p := range steps {
		if _, ok := done[p.StepID]; !ok {
			return false
		}
	}
	return true
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }
