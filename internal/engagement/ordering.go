// Package engagement computes a user's position within a workflow collection
// and decides whether a submitted step response is legal.
//
// Everything here is a pure function of the collection structure and the
// engagement's finished details, so callers are free to cache results as long
// as they invalidate on every detail write.
package engagement

import (
	"errors"
	"fmt"
	"sort"

	"go-engage/internal/domain"

	"github.com/google/uuid"
)

var ErrAmbiguousOrder = errors.New("ambiguous step order")

// Position is one (workflow, step) slot in a collection's total order.
type Position struct {
	Index       int
	WorkflowID  uuid.UUID
	MemberOrder int
	StepID      uuid.UUID
	StepOrder   int
	Step        *domain.WorkflowStep
}

// Index is the total order over every step of a collection: member order
// first, then step order within the workflow.
type Index struct {
	positions  []Position
	byStep     map[uuid.UUID]int
	workflows  []uuid.UUID
	byWorkflow map[uuid.UUID][]int
}

// NewIndex builds the order for c. Members must have their Workflow and its
// Steps loaded. Ties in either key, a workflow listed twice, or a step shared
// between workflows return ErrAmbiguousOrder.
func NewIndex(c *domain.WorkflowCollection) (*Index, error) {
	members := make([]domain.WorkflowCollectionMember, len(c.Members))
	copy(members, c.Members)
	sort.SliceStable(members, func(i, j int) bool { return members[i].Order < members[j].Order })

	idx := &Index{
		byStep:     make(map[uuid.UUID]int),
		byWorkflow: make(map[uuid.UUID][]int),
	}

	for i, m := range members {
		if m.Workflow == nil {
			return nil, fmt.Errorf("member %s of collection %s has no workflow loaded", m.ID, c.ID)
		}
		if i > 0 && members[i-1].Order == m.Order {
			return nil, fmt.Errorf("%w: two members at order %d", ErrAmbiguousOrder, m.Order)
		}
		if _, dup := idx.byWorkflow[m.Workflow.ID]; dup {
			return nil, fmt.Errorf("%w: workflow %s listed twice", ErrAmbiguousOrder, m.Workflow.ID)
		}
		idx.workflows = append(idx.workflows, m.Workflow.ID)
		idx.byWorkflow[m.Workflow.ID] = nil

		steps := make([]domain.WorkflowStep, len(m.Workflow.Steps))
		copy(steps, m.Workflow.Steps)
		sort.SliceStable(steps, func(a, b int) bool { return steps[a].Order < steps[b].Order })

		for j := range steps {
			s := &steps[j]
			if j > 0 && steps[j-1].Order == s.Order {
				return nil, fmt.Errorf("%w: workflow %s has two steps at order %d", ErrAmbiguousOrder, m.Workflow.ID, s.Order)
			}
			if _, dup := idx.byStep[s.ID]; dup {
				return nil, fmt.Errorf("%w: step %s appears twice", ErrAmbiguousOrder, s.ID)
			}
			pos := Position{
				Index:       len(idx.positions),
				WorkflowID:  m.Workflow.ID,
				MemberOrder: m.Order,
				StepID:      s.ID,
				StepOrder:   s.Order,
				Step:        s,
			}
			idx.byStep[s.ID] = pos.Index
			idx.byWorkflow[m.Workflow.ID] = append(idx.byWorkflow[m.Workflow.ID], pos.Index)
			idx.positions = append(idx.positions, pos)
		}
	}

	return idx, nil
}

func (x *Index) Len() int { return len(x.positions) }

func (x *Index) At(i int) Position { return x.positions[i] }

// Lookup returns the position of stepID, if the step belongs to the collection.
func (x *Index) Lookup(stepID uuid.UUID) (Position, bool) {
	i, ok := x.byStep[stepID]
	if !ok {
		return Position{}, false
	}
	return x.positions[i], true
}

// Less reports whether step a precedes step b. Both must be in the index.
func (x *Index) Less(a, b uuid.UUID) bool {
	return x.byStep[a] < x.byStep[b]
}

// IsFirstInWorkflow reports whether stepID opens its workflow.
func (x *Index) IsFirstInWorkflow(stepID uuid.UUID) bool {
	p, ok := x.Lookup(stepID)
	if !ok {
		return false
	}
	ws := x.byWorkflow[p.WorkflowID]
	return len(ws) > 0 && ws[0] == p.Index
}

// Workflows returns workflow IDs in member order.
func (x *Index) Workflows() []uuid.UUID {
	out := make([]uuid.UUID, len(x.workflows))
	copy(out, x.workflows)
	return out
}

// WorkflowSteps returns the positions belonging to workflowID, in order.
func (x *Index) WorkflowSteps(workflowID uuid.UUID) []Position {
	ids := x.byWorkflow[workflowID]
	out := make([]Position, 0, len(ids))
	for _, i := range ids {
		out = append(out, x.positions[i])
	}
	return out
}

// HasWorkflow reports whether workflowID is a member of the collection.
func (x *Index) HasWorkflow(workflowID uuid.UUID) bool {
	_, ok := x.byWorkflow[workflowID]
	return ok
}

func (x *Index) workflowRank(workflowID uuid.UUID) int {
	for i, id := range x.workflows {
		if id == workflowID {
			return i
		}
	}
	return -1
}
