package engagement

import (
	"time"

	"go-engage/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// buildCollection returns a collection whose workflows have the given step
// counts, with member and step orders starting at 1.
func buildCollection(category domain.CollectionCategory, stepsPerWorkflow ...int) *domain.WorkflowCollection {
	c := domain.NewCollection("test", "Test", category, uuid.New())
	for i, n := range stepsPerWorkflow {
		wf := domain.NewWorkflow("wf", "Workflow", uuid.New())
		for j := 0; j < n; j++ {
			wf.Steps = append(wf.Steps, domain.WorkflowStep{
				ID:         uuid.New(),
				WorkflowID: wf.ID,
				Code:       "step",
				Order:      j + 1,
			})
		}
		c.Members = append(c.Members, domain.WorkflowCollectionMember{
			ID:                   uuid.New(),
			WorkflowCollectionID: c.ID,
			WorkflowID:           wf.ID,
			Order:                i + 1,
			Workflow:             wf,
		})
	}
	return c
}

func stepAt(c *domain.WorkflowCollection, member, step int) uuid.UUID {
	return c.Members[member].Workflow.Steps[step].ID
}

func finished(stepIDs ...uuid.UUID) []domain.WorkflowCollectionEngagementDetail {
	now := time.Now()
	out := make([]domain.WorkflowCollectionEngagementDetail, 0, len(stepIDs))
	for _, id := range stepIDs {
		out = append(out, domain.WorkflowCollectionEngagementDetail{ID: uuid.New(), WorkflowStepID: id, Started: now, Finished: &now})
	}
	return out
}

func scratch(stepIDs ...uuid.UUID) []domain.WorkflowCollectionEngagementDetail {
	out := make([]domain.WorkflowCollectionEngagementDetail, 0, len(stepIDs))
	for _, id := range stepIDs {
		out = append(out, domain.WorkflowCollectionEngagementDetail{ID: uuid.New(), WorkflowStepID: id, Started: time.Now()})
	}
	return out
}

func schema(doc string) *domain.JSONSchema {
	return &domain.JSONSchema{ID: uuid.New(), Code: "s", Schema: datatypes.JSON(doc)}
}
