package engagement

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go-engage/internal/domain"

	"github.com/google/uuid"
)

// Keys every entry of the "questions" array must carry.
const (
	KeyQuestions    = "questions"
	KeyStepInputID  = "stepInputID"
	KeyUIIdentifier = "stepInputUIIdentifier"
	KeyResponse     = "response"
)

var questionKeys = []string{KeyStepInputID, KeyUIIdentifier, KeyResponse}

type Validator struct {
	schemas *SchemaCache
}

func NewValidator(schemas *SchemaCache) *Validator {
	if schemas == nil {
		schemas = NewSchemaCache()
	}
	return &Validator{schemas: schemas}
}

// ValidateNavigation checks that stepID is a legal submission target given the
// current state. hasHistory is true once the engagement has any finished detail.
func (v *Validator) ValidateNavigation(category domain.CollectionCategory, idx *Index, st State, hasHistory bool, stepID uuid.UUID) error {
	pos, ok := idx.Lookup(stepID)
	if !ok || !idx.HasWorkflow(pos.WorkflowID) {
		return &domain.NavigationOrderError{StepID: stepID, Message: "step does not belong to a workflow in this collection"}
	}

	if category == domain.CategoryActivity && !hasHistory {
		if idx.IsFirstInWorkflow(stepID) {
			return nil
		}
		return &domain.NavigationOrderError{StepID: stepID, Message: "an activity must be started at the first step of a workflow"}
	}

	if st.NextStepID != nil && *st.NextStepID == stepID {
		return nil
	}
	if st.PrevStepID != nil && *st.PrevStepID == stepID {
		return nil
	}
	return &domain.NavigationOrderError{StepID: stepID, Message: "step is not the next or previous step of this engagement"}
}

// ValidateResponse checks a user_response payload against the step's inputs.
// Only finished submissions are checked; drafts may be empty or partial.
func (v *Validator) ValidateResponse(step *domain.WorkflowStep, payload []byte, finished bool) error {
	if !finished {
		return nil
	}

	doc, err := decode(payload)
	if err != nil {
		return &domain.StructuralValidationError{Field: "user_response", Message: "must be valid JSON"}
	}

	required := step.HasRequiredInputs()
	if doc == nil {
		if required {
			return &domain.StructuralValidationError{Field: KeyQuestions, Message: "missing response: this step has required inputs"}
		}
		return nil
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return &domain.StructuralValidationError{Field: "user_response", Message: "must be an object"}
	}
	rawQuestions, ok := obj[KeyQuestions]
	if !ok {
		if required {
			return &domain.StructuralValidationError{Field: KeyQuestions, Message: "missing required key"}
		}
		return nil
	}
	questions, ok := rawQuestions.([]any)
	if !ok {
		return &domain.StructuralValidationError{Field: KeyQuestions, Message: "must be an array"}
	}

	answers, err := collectAnswers(step, questions)
	if err != nil {
		return err
	}

	for i := range step.Inputs {
		in := &step.Inputs[i]
		resp, answered := answers[in.ID]
		if !answered {
			if in.Required {
				return &domain.StructuralValidationError{Field: in.UIIdentifier, Message: "missing response"}
			}
			continue
		}
		if in.ResponseSchema == nil {
			continue
		}
		violation, err := v.schemas.Validate(in.ResponseSchema, resp)
		if err != nil {
			return fmt.Errorf("input %s: %w", in.ID, err)
		}
		if violation != "" {
			return &domain.SchemaValidationError{StepInputID: in.ID, UIIdentifier: in.UIIdentifier, Message: violation}
		}
	}

	return nil
}

func collectAnswers(step *domain.WorkflowStep, questions []any) (map[uuid.UUID]any, error) {
	answers := make(map[uuid.UUID]any, len(questions))
	for i, q := range questions {
		entry, ok := q.(map[string]any)
		if !ok {
			return nil, &domain.StructuralValidationError{Field: fmt.Sprintf("%s[%d]", KeyQuestions, i), Message: "must be an object"}
		}
		for _, key := range questionKeys {
			if _, ok := entry[key]; !ok {
				return nil, &domain.StructuralValidationError{Field: fmt.Sprintf("%s[%d].%s", KeyQuestions, i, key), Message: "missing required key"}
			}
		}

		rawID, _ := entry[KeyStepInputID].(string)
		ui, _ := entry[KeyUIIdentifier].(string)
		inputID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, &domain.StructuralValidationError{Field: fmt.Sprintf("%s[%d].%s", KeyQuestions, i, KeyStepInputID), Message: "must be a UUID"}
		}

		if _, dup := answers[inputID]; dup {
			return nil, &domain.StructuralValidationError{
				Field:   fmt.Sprintf("%s[%d]", KeyQuestions, i),
				Message: fmt.Sprintf("input %q is answered more than once", ui),
			}
		}

		matched := false
		for _, in := range step.Inputs {
			if in.ID == inputID && in.UIIdentifier == ui {
				matched = true
				break
			}
		}
		if !matched {
			return nil, &domain.StructuralValidationError{
				Field:   fmt.Sprintf("%s[%d]", KeyQuestions, i),
				Message: fmt.Sprintf("no step input matches id %s and identifier %q", inputID, ui),
			}
		}
		answers[inputID] = entry[KeyResponse]
	}
	return answers, nil
}

// decode parses payload keeping numbers as json.Number, which the schema
// validator compares exactly. Empty input and JSON null both yield nil.
func decode(payload []byte) (any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after the top-level value")
	}
	return v, nil
}
