package engagement

import (
	"errors"
	"fmt"
	"testing"

	"go-engage/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func navErr(t *testing.T, err error) {
	t.Helper()
	var ne *domain.NavigationOrderError
	assert.True(t, errors.As(err, &ne), "want NavigationOrderError, got %v", err)
}

func TestValidateNavigation_Survey(t *testing.T) {
	c := buildCollection(domain.CategorySurvey, 3)
	idx, err := NewIndex(c)
	require.NoError(t, err)
	v := NewValidator(nil)
	s1, s2, s3 := stepAt(c, 0, 0), stepAt(c, 0, 1), stepAt(c, 0, 2)

	fresh := Compute(idx, nil)
	assert.NoError(t, v.ValidateNavigation(c.Category, idx, fresh, false, s1))
	navErr(t, v.ValidateNavigation(c.Category, idx, fresh, false, s2))

	afterS1 := Compute(idx, finished(s1))
	assert.NoError(t, v.ValidateNavigation(c.Category, idx, afterS1, true, s1))
	assert.NoError(t, v.ValidateNavigation(c.Category, idx, afterS1, true, s2))
	navErr(t, v.ValidateNavigation(c.Category, idx, afterS1, true, s3))
	navErr(t, v.ValidateNavigation(c.Category, idx, afterS1, true, uuid.New()))
}

func TestValidateNavigation_ActivitySingleStep(t *testing.T) {
	c := buildCollection(domain.CategoryActivity, 1)
	idx, err := NewIndex(c)
	require.NoError(t, err)
	v := NewValidator(nil)
	st := Compute(idx, nil)

	assert.NoError(t, v.ValidateNavigation(c.Category, idx, st, false, stepAt(c, 0, 0)))
	navErr(t, v.ValidateNavigation(c.Category, idx, st, false, uuid.New()))
}

func TestValidateNavigation_ActivityFirstSubmission(t *testing.T) {
	c := buildCollection(domain.CategoryActivity, 2, 2)
	idx, err := NewIndex(c)
	require.NoError(t, err)
	v := NewValidator(nil)
	fresh := Compute(idx, nil)

	// any workflow may be entered at its first step
	assert.NoError(t, v.ValidateNavigation(c.Category, idx, fresh, false, stepAt(c, 0, 0)))
	assert.NoError(t, v.ValidateNavigation(c.Category, idx, fresh, false, stepAt(c, 1, 0)))
	navErr(t, v.ValidateNavigation(c.Category, idx, fresh, false, stepAt(c, 1, 1)))

	// once started, an activity is as strict as a survey
	started := Compute(idx, finished(stepAt(c, 1, 0)))
	assert.NoError(t, v.ValidateNavigation(c.Category, idx, started, true, stepAt(c, 1, 1)))
	navErr(t, v.ValidateNavigation(c.Category, idx, started, true, stepAt(c, 0, 0)))
}

func TestValidateNavigation_SurveyIgnoresActivityRule(t *testing.T) {
	c := buildCollection(domain.CategorySurvey, 1, 1)
	idx, err := NewIndex(c)
	require.NoError(t, err)
	v := NewValidator(nil)

	navErr(t, v.ValidateNavigation(c.Category, idx, Compute(idx, nil), false, stepAt(c, 1, 0)))
}

func likertStep(required bool) (*domain.WorkflowStep, *domain.WorkflowStepInput) {
	step := &domain.WorkflowStep{ID: uuid.New(), Code: "q1", Order: 1}
	s := schema(`{"type":"number","enum":[1,2,3,4,5]}`)
	step.Inputs = []domain.WorkflowStepInput{{
		ID:               uuid.New(),
		WorkflowStepID:   step.ID,
		UIIdentifier:     "likert",
		Required:         required,
		ResponseSchemaID: &s.ID,
		ResponseSchema:   s,
	}}
	return step, &step.Inputs[0]
}

func answer(in *domain.WorkflowStepInput, response string) []byte {
	return []byte(fmt.Sprintf(`{"questions":[{"stepInputID":%q,"stepInputUIIdentifier":%q,"response":%s}]}`, in.ID, in.UIIdentifier, response))
}

func TestValidateResponse_SchemaEnum(t *testing.T) {
	step, in := likertStep(true)
	v := NewValidator(NewSchemaCache())

	assert.NoError(t, v.ValidateResponse(step, answer(in, "2"), true))

	err := v.ValidateResponse(step, answer(in, "7"), true)
	var se *domain.SchemaValidationError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, in.ID, se.StepInputID)
	assert.NotEmpty(t, se.Message)

	err = v.ValidateResponse(step, []byte(`{"questions":[]}`), true)
	var st *domain.StructuralValidationError
	require.True(t, errors.As(err, &st), "got %v", err)
	assert.Contains(t, st.Message, "missing response")
}

func TestValidateResponse_RequiredNeedsPayload(t *testing.T) {
	step, _ := likertStep(true)
	v := NewValidator(nil)

	for _, payload := range []string{"", "null", `{}`} {
		err := v.ValidateResponse(step, []byte(payload), true)
		var st *domain.StructuralValidationError
		assert.True(t, errors.As(err, &st), "payload %q: got %v", payload, err)
	}
}

func TestValidateResponse_OptionalInput(t *testing.T) {
	step, in := likertStep(false)
	v := NewValidator(nil)

	assert.NoError(t, v.ValidateResponse(step, nil, true))
	assert.NoError(t, v.ValidateResponse(step, []byte(`{"questions":[]}`), true))
	// a supplied optional answer is still checked
	var se *domain.SchemaValidationError
	assert.True(t, errors.As(v.ValidateResponse(step, answer(in, `"five"`), true), &se))
}

func TestValidateResponse_DraftsSkipValidation(t *testing.T) {
	step, in := likertStep(true)
	v := NewValidator(nil)

	assert.NoError(t, v.ValidateResponse(step, nil, false))
	assert.NoError(t, v.ValidateResponse(step, answer(in, "7"), false))
}

func TestValidateResponse_Structure(t *testing.T) {
	step, in := likertStep(true)
	v := NewValidator(nil)

	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"not an object", `[1]`, "user_response"},
		{"questions not array", `{"questions":{}}`, KeyQuestions},
		{"entry not object", `{"questions":[3]}`, "questions[0]"},
		{"missing stepInputID", fmt.Sprintf(`{"questions":[{"stepInputUIIdentifier":%q,"response":2}]}`, in.UIIdentifier), "questions[0].stepInputID"},
		{"missing identifier", fmt.Sprintf(`{"questions":[{"stepInputID":%q,"response":2}]}`, in.ID), "questions[0].stepInputUIIdentifier"},
		{"missing response", fmt.Sprintf(`{"questions":[{"stepInputID":%q,"stepInputUIIdentifier":%q}]}`, in.ID, in.UIIdentifier), "questions[0].response"},
		{"bad uuid", `{"questions":[{"stepInputID":"x","stepInputUIIdentifier":"likert","response":2}]}`, "questions[0].stepInputID"},
		{"unmatched identifier", fmt.Sprintf(`{"questions":[{"stepInputID":%q,"stepInputUIIdentifier":"other","response":2}]}`, in.ID), "questions[0]"},
		{"unknown input", fmt.Sprintf(`{"questions":[{"stepInputID":%q,"stepInputUIIdentifier":"likert","response":2}]}`, uuid.New()), "questions[0]"},
		{"invalid json", `{"questions":`, "user_response"},
		{"trailing data", `{"questions":[]} {}`, "user_response"},
		{
			"input answered twice",
			fmt.Sprintf(`{"questions":[{"stepInputID":%[1]q,"stepInputUIIdentifier":%[2]q,"response":7},{"stepInputID":%[1]q,"stepInputUIIdentifier":%[2]q,"response":2}]}`, in.ID, in.UIIdentifier),
			"questions[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateResponse(step, []byte(tt.payload), true)
			var st *domain.StructuralValidationError
			require.True(t, errors.As(err, &st), "got %v", err)
			assert.Equal(t, tt.field, st.Field)
		})
	}
}

func TestValidateResponse_InputWithoutSchema(t *testing.T) {
	step := &domain.WorkflowStep{ID: uuid.New()}
	step.Inputs = []domain.WorkflowStepInput{{ID: uuid.New(), WorkflowStepID: step.ID, UIIdentifier: "free", Required: true}}
	v := NewValidator(nil)

	assert.NoError(t, v.ValidateResponse(step, answer(&step.Inputs[0], `{"anything":true}`), true))
}

func TestValidateResponse_BrokenSchemaIsNotUserError(t *testing.T) {
	step, in := likertStep(true)
	in.ResponseSchema.Schema = []byte(`{"type":12}`)
	v := NewValidator(nil)

	err := v.ValidateResponse(step, answer(in, "2"), true)
	require.Error(t, err)
	assert.False(t, domain.IsValidationError(err))
}

func TestSchemaCache_RecompilesOnChange(t *testing.T) {
	c := NewSchemaCache()
	s := schema(`{"type":"string"}`)

	violation, err := c.Validate(s, "a")
	require.NoError(t, err)
	assert.Empty(t, violation)

	s.Schema = []byte(`{"type":"integer"}`)
	violation, err = c.Validate(s, "a")
	require.NoError(t, err)
	assert.NotEmpty(t, violation)
}

func TestCompileSchema(t *testing.T) {
	assert.NoError(t, CompileSchema([]byte(`{"type":"object","required":["a"]}`)))
	assert.Error(t, CompileSchema([]byte(`{"type":"nope"}`)))
	assert.Error(t, CompileSchema([]byte(`not json`)))
}
