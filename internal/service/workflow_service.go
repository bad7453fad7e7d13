package service

import (
	"context"
	"errors"
	"fmt"

	"go-engage/internal/api/dto"
	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/engagement"
	"go-engage/internal/logging/logkeys"

	"github.com/google/uuid"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
	"gorm.io/datatypes"
)

type WorkflowService interface {
	CreateWorkflow(ctx context.Context, authorID uuid.UUID, req dto.CreateWorkflowRequest) (*domain.Workflow, error)
	GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	ListWorkflows(ctx context.Context) ([]domain.Workflow, error)

	CreateJSONSchema(ctx context.Context, req dto.CreateJSONSchemaRequest) (*domain.JSONSchema, error)
	GetJSONSchema(ctx context.Context, id uuid.UUID) (*domain.JSONSchema, error)
}

type workflowService struct {
	store  ports.Store
	logger log.Logger
}

func NewWorkflowService(store ports.Store, logger log.Logger) WorkflowService {
	if logger == nil {
		logger = log.NopLogger
	}
	return &workflowService{
		store:  store,
		logger: logger,
	}
}

func (s *workflowService) CreateWorkflow(ctx context.Context, authorID uuid.UUID, req dto.CreateWorkflowRequest) (*domain.Workflow, error) {
	w := domain.NewWorkflow(req.Code, req.Name, authorID)

	orders := make(map[int]struct{}, len(req.Steps))
	codes := make(map[string]struct{}, len(req.Steps))
	for i, sDto := range req.Steps {
		if _, dup := orders[sDto.Order]; dup {
			return nil, &domain.StructuralValidationError{
				Field:   fmt.Sprintf("steps[%d].order", i),
				Message: fmt.Sprintf("order %d is used by another step", sDto.Order),
			}
		}
		orders[sDto.Order] = struct{}{}
		if _, dup := codes[sDto.Code]; dup {
			return nil, &domain.StructuralValidationError{
				Field:   fmt.Sprintf("steps[%d].code", i),
				Message: fmt.Sprintf("code %q is used by another step", sDto.Code),
			}
		}
		codes[sDto.Code] = struct{}{}

		step, err := s.buildStep(ctx, w.ID, i, sDto)
		if err != nil {
			return nil, err
		}
		w.Steps = append(w.Steps, step)
	}

	if err := s.store.Workflows().Create(ctx, w); err != nil {
		return nil, err
	}

	ctxlog.Logger(ctx, s.logger).Info(logkeys.Message, "workflow created", "workflow_id", w.ID, "code", w.Code, "version", w.Version, logkeys.GenericCount, len(w.Steps))
	return w, nil
}

func (s *workflowService) buildStep(ctx context.Context, workflowID uuid.UUID, i int, sDto dto.WorkflowStepDTO) (domain.WorkflowStep, error) {
	step := domain.WorkflowStep{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Code:       sDto.Code,
		Order:      sDto.Order,
	}

	uiIDs := make(map[string]struct{}, len(sDto.Inputs))
	for j, in := range sDto.Inputs {
		if _, dup := uiIDs[in.UIIdentifier]; dup {
			return step, &domain.StructuralValidationError{
				Field:   fmt.Sprintf("steps[%d].inputs[%d].ui_identifier", i, j),
				Message: fmt.Sprintf("ui identifier %q is used by another input", in.UIIdentifier),
			}
		}
		uiIDs[in.UIIdentifier] = struct{}{}

		if in.ResponseSchemaID != nil {
			_, err := s.store.Workflows().GetSchema(ctx, *in.ResponseSchemaID)
			if errors.Is(err, domain.ErrNotFound) {
				return step, &domain.StructuralValidationError{
					Field:   fmt.Sprintf("steps[%d].inputs[%d].response_schema_id", i, j),
					Message: "unknown schema",
				}
			}
			if err != nil {
				return step, err
			}
		}

		step.Inputs = append(step.Inputs, domain.WorkflowStepInput{
			ID:               uuid.New(),
			WorkflowStepID:   step.ID,
			UIIdentifier:     in.UIIdentifier,
			Content:          in.Content,
			Required:         in.Required,
			ResponseSchemaID: in.ResponseSchemaID,
		})
	}

	for _, t := range sDto.Texts {
		step.Texts = append(step.Texts, domain.WorkflowStepText{
			ID: uuid.New(), WorkflowStepID: step.ID, UIIdentifier: t.UIIdentifier, Content: t.Content,
		})
	}
	for _, m := range sDto.Images {
		step.Images = append(step.Images, domain.WorkflowStepImage{
			ID: uuid.New(), WorkflowStepID: step.ID, UIIdentifier: m.UIIdentifier, URL: m.URL,
		})
	}
	for _, m := range sDto.Audios {
		step.Audios = append(step.Audios, domain.WorkflowStepAudio{
			ID: uuid.New(), WorkflowStepID: step.ID, UIIdentifier: m.UIIdentifier, URL: m.URL,
		})
	}
	for _, m := range sDto.Videos {
		step.Videos = append(step.Videos, domain.WorkflowStepVideo{
			ID: uuid.New(), WorkflowStepID: step.ID, UIIdentifier: m.UIIdentifier, URL: m.URL,
		})
	}
	for _, g := range sDto.DataGroups {
		step.DataGroups = append(step.DataGroups, domain.WorkflowStepDataGroup{Code: g.Code, Description: g.Description})
	}

	return step, nil
}

func (s *workflowService) GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	return s.store.Workflows().GetByID(ctx, id)
}

func (s *workflowService) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	return s.store.Workflows().List(ctx)
}

// CreateJSONSchema stores a schema after checking that it compiles as Draft-07.
func (s *workflowService) CreateJSONSchema(ctx context.Context, req dto.CreateJSONSchemaRequest) (*domain.JSONSchema, error) {
	if err := engagement.CompileSchema(req.Schema); err != nil {
		return nil, &domain.StructuralValidationError{Field: "schema", Message: err.Error()}
	}

	schema := &domain.JSONSchema{
		ID:          uuid.New(),
		Code:        req.Code,
		Description: req.Description,
		Schema:      datatypes.JSON(req.Schema),
	}
	if err := s.store.Workflows().CreateSchema(ctx, schema); err != nil {
		return nil, err
	}

	ctxlog.Logger(ctx, s.logger).Info(logkeys.Message, "json schema created", "schema_id", schema.ID, "code", schema.Code)
	return schema, nil
}

func (s *workflowService) GetJSONSchema(ctx context.Context, id uuid.UUID) (*domain.JSONSchema, error) {
	return s.store.Workflows().GetSchema(ctx, id)
}
