package service

import (
	"context"
	"fmt"

	"go-engage/internal/api/dto"
	"go-engage/internal/core/ports"
	"go-engage/internal/domain"
	"go-engage/internal/logging/logkeys"

	"github.com/google/uuid"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

type AssignmentService interface {
	// CreateAssignment fails with *domain.DuplicateEngagementError when the
	// user already has an open assignment for the collection.
	CreateAssignment(ctx context.Context, req dto.CreateAssignmentRequest) (*domain.WorkflowCollectionAssignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionAssignment, error)
	ListAssignments(ctx context.Context, userID uuid.UUID, openOnly bool) ([]domain.WorkflowCollectionAssignment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req dto.UpdateAssignmentRequest) (*domain.WorkflowCollectionAssignment, error)
}

type assignmentService struct {
	store  ports.Store
	logger log.Logger
}

func NewAssignmentService(store ports.Store, logger log.Logger) AssignmentService {
	if logger == nil {
		logger = log.NopLogger
	}
	return &assignmentService{
		store:  store,
		logger: logger,
	}
}

func (s *assignmentService) CreateAssignment(ctx context.Context, req dto.CreateAssignmentRequest) (*domain.WorkflowCollectionAssignment, error) {
	if _, err := requireCollection(ctx, s.store, req.WorkflowCollectionID, "workflow_collection_id"); err != nil {
		return nil, err
	}

	a := domain.NewAssignment(req.UserID, req.WorkflowCollectionID)
	if err := s.store.Assignments().Create(ctx, a); err != nil {
		return nil, err
	}

	ctxlog.Logger(ctx, s.logger).Info(logkeys.Message, "assignment created",
		logkeys.AssignmentID, a.ID, logkeys.UserID, a.UserID, logkeys.CollectionID, a.WorkflowCollectionID)
	return a, nil
}

func (s *assignmentService) GetAssignment(ctx context.Context, id uuid.UUID) (*domain.WorkflowCollectionAssignment, error) {
	return s.store.Assignments().GetByID(ctx, id)
}

func (s *assignmentService) ListAssignments(ctx context.Context, userID uuid.UUID, openOnly bool) ([]domain.WorkflowCollectionAssignment, error) {
	if openOnly {
		return s.store.Assignments().ListByUser(ctx, userID, domain.OpenAssignmentStatuses...)
	}
	return s.store.Assignments().ListByUser(ctx, userID)
}

// UpdateStatus lets an administrator move an assignment. Closed assignments
// cannot be reopened; reassigning is a new assignment.
func (s *assignmentService) UpdateStatus(ctx context.Context, id uuid.UUID, req dto.UpdateAssignmentRequest) (*domain.WorkflowCollectionAssignment, error) {
	status := domain.AssignmentStatus(req.Status)
	if !status.Valid() {
		return nil, &domain.StructuralValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", req.Status)}
	}

	var a *domain.WorkflowCollectionAssignment
	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		var err error
		a, err = tx.Assignments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !a.IsOpen() && status != a.Status {
			return &domain.StructuralValidationError{Field: "status", Message: fmt.Sprintf("assignment is already %s", a.Status)}
		}
		if err := tx.Assignments().UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		a.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctxlog.Logger(ctx, s.logger).Info(logkeys.Message, "assignment status changed", logkeys.AssignmentID, id, "status", status)
	return a, nil
}
