package service

import (
	"context"
	"errors"
	"strings"

	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// Soft-conflict warnings for reference-data deletion.
const (
	WarnCategoryReferenced = "Category is used by existing tickets and cannot be deleted."
	WarnPriorityReferenced = "Priority is used by existing tickets and cannot be deleted."
	WarnStatusReferenced   = "Status is used by existing tickets and cannot be deleted."
)

// RefDataService is the admin surface for categories, priorities and
// statuses. Reads are open to any authenticated user (the ticket form
// needs them); writes are ADMIN only.
type RefDataService struct {
	refdata repository.RefDataRepository
}

// NewRefDataService constructs the service.
func NewRefDataService(refdata repository.RefDataRepository) *RefDataService {
	return &RefDataService{refdata: refdata}
}

// ListCategories returns all categories ordered by label.
func (s *RefDataService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.refdata.ListCategories(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// ListPriorities returns all priorities ordered by level.
func (s *RefDataService) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	priorities, err := s.refdata.ListPriorities(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return priorities, nil
}

// ListStatuses returns all statuses.
func (s *RefDataService) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	statuses, err := s.refdata.ListStatuses(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return statuses, nil
}

// CreateCategory adds a category. Duplicate labels are rejected.
func (s *RefDataService) CreateCategory(ctx context.Context, actor *domain.User, label string) (*domain.Category, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	label, err := requireLabel(label)
	if err != nil {
		return nil, err
	}
	if _, err := s.refdata.GetCategoryByLabel(ctx, label); err == nil {
		return nil, apperrors.NewConflict("category already exists", map[string]any{"label": label})
	}
	category := &domain.Category{Label: label}
	if err := s.refdata.CreateCategory(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// CreatePriority adds a priority with its SLA level.
func (s *RefDataService) CreatePriority(ctx context.Context, actor *domain.User, label string, level int) (*domain.Priority, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	label, err := requireLabel(label)
	if err != nil {
		return nil, err
	}
	if level < 0 {
		return nil, apperrors.NewValidationError("level must not be negative", map[string]any{"field": "level"})
	}
	if _, err := s.refdata.GetPriorityByLabel(ctx, label); err == nil {
		return nil, apperrors.NewConflict("priority already exists", map[string]any{"label": label})
	}
	priority := &domain.Priority{Label: label, Level: level}
	if err := s.refdata.CreatePriority(ctx, priority); err != nil {
		return nil, apperrors.MapError(err)
	}
	return priority, nil
}

// CreateStatus adds a status.
func (s *RefDataService) CreateStatus(ctx context.Context, actor *domain.User, label string) (*domain.Status, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	label, err := requireLabel(label)
	if err != nil {
		return nil, err
	}
	if _, err := s.refdata.GetStatusByLabel(ctx, label); err == nil {
		return nil, apperrors.NewConflict("status already exists", map[string]any{"label": label})
	}
	status := &domain.Status{Label: label}
	if err := s.refdata.CreateStatus(ctx, status); err != nil {
		return nil, apperrors.MapError(err)
	}
	return status, nil
}

// DeleteCategory removes a category; a referenced one is refused with a
// warning.
func (s *RefDataService) DeleteCategory(ctx context.Context, actor *domain.User, id string) (string, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return "", err
	}
	if _, err := s.refdata.GetCategory(ctx, id); err != nil {
		return "", mapLookupErr(err, "category")
	}
	return mapRefDelete(s.refdata.DeleteCategory(ctx, id), WarnCategoryReferenced)
}

// DeletePriority removes a priority; a referenced one is refused with a
// warning.
func (s *RefDataService) DeletePriority(ctx context.Context, actor *domain.User, id string) (string, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return "", err
	}
	if _, err := s.refdata.GetPriority(ctx, id); err != nil {
		return "", mapLookupErr(err, "priority")
	}
	return mapRefDelete(s.refdata.DeletePriority(ctx, id), WarnPriorityReferenced)
}

// DeleteStatus removes a status; a referenced one is refused with a
// warning.
func (s *RefDataService) DeleteStatus(ctx context.Context, actor *domain.User, id string) (string, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return "", err
	}
	if _, err := s.refdata.GetStatus(ctx, id); err != nil {
		return "", mapLookupErr(err, "status")
	}
	return mapRefDelete(s.refdata.DeleteStatus(ctx, id), WarnStatusReferenced)
}

func mapRefDelete(err error, warning string) (string, error) {
	if err == nil {
		return "", nil
	}
	if errors.Is(err, repository.ErrReferenced) {
		return warning, nil
	}
	return "", apperrors.MapError(err)
}

func requireLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", apperrors.NewValidationError("label is required", map[string]any{"field": "label"})
	}
	return label, nil
}
