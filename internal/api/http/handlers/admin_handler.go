package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-go/helpdesk/internal/api/dto"
	"github.com/helpdesk-go/helpdesk/internal/auth"
	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/service"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// AdminHandler covers reference-data configuration and account
// administration.
type AdminHandler struct {
	refdata *service.RefDataService
	users   *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(refdata *service.RefDataService, users *service.UserService) *AdminHandler {
	return &AdminHandler{refdata: refdata, users: users}
}

// ListCategories handles GET /config/categories.
func (h *AdminHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.refdata.ListCategories(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.RefResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, dto.RefResponse{ID: category.ID, Label: category.Label})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListPriorities handles GET /config/priorities.
func (h *AdminHandler) ListPriorities(c *fiber.Ctx) error {
	priorities, err := h.refdata.ListPriorities(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.PriorityResponse, 0, len(priorities))
	for _, priority := range priorities {
		items = append(items, dto.PriorityResponse{ID: priority.ID, Label: priority.Label, Level: priority.Level})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListStatuses handles GET /config/statuses.
func (h *AdminHandler) ListStatuses(c *fiber.Ctx) error {
	statuses, err := h.refdata.ListStatuses(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.RefResponse, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, dto.RefResponse{ID: status.ID, Label: status.Label})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory handles POST /admin/config/categories.
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.refdata.CreateCategory(c.Context(), actor, req.Label)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.RefResponse{ID: category.ID, Label: category.Label}})
}

// CreatePriority handles POST /admin/config/priorities.
func (h *AdminHandler) CreatePriority(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority, err := h.refdata.CreatePriority(c.Context(), actor, req.Label, req.Level)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PriorityResponse{ID: priority.ID, Label: priority.Label, Level: priority.Level}})
}

// CreateStatus handles POST /admin/config/statuses.
func (h *AdminHandler) CreateStatus(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, err := h.refdata.CreateStatus(c.Context(), actor, req.Label)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.RefResponse{ID: status.ID, Label: status.Label}})
}

// DeleteCategory handles DELETE /admin/config/categories/:id.
func (h *AdminHandler) DeleteCategory(c *fiber.Ctx) error {
	return h.deleteRef(c, h.refdata.DeleteCategory)
}

// DeletePriority handles DELETE /admin/config/priorities/:id.
func (h *AdminHandler) DeletePriority(c *fiber.Ctx) error {
	return h.deleteRef(c, h.refdata.DeletePriority)
}

// DeleteStatus handles DELETE /admin/config/statuses/:id.
func (h *AdminHandler) DeleteStatus(c *fiber.Ctx) error {
	return h.deleteRef(c, h.refdata.DeleteStatus)
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	users, err := h.users.List(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.UserResponseFrom(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAssignable handles GET /users/assignable.
func (h *AdminHandler) ListAssignable(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	users, err := h.users.ListAssignable(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.UserRefResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.UserRefResponse{ID: users[i].ID, Name: users[i].Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateUser handles PATCH /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.Update(c.Context(), actor, c.Params("id"), service.UserUpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Locale:   req.Locale,
		Theme:    req.Theme,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UserResponseFrom(user)})
}

// DeleteUser handles DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	warning, err := h.users.Delete(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(withWarning(fiber.Map{"data": fiber.Map{"deleted": warning == ""}}, warning))
}

func (h *AdminHandler) deleteRef(c *fiber.Ctx, remove func(context.Context, *domain.User, string) (string, error)) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	warning, err := remove(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(withWarning(fiber.Map{"data": fiber.Map{"deleted": warning == ""}}, warning))
}
