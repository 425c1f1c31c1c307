package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-go/helpdesk/internal/api/dto"
	"github.com/helpdesk-go/helpdesk/internal/auth"
	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	"github.com/helpdesk-go/helpdesk/internal/service"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// TicketsHandler manages the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	comments *service.CommentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, comments *service.CommentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, comments: comments}
}

// Create handles POST /tickets. Accepts multipart form data so files can
// ride along with the ticket fields.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	input := service.TicketCreateInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		CategoryID:  c.FormValue("category_id"),
		PriorityID:  c.FormValue("priority_id"),
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, header := range form.File["attachments"] {
			upload, err := readUpload(header.Filename, header.Header.Get("Content-Type"), header)
			if err != nil {
				return err
			}
			input.Attachments = append(input.Attachments, upload)
		}
	}

	ticket, err := h.tickets.Create(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketResponseFrom(ticket)})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}

	comments, err := h.comments.ListForTicket(c.Context(), actor, ticket.ID)
	if err != nil {
		return err
	}
	attachments, err := h.tickets.Attachments(c.Context(), actor, ticket.ID)
	if err != nil {
		return err
	}

	commentItems := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		commentItems = append(commentItems, dto.CommentResponseFrom(&comments[i]))
	}
	attachmentItems := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		attachmentItems = append(attachmentItems, dto.AttachmentResponseFrom(&attachments[i]))
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket":      dto.TicketResponseFrom(ticket),
		"comments":    commentItems,
		"attachments": attachmentItems,
	}})
}

// ListMine handles GET /tickets/mine.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	return h.list(c, h.tickets.ListMine)
}

// ListAssigned handles GET /tickets/assigned.
func (h *TicketsHandler) ListAssigned(c *fiber.Ctx) error {
	return h.list(c, h.tickets.ListAssigned)
}

// ListUnassigned handles GET /tickets/unassigned.
func (h *TicketsHandler) ListUnassigned(c *fiber.Ctx) error {
	return h.list(c, h.tickets.ListUnassigned)
}

// ListAll handles GET /tickets with the filter query parameters.
func (h *TicketsHandler) ListAll(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.ListFiltered(c.Context(), actor, parseTicketFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketListFrom(tickets)})
}

// ChangeStatus handles POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.ChangeStatus(c.Context(), actor, c.Params("id"), req.StatusID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketResponseFrom(ticket)})
}

// Assign handles POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Assign(c.Context(), actor, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketResponseFrom(ticket)})
}

// Pickup handles POST /tickets/:id/pickup.
func (h *TicketsHandler) Pickup(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, warning, err := h.tickets.Pickup(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(withWarning(fiber.Map{"data": dto.TicketResponseFrom(ticket)}, warning))
}

// SoftDelete handles DELETE /tickets/:id.
func (h *TicketsHandler) SoftDelete(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, warning, err := h.tickets.SoftDelete(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(withWarning(fiber.Map{"data": dto.TicketResponseFrom(ticket)}, warning))
}

// Restore handles POST /tickets/:id/restore.
func (h *TicketsHandler) Restore(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, warning, err := h.tickets.Restore(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(withWarning(fiber.Map{"data": dto.TicketResponseFrom(ticket)}, warning))
}

// Purge handles DELETE /tickets/:id/purge.
func (h *TicketsHandler) Purge(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	warning, err := h.tickets.Purge(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(withWarning(fiber.Map{"data": fiber.Map{"purged": warning == ""}}, warning))
}

// ListTrash handles GET /tickets/trash.
func (h *TicketsHandler) ListTrash(c *fiber.Ctx) error {
	return h.list(c, h.tickets.ListTrash)
}

// BulkRestore handles POST /tickets/trash/restore.
func (h *TicketsHandler) BulkRestore(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	count, warning, err := h.tickets.BulkRestore(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(withWarning(fiber.Map{"data": fiber.Map{"restored": count}}, warning))
}

// EmptyTrash handles DELETE /tickets/trash.
func (h *TicketsHandler) EmptyTrash(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	count, warning, err := h.tickets.EmptyTrash(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(withWarning(fiber.Map{"data": fiber.Map{"purged": count}}, warning))
}

// AddComment handles POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.comments.Add(c.Context(), actor, c.Params("id"), req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CommentResponseFrom(comment)})
}

func (h *TicketsHandler) list(c *fiber.Ctx, fetch func(context.Context, *domain.User) ([]domain.Ticket, error)) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := fetch(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketListFrom(tickets)})
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if status := c.Query("status"); status != "" {
		filter.StatusLabel = &status
	}
	if priority := c.Query("priority_id"); priority != "" {
		filter.PriorityID = &priority
	}
	if from := c.Query("created_from"); from != "" {
		if parsed, err := time.Parse("2006-01-02", from); err == nil {
			filter.CreatedFrom = &parsed
		}
	}
	if to := c.Query("created_to"); to != "" {
		if parsed, err := time.Parse("2006-01-02", to); err == nil {
			end := parsed.Add(24*time.Hour - time.Nanosecond)
			filter.CreatedTo = &end
		}
	}
	filter.LateOnly = strings.EqualFold(c.Query("late"), "true") || c.Query("late") == "1"
	return filter
}

func withWarning(body fiber.Map, warning string) fiber.Map {
	if warning != "" {
		body["warning"] = warning
	}
	return body
}

func readUpload(name, mimeType string, header *multipart.FileHeader) (service.AttachmentUpload, error) {
	file, err := header.Open()
	if err != nil {
		return service.AttachmentUpload{}, apperrors.NewValidationError("unreadable attachment", nil)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return service.AttachmentUpload{}, apperrors.NewValidationError("unreadable attachment", nil)
	}
	return service.AttachmentUpload{FileName: name, MimeType: mimeType, Data: data}, nil
}
