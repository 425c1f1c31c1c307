package service

import (
	"context"
	"strings"

	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/events"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// CommentService handles the per-ticket comment thread. Internal notes
// are a TECH-and-above capability both on write and on read.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    *TicketService
	ticketRepo repository.TicketRepository
	dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(comments repository.CommentRepository, ticketRepo repository.TicketRepository, tickets *TicketService, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{
		comments:   comments,
		tickets:    tickets,
		ticketRepo: ticketRepo,
		dispatcher: dispatcher,
	}
}

// Add appends a comment to a ticket the author can access. A trashed
// ticket does not accept comments. Requesting an internal note without
// the required role silently downgrades to a public comment.
func (s *CommentService) Add(ctx context.Context, author *domain.User, ticketID, content string, internal bool) (*domain.TicketComment, error) {
	if author == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", nil)
	}

	ticket, err := s.tickets.mutableTicket(ctx, author, ticketID)
	if err != nil {
		return nil, err
	}

	if !author.Role.AtLeast(domain.RoleTech) {
		internal = false
	}

	comment := &domain.TicketComment{
		TicketID:   ticket.ID,
		Author:     domain.UserRef{ID: author.ID, Name: author.Name},
		Content:    content,
		IsInternal: internal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	// New activity bumps the ticket's updatedAt so activity sorts and
	// resolution clocks see it.
	if err := s.ticketRepo.Touch(ctx, ticket.ID); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.tickets.publish(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		ActorID:  author.ID,
		Payload: events.TicketCommentAddedPayload{
			CommentID:      comment.ID,
			IsInternal:     comment.IsInternal,
			ContentPreview: preview(content, 120),
		},
	})
	return comment, nil
}

// ListForTicket returns the thread visible to the viewer, oldest first.
func (s *CommentService) ListForTicket(ctx context.Context, viewer *domain.User, ticketID string) ([]domain.TicketComment, error) {
	if _, err := s.tickets.Get(ctx, viewer, ticketID); err != nil {
		return nil, err
	}
	includeInternal := viewer.Role.AtLeast(domain.RoleTech)
	comments, err := s.comments.ListByTicket(ctx, ticketID, includeInternal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

func preview(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}
