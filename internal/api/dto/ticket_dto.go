package dto

import (
	"time"

	"github.com/helpdesk-go/helpdesk/internal/domain"
)

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	StatusID string `json:"status_id"`
}

// AssignRequest payload. A null assignee clears the assignment.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// RefResponse is a labeled reference row.
type RefResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PriorityResponse adds the SLA level.
type PriorityResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Level int    `json:"level"`
}

// UserRefResponse is the embedded creator/assignee snapshot.
type UserRefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      RefResponse      `json:"status"`
	Priority    PriorityResponse `json:"priority"`
	Category    RefResponse      `json:"category"`
	Creator     *UserRefResponse `json:"creator"`
	Assignee    *UserRefResponse `json:"assignee"`
	SlaDueAt    *time.Time       `json:"sla_due_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty"`
}

// CommentResponse is one thread entry.
type CommentResponse struct {
	ID         string          `json:"id"`
	TicketID   string          `json:"ticket_id"`
	Author     UserRefResponse `json:"author"`
	Content    string          `json:"content"`
	IsInternal bool            `json:"is_internal"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketResponseFrom maps a domain ticket.
func TicketResponseFrom(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      RefResponse{ID: t.Status.ID, Label: t.Status.Label},
		Priority:    PriorityResponse{ID: t.Priority.ID, Label: t.Priority.Label, Level: t.Priority.Level},
		Category:    RefResponse{ID: t.Category.ID, Label: t.Category.Label},
		SlaDueAt:    t.SlaDueAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		DeletedAt:   t.DeletedAt,
	}
	if t.Creator != nil {
		resp.Creator = &UserRefResponse{ID: t.Creator.ID, Name: t.Creator.Name}
	}
	if t.Assignee != nil {
		resp.Assignee = &UserRefResponse{ID: t.Assignee.ID, Name: t.Assignee.Name}
	}
	return resp
}

// TicketListFrom maps a slice of tickets.
func TicketListFrom(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, TicketResponseFrom(&tickets[i]))
	}
	return items
}

// CommentResponseFrom maps a domain comment.
func CommentResponseFrom(c *domain.TicketComment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		Author:     UserRefResponse{ID: c.Author.ID, Name: c.Author.Name},
		Content:    c.Content,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
	}
}

// AttachmentResponseFrom maps a domain attachment.
func AttachmentResponseFrom(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        a.ID,
		FileName:  a.FileName,
		MimeType:  a.MimeType,
		SizeBytes: a.SizeBytes,
		CreatedAt: a.CreatedAt,
	}
}
