package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketTrashed       EventType = "ticket_trashed"
	EventTicketRestored      EventType = "ticket_restored"
	EventTicketPurged        EventType = "ticket_purged"
	EventReportGenerated     EventType = "report_generated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title         string `json:"title"`
	CategoryLabel string `json:"category_label"`
	PriorityLabel string `json:"priority_label"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
	SelfAssign bool    `json:"self_assign,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID      string `json:"comment_id"`
	IsInternal     bool   `json:"is_internal"`
	ContentPreview string `json:"content_preview"`
}

// TicketPurgedPayload payload.
type TicketPurgedPayload struct {
	AttachmentCount int `json:"attachment_count"`
	CommentCount    int `json:"comment_count"`
}

// ReportGeneratedPayload payload.
type ReportGeneratedPayload struct {
	Period     string `json:"period"`
	NewTickets int    `json:"new_tickets"`
}
