package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-go/helpdesk/internal/config"
	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/events"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	"github.com/helpdesk-go/helpdesk/internal/storage"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// Soft-conflict warnings. These are reported alongside a successful
// response: the operation is an idempotent no-op, not a failure.
const (
	WarnAlreadyAssigned    = "Ticket is already assigned."
	WarnAlreadyTrashed     = "Ticket is already in the trash."
	WarnNotTrashed         = "Ticket is not in the trash."
	WarnNotTrashedForPurge = "Ticket must be in the trash first."
	WarnTrashEmpty         = "Trash is already empty."
)

// TicketService coordinates the ticket lifecycle: creation with SLA
// computation, status and assignment transitions, and the trash state
// machine (soft-delete, restore, purge).
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	refdata     repository.RefDataRepository
	users       repository.UserRepository
	files       storage.FileStore
	dispatcher  events.Dispatcher
	cfg         config.LifecycleConfig
	clock       func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	RefDataRepo    repository.RefDataRepository
	UserRepo       repository.UserRepository
	FileStore      storage.FileStore
	Dispatcher     events.Dispatcher
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// AttachmentUpload carries a submitted file.
type AttachmentUpload struct {
	FileName string
	MimeType string
	Data     []byte
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	CategoryID  string
	PriorityID  string
	Attachments []AttachmentUpload
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.LifecycleConfig, deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		refdata:     deps.RefDataRepo,
		users:       deps.UserRepo,
		files:       deps.FileStore,
		dispatcher:  deps.Dispatcher,
		cfg:         cfg,
		clock:       clock,
	}
}

// CanAccess is the capability predicate every read and mutation entry
// point consults: TECH-and-above see everything, others only tickets
// they created or are assigned to.
func (s *TicketService) CanAccess(ticket *domain.Ticket, viewer *domain.User) bool {
	if viewer == nil {
		return false
	}
	if viewer.Role.AtLeast(domain.RoleTech) {
		return true
	}
	return ticket.CreatedBy(viewer.ID) || ticket.AssignedTo(viewer.ID)
}

// Create persists a new ticket with the default open status and an SLA
// due date derived from the priority level.
func (s *TicketService) Create(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if creator == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if input.CategoryID == "" || input.PriorityID == "" {
		return nil, apperrors.NewValidationError("category and priority are required", nil)
	}

	category, err := s.refdata.GetCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, mapLookupErr(err, "category")
	}
	priority, err := s.refdata.GetPriority(ctx, input.PriorityID)
	if err != nil {
		return nil, mapLookupErr(err, "priority")
	}
	status, err := s.defaultOpenStatus(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      *status,
		Priority:    *priority,
		Category:    *category,
		Creator:     &domain.UserRef{ID: creator.ID, Name: creator.Name},
		SlaDueAt:    s.slaDueAt(priority, now),
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, upload := range input.Attachments {
		if err := s.storeAttachment(ctx, ticket.ID, upload); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  creator.ID,
		Payload: events.TicketCreatedPayload{
			Title:         ticket.Title,
			CategoryLabel: category.Label,
			PriorityLabel: priority.Label,
		},
	})
	return ticket, nil
}

// Get fetches a ticket, enforcing the access predicate. Trashed tickets
// remain viewable by those allowed to see them; mutations are gated
// separately.
func (s *TicketService) Get(ctx context.Context, viewer *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.CanAccess(ticket, viewer) {
		return nil, apperrors.NewForbidden("you cannot access this ticket")
	}
	return ticket, nil
}

// Attachments lists a ticket's attachments for an authorized viewer.
func (s *TicketService) Attachments(ctx context.Context, viewer *domain.User, ticketID string) ([]domain.Attachment, error) {
	if _, err := s.Get(ctx, viewer, ticketID); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

// ChangeStatus sets a new status. TECH-and-above only, never on a
// trashed ticket.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, ticketID, statusID string) (*domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleTech); err != nil {
		return nil, err
	}
	ticket, err := s.mutableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	status, err := s.refdata.GetStatus(ctx, statusID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("please choose a valid status", nil)
		}
		return nil, apperrors.MapError(err)
	}

	oldLabel := ticket.Status.Label
	ticket.Status = *status
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldLabel,
			NewStatus: status.Label,
		},
	})
	return ticket, nil
}

// Assign sets or clears the assignee. MANAGER-and-above; the assignee
// must hold an assignable role (TECH or MANAGER).
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleManager); err != nil {
		return nil, err
	}
	ticket, err := s.mutableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	var assigneeRef *domain.UserRef
	if assigneeID != nil && *assigneeID != "" {
		assignee, err := s.users.GetByID(ctx, *assigneeID)
		if err != nil {
			return nil, mapLookupErr(err, "user")
		}
		if !assignee.Role.Assignable() {
			return nil, apperrors.NewValidationError("selected user is not assignable", nil)
		}
		assigneeRef = &domain.UserRef{ID: assignee.ID, Name: assignee.Name}
	}

	ticket.Assignee = assigneeRef
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	var eventAssignee *string
	if assigneeRef != nil {
		eventAssignee = &assigneeRef.ID
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{AssigneeID: eventAssignee},
	})
	return ticket, nil
}

// Pickup is the self-assignment shortcut for TECH-and-above. An already
// assigned ticket is left untouched and reported as a warning. On
// success the status moves to the first existing in-progress label.
func (s *TicketService) Pickup(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, string, error) {
	if err := requireRole(actor, domain.RoleTech); err != nil {
		return nil, "", err
	}
	ticket, err := s.mutableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, "", err
	}
	if ticket.IsAssigned() {
		return ticket, WarnAlreadyAssigned, nil
	}

	ticket.Assignee = &domain.UserRef{ID: actor.ID, Name: actor.Name}
	if status := s.findStatusByLabels(ctx, s.cfg.InProgressLabels); status != nil {
		ticket.Status = *status
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, "", apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{AssigneeID: &actor.ID, SelfAssign: true},
	})
	return ticket, "", nil
}

// SoftDelete moves the ticket to the trash. Only an admin or the
// ticket's creator may do this.
func (s *TicketService) SoftDelete(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, string, error) {
	ticket, err := s.trashableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, "", err
	}
	if ticket.IsTrashed() {
		return ticket, WarnAlreadyTrashed, nil
	}

	now := s.clock()
	ticket.DeletedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, "", apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{Type: events.EventTicketTrashed, TicketID: ticket.ID, ActorID: actor.ID})
	return ticket, "", nil
}

// Restore brings a trashed ticket back.
func (s *TicketService) Restore(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, string, error) {
	ticket, err := s.trashableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, "", err
	}
	if !ticket.IsTrashed() {
		return ticket, WarnNotTrashed, nil
	}

	ticket.DeletedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, "", apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{Type: events.EventTicketRestored, TicketID: ticket.ID, ActorID: actor.ID})
	return ticket, "", nil
}

// Purge permanently removes a trashed ticket together with its comments
// and attachments. Attachment file removal is best-effort: the row
// deletion is authoritative regardless of filesystem state.
func (s *TicketService) Purge(ctx context.Context, actor *domain.User, ticketID string) (string, error) {
	ticket, err := s.trashableTicket(ctx, actor, ticketID)
	if err != nil {
		return "", err
	}
	if !ticket.IsTrashed() {
		return WarnNotTrashedForPurge, nil
	}
	return "", s.purge(ctx, actor, ticket)
}

// BulkRestore restores every trashed ticket visible to the actor:
// everything for admins, own tickets otherwise.
func (s *TicketService) BulkRestore(ctx context.Context, actor *domain.User) (int, string, error) {
	tickets, err := s.trashedVisibleTo(ctx, actor)
	if err != nil {
		return 0, "", err
	}
	if len(tickets) == 0 {
		return 0, WarnTrashEmpty, nil
	}
	for i := range tickets {
		tickets[i].DeletedAt = nil
		if err := s.tickets.Update(ctx, &tickets[i]); err != nil {
			return i, "", apperrors.MapError(err)
		}
		s.publish(ctx, events.Event{Type: events.EventTicketRestored, TicketID: tickets[i].ID, ActorID: actor.ID})
	}
	return len(tickets), "", nil
}

// EmptyTrash purges every trashed ticket visible to the actor.
func (s *TicketService) EmptyTrash(ctx context.Context, actor *domain.User) (int, string, error) {
	tickets, err := s.trashedVisibleTo(ctx, actor)
	if err != nil {
		return 0, "", err
	}
	if len(tickets) == 0 {
		return 0, WarnTrashEmpty, nil
	}
	for i := range tickets {
		if err := s.purge(ctx, actor, &tickets[i]); err != nil {
			return i, "", err
		}
	}
	return len(tickets), "", nil
}

// ListMine returns the actor's active tickets.
func (s *TicketService) ListMine(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	return s.mapList(s.tickets.ListByCreator(ctx, actor.ID))
}

// ListAssigned returns active tickets assigned to the actor.
func (s *TicketService) ListAssigned(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	return s.mapList(s.tickets.ListAssignedTo(ctx, actor.ID))
}

// ListUnassigned returns active unassigned tickets. TECH-and-above.
func (s *TicketService) ListUnassigned(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleTech); err != nil {
		return nil, err
	}
	return s.mapList(s.tickets.ListUnassigned(ctx))
}

// ListFiltered is the all-tickets list view. TECH-and-above. The late
// filter reuses the configured done label sets.
func (s *TicketService) ListFiltered(ctx context.Context, actor *domain.User, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := requireRole(actor, domain.RoleTech); err != nil {
		return nil, err
	}
	if filter.LateOnly && len(filter.DoneLabels) == 0 {
		filter.DoneLabels = s.doneLabels().Labels()
	}
	return s.mapList(s.tickets.ListFiltered(ctx, filter))
}

// ListTrash returns the trashed tickets visible to the actor.
func (s *TicketService) ListTrash(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	return s.trashedVisibleTo(ctx, actor)
}

func (s *TicketService) purge(ctx context.Context, actor *domain.User, ticket *domain.Ticket) error {
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	for _, attachment := range attachments {
		// Best-effort: a missing file must not block the purge.
		_ = s.files.Delete(attachment.FilePath)
	}
	attachmentCount, err := s.attachments.DeleteByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	commentCount, err := s.comments.DeleteByTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketPurged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketPurgedPayload{
			AttachmentCount: attachmentCount,
			CommentCount:    commentCount,
		},
	})
	return nil
}

func (s *TicketService) trashedVisibleTo(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role.AtLeast(domain.RoleAdmin) {
		return s.mapList(s.tickets.ListDeletedAll(ctx))
	}
	return s.mapList(s.tickets.ListDeletedByCreator(ctx, actor.ID))
}

// trashableTicket loads the ticket and enforces the trash permission
// rule: admins and the original creator only.
func (s *TicketService) trashableTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(domain.RoleAdmin) && !ticket.CreatedBy(actor.ID) {
		return nil, apperrors.NewForbidden("you cannot delete this ticket")
	}
	return ticket, nil
}

// mutableTicket loads the ticket and applies the stricter not-deleted
// guard used by every in-place mutation.
func (s *TicketService) mutableTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.CanAccess(ticket, actor) {
		return nil, apperrors.NewForbidden("you cannot access this ticket")
	}
	if ticket.IsTrashed() {
		return nil, apperrors.NewForbidden("ticket is in the trash")
	}
	return ticket, nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapLookupErr(err, "ticket")
	}
	return ticket, nil
}

// defaultOpenStatus resolves the status new tickets start in: the first
// configured open label that exists, then the lowest-id status. No
// statuses at all is a configuration error, never a silent default.
func (s *TicketService) defaultOpenStatus(ctx context.Context) (*domain.Status, error) {
	if status := s.findStatusByLabels(ctx, s.cfg.OpenLabels); status != nil {
		return status, nil
	}
	statuses, err := s.refdata.ListStatuses(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(statuses) == 0 {
		return nil, apperrors.NewConfigurationError("no status found; seed statuses in admin settings")
	}
	return &statuses[0], nil
}

func (s *TicketService) findStatusByLabels(ctx context.Context, labels []string) *domain.Status {
	for _, label := range labels {
		status, err := s.refdata.GetStatusByLabel(ctx, label)
		if err == nil {
			return status
		}
	}
	return nil
}

// slaDueAt computes the SLA deadline from the priority level. Levels
// without a configured mapping use the default; a priority with no
// usable level yields no deadline.
func (s *TicketService) slaDueAt(priority *domain.Priority, now time.Time) *time.Time {
	if priority == nil || priority.Level <= 0 {
		return nil
	}
	hours, ok := s.cfg.SLAHoursByLevel[priority.Level]
	if !ok {
		hours = s.cfg.DefaultSLAHours
	}
	due := now.Add(time.Duration(hours) * time.Hour)
	return &due
}

func (s *TicketService) doneLabels() domain.LabelSet {
	return domain.NewLabelSet(s.cfg.ResolvedLabels...).Union(domain.NewLabelSet(s.cfg.ClosedLabels...))
}

func (s *TicketService) storeAttachment(ctx context.Context, ticketID string, upload AttachmentUpload) error {
	path, err := s.files.Store(upload.Data, upload.FileName)
	if err != nil {
		return apperrors.MapError(err)
	}
	attachment := &domain.Attachment{
		TicketID:  ticketID,
		FilePath:  path,
		FileName:  upload.FileName,
		MimeType:  upload.MimeType,
		SizeBytes: int64(len(upload.Data)),
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) mapList(tickets []domain.Ticket, err error) ([]domain.Ticket, error) {
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func requireRole(actor *domain.User, min domain.Role) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Role.AtLeast(min) {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

func mapLookupErr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.MapError(err)
}
