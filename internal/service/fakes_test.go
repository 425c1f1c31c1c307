package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-go/helpdesk/internal/config"
	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/events"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

func apperrorsIsCode(err error, code string) bool {
	return apperrors.IsCode(err, code)
}

// testLifecycleConfig mirrors the default deployment configuration.
func testLifecycleConfig() config.LifecycleConfig {
	return config.LifecycleConfig{
		SLAHoursByLevel:      map[int]int{1: 4, 2: 8, 3: 24, 4: 72},
		DefaultSLAHours:      48,
		OpenLabels:           []string{"Ouvert", "Open"},
		InProgressLabels:     []string{"En cours", "In progress"},
		ResolvedLabels:       []string{"Résolu", "Resolved"},
		ClosedLabels:         []string{"Fermé", "Closed"},
		UrgentPriorityLabel:  "Urgent",
		IncomingWindowDays:   7,
		StatsCacheTTLSeconds: 0,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
	now     func() time.Time
}

func newFakeTicketRepo(now func() time.Time) *fakeTicketRepo {
	if now == nil {
		now = time.Now
	}
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}, now: now}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.now()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Touch(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.now()
	return nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticketID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, ticketID)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListByCreator(_ context.Context, userID string) ([]domain.Ticket, error) {
	return r.collect(func(t *domain.Ticket) bool {
		return !t.IsTrashed() && t.CreatedBy(userID)
	}), nil
}

func (r *fakeTicketRepo) ListAssignedTo(_ context.Context, userID string) ([]domain.Ticket, error) {
	return r.collect(func(t *domain.Ticket) bool {
		return !t.IsTrashed() && t.AssignedTo(userID)
	}), nil
}

func (r *fakeTicketRepo) ListUnassigned(_ context.Context) ([]domain.Ticket, error) {
	return r.collect(func(t *domain.Ticket) bool {
		return !t.IsTrashed() && !t.IsAssigned()
	}), nil
}

func (r *fakeTicketRepo) ListAll(_ context.Context, limit int) ([]domain.Ticket, error) {
	all := r.collect(func(t *domain.Ticket) bool { return !t.IsTrashed() })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeTicketRepo) ListFiltered(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	done := domain.NewLabelSet(filter.DoneLabels...)
	return r.collect(func(t *domain.Ticket) bool {
		if t.IsTrashed() {
			return false
		}
		if filter.StatusLabel != nil && t.Status.Label != *filter.StatusLabel {
			return false
		}
		if filter.PriorityID != nil && t.Priority.ID != *filter.PriorityID {
			return false
		}
		if filter.CreatedFrom != nil && t.CreatedAt.Before(*filter.CreatedFrom) {
			return false
		}
		if filter.CreatedTo != nil && t.CreatedAt.After(*filter.CreatedTo) {
			return false
		}
		if filter.LateOnly && !t.IsLate(r.now(), done) {
			return false
		}
		return true
	}), nil
}

func (r *fakeTicketRepo) ListActive(_ context.Context, window repository.Window) ([]domain.Ticket, error) {
	return r.collect(func(t *domain.Ticket) bool {
		return !t.IsTrashed() && window.Contains(t.CreatedAt)
	}), nil
}

func (r *fakeTicketRepo) CountCreatedSince(_ context.Context, since time.Time) (int, error) {
	return len(r.collect(func(t *domain.Ticket) bool {
		return !t.IsTrashed() && !t.CreatedAt.Before(since)
	})), nil
}

func (r *fakeTicketRepo) ListDeletedByCreator(_ context.Context, userID string) ([]domain.Ticket, error) {
	return r.collect(func(t *domain.Ticket) bool {
		return t.IsTrashed() && t.CreatedBy(userID)
	}), nil
}

func (r *fakeTicketRepo) ListDeletedAll(_ context.Context) ([]domain.Ticket, error) {
	return r.collect(func(t *domain.Ticket) bool { return t.IsTrashed() }), nil
}

func (r *fakeTicketRepo) collect(keep func(*domain.Ticket) bool) []domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if keep(ticket) {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	seq      int
	comments []domain.TicketComment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	comment.ID = fmt.Sprintf("comment-%d", r.seq)
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketComment
	for _, comment := range r.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if comment.IsInternal && !includeInternal {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

func (r *fakeCommentRepo) DeleteByTicket(_ context.Context, ticketID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.TicketComment
	removed := 0
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			removed++
			continue
		}
		kept = append(kept, comment)
	}
	r.comments = kept
	return removed, nil
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	seq         int
	attachments []domain.Attachment
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	attachment.ID = fmt.Sprintf("attachment-%d", r.seq)
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now()
	}
	r.attachments = append(r.attachments, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Attachment
	for _, attachment := range r.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, attachment)
		}
	}
	return result, nil
}

func (r *fakeAttachmentRepo) DeleteByTicket(_ context.Context, ticketID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.Attachment
	removed := 0
	for _, attachment := range r.attachments {
		if attachment.TicketID == ticketID {
			removed++
			continue
		}
		kept = append(kept, attachment)
	}
	r.attachments = kept
	return removed, nil
}

type fakeRefDataRepo struct {
	categories []domain.Category
	priorities []domain.Priority
	statuses   []domain.Status
	deleteErr  error
}

// newFakeRefDataRepo seeds the default reference data with predictable
// ids.
func newFakeRefDataRepo() *fakeRefDataRepo {
	return &fakeRefDataRepo{
		categories: []domain.Category{
			{ID: "cat-hardware", Label: "Hardware"},
			{ID: "cat-software", Label: "Software"},
			{ID: "cat-network", Label: "Network"},
		},
		priorities: []domain.Priority{
			{ID: "prio-1", Label: "P1 - Urgent", Level: 1},
			{ID: "prio-2", Label: "P2 - High", Level: 2},
			{ID: "prio-3", Label: "P3 - Medium", Level: 3},
			{ID: "prio-4", Label: "P4 - Low", Level: 4},
		},
		statuses: []domain.Status{
			{ID: "status-open", Label: "Ouvert"},
			{ID: "status-progress", Label: "En cours"},
			{ID: "status-resolved", Label: "Résolu"},
			{ID: "status-closed", Label: "Fermé"},
		},
	}
}

func (r *fakeRefDataRepo) ListCategories(context.Context) ([]domain.Category, error) {
	return r.categories, nil
}

func (r *fakeRefDataRepo) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	for i := range r.categories {
		if r.categories[i].ID == id {
			return &r.categories[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefDataRepo) GetCategoryByLabel(_ context.Context, label string) (*domain.Category, error) {
	for i := range r.categories {
		if r.categories[i].Label == label {
			return &r.categories[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefDataRepo) CreateCategory(_ context.Context, category *domain.Category) error {
	category.ID = fmt.Sprintf("cat-%d", len(r.categories)+1)
	r.categories = append(r.categories, *category)
	return nil
}

func (r *fakeRefDataRepo) DeleteCategory(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i := range r.categories {
		if r.categories[i].ID == id {
			r.categories = append(r.categories[:i], r.categories[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeRefDataRepo) ListPriorities(context.Context) ([]domain.Priority, error) {
	return r.priorities, nil
}

func (r *fakeRefDataRepo) GetPriority(_ context.Context, id string) (*domain.Priority, error) {
	for i := range r.priorities {
		if r.priorities[i].ID == id {
			return &r.priorities[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefDataRepo) GetPriorityByLabel(_ context.Context, label string) (*domain.Priority, error) {
	for i := range r.priorities {
		if r.priorities[i].Label == label {
			return &r.priorities[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefDataRepo) CreatePriority(_ context.Context, priority *domain.Priority) error {
	priority.ID = fmt.Sprintf("prio-%d", len(r.priorities)+1)
	r.priorities = append(r.priorities, *priority)
	return nil
}

func (r *fakeRefDataRepo) DeletePriority(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i := range r.priorities {
		if r.priorities[i].ID == id {
			r.priorities = append(r.priorities[:i], r.priorities[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeRefDataRepo) ListStatuses(context.Context) ([]domain.Status, error) {
	return r.statuses, nil
}

func (r *fakeRefDataRepo) GetStatus(_ context.Context, id string) (*domain.Status, error) {
	for i := range r.statuses {
		if r.statuses[i].ID == id {
			return &r.statuses[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefDataRepo) GetStatusByLabel(_ context.Context, label string) (*domain.Status, error) {
	for i := range r.statuses {
		if r.statuses[i].Label == label {
			return &r.statuses[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefDataRepo) CreateStatus(_ context.Context, status *domain.Status) error {
	status.ID = fmt.Sprintf("status-%d", len(r.statuses)+1)
	r.statuses = append(r.statuses, *status)
	return nil
}

func (r *fakeRefDataRepo) DeleteStatus(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i := range r.statuses {
		if r.statuses[i].ID == id {
			r.statuses = append(r.statuses[:i], r.statuses[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeUserRepo struct {
	users     map[string]*domain.User
	deleteErr error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]*domain.User{}}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(context.Context) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		result = append(result, *user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeUserRepo) ListAssignable(ctx context.Context) ([]domain.User, error) {
	all, _ := r.List(ctx)
	var result []domain.User
	for _, user := range all {
		if user.Role.Assignable() {
			result = append(result, user)
		}
	}
	return result, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

type fakeFileStore struct {
	mu      sync.Mutex
	seq     int
	stored  map[string][]byte
	deleted []string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{stored: map[string][]byte{}}
}

func (s *fakeFileStore) Store(data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	path := fmt.Sprintf("file-%d", s.seq)
	s.stored[path] = data
	return path, nil
}

func (s *fakeFileStore) Delete(relativePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, relativePath)
	delete(s.stored, relativePath)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) typesSeen() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		types = append(types, event.Type)
	}
	return types
}
