package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-go/helpdesk/internal/domain"
)

// Window bounds a query by creation time, inclusive on both ends. A nil
// bound leaves that side open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// TicketFilter captures the all-tickets list view parameters.
type TicketFilter struct {
	StatusLabel *string
	PriorityID  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// LateOnly keeps tickets past their SLA due date whose status label is
	// outside DoneLabels.
	LateOnly   bool
	DoneLabels []string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	// Touch bumps the ticket's updatedAt without other changes.
	Touch(ctx context.Context, ticketID string) error
	// Delete removes the row outright. Only the purge path calls this.
	Delete(ctx context.Context, ticketID string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByCreator(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListAssignedTo(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListUnassigned(ctx context.Context) ([]domain.Ticket, error)
	ListAll(ctx context.Context, limit int) ([]domain.Ticket, error)
	ListFiltered(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListActive is the statistics working set: every non-trashed ticket
	// created inside the window, reference labels joined.
	ListActive(ctx context.Context, window Window) ([]domain.Ticket, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	ListDeletedByCreator(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListDeletedAll(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// ticketColumns joins the reference snapshot every read path scans.
const ticketColumns = `
        SELECT t.id, t.title, t.description,
               s.id, s.label,
               p.id, p.label, p.level,
               c.id, c.label,
               cr.id, cr.name,
               a.id, a.name,
               t.sla_due_at, t.created_at, t.updated_at, t.deleted_at
        FROM tickets t
        JOIN statuses s ON s.id = t.status_id
        JOIN priorities p ON p.id = t.priority_id
        JOIN categories c ON c.id = t.category_id
        LEFT JOIN users cr ON cr.id = t.creator_id
        LEFT JOIN users a ON a.id = t.assignee_id`

// Trash exclusion lives here once instead of being repeated per query.
const (
	whereActive  = "t.deleted_at IS NULL"
	whereTrashed = "t.deleted_at IS NOT NULL"
)

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status_id, priority_id, category_id, creator_id, assignee_id, sla_due_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	var creatorID, assigneeID *string
	if ticket.Creator != nil {
		creatorID = &ticket.Creator.ID
	}
	if ticket.Assignee != nil {
		assigneeID = &ticket.Assignee.ID
	}
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status.ID,
		ticket.Priority.ID,
		ticket.Category.ID,
		creatorID,
		assigneeID,
		ticket.SlaDueAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status_id=$1, assignee_id=$2, sla_due_at=$3, deleted_at=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	var assigneeID *string
	if ticket.Assignee != nil {
		assigneeID = &ticket.Assignee.ID
	}
	return r.pool.QueryRow(ctx, query,
		ticket.Status.ID,
		assigneeID,
		ticket.SlaDueAt,
		ticket.DeletedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) Touch(ctx context.Context, ticketID string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET updated_at=NOW() WHERE id=$1`, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, ticketID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := ticketColumns + ` WHERE t.id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListByCreator(ctx context.Context, userID string) ([]domain.Ticket, error) {
	query := ticketColumns + ` WHERE t.creator_id=$1 AND ` + whereActive + ` ORDER BY t.created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ticketRepository) ListAssignedTo(ctx context.Context, userID string) ([]domain.Ticket, error) {
	query := ticketColumns + ` WHERE t.assignee_id=$1 AND ` + whereActive + ` ORDER BY t.created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ticketRepository) ListUnassigned(ctx context.Context) ([]domain.Ticket, error) {
	query := ticketColumns + ` WHERE t.assignee_id IS NULL AND ` + whereActive + ` ORDER BY t.created_at DESC`
	return r.list(ctx, query)
}

func (r *ticketRepository) ListAll(ctx context.Context, limit int) ([]domain.Ticket, error) {
	query := ticketColumns + ` WHERE ` + whereActive + ` ORDER BY t.created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return r.list(ctx, query)
}

func (r *ticketRepository) ListFiltered(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{whereActive}
	args := []any{}

	if filter.StatusLabel != nil && *filter.StatusLabel != "" {
		args = append(args, *filter.StatusLabel)
		clauses = append(clauses, fmt.Sprintf("s.label=$%d", len(args)))
	}
	if filter.PriorityID != nil && *filter.PriorityID != "" {
		args = append(args, *filter.PriorityID)
		clauses = append(clauses, fmt.Sprintf("p.id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	if filter.LateOnly {
		clauses = append(clauses, "t.sla_due_at IS NOT NULL AND t.sla_due_at < NOW()")
		if len(filter.DoneLabels) > 0 {
			placeholders := make([]string, len(filter.DoneLabels))
			for i, label := range filter.DoneLabels {
				args = append(args, label)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			clauses = append(clauses, fmt.Sprintf("s.label NOT IN (%s)", strings.Join(placeholders, ",")))
		}
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY t.created_at DESC", ticketColumns, strings.Join(clauses, " AND "))
	return r.list(ctx, query, args...)
}

func (r *ticketRepository) ListActive(ctx context.Context, window Window) ([]domain.Ticket, error) {
	clauses := []string{whereActive}
	args := []any{}
	if window.From != nil {
		args = append(args, *window.From)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if window.To != nil {
		args = append(args, *window.To)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	query := fmt.Sprintf("%s WHERE %s ORDER BY t.created_at ASC", ticketColumns, strings.Join(clauses, " AND "))
	return r.list(ctx, query, args...)
}

func (r *ticketRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets t WHERE t.created_at >= $1 AND ` + whereActive
	var count int
	err := r.pool.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

func (r *ticketRepository) ListDeletedByCreator(ctx context.Context, userID string) ([]domain.Ticket, error) {
	query := ticketColumns + ` WHERE t.creator_id=$1 AND ` + whereTrashed + ` ORDER BY t.deleted_at DESC`
	return r.list(ctx, query, userID)
}

func (r *ticketRepository) ListDeletedAll(ctx context.Context) ([]domain.Ticket, error) {
	query := ticketColumns + ` WHERE ` + whereTrashed + ` ORDER BY t.deleted_at DESC`
	return r.list(ctx, query)
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var (
			ticket                   domain.Ticket
			creatorID, creatorName   *string
			assigneeID, assigneeName *string
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status.ID,
			&ticket.Status.Label,
			&ticket.Priority.ID,
			&ticket.Priority.Label,
			&ticket.Priority.Level,
			&ticket.Category.ID,
			&ticket.Category.Label,
			&creatorID,
			&creatorName,
			&assigneeID,
			&assigneeName,
			&ticket.SlaDueAt,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.DeletedAt,
		); err != nil {
			return nil, err
		}
		if creatorID != nil {
			ticket.Creator = &domain.UserRef{ID: *creatorID, Name: deref(creatorName)}
		}
		if assigneeID != nil {
			ticket.Assignee = &domain.UserRef{ID: *assigneeID, Name: deref(assigneeName)}
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
