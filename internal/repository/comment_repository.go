package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-go/helpdesk/internal/domain"
)

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.TicketComment) error
	// ListByTicket returns comments ordered by createdAt ascending.
	// Internal comments are included only when includeInternal is set.
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error)
	// DeleteByTicket removes every comment of the ticket and returns the
	// number of rows removed.
	DeleteByTicket(ctx context.Context, ticketID string) (int, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.TicketComment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, content, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.Author.ID,
		comment.Content,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	query := `
        SELECT tc.id, tc.ticket_id, u.id, u.name, tc.content, tc.is_internal, tc.created_at
        FROM ticket_comments tc
        JOIN users u ON u.id = tc.author_id
        WHERE tc.ticket_id=$1`
	if !includeInternal {
		query += ` AND tc.is_internal = FALSE`
	}
	query += ` ORDER BY tc.created_at ASC`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

func (r *commentRepository) DeleteByTicket(ctx context.Context, ticketID string) (int, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_comments WHERE ticket_id=$1`, ticketID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func scanComments(rows pgx.Rows) ([]domain.TicketComment, error) {
	var result []domain.TicketComment
	for rows.Next() {
		var comment domain.TicketComment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.Author.ID,
			&comment.Author.Name,
			&comment.Content,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
