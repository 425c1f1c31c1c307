package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-go/helpdesk/internal/domain"
)

// RefDataRepository manages the labeled lookup entities: categories,
// priorities and statuses. Deletion is blocked by the database while a
// ticket still references the row; callers see ErrReferenced.
type RefDataRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetCategoryByLabel(ctx context.Context, label string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListPriorities(ctx context.Context) ([]domain.Priority, error)
	GetPriority(ctx context.Context, id string) (*domain.Priority, error)
	GetPriorityByLabel(ctx context.Context, label string) (*domain.Priority, error)
	CreatePriority(ctx context.Context, priority *domain.Priority) error
	DeletePriority(ctx context.Context, id string) error

	ListStatuses(ctx context.Context) ([]domain.Status, error)
	GetStatus(ctx context.Context, id string) (*domain.Status, error)
	GetStatusByLabel(ctx context.Context, label string) (*domain.Status, error)
	CreateStatus(ctx context.Context, status *domain.Status) error
	DeleteStatus(ctx context.Context, id string) error
}

type refDataRepository struct {
	pool *pgxpool.Pool
}

// NewRefDataRepository instantiates repository.
func NewRefDataRepository(pool *pgxpool.Pool) RefDataRepository {
	return &refDataRepository{pool: pool}
}

func (r *refDataRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, label FROM categories ORDER BY label ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Label); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *refDataRepository) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	err := r.pool.QueryRow(ctx, `SELECT id, label FROM categories WHERE id=$1`, id).
		Scan(&category.ID, &category.Label)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *refDataRepository) GetCategoryByLabel(ctx context.Context, label string) (*domain.Category, error) {
	var category domain.Category
	err := r.pool.QueryRow(ctx, `SELECT id, label FROM categories WHERE label=$1`, label).
		Scan(&category.ID, &category.Label)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *refDataRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	return r.pool.QueryRow(ctx, `INSERT INTO categories (label) VALUES ($1) RETURNING id`, category.Label).
		Scan(&category.ID)
}

func (r *refDataRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.deleteRow(ctx, `DELETE FROM categories WHERE id=$1`, id)
}

func (r *refDataRepository) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, label, level FROM priorities ORDER BY level ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Priority
	for rows.Next() {
		var priority domain.Priority
		if err := rows.Scan(&priority.ID, &priority.Label, &priority.Level); err != nil {
			return nil, err
		}
		result = append(result, priority)
	}
	return result, rows.Err()
}

func (r *refDataRepository) GetPriority(ctx context.Context, id string) (*domain.Priority, error) {
	var priority domain.Priority
	err := r.pool.QueryRow(ctx, `SELECT id, label, level FROM priorities WHERE id=$1`, id).
		Scan(&priority.ID, &priority.Label, &priority.Level)
	if err != nil {
		return nil, err
	}
	return &priority, nil
}

func (r *refDataRepository) GetPriorityByLabel(ctx context.Context, label string) (*domain.Priority, error) {
	var priority domain.Priority
	err := r.pool.QueryRow(ctx, `SELECT id, label, level FROM priorities WHERE label=$1`, label).
		Scan(&priority.ID, &priority.Label, &priority.Level)
	if err != nil {
		return nil, err
	}
	return &priority, nil
}

func (r *refDataRepository) CreatePriority(ctx context.Context, priority *domain.Priority) error {
	return r.pool.QueryRow(ctx, `INSERT INTO priorities (label, level) VALUES ($1,$2) RETURNING id`,
		priority.Label, priority.Level).Scan(&priority.ID)
}

func (r *refDataRepository) DeletePriority(ctx context.Context, id string) error {
	return r.deleteRow(ctx, `DELETE FROM priorities WHERE id=$1`, id)
}

// ListStatuses orders by id ascending; the first row doubles as the
// default-status fallback when no configured open label matches.
func (r *refDataRepository) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, label FROM statuses ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var status domain.Status
		if err := rows.Scan(&status.ID, &status.Label); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

func (r *refDataRepository) GetStatus(ctx context.Context, id string) (*domain.Status, error) {
	var status domain.Status
	err := r.pool.QueryRow(ctx, `SELECT id, label FROM statuses WHERE id=$1`, id).
		Scan(&status.ID, &status.Label)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *refDataRepository) GetStatusByLabel(ctx context.Context, label string) (*domain.Status, error) {
	var status domain.Status
	err := r.pool.QueryRow(ctx, `SELECT id, label FROM statuses WHERE label=$1`, label).
		Scan(&status.ID, &status.Label)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *refDataRepository) CreateStatus(ctx context.Context, status *domain.Status) error {
	return r.pool.QueryRow(ctx, `INSERT INTO statuses (label) VALUES ($1) RETURNING id`, status.Label).
		Scan(&status.ID)
}

func (r *refDataRepository) DeleteStatus(ctx context.Context, id string) error {
	return r.deleteRow(ctx, `DELETE FROM statuses WHERE id=$1`, id)
}

func (r *refDataRepository) deleteRow(ctx context.Context, query, id string) error {
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
