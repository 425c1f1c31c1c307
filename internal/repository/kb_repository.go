package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-go/helpdesk/internal/domain"
)

// KbSearch captures the public article search parameters.
type KbSearch struct {
	Keyword       string
	CategoryID    *string
	PublishedOnly bool
}

// KbRepository persists knowledge-base articles.
type KbRepository interface {
	Create(ctx context.Context, article *domain.KbArticle) error
	Update(ctx context.Context, article *domain.KbArticle) error
	GetByID(ctx context.Context, id string) (*domain.KbArticle, error)
	Search(ctx context.Context, search KbSearch) ([]domain.KbArticle, error)
	Delete(ctx context.Context, id string) error
}

type kbRepository struct {
	pool *pgxpool.Pool
}

// NewKbRepository builds repository.
func NewKbRepository(pool *pgxpool.Pool) KbRepository {
	return &kbRepository{pool: pool}
}

const kbColumns = `
        SELECT k.id, k.title, k.content, k.is_published,
               u.id, u.name,
               c.id, c.label,
               k.created_at, k.updated_at
        FROM kb_articles k
        JOIN users u ON u.id = k.author_id
        LEFT JOIN categories c ON c.id = k.category_id`

func (r *kbRepository) Create(ctx context.Context, article *domain.KbArticle) error {
	const query = `
        INSERT INTO kb_articles (title, content, is_published, author_id, category_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	var categoryID *string
	if article.Category != nil {
		categoryID = &article.Category.ID
	}
	return r.pool.QueryRow(ctx, query,
		article.Title,
		article.Content,
		article.IsPublished,
		article.Author.ID,
		categoryID,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
}

func (r *kbRepository) Update(ctx context.Context, article *domain.KbArticle) error {
	const query = `
        UPDATE kb_articles SET title=$1, content=$2, is_published=$3, category_id=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	var categoryID *string
	if article.Category != nil {
		categoryID = &article.Category.ID
	}
	return r.pool.QueryRow(ctx, query,
		article.Title,
		article.Content,
		article.IsPublished,
		categoryID,
		article.ID,
	).Scan(&article.UpdatedAt)
}

func (r *kbRepository) GetByID(ctx context.Context, id string) (*domain.KbArticle, error) {
	rows, err := r.pool.Query(ctx, kbColumns+` WHERE k.id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &articles[0], nil
}

func (r *kbRepository) Search(ctx context.Context, search KbSearch) ([]domain.KbArticle, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if search.PublishedOnly {
		clauses = append(clauses, "k.is_published = TRUE")
	}
	if keyword := strings.TrimSpace(search.Keyword); keyword != "" {
		args = append(args, "%"+strings.ToLower(keyword)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(k.title) LIKE %s OR LOWER(k.content) LIKE %s)", placeholder, placeholder))
	}
	if search.CategoryID != nil && *search.CategoryID != "" {
		args = append(args, *search.CategoryID)
		clauses = append(clauses, fmt.Sprintf("k.category_id=$%d", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY k.created_at DESC", kbColumns, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

func (r *kbRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM kb_articles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanArticles(rows pgx.Rows) ([]domain.KbArticle, error) {
	var result []domain.KbArticle
	for rows.Next() {
		var (
			article                  domain.KbArticle
			categoryID, categoryName *string
		)
		if err := rows.Scan(
			&article.ID,
			&article.Title,
			&article.Content,
			&article.IsPublished,
			&article.Author.ID,
			&article.Author.Name,
			&categoryID,
			&categoryName,
			&article.CreatedAt,
			&article.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if categoryID != nil {
			article.Category = &domain.Category{ID: *categoryID, Label: deref(categoryName)}
		}
		result = append(result, article)
	}
	return result, rows.Err()
}
