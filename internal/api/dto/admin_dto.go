package dto

import (
	"time"

	"github.com/helpdesk-go/helpdesk/internal/domain"
)

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Label string `json:"label"`
}

// CreatePriorityRequest payload.
type CreatePriorityRequest struct {
	Label string `json:"label"`
	Level int    `json:"level"`
}

// CreateStatusRequest payload.
type CreateStatusRequest struct {
	Label string `json:"label"`
}

// KbArticleRequest is the create/update article payload.
type KbArticleRequest struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	CategoryID  *string `json:"category_id"`
	IsPublished bool    `json:"is_published"`
}

// KbArticleResponse representation.
type KbArticleResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	IsPublished bool            `json:"is_published"`
	Author      UserRefResponse `json:"author"`
	Category    *RefResponse    `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// KbArticleResponseFrom maps a domain article.
func KbArticleResponseFrom(a *domain.KbArticle) KbArticleResponse {
	resp := KbArticleResponse{
		ID:          a.ID,
		Title:       a.Title,
		Content:     a.Content,
		IsPublished: a.IsPublished,
		Author:      UserRefResponse{ID: a.Author.ID, Name: a.Author.Name},
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.Category != nil {
		resp.Category = &RefResponse{ID: a.Category.ID, Label: a.Category.Label}
	}
	return resp
}
