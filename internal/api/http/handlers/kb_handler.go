package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-go/helpdesk/internal/api/dto"
	"github.com/helpdesk-go/helpdesk/internal/auth"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	"github.com/helpdesk-go/helpdesk/internal/service"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// KbHandler serves the knowledge-base endpoints.
type KbHandler struct {
	articles *service.KbService
}

// NewKbHandler constructs handler.
func NewKbHandler(articles *service.KbService) *KbHandler {
	return &KbHandler{articles: articles}
}

// Search handles GET /kb/articles.
func (h *KbHandler) Search(c *fiber.Ctx) error {
	viewer, _ := auth.UserFromContext(c)

	search := repository.KbSearch{Keyword: c.Query("q")}
	if categoryID := c.Query("category_id"); categoryID != "" {
		search.CategoryID = &categoryID
	}
	if c.Query("published") == "true" {
		search.PublishedOnly = true
	}

	articles, err := h.articles.Search(c.Context(), viewer, search)
	if err != nil {
		return err
	}
	items := make([]dto.KbArticleResponse, 0, len(articles))
	for i := range articles {
		items = append(items, dto.KbArticleResponseFrom(&articles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /kb/articles/:id.
func (h *KbHandler) Get(c *fiber.Ctx) error {
	viewer, _ := auth.UserFromContext(c)
	article, err := h.articles.Get(c.Context(), viewer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.KbArticleResponseFrom(article)})
}

// Create handles POST /kb/articles.
func (h *KbHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.KbArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	article, err := h.articles.Create(c.Context(), actor, service.KbArticleInput{
		Title:       req.Title,
		Content:     req.Content,
		CategoryID:  req.CategoryID,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.KbArticleResponseFrom(article)})
}

// Update handles PUT /kb/articles/:id.
func (h *KbHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.KbArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	article, err := h.articles.Update(c.Context(), actor, c.Params("id"), service.KbArticleInput{
		Title:       req.Title,
		Content:     req.Content,
		CategoryID:  req.CategoryID,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.KbArticleResponseFrom(article)})
}

// Delete handles DELETE /kb/articles/:id.
func (h *KbHandler) Delete(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.articles.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}
