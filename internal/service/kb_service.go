package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

const (
	kbPublishedCacheKey = "helpdesk:kb:published"
	kbCacheTTL          = 5 * time.Minute
)

// KbService manages knowledge-base articles. TECH-and-above author
// them; everyone reads published ones. The published listing is cached
// in Redis and invalidated on every write.
type KbService struct {
	articles repository.KbRepository
	refdata  repository.RefDataRepository
	cache    *redis.Client
	logger   *zap.Logger
}

// KbArticleInput is the create/update payload.
type KbArticleInput struct {
	Title       string
	Content     string
	CategoryID  *string
	IsPublished bool
}

// NewKbService constructs the service. A nil cache disables caching.
func NewKbService(articles repository.KbRepository, refdata repository.RefDataRepository, cache *redis.Client, logger *zap.Logger) *KbService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KbService{articles: articles, refdata: refdata, cache: cache, logger: logger}
}

// Create authors a new article. TECH-and-above.
func (s *KbService) Create(ctx context.Context, author *domain.User, input KbArticleInput) (*domain.KbArticle, error) {
	if err := requireRole(author, domain.RoleTech); err != nil {
		return nil, err
	}
	article, err := s.buildArticle(ctx, input)
	if err != nil {
		return nil, err
	}
	article.Author = domain.UserRef{ID: author.ID, Name: author.Name}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return article, nil
}

// Update edits an article the actor may edit.
func (s *KbService) Update(ctx context.Context, actor *domain.User, id string, input KbArticleInput) (*domain.KbArticle, error) {
	if err := requireRole(actor, domain.RoleTech); err != nil {
		return nil, err
	}
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "article")
	}
	if !article.EditableBy(actor) {
		return nil, apperrors.NewForbidden("you cannot edit this article")
	}

	updated, err := s.buildArticle(ctx, input)
	if err != nil {
		return nil, err
	}
	article.Title = updated.Title
	article.Content = updated.Content
	article.Category = updated.Category
	article.IsPublished = updated.IsPublished

	if err := s.articles.Update(ctx, article); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return article, nil
}

// Delete removes an article the actor may edit.
func (s *KbService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireRole(actor, domain.RoleTech); err != nil {
		return err
	}
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return mapLookupErr(err, "article")
	}
	if !article.EditableBy(actor) {
		return apperrors.NewForbidden("you cannot delete this article")
	}
	if err := s.articles.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.invalidate(ctx)
	return nil
}

// Get returns one article. Drafts are gated to TECH-and-above.
func (s *KbService) Get(ctx context.Context, viewer *domain.User, id string) (*domain.KbArticle, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "article")
	}
	if !article.IsPublished {
		if err := requireRole(viewer, domain.RoleTech); err != nil {
			return nil, apperrors.NewNotFound("article", nil)
		}
	}
	return article, nil
}

// Search lists articles. Non-TECH viewers only ever see published ones;
// the unfiltered published listing is served from cache.
func (s *KbService) Search(ctx context.Context, viewer *domain.User, search repository.KbSearch) ([]domain.KbArticle, error) {
	if viewer == nil || !viewer.Role.AtLeast(domain.RoleTech) {
		search.PublishedOnly = true
	}

	cacheable := search.PublishedOnly && search.Keyword == "" && search.CategoryID == nil
	if cacheable {
		if cached := s.cachedPublished(ctx); cached != nil {
			return cached, nil
		}
	}

	articles, err := s.articles.Search(ctx, search)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if cacheable {
		s.storePublished(ctx, articles)
	}
	return articles, nil
}

func (s *KbService) buildArticle(ctx context.Context, input KbArticleInput) (*domain.KbArticle, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return nil, apperrors.NewValidationError("title and content are required", nil)
	}

	var category *domain.Category
	if input.CategoryID != nil && *input.CategoryID != "" {
		found, err := s.refdata.GetCategory(ctx, *input.CategoryID)
		if err != nil {
			return nil, mapLookupErr(err, "category")
		}
		category = found
	}

	return &domain.KbArticle{
		Title:       title,
		Content:     content,
		Category:    category,
		IsPublished: input.IsPublished,
	}, nil
}

func (s *KbService) cachedPublished(ctx context.Context) []domain.KbArticle {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, kbPublishedCacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("kb cache read failed", zap.Error(err))
		}
		return nil
	}
	var articles []domain.KbArticle
	if err := json.Unmarshal([]byte(raw), &articles); err != nil {
		return nil
	}
	return articles
}

func (s *KbService) storePublished(ctx context.Context, articles []domain.KbArticle) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(articles)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, kbPublishedCacheKey, raw, kbCacheTTL).Err(); err != nil {
		s.logger.Warn("kb cache write failed", zap.Error(err))
	}
}

func (s *KbService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, kbPublishedCacheKey).Err(); err != nil {
		s.logger.Warn("kb cache invalidation failed", zap.Error(err))
	}
}
