package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-go/helpdesk/internal/auth"
	"github.com/helpdesk-go/helpdesk/internal/config"
	"github.com/helpdesk-go/helpdesk/internal/domain"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	apperrors "github.com/helpdesk-go/helpdesk/pkg/util"
)

// WarnUserReferenced is reported when a delete is refused because the
// account still owns tickets or comments.
const WarnUserReferenced = "User still has tickets or comments and cannot be deleted."

// UserService covers registration, login and account administration.
type UserService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// RegisterInput is the self-service signup payload. Role is fixed to
// USER here; elevated roles are granted by an admin afterwards.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UserUpdateInput is the admin account edit payload. Nil fields are
// left unchanged.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
	Locale   *string
	Theme    *string
}

// AuthResult bundles a logged-in user with their access token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewUserService constructs the service.
func NewUserService(cfg config.AuthConfig, users repository.UserRepository, tokens *auth.TokenManager) *UserService {
	return &UserService{users: users, tokens: tokens, cfg: cfg}
}

// Register creates a USER account and logs it in.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email is already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Locale:       "en",
		Theme:        "light",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.issueToken(user)
}

// Login authenticates by email and password. Either failure mode
// reports the same message so the endpoint does not leak which emails
// exist.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issueToken(user)
}

// Get returns one account. ADMIN only.
func (s *UserService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "user")
	}
	return user, nil
}

// List returns every account. ADMIN only.
func (s *UserService) List(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListAssignable returns the accounts tickets may be assigned to.
// MANAGER-and-above, it feeds the assignment dropdown.
func (s *UserService) ListAssignable(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireRole(actor, domain.RoleManager); err != nil {
		return nil, err
	}
	users, err := s.users.ListAssignable(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Update edits an account. ADMIN only. An admin cannot demote their own
// role; locking yourself out of administration is never what was meant.
func (s *UserService) Update(ctx context.Context, actor *domain.User, id string, input UserUpdateInput) (*domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "user")
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.NewValidationError("name must not be empty", map[string]any{"field": "name"})
		}
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, apperrors.NewValidationError("email must not be empty", map[string]any{"field": "email"})
		}
		if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.ID != user.ID {
			return nil, apperrors.NewConflict("email is already registered", map[string]any{"field": "email"})
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		user.Email = email
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"field": "role"})
		}
		if user.ID == actor.ID && *input.Role != domain.RoleAdmin {
			return nil, apperrors.NewValidationError("you cannot change your own role", nil)
		}
		user.Role = *input.Role
	}
	if input.Password != nil {
		if len(*input.Password) < 8 {
			return nil, apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
		}
		hash, err := auth.HashPassword(*input.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		user.PasswordHash = hash
	}
	if input.Locale != nil {
		user.Locale = *input.Locale
	}
	if input.Theme != nil {
		user.Theme = *input.Theme
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Delete removes an account. ADMIN only, never your own. A referenced
// account is refused with a warning rather than an error.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) (string, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return "", err
	}
	if actor.ID == id {
		return "", apperrors.NewValidationError("you cannot delete your own account", nil)
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return "", mapLookupErr(err, "user")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return WarnUserReferenced, nil
		}
		return "", apperrors.MapError(err)
	}
	return "", nil
}

// UpdateProfile lets any authenticated user change their own locale and
// theme.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, locale, theme *string) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, mapLookupErr(err, "user")
	}
	if locale != nil {
		user.Locale = *locale
	}
	if theme != nil {
		user.Theme = *theme
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *UserService) issueToken(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
