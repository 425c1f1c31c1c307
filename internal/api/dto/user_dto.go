package dto

import (
	"time"

	"github.com/helpdesk-go/helpdesk/internal/domain"
)

// RegisterRequest payload for signup.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the account representation shared by auth and admin
// endpoints.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Locale    string      `json:"locale"`
	Theme     string      `json:"theme"`
	CreatedAt time.Time   `json:"created_at"`
}

// UserUpdateRequest is the admin account edit payload; omitted fields
// are left unchanged.
type UserUpdateRequest struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Role     *domain.Role `json:"role"`
	Locale   *string      `json:"locale"`
	Theme    *string      `json:"theme"`
}

// ProfileUpdateRequest is the self-service preferences payload.
type ProfileUpdateRequest struct {
	Locale *string `json:"locale"`
	Theme  *string `json:"theme"`
}

// UserResponseFrom maps a domain user.
func UserResponseFrom(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Locale:    user.Locale,
		Theme:     user.Theme,
		CreatedAt: user.CreatedAt,
	}
}
