package dto

import (
	"time"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// CreateUserRequest payload. An empty password uses the configured initial secret.
type CreateUserRequest struct {
	Name      string      `json:"name" validate:"required,max=120"`
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"omitempty,min=3,max=72"`
	Role      domain.Role `json:"role" validate:"required,oneof=SUPER_ADMIN INTERNAL_SALES PARTNER_ADMIN PARTNER_STAFF"`
	CompanyID string      `json:"company_id"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// ResetPasswordRequest payload.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=3,max=72"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=3,max=72"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CompanyID string      `json:"company_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponse maps a user without its credential.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		CreatedAt: u.CreatedAt,
	}
}

// NewUserList maps a slice of users.
func NewUserList(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
