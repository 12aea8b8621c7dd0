package dto

import "github.com/inkwell/inkwell/internal/model"

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// SessionResponse carries an account and its freshly issued token.
type SessionResponse struct {
	Account model.AccountView `json:"account"`
	Token   model.IssuedToken `json:"token"`
}

// UpdateProfileRequest is the body of PUT /api/v1/users/profile.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
}
