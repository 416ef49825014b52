package dto

import "github.com/noah-isme/doc-review-api/internal/models"

// CreateUserRequest provisions a new identity with its profile in one call.
type CreateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	Role      string  `json:"role" validate:"required"`
	Cedula    *string `json:"cedula,omitempty"`
	Apellidos string  `json:"apellidos" validate:"required"`
	Nombres   string  `json:"nombres" validate:"required"`
	Area      *string `json:"area,omitempty"`
	Titulo    *string `json:"titulo,omitempty"`
}

// UserView joins identity and profile fields for listings.
type UserView struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	Active    bool            `json:"active"`
	FullName  string          `json:"full_name"`
	Cedula    *string         `json:"cedula,omitempty"`
	Area      *string         `json:"area,omitempty"`
	Titulo    *string         `json:"titulo,omitempty"`
}

// ListUsersQuery narrows the user listing.
type ListUsersQuery struct {
	Role     string `form:"role"`
	Active   *bool  `form:"active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
