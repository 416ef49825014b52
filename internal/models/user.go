package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleVicerrector UserRole = "VICERRECTOR"
	RoleDocente     UserRole = "DOCENTE"
)

// ParseUserRole normalises a raw role string into the closed enumeration.
// Roles are validated once at the boundary and never re-parsed downstream.
func ParseUserRole(raw string) (UserRole, bool) {
	switch UserRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleVicerrector:
		return RoleVicerrector, true
	case RoleDocente:
		return RoleDocente, true
	default:
		return "", false
	}
}

// User represents an authentication identity stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile holds the personal record of a docente or vicerrector,
// referencing the authentication identity it belongs to.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Cedula    *string   `db:"cedula" json:"cedula,omitempty"`
	Apellidos string    `db:"apellidos" json:"apellidos"`
	Nombres   string    `db:"nombres" json:"nombres"`
	Area      *string   `db:"area" json:"area,omitempty"`
	Titulo    *string   `db:"titulo" json:"titulo,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName computes the canonical full name shown in listings.
func (p Profile) DisplayName() string {
	return strings.TrimSpace(p.Apellidos + " " + p.Nombres)
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}
