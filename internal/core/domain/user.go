package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleOfficer = "officer"
)

// User models an authenticated staff actor. Officers belong to one
// institution; admins operate across institutions.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	PasswordHash  string    `json:"-"`
	Role          string    `json:"role"`
	InstitutionID string    `json:"institution_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
