package domain

import "errors"

// Actor is the resolved identity behind a request.
type Actor struct {
	OrganizationID string
	UserID         string
	Role           Role
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin can run closings, manage period locks and the chart of accounts
	RoleAdmin Role = "admin"

	// RoleAccountant can draft, post and reverse journal entries
	RoleAccountant Role = "accountant"

	// RoleViewer can only read reports and listings
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleAccountant: true,
	RoleViewer:     true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanWriteJournal checks if the role can mutate journal entries
func (r Role) CanWriteJournal() bool {
	return r == RoleAdmin || r == RoleAccountant
}

// CanManageBooks checks if the role can change directories, locks and closings
func (r Role) CanManageBooks() bool {
	return r == RoleAdmin
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

// Validate checks that the actor is scoped to an organization.
func (a Actor) Validate() error {
	if a.OrganizationID == "" {
		return ErrUnauthorized
	}
	return nil
}
