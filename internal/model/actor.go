package model

import "fmt"

// Role is the authorization tier of an authenticated actor.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleReviewer  Role = "reviewer"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleApplicant, RoleReviewer, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Privileged reports whether the role belongs to the reviewer/administrator tier.
func (r Role) Privileged() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// Actor is an already-authenticated identity acting on the system.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
