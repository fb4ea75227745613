// Package session carries the identity of the caller through
// generation calls. A Session is always passed explicitly.
package session

import (
	"github.com/google/uuid"
)

type Plan string

const (
	PlanFree    Plan = "FREE"
	PlanStarter Plan = "STARTER"
	PlanPro     Plan = "PRO"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanPro:
		return true
	default:
		return false
	}
}

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Plan  Plan   `json:"plan"`
	Role  Role   `json:"role"`
}

type Session struct {
	ID   string `json:"id"`
	User User   `json:"user"`
}

func New(user User) Session {
	if user.Plan == "" {
		user.Plan = PlanFree
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	return Session{
		ID:   uuid.NewString(),
		User: user,
	}
}

// Anonymous returns a guest session on the free plan.
func Anonymous() Session {
	return New(User{})
}

func (s Session) IsAnonymous() bool {
	return s.User.ID == ""
}

func (s Session) IsAdmin() bool {
	return s.User.Role == RoleAdmin
}

// QuotaKey identifies whose allotment a generation counts against.
// Guests are tracked per session.
func (s Session) QuotaKey() string {
	if s.IsAnonymous() {
		return "guest:" + s.ID
	}
	return s.User.ID
}

// Caller returns a short name for logs and traces.
func (s Session) Caller() string {
	if s.IsAnonymous() {
		return "guest"
	}
	return s.User.ID
}
