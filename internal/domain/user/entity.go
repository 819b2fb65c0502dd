// Package user contains the user domain model and the identity
// resolver contract. The engine never authenticates anybody; it trusts
// the caller-supplied identity and only resolves it to a role.
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Role represents a user's platform role.
type Role string

const (
	// RoleAdmin can create and delete courses and enroll students on their behalf.
	RoleAdmin Role = "ADMIN"

	// RoleInstructor teaches courses and assigns homework marks.
	RoleInstructor Role = "INSTRUCTOR"

	// RoleStudent enrolls in courses and submits homework.
	RoleStudent Role = "STUDENT"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.NewDomainError("user", "ParseRole", shared.ErrInvalidArgument, "unknown role: "+s)
	}
	return r, nil
}

// Email represents a user's email address, the external identity key.
type Email string

// IsValid performs a cheap structural check; real validation happened
// at registration, which is outside the engine.
func (e Email) IsValid() bool {
	s := string(e)
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\n")
}

// Normalize returns the lowercase trimmed form used for lookups.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User is a platform account with a role. The engine reads users, it
// never mutates them except through seeding.
type User struct {
	ID           string
	Email        Email
	DisplayName  string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a new user with a generated ID.
func New(email Email, displayName string, role Role) (*User, error) {
	email = email.Normalize()
	if !email.IsValid() {
		return nil, shared.NewDomainError("user", "New", shared.ErrInvalidArgument, "invalid email")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("user", "New", shared.ErrInvalidArgument, "invalid role")
	}

	now := time.Now().UTC()
	return &User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetPassword hashes and stores the password. Used only by seeding;
// token issuance and session handling live outside the engine.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return shared.WrapError("user", "SetPassword", shared.ErrInvalidArgument, "failed to hash password", err)
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsInstructor reports whether the user holds the INSTRUCTOR role.
func (u *User) IsInstructor() bool {
	return u.Role == RoleInstructor
}

// IsStudent reports whether the user holds the STUDENT role.
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}
