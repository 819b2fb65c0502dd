package user

import (
	"context"
)

// Resolver resolves a caller-supplied identity to a user with a role.
// This is the only identity contract the engine depends on.
type Resolver interface {
	// ResolveByID returns the user for an internal ID.
	// Returns shared.ErrNotFound if no such user exists.
	ResolveByID(ctx context.Context, id string) (*User, error)

	// ResolveByEmail returns the user for a (normalized) email.
	// Returns shared.ErrNotFound if no such user exists.
	ResolveByEmail(ctx context.Context, email Email) (*User, error)
}

// Repository defines storage operations for users.
// Implementations live in infrastructure/persistence.
type Repository interface {
	Resolver

	// Create stores a new user.
	// Returns shared.ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, u *User) error

	// Update overwrites mutable user fields.
	// Returns shared.ErrNotFound if the user does not exist.
	Update(ctx context.Context, u *User) error
}
