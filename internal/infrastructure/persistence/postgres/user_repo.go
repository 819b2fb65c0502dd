package postgres

import (
	"context"
	"fmt"

	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
// It runs over a Querier so the same code serves pool reads and
// transaction-scoped access.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, email, display_name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		u.ID,
		u.Email.String(),
		u.DisplayName,
		u.Role.String(),
		u.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: email %s", shared.ErrAlreadyExists, u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// ResolveByID returns a user by internal ID.
func (r *UserRepository) ResolveByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, email, display_name, role, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(ctx, query, id)
}

// ResolveByEmail returns a user by normalized email.
func (r *UserRepository) ResolveByEmail(ctx context.Context, email user.Email) (*user.User, error) {
	query := `
		SELECT id, email, display_name, role, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(ctx, query, email.Normalize().String())
}

// Update overwrites mutable user fields.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			email = $1,
			display_name = $2,
			role = $3,
			password_hash = $4,
			updated_at = $5
		WHERE id = $6
	`

	result, err := r.q.Exec(ctx, query,
		u.Email.String(),
		u.DisplayName,
		u.Role.String(),
		u.PasswordHash,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, u.ID)
	}

	return nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, args ...interface{}) (*user.User, error) {
	var (
		u     user.User
		email string
		role  string
	)

	err := r.q.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&email,
		&u.DisplayName,
		&role,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("%w: user", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Email = user.Email(email)
	u.Role = user.Role(role)
	return &u, nil
}
