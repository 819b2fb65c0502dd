package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/edu-hub/course-hub/internal/application/storage"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE GATEWAY
// ══════════════════════════════════════════════════════════════════════════════

// Gateway implements storage.Gateway over a PostgreSQL connection.
// Atomic hands the callback repositories bound to a single transaction,
// so every read-check-write sequence observes one consistent snapshot
// and commits or rolls back as a unit.
type Gateway struct {
	conn *Connection
}

// NewGateway creates a PostgreSQL-backed storage gateway.
func NewGateway(conn *Connection) *Gateway {
	return &Gateway{conn: conn}
}

// Atomic runs fn inside a read-write transaction.
func (g *Gateway) Atomic(ctx context.Context, fn func(r *storage.Repos) error) error {
	return g.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(reposFor(tx))
	})
}

// View runs fn inside a read-only transaction.
func (g *Gateway) View(ctx context.Context, fn func(r *storage.Repos) error) error {
	return g.conn.WithTx(ctx, ReadOnlyTxOptions(), func(tx pgx.Tx) error {
		return fn(reposFor(tx))
	})
}

func reposFor(q Querier) *storage.Repos {
	return &storage.Repos{
		Users:       NewUserRepository(q),
		Courses:     NewCourseRepository(q),
		Lessons:     NewLessonRepository(q),
		Enrollments: NewEnrollmentRepository(q),
		Homeworks:   NewHomeworkRepository(q),
		CourseMarks: NewCourseMarkRepository(q),
	}
}
