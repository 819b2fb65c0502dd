// Package command contains write operations (CQRS - Commands).
// Each command validates its input, runs its read-check-write sequence
// inside one storage.Gateway transaction, and publishes domain events
// only after the transaction has committed.
package command

// Rules holds the configurable business limits the engine enforces.
// They arrive from configuration and are injected into every handler
// constructor; no limit is hard-coded at a use site.
type Rules struct {
	// MaxEnrollmentsPerStudent is the maximum number of simultaneous
	// course enrollments a student may hold.
	MaxEnrollmentsPerStudent int

	// MinLessonsPerCourse is the minimum lesson count a course needs
	// before it may transition to STARTED.
	MinLessonsPerCourse int

	// PassThreshold is the minimum homework average required to pass.
	PassThreshold float64
}

// DefaultRules returns the platform defaults.
func DefaultRules() Rules {
	return Rules{
		MaxEnrollmentsPerStudent: 5,
		MinLessonsPerCourse:      5,
		PassThreshold:            80.0,
	}
}
