// Package jobs contains the scheduled jobs of the course enrollment
// engine.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/edu-hub/course-hub/internal/application/command"
	"github.com/edu-hub/course-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMOTE COURSES JOB
// ══════════════════════════════════════════════════════════════════════════════

// PromoteCoursesJob runs the daily promotion sweep: every course whose
// start date is today and that has not been started yet is moved to
// STARTED. Each course is promoted independently, so one blocked course
// never holds back the rest; blocked courses are retried on the next run.
type PromoteCoursesJob struct {
	handler  *command.PromoteCoursesHandler
	timezone *time.Location
	logger   *slog.Logger
}

// NewPromoteCoursesJob creates the job.
func NewPromoteCoursesJob(handler *command.PromoteCoursesHandler, tz *time.Location, logger *slog.Logger) *PromoteCoursesJob {
	if tz == nil {
		tz = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PromoteCoursesJob{
		handler:  handler,
		timezone: tz,
		logger:   logger,
	}
}

// Name implements scheduler.Job.
func (j *PromoteCoursesJob) Name() string {
	return "promote_courses"
}

// Description implements scheduler.Job.
func (j *PromoteCoursesJob) Description() string {
	return "Promotes courses whose start date has arrived from WAIT to STARTED"
}

// Run implements scheduler.Job.
func (j *PromoteCoursesJob) Run(ctx context.Context) error {
	today := timeutil.Today(j.timezone)

	result, err := j.handler.Handle(ctx, command.PromoteCoursesCommand{Today: today})
	if err != nil {
		return err
	}

	for _, o := range result.Outcomes {
		if o.Err != nil {
			j.logger.Warn("course not promoted",
				"course_id", o.CourseID,
				"course_name", o.CourseName,
				"error", o.Err,
			)
		}
	}

	j.logger.Info("promotion sweep finished",
		"day", today.Format("2006-01-02"),
		"eligible", len(result.Outcomes),
		"promoted", result.Promoted(),
		"blocked", result.Failed(),
	)

	return nil
}
