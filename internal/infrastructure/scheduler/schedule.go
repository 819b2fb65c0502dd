package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates a schedule that fires every d.
func Every(d time.Duration) IntervalSchedule {
	return IntervalSchedule{Interval: d}
}

// Next implements Schedule.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String implements Schedule.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("every %s", s.Interval)
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// CronSchedule adapts a standard five-field cron expression.
type CronSchedule struct {
	expr  string
	inner cron.Schedule
}

// ParseCron parses a standard cron expression ("0 0 * * *" fires at
// midnight every day).
func ParseCron(expr string) (CronSchedule, error) {
	inner, err := cron.ParseStandard(expr)
	if err != nil {
		return CronSchedule{}, fmt.Errorf("scheduler: invalid cron expression %q: %w", expr, err)
	}
	return CronSchedule{expr: expr, inner: inner}, nil
}

// MustParseCron is ParseCron for statically known expressions.
func MustParseCron(expr string) CronSchedule {
	s, err := ParseCron(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Next implements Schedule.
func (s CronSchedule) Next(t time.Time) time.Time {
	return s.inner.Next(t)
}

// String implements Schedule.
func (s CronSchedule) String() string {
	return fmt.Sprintf("cron %q", s.expr)
}
