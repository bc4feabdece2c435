package export

import (
	"fmt"
	"strings"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser accepts exactly the five standard fields. Descriptors such as
// @daily and seconds fields are not enabled.
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// CronSchedule computes fire times for a parsed cron expression
type CronSchedule interface {
	Next(after time.Time) time.Time
}

// ParseCron validates a 5-field cron expression. Each field accepts *,
// lists, ranges and step values, plus month and weekday names.
func ParseCron(expr string) (CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, ErrInvalidCron.WithMessage(
			fmt.Sprintf("cron expression %q must have 5 fields, got %d", expr, len(fields)))
	}
	sched, err := cronParser.Parse(strings.Join(fields, " "))
	if err != nil {
		return nil, ErrInvalidCron.WithMessage(fmt.Sprintf("cron expression %q: %v", expr, err))
	}
	return sched, nil
}

// NextFireTime returns the first fire time strictly after the given instant.
// An expression that never fires (such as 30 February) is invalid.
func NextFireTime(expr string, after time.Time) (time.Time, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return time.Time{}, err
	}
	next := sched.Next(after)
	if next.IsZero() {
		return time.Time{}, ErrInvalidCron.WithMessage(fmt.Sprintf("cron expression %q never fires", expr))
	}
	return next, nil
}
