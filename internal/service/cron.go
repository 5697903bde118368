package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

const everyPrefix = "@every "

// ParseCron parses a cron expression that have 5 fields or a macro
// return error if it fails
func ParseCron(expr string) error {
	e := strings.TrimSpace(expr)
	if e == "" {
		return errors.New("empty cron expression")
	}

	// Macros / @every handled by ParseStandard (it also supports plain 5-field specs).
	if strings.HasPrefix(e, "@") {
		_, err := cron.ParseStandard(e)
		return err
	}

	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	// len == 5
	_, err := parser5.Parse(e)
	return err
}

// jobDefinition turns janitor.schedule into a gocron job definition.
// "@every <duration>" runs in fixed intervals, anything else is a cron
// expression.
func jobDefinition(ctx context.Context, schedule string) (gocron.JobDefinition, error) {
	schedule = strings.TrimSpace(schedule)
	if err := ParseCron(schedule); err != nil {
		return nil, fmt.Errorf("parsing janitor.schedule: %w", err)
	}
	if every, ok := strings.CutPrefix(schedule, everyPrefix); ok {
		d, err := time.ParseDuration(strings.TrimSpace(every))
		if err != nil {
			return nil, fmt.Errorf("parsing janitor.schedule: %w", err)
		}
		slog.DebugContext(ctx, "successfully parsed", "duration", d.String())
		return gocron.DurationJob(d), nil
	}
	slog.DebugContext(ctx, "successfully parsed", "cron", schedule)
	return gocron.CronJob(schedule, false), nil
}

func newScheduler(job gocron.JobDefinition, task func()) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		job,
		gocron.NewTask(task),
		gocron.WithName("janitor"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return s, nil
}
