package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// cronPattern matches cron expressions (5 or 6 fields)
var cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

// Config holds scheduler configuration
type Config struct {
	Interval       string         // duration ("5m") or cron expression ("*/5 * * * *")
	Timezone       *time.Location // default UTC
	RunImmediately bool
	Logger         *slog.Logger
}

// Scheduler fires a refresh signal on a clock-aligned schedule.
type Scheduler struct {
	gocronScheduler gocron.Scheduler
	job             gocron.Job
	signal          *Signal
	interval        string
	timezone        *time.Location
	runImmediately  bool
	logger          *slog.Logger
}

// New schedules signal according to cfg. Durations are converted to cron
// expressions aligned on the wall clock.
func New(cfg Config, signal *Signal) (*Scheduler, error) {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cronExpr := cfg.Interval
	if !IsCronExpression(cronExpr) {
		var err error
		if cronExpr, err = durationToCron(cfg.Interval); err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
	}

	gs, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(gocronLogger{cfg.Logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	s := &Scheduler{
		gocronScheduler: gs,
		signal:          signal,
		interval:        cfg.Interval,
		timezone:        cfg.Timezone,
		runImmediately:  cfg.RunImmediately,
		logger:          cfg.Logger,
	}

	s.job, err = gs.NewJob(
		gocron.CronJob(cronExpr, len(strings.Fields(cronExpr)) == 6),
		gocron.NewTask(s.fire),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = gs.Shutdown()
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}

	s.logger.Info("Refresh scheduled",
		"schedule", DescribeSchedule(cfg.Interval, cfg.Timezone))
	return s, nil
}

func (s *Scheduler) fire() {
	counter := s.signal.Fire()
	s.logger.Debug("Scheduled refresh", "counter", counter)
}

// Start begins the scheduler, firing once first when configured to.
func (s *Scheduler) Start() {
	if s.runImmediately {
		if err := s.job.RunNow(); err != nil {
			s.logger.Error("Immediate refresh failed", "error", err)
		}
	}

	s.gocronScheduler.Start()

	if next, err := s.NextRun(); err == nil {
		s.logger.Info("Scheduler started", "next_run", next.Format(time.RFC3339), "timezone", s.timezone.String())
	} else {
		s.logger.Info("Scheduler started")
	}
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.gocronScheduler.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return next, nil
}

// LastRun returns the last run time
func (s *Scheduler) LastRun() (time.Time, error) {
	last, err := s.job.LastRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	return last, nil
}

// ExpectedInterval is the nominal gap between refreshes. Cron schedules
// may be irregular, so they report a conservative 5 minutes.
func ExpectedInterval(interval string) time.Duration {
	if d, err := time.ParseDuration(interval); err == nil {
		return d
	}
	return 5 * time.Minute
}

// IsCronExpression reports whether s has the shape of a 5 or 6 field cron
// expression.
func IsCronExpression(s string) bool {
	return cronPattern.MatchString(s)
}

// durationToCron converts a duration to a clock-aligned cron expression:
// "30s" -> "*/30 * * * * *", "5m" -> "*/5 * * * *", "2h" -> "0 */2 * * *".
func durationToCron(interval string) (string, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return "", fmt.Errorf("invalid duration format: %w", err)
	}

	switch {
	case d <= 0:
		return "", fmt.Errorf("interval must be positive (got %s)", interval)
	case d < time.Minute:
		if d%time.Second != 0 {
			break
		}
		n := int(d / time.Second)
		if 60%n != 0 {
			return "", fmt.Errorf("second intervals must divide evenly into 60 (got %ds)", n)
		}
		return fmt.Sprintf("*/%d * * * * *", n), nil
	case d < time.Hour:
		if d%time.Minute != 0 {
			break
		}
		n := int(d / time.Minute)
		if 60%n != 0 {
			return "", fmt.Errorf("minute intervals must divide evenly into 60 (got %dm)", n)
		}
		return fmt.Sprintf("*/%d * * * *", n), nil
	case d%time.Hour == 0:
		n := int(d / time.Hour)
		if 24%n != 0 {
			return "", fmt.Errorf("hour intervals must divide evenly into 24 (got %dh)", n)
		}
		return fmt.Sprintf("0 */%d * * *", n), nil
	}

	return "", fmt.Errorf("duration must be whole seconds, minutes, or hours (got %s)", interval)
}

// ValidateScheduleInterval validates a schedule interval (duration or cron).
// Empty means one-shot mode and is valid.
func ValidateScheduleInterval(interval string) error {
	if interval == "" {
		return nil
	}
	if IsCronExpression(interval) {
		n := len(strings.Fields(interval))
		if n != 5 && n != 6 {
			return errors.New("cron expression must have 5 or 6 fields")
		}
		return nil
	}
	_, err := durationToCron(interval)
	return err
}

// DescribeSchedule provides a human-readable description of the schedule
func DescribeSchedule(interval string, timezone *time.Location) string {
	if timezone == nil {
		timezone = time.UTC
	}
	if IsCronExpression(interval) {
		return fmt.Sprintf("cron: %s (%s)", interval, timezone)
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Sprintf("invalid: %s", interval)
	}
	cronExpr, err := durationToCron(interval)
	if err != nil {
		return fmt.Sprintf("duration: %s (non-aligned)", interval)
	}
	return fmt.Sprintf("every %s (aligned to clock, cron: %s, %s)", d, cronExpr, timezone)
}

// gocronLogger routes gocron's logs through slog.
type gocronLogger struct {
	logger *slog.Logger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l gocronLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l gocronLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
