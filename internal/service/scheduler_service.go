package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewSchedulerService builds a scheduler evaluating specs in loc. Specs take
// six fields, seconds first, or a descriptor such as "@weekly".
func NewSchedulerService(loc *time.Location, log *zap.Logger) *SchedulerService {
	log = log.Named("scheduler")
	cronLog := cron.PrintfLogger(zap.NewStdLog(log))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log: log,
	}
}

// ScheduleSpec registers job under a cron spec. The job gets a context that is
// cancelled when the scheduler stops.
func (s *SchedulerService) ScheduleSpec(ctx context.Context, name, spec string, job func(context.Context) error) (cron.EntryID, error) {
	if strings.TrimSpace(spec) == "" {
		return 0, fmt.Errorf("schedule %s: empty spec", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		started := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Info("job done", zap.String("job", name), zap.Duration("took", time.Since(started)))
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return id, nil
}

// Schedule registers job under when, which is either a daily "HH:MM" time or
// a cron spec.
func (s *SchedulerService) Schedule(ctx context.Context, name, when string, job func(context.Context) error) (cron.EntryID, error) {
	when = strings.TrimSpace(when)
	if isClockTime(when) {
		return s.ScheduleDaily(ctx, name, when, job)
	}
	return s.ScheduleSpec(ctx, name, when, job)
}

func isClockTime(when string) bool {
	return strings.Count(when, ":") == 1 && !strings.ContainsAny(when, " @*")
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(ctx context.Context, name, timeStr string, job func(context.Context) error) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.ScheduleSpec(ctx, name, spec, job)
}

// Next reports when the entry fires next; zero if it is unknown.
func (s *SchedulerService) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to return.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
