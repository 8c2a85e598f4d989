// Package housekeeping runs the periodic background jobs of the server:
// expiring idle sessions, sweeping stale invitations and retrying match
// log saves that failed.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mcoot/pongmatch-go/internal/dependencies/clock"
	"github.com/mcoot/pongmatch-go/internal/model"
)

// SessionSweeper drops expired sessions and returns the players that went away
type SessionSweeper interface {
	CleanExpiredSessions() []*model.Session
}

// DisconnectHandler releases whatever a departed player was holding
type DisconnectHandler interface {
	HandleDisconnect(session *model.Session)
}

// InvitationSweeper deletes invitations that can no longer be accepted
type InvitationSweeper interface {
	DeleteExpiredInvitations(ctx context.Context, now time.Time) (int, error)
}

// RetryQueue retries queued match log saves
type RetryQueue interface {
	RetryPending(ctx context.Context) int
}

// HubCleaner closes spectator hubs nobody is listening to
type HubCleaner interface {
	CleanupEmptyHubs() int
}

// Config holds the job intervals
type Config struct {
	SessionSweepInterval    time.Duration
	InvitationSweepInterval time.Duration
	MatchLogRetryInterval   time.Duration
	HubSweepInterval        time.Duration
	JobTimeout              time.Duration
}

// DefaultConfig returns default housekeeping configuration
func DefaultConfig() Config {
	return Config{
		SessionSweepInterval:    time.Minute,
		InvitationSweepInterval: time.Minute,
		MatchLogRetryInterval:   30 * time.Second,
		HubSweepInterval:        5 * time.Minute,
		JobTimeout:              20 * time.Second,
	}
}

// Scheduler owns the gocron scheduler and the jobs registered on it
type Scheduler struct {
	cfg         Config
	sessions    SessionSweeper
	disconnects DisconnectHandler
	invitations InvitationSweeper
	matchLogs   RetryQueue
	clock       clock.Clock
	logger      *slog.Logger

	scheduler gocron.Scheduler
}

// New creates a Scheduler with every job registered but not yet running
func New(
	cfg Config,
	sessions SessionSweeper,
	disconnects DisconnectHandler,
	invitations InvitationSweeper,
	matchLogs RetryQueue,
	clock clock.Clock,
	logger *slog.Logger,
) (*Scheduler, error) {
	logger = logger.With(slog.String("component", "housekeeping"))

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		cfg:         cfg,
		sessions:    sessions,
		disconnects: disconnects,
		invitations: invitations,
		matchLogs:   matchLogs,
		clock:       clock,
		logger:      logger,
		scheduler:   scheduler,
	}

	jobs := []struct {
		name     string
		interval time.Duration
		task     func()
	}{
		{"sweep-sessions", cfg.SessionSweepInterval, s.SweepSessions},
		{"sweep-invitations", cfg.InvitationSweepInterval, s.withTimeout(s.SweepInvitations)},
		{"retry-match-logs", cfg.MatchLogRetryInterval, s.withTimeout(s.RetryMatchLogs)},
	}
	for _, j := range jobs {
		if err := s.addJob(j.name, j.interval, j.task); err != nil {
			_ = scheduler.Shutdown()
			return nil, err
		}
	}

	return s, nil
}

// AddHubSweep registers a job closing idle spectator hubs. Call before Start.
func (s *Scheduler) AddHubSweep(hubs HubCleaner) error {
	return s.addJob("sweep-sse-hubs", s.cfg.HubSweepInterval, func() {
		if n := hubs.CleanupEmptyHubs(); n > 0 {
			s.logger.Info("idle spectator hubs closed", slog.Int("count", n))
		}
	})
}

func (s *Scheduler) addJob(name string, interval time.Duration, task func()) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}
	return nil
}

// Start begins running the jobs
func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("housekeeping started", slog.Int("jobs", len(s.scheduler.Jobs())))
}

// Shutdown stops the scheduler and waits for running jobs
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

// JobNames returns the names of the registered jobs
func (s *Scheduler) JobNames() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// SweepSessions expires idle sessions and disconnects players with no
// session left
func (s *Scheduler) SweepSessions() {
	gone := s.sessions.CleanExpiredSessions()
	for _, session := range gone {
		s.disconnects.HandleDisconnect(session)
	}
	if len(gone) > 0 {
		s.logger.Info("expired sessions swept", slog.Int("players", len(gone)))
	}
}

// SweepInvitations deletes expired invitations
func (s *Scheduler) SweepInvitations(ctx context.Context) {
	n, err := s.invitations.DeleteExpiredInvitations(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to sweep invitations", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("expired invitations swept", slog.Int("count", n))
	}
}

// RetryMatchLogs retries failed final match log saves
func (s *Scheduler) RetryMatchLogs(ctx context.Context) {
	if remaining := s.matchLogs.RetryPending(ctx); remaining > 0 {
		s.logger.Warn("match logs still pending", slog.Int("count", remaining))
	}
}

func (s *Scheduler) withTimeout(job func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()
		job(ctx)
	}
}
