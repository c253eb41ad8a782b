// Package scheduler fires unattended backups on a cron rule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
)

const (
	Every10Minutes = "every_10_minutes"
	Every30Minutes = "every_30_minutes"
	Hourly         = "hourly"
	Daily          = "daily"
	Weekly         = "weekly"
)

var rules = map[string]string{
	Every10Minutes: "*/10 * * * *",
	Every30Minutes: "*/30 * * * *",
	Hourly:         "0 * * * *",
	Daily:          "0 2 * * *",
	Weekly:         "0 2 * * 0",
}

// Frequencies lists the accepted frequency names.
var Frequencies = []string{Every10Minutes, Every30Minutes, Hourly, Daily, Weekly}

// Rule returns the cron expression for a frequency.
func Rule(freq string) (string, error) {
	r, ok := rules[freq]
	if !ok {
		return "", appErr.Newf(appErr.CodeInvalid, "unknown backup frequency %q", freq)
	}
	return r, nil
}

// NextRun returns the first firing of freq strictly after from.
func NextRun(freq string, from time.Time) (time.Time, error) {
	r, err := Rule(freq)
	if err != nil {
		return time.Time{}, err
	}
	sched, err := cron.ParseStandard(r)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse rule %q: %w", r, err)
	}
	return sched.Next(from), nil
}

// Trigger performs one scheduled backup run.
type Trigger interface {
	Fire(ctx context.Context) error
}

type TriggerFunc func(ctx context.Context) error

func (f TriggerFunc) Fire(ctx context.Context) error { return f(ctx) }

// SuccessHook is called after a successful firing with the firing time and the next run.
type SuccessHook func(ctx context.Context, ranAt, next time.Time)

// Scheduler owns at most one armed cron entry. It is safe for concurrent use.
type Scheduler struct {
	mu        sync.Mutex
	trigger   Trigger
	onSuccess SuccessHook
	timeout   time.Duration
	loc       *time.Location

	cron *cron.Cron
	freq string
}

type Option func(*Scheduler)

func WithSuccessHook(h SuccessHook) Option {
	return func(s *Scheduler) { s.onSuccess = h }
}

// WithTimeout bounds a single firing.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

func New(trigger Trigger, opts ...Option) *Scheduler {
	s := &Scheduler{trigger: trigger, timeout: 10 * time.Minute, loc: time.UTC}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start arms the scheduler with freq, replacing any previously armed rule.
func (s *Scheduler) Start(freq string) error {
	rule, err := Rule(freq)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	c := cron.New(cron.WithLocation(s.loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(rule, s.fire); err != nil {
		return fmt.Errorf("add cron rule %q: %w", rule, err)
	}
	c.Start()
	s.cron, s.freq = c, freq
	logger.L().Info("backup scheduler armed", zap.String("frequency", freq), zap.String("rule", rule))
	return nil
}

// Stop disarms the scheduler. It does not wait for a running firing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		logger.L().Info("backup scheduler stopped")
	}
}

func (s *Scheduler) stopLocked() bool {
	if s.cron == nil {
		return false
	}
	s.cron.Stop()
	s.cron, s.freq = nil, ""
	return true
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Frequency returns the armed frequency, or "" when stopped.
func (s *Scheduler) Frequency() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freq
}

// Next returns the next firing time, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) fire() {
	s.RunOnce(context.Background())
}

// RunOnce fires the trigger immediately and reports whether it succeeded.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ranAt := time.Now().UTC()
	freq := s.Frequency()
	logger.L().Info("scheduled backup firing", zap.String("frequency", freq))
	if err := s.trigger.Fire(ctx); err != nil {
		logger.L().Error("scheduled backup failed", zap.String("frequency", freq), zap.Error(err))
		return false
	}
	if s.onSuccess != nil {
		next := s.Next()
		if next.IsZero() && freq != "" {
			next, _ = NextRun(freq, ranAt)
		}
		s.onSuccess(ctx, ranAt, next)
	}
	return true
}
