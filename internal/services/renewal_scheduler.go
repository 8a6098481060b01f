package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mahalbangetid-beep/scb-sub002/config"
)

// ErrPassInProgress means a renewal pass is already running and still within
// its maximum duration; the new invocation was skipped.
var ErrPassInProgress = errors.New("renewal pass already in progress")

// PassResult accumulates what one renewal pass did.
type PassResult struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Paused     int       `json:"paused"`
	Skipped    int       `json:"skipped"`
}

// SchedulerStatus is a snapshot of the scheduler's guard and last pass.
type SchedulerStatus struct {
	Running    bool        `json:"running"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	LastResult *PassResult `json:"last_result,omitempty"`
}

// RenewalScheduler walks due subscriptions and renews them one at a time.
// An external clock (ticker, cron, manual admin trigger) calls RunPass; the
// scheduler itself only guards against overlapping passes. Because billing
// dates advance only on success, a pass that dies half-way is safely re-run:
// renewed subscriptions are no longer due and the rest still are.
type RenewalScheduler struct {
	subs            *SubscriptionService
	activity        ActivitySink
	logger          *zap.Logger
	maxPassDuration time.Duration

	mu         sync.Mutex
	running    bool
	startedAt  time.Time
	generation uint64
	last       *PassResult
}

func NewRenewalScheduler(subs *SubscriptionService, activity ActivitySink, cfg *config.Config, logger *zap.Logger) *RenewalScheduler {
	return &RenewalScheduler{
		subs:            subs,
		activity:        activity,
		logger:          logger,
		maxPassDuration: cfg.MaxPassDuration,
	}
}

// RunPass renews every due subscription sequentially. Sequential on purpose:
// fanning out would multiply serializable transactions contending with live
// message charging on the same accounts. A single subscription failing never
// aborts the batch.
func (s *RenewalScheduler) RunPass() (*PassResult, error) {
	now := time.Now()
	gen, ok := s.tryAcquire(now)
	if !ok {
		s.logger.Info("renewal pass skipped, previous pass still running")
		return nil, ErrPassInProgress
	}
	defer s.release(gen)

	due, err := s.subs.DueSubscriptions(now)
	if err != nil {
		return nil, err
	}

	result := &PassResult{StartedAt: now}
	for i := range due {
		sub := &due[i]
		result.Processed++

		res, err := s.subs.Renew(sub.ID)
		if err != nil {
			result.Failed++
			s.logger.Error("subscription renewal errored",
				zap.Error(err),
				zap.Uint("subscription_id", sub.ID),
				zap.Uint("user_id", sub.UserID),
			)
			s.recordFailure(sub.UserID, fmt.Sprintf("renewal of %s %s errored: %v", sub.ResourceType, sub.ResourceID, err))
			continue
		}

		switch res.Outcome {
		case RenewalCharged, RenewalFreeFirst:
			result.Succeeded++
		case RenewalPaused:
			result.Failed++
			result.Paused++
			s.recordFailure(sub.UserID, fmt.Sprintf("%s %s paused after %d failed renewal attempts", sub.ResourceType, sub.ResourceID, res.FailedAttempts))
		case RenewalInsufficient:
			result.Failed++
			s.recordFailure(sub.UserID, fmt.Sprintf("renewal of %s %s failed: insufficient balance (attempt %d)", sub.ResourceType, sub.ResourceID, res.FailedAttempts))
		case RenewalNotDue:
			result.Skipped++
		}
	}
	result.FinishedAt = time.Now()

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	s.logger.Info("renewal pass finished",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("paused", result.Paused),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

// Status returns the scheduler's current guard state and last pass result.
func (s *RenewalScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{Running: s.running, LastResult: s.last}
	if s.running {
		startedAt := s.startedAt
		status.StartedAt = &startedAt
	}
	return status
}

// tryAcquire takes the single-pass guard and returns the generation token
// identifying this holder. A guard held longer than maxPassDuration is
// considered abandoned (crashed or hung pass) and is force-cleared so
// scheduled renewals cannot stay blocked forever.
func (s *RenewalScheduler) tryAcquire(now time.Time) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		if now.Sub(s.startedAt) < s.maxPassDuration {
			return 0, false
		}
		s.logger.Warn("force-clearing stale renewal pass guard",
			zap.Time("started_at", s.startedAt),
			zap.Duration("held_for", now.Sub(s.startedAt)),
		)
	}
	s.running = true
	s.startedAt = now
	s.generation++
	return s.generation, true
}

// release clears the guard only if the caller still holds it. A pass whose
// stale guard was force-cleared and taken over must not clear the takeover's
// guard when it finally returns.
func (s *RenewalScheduler) release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.generation == gen {
		s.running = false
	}
}

// recordFailure emits a best-effort failure notification. The renewal
// outcome is already committed; a broken sink must not change it.
func (s *RenewalScheduler) recordFailure(userID uint, detail string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("renewal failure notification panicked", zap.Any("panic", r))
		}
	}()
	if err := s.activity.Record(userID, "renewal_failed", detail); err != nil {
		s.logger.Warn("renewal failure notification failed", zap.Error(err), zap.Uint("user_id", userID))
	}
}
