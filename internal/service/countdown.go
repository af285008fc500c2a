package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	countdownSpec = "@every 1s"
	purgeSpec     = "@every 1m"
)

// DefaultRetention is how long completed sessions are kept for hosts to read their result.
const DefaultRetention = time.Hour

// Countdown ticks timed sessions once per second and reports expired ones.
// Remaining time is always recomputed from the wall clock, so a delayed or
// skipped tick does not make the countdown drift.
type Countdown struct {
	quiz      *QuizService
	notifier  ExpiryNotifier
	now       func() time.Time
	retention time.Duration
	logger    *zap.Logger
}

// NewCountdown creates a new countdown driver. Completed sessions are purged
// once they are older than retention.
func NewCountdown(quiz *QuizService, retention time.Duration, logger *zap.Logger) *Countdown {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Countdown{
		quiz:      quiz,
		now:       time.Now,
		retention: retention,
		logger:    logger,
	}
}

// SetNotifier sets the notifier (called after the host is created).
func (c *Countdown) SetNotifier(notifier ExpiryNotifier) {
	c.notifier = notifier
}

// Start runs the countdown until ctx is cancelled.
func (c *Countdown) Start(ctx context.Context) {
	c.logger.Info("countdown started")

	cr := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := cr.AddFunc(countdownSpec, func() {
		c.RunOnce(ctx)
	})
	if err != nil {
		c.logger.Error("failed to add countdown job", zap.Error(err))
		return
	}

	_, err = cr.AddFunc(purgeSpec, func() {
		c.quiz.PurgeCompleted(c.now(), c.retention)
	})
	if err != nil {
		c.logger.Error("failed to add purge job", zap.Error(err))
		return
	}

	cr.Start()

	<-ctx.Done()

	<-cr.Stop().Done()
	c.logger.Info("countdown stopped")
}

// RunOnce syncs every timed session and notifies about those that expired.
func (c *Countdown) RunOnce(ctx context.Context) {
	expired := c.quiz.SyncTimers(c.now())
	for _, session := range expired {
		c.logger.Debug("quiz session time expired",
			zap.String("session_id", session.ID.String()),
		)
		if c.notifier != nil {
			c.notifier.NotifyExpired(ctx, session, c.quiz.Score(session))
		}
	}
}
