// Package services holds background services that run alongside the API.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ragline/ragline/pkg/persistence"
)

// Retention periodically deletes conversations that have not been touched
// within the TTL. Without it, abandoned sessions accumulate forever: the
// 20-message cap bounds each conversation, not the number of sessions.
type Retention struct {
	conversations persistence.ConversationRepository
	ttl           time.Duration
	schedule      string
	logger        *slog.Logger
	cron          *cron.Cron
}

func NewRetention(conversations persistence.ConversationRepository, ttl time.Duration, schedule string, logger *slog.Logger) *Retention {
	return &Retention{
		conversations: conversations,
		ttl:           ttl,
		schedule:      schedule,
		logger:        logger.With("module", "retention"),
		cron:          cron.New(),
	}
}

// Start registers the sweep on the cron schedule and starts it. A zero TTL
// disables retention entirely.
func (r *Retention) Start(ctx context.Context) error {
	if r.ttl <= 0 {
		r.logger.Info("conversation retention disabled")

		return nil
	}

	_, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.Sweep(ctx); err != nil {
			r.logger.Error("conversation sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.logger.Info("conversation retention started", "ttl", r.ttl, "schedule", r.schedule)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep deletes every conversation whose last update is older than the TTL.
func (r *Retention) Sweep(ctx context.Context) error {
	conversations, err := r.conversations.List(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-r.ttl)
	removed := 0

	for _, conversation := range conversations {
		if conversation.UpdatedAt.After(cutoff) {
			continue
		}

		if err := r.conversations.Delete(ctx, conversation.SessionID); err != nil {
			if persistence.IsConversationNotFound(err) {
				continue
			}

			return err
		}

		removed++
	}

	if removed > 0 {
		r.logger.Info("expired conversations removed", "count", removed)
	}

	return nil
}
