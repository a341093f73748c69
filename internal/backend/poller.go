package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmcallister/draftforge/pkg/models"
)

// StatusClient is the slice of Client the poller needs.
type StatusClient interface {
	Status(ctx context.Context, id string) (Payload, error)
}

// Poller drives a pending job to a terminal state by querying the status
// endpoint on a fixed interval. Unlike submission, polling never backs off:
// the interval is constant and individual poll failures are swallowed.
type Poller struct {
	client      StatusClient
	interval    time.Duration
	maxAttempts int
}

// NewPoller creates a Poller. Non-positive interval or attempt values fall
// back to the defaults (5s, 20 attempts).
func NewPoller(client StatusClient, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	return &Poller{client: client, interval: interval, maxAttempts: maxAttempts}
}

// Wait polls the job identified by id until its status is completed or
// failed, or the attempt budget is exhausted. The last observed payload is
// returned either way: a still-pending payload after budget exhaustion is
// not an error, and the caller must report it as processing, not failed.
//
// A failed poll request only costs that attempt; one success within the
// budget is enough to make progress.
func (p *Poller) Wait(ctx context.Context, id string, initial Payload) (Payload, error) {
	last := initial
	if last.Terminal() || last.Status() != models.StatusPending && last.Status() != models.StatusProcessing {
		return last, nil
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(p.interval):
		}

		payload, err := p.client.Status(ctx, id)
		if err != nil {
			slog.Warn("poll attempt failed",
				"id", id,
				"attempt", attempt,
				"error", truncateError(err),
			)
			continue
		}

		last = payload
		if last.Terminal() {
			slog.Info("poll reached terminal status",
				"id", id,
				"attempt", attempt,
				"status", last.Status(),
			)
			return last, nil
		}
	}

	slog.Info("poll budget exhausted", "id", id, "attempts", p.maxAttempts, "status", last.Status())
	return last, nil
}
