// Package notify delivers human-facing messages over email and webhooks.
// It implements the Notifier port with per-channel routing: individual
// channels address the recipient's contact directly, shared escalation
// channels fan out to their configured destinations.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"dispatch/internal/core/ports"
)

// Router dispatches notifications to the notifiers registered for each
// channel. Channels without a route are dropped with a debug log entry, so
// a partially configured installation still runs.
type Router struct {
	routes map[string][]ports.Notifier
	logger *slog.Logger
}

// NewRouter creates an empty notification router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		routes: make(map[string][]ports.Notifier),
		logger: logger.With("component", "notify"),
	}
}

// Route registers notifiers for a channel, appending to any already present.
func (r *Router) Route(channel string, notifiers ...ports.Notifier) {
	r.routes[channel] = append(r.routes[channel], notifiers...)
}

// Notify fans the message out to every notifier registered for the channel.
// Individual failures are joined; the remaining notifiers still run.
func (r *Router) Notify(ctx context.Context, channel, recipient, message string) error {
	targets, ok := r.routes[channel]
	if !ok {
		r.logger.DebugContext(ctx, "no route for channel, dropping notification",
			"channel", channel)
		return nil
	}

	var errs []error
	for _, target := range targets {
		if err := target.Notify(ctx, channel, recipient, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
