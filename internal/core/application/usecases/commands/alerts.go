package commands

import (
	"context"
	"log/slog"

	"dispatch/internal/core/ports"
)

// Alerts wraps the notification port with the swallow-and-log policy: a
// failed message is logged and forgotten, it never fails the operation that
// triggered it. All handler notifications go through here.
type Alerts struct {
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewAlerts creates an Alerts helper around the notifier.
func NewAlerts(notifier ports.Notifier, logger *slog.Logger) Alerts {
	return Alerts{
		notifier: notifier,
		logger:   logger.With("component", "alerts"),
	}
}

// Agent sends a message to a delivery agent's contact.
func (a Alerts) Agent(ctx context.Context, contact, message string) {
	a.send(ctx, ports.ChannelAgent, contact, message)
}

// Customer sends a message to a customer's contact.
func (a Alerts) Customer(ctx context.Context, contact, message string) {
	a.send(ctx, ports.ChannelCustomer, contact, message)
}

// Operations raises an alert on the shared operations channel.
func (a Alerts) Operations(ctx context.Context, message string) {
	a.send(ctx, ports.ChannelOperations, "", message)
}

// Finance raises an alert on the shared finance channel.
func (a Alerts) Finance(ctx context.Context, message string) {
	a.send(ctx, ports.ChannelFinance, "", message)
}

func (a Alerts) send(ctx context.Context, channel, recipient, message string) {
	if err := a.notifier.Notify(ctx, channel, recipient, message); err != nil {
		a.logger.WarnContext(ctx, "notification failed",
			"channel", channel,
			"error", err)
	}
}
