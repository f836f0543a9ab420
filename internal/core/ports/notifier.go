package ports

import (
	"context"
)

// Notification channels. Agent and customer messages go to individuals;
// operations and finance are shared escalation channels.
const (
	ChannelAgent      = "agent"
	ChannelCustomer   = "customer"
	ChannelOperations = "operations"
	ChannelFinance    = "finance"
)

// Notifier delivers human-facing messages. Implementations are best-effort:
// callers treat failures as non-fatal and never unwind a committed state
// transition because a message did not go out.
type Notifier interface {
	// Notify sends a message to the recipient on the given channel. The
	// recipient is a contact for individual channels and ignored for shared
	// escalation channels.
	Notify(ctx context.Context, channel string, recipient string, message string) error
}
