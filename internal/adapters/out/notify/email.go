package notify

import (
	"context"
	"fmt"
	"time"

	"dispatch/internal/core/ports"

	gomail "github.com/wneessen/go-mail"
)

// EmailConfig carries the SMTP settings for the email notifier.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// OperationsAddress receives shared operations-channel alerts.
	OperationsAddress string

	// FinanceAddress receives shared finance-channel alerts.
	FinanceAddress string
}

// EmailNotifier sends notifications over SMTP via go-mail. Individual
// channels mail the recipient's contact; the shared escalation channels mail
// their configured team addresses.
type EmailNotifier struct {
	cfg EmailConfig
}

// NewEmailNotifier creates an email notifier with the given SMTP settings.
func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

// Notify sends one plain-text email for the notification.
func (n *EmailNotifier) Notify(ctx context.Context, channel, recipient, message string) error {
	to, err := n.resolveAddress(channel, recipient)
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err = msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("email from: %w", err)
	}
	if err = msg.To(to); err != nil {
		return fmt.Errorf("email to: %w", err)
	}
	msg.Subject(subjectFor(channel))
	msg.SetBodyString(gomail.TypeTextPlain, message)

	client, err := gomail.NewClient(n.cfg.Host,
		gomail.WithPort(n.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(n.cfg.Username),
		gomail.WithPassword(n.cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("email client: %w", err)
	}

	if err = client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}

func (n *EmailNotifier) resolveAddress(channel, recipient string) (string, error) {
	switch channel {
	case ports.ChannelOperations:
		return n.cfg.OperationsAddress, nil
	case ports.ChannelFinance:
		return n.cfg.FinanceAddress, nil
	default:
		if recipient == "" {
			return "", fmt.Errorf("channel %s requires a recipient", channel)
		}
		return recipient, nil
	}
}

func subjectFor(channel string) string {
	switch channel {
	case ports.ChannelAgent:
		return "Delivery assignment update"
	case ports.ChannelCustomer:
		return "Your delivery update"
	case ports.ChannelOperations:
		return "Operations alert"
	case ports.ChannelFinance:
		return "Finance alert"
	default:
		return "Dispatch notification"
	}
}
