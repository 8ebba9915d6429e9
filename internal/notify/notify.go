// Package notify sends appointment confirmations to customers.
package notify

import "context"

// Notifier delivers a confirmation message to a phone number.
type Notifier interface {
	SendConfirmation(ctx context.Context, to, body string) error
}

// NoopNotifier is used when no SMS credentials are configured.
type NoopNotifier struct{}

// SendConfirmation does nothing and reports success.
func (NoopNotifier) SendConfirmation(ctx context.Context, to, body string) error {
	return nil
}
