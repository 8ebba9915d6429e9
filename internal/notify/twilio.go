package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var nonDigits = regexp.MustCompile(`\D`)

// Opts holds Twilio credentials and the sending number.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
}

// Option configures the Twilio notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) {
		o.AccountSID = sid
	}
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) {
		o.AuthToken = token
	}
}

// WithFromNumber sets the sender number.
func WithFromNumber(from string) Option {
	return func(o *Opts) {
		o.From = from
	}
}

// TwilioNotifier sends confirmation SMS through the Twilio REST API.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioNotifier creates a notifier from options, falling back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER environment
// variables.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("NewTwilioNotifier invoked",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From", cfg.From)

	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		slog.Error("NewTwilioNotifier missing credentials")
		return nil, fmt.Errorf("Twilio credentials not set")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioNotifier{client: client, from: cfg.From}, nil
}

// SendConfirmation sends body as an SMS to the given phone number.
func (n *TwilioNotifier) SendConfirmation(ctx context.Context, to, body string) error {
	canonical, err := CanonicalizePhone(to)
	if err != nil {
		slog.Error("TwilioNotifier SendConfirmation invalid recipient", "to", to, "error", err)
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(canonical)
	params.SetFrom(n.from)
	params.SetBody(body)

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		slog.Error("TwilioNotifier SendConfirmation failed", "to", canonical, "error", err)
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	slog.Info("TwilioNotifier SendConfirmation succeeded", "to", canonical)
	return nil
}

// CanonicalizePhone strips separators from a phone number and validates it
// has enough digits to be dialable. A leading + is preserved.
func CanonicalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	plus := strings.HasPrefix(trimmed, "+")
	digits := nonDigits.ReplaceAllString(trimmed, "")
	if len(digits) < 6 {
		return "", fmt.Errorf("phone number %q too short", raw)
	}
	if plus {
		return "+" + digits, nil
	}
	return digits, nil
}
