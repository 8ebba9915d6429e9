package dialog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vet-eye/serviceflow/internal/knowledge"
	"github.com/vet-eye/serviceflow/internal/models"
	"github.com/vet-eye/serviceflow/internal/notify"
	"github.com/vet-eye/serviceflow/internal/schedule"
	"github.com/vet-eye/serviceflow/internal/store"
)

const errorReply = "Przepraszam, wystąpił błąd. Spróbuj ponownie lub skontaktuj się z serwisem."

// Phraser turns ranked knowledge-base candidates into a customer-facing
// answer.
type Phraser interface {
	AnalyzeIssue(ctx context.Context, deviceModel, issue string, candidates []models.SolutionCandidate) (string, error)
}

// Engine drives a conversation through its states, consulting the store,
// knowledge base, scheduler and phraser as each state requires.
type Engine struct {
	store     store.Store
	knowledge *knowledge.Base
	scheduler *schedule.Scheduler
	phraser   Phraser
	notifier  notify.Notifier
}

// NewEngine wires the engine's collaborators. A nil notifier disables
// confirmations.
func NewEngine(st store.Store, kb *knowledge.Base, sched *schedule.Scheduler, phraser Phraser, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Engine{store: st, knowledge: kb, scheduler: sched, phraser: phraser, notifier: notifier}
}

// Handle processes one user message against the conversation context and
// returns the assistant reply. Both sides of the exchange are recorded in the
// context history.
func (e *Engine) Handle(ctx context.Context, c *Context, message string) (reply string) {
	message = strings.TrimSpace(message)
	c.AddMessage("user", message)
	slog.Info("Engine Handle processing message", "state", c.CurrentState(), "length", len(message))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Engine Handle recovered from panic", "state", c.CurrentState(), "panic", r)
			reply = errorReply
		}
		c.AddMessage("assistant", reply)
	}()

	switch c.CurrentState() {
	case models.StateWelcome:
		reply = e.handleWelcome(c, message)
	case models.StateDeviceVerification:
		reply = e.handleDeviceVerification(ctx, c, message)
	case models.StateIssueAnalysis:
		reply = e.handleIssueAnalysis(ctx, c, message)
	case models.StateCheckResolution:
		reply = e.handleCheckResolution(c, message)
	case models.StateIssueReported:
		reply = e.handleIssueReported(c, message)
	case models.StateServiceScheduling:
		reply = e.handleServiceScheduling(ctx, c, message)
	case models.StateCollectCustomerInfo:
		reply = e.handleCollectCustomerInfo(c, message)
	case models.StateConfirmation:
		reply = e.handleConfirmation(ctx, c, message)
	case models.StateEnd:
		reply = e.handleEnd(c, message)
	default:
		slog.Error("Engine Handle unknown state", "state", c.CurrentState())
		reply = errorReply
	}
	return reply
}

// isAffirmative reports whether the message is an unambiguous yes.
func isAffirmative(message string) bool {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "tak", "t", "yes", "y":
		return true
	}
	return false
}

// isNegative reports whether the message is an unambiguous no.
func isNegative(message string) bool {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "nie", "n", "no":
		return true
	}
	return false
}
