// Package dialog implements the guided support conversation: its state
// machine, per-state handlers and diagnostic follow-ups.
package dialog

import (
	"log/slog"
	"time"

	"github.com/vet-eye/serviceflow/internal/models"
)

// Context holds everything accumulated over a single conversation.
type Context struct {
	currentState models.ConversationState

	StateHistory []models.ConversationState
	Messages     []models.Message

	LastInteraction time.Time

	VerifiedDevice   *models.Device
	IssueDescription string
	AdditionalInfo   string
	Attempts         int

	Customer    models.CustomerInfo
	CollectStep models.CollectStep

	AvailableSlots []time.Time
	FormattedSlots []string
	ShowingSlots   bool
	SelectedSlot   *time.Time

	BookingRef  models.BookingRef
	GDPRConsent bool
}

// NewContext creates a conversation context in the welcome state.
func NewContext() *Context {
	return &Context{
		currentState: models.StateWelcome,
		CollectStep:  models.CollectName,
	}
}

// CurrentState returns the conversation's current state.
func (c *Context) CurrentState() models.ConversationState {
	return c.currentState
}

// AddMessage appends a message to the conversation history and stamps the
// interaction time.
func (c *Context) AddMessage(role, content string) {
	c.Messages = append(c.Messages, models.Message{Role: role, Content: content})
	c.LastInteraction = time.Now()
}

// Transition moves the conversation to target when the state machine allows
// it. On a rejected transition the context is left untouched.
func (c *Context) Transition(target models.ConversationState) bool {
	if !models.CanTransition(c.currentState, target) {
		slog.Warn("Context Transition rejected", "from", c.currentState, "to", target)
		return false
	}
	c.StateHistory = append(c.StateHistory, c.currentState)
	c.currentState = target
	slog.Info("Context Transition succeeded", "from", c.StateHistory[len(c.StateHistory)-1], "to", target)
	return true
}

// Reset restores the context to a fresh conversation, dropping all
// accumulated device, issue and customer data.
func (c *Context) Reset() {
	*c = *NewContext()
}
