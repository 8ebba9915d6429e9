// Package session tracks live conversations by identifier.
package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vet-eye/serviceflow/internal/dialog"
)

// Conversation pairs a dialog context with its identifier. Mu serializes
// message handling for a single conversation.
type Conversation struct {
	ID      string
	Mu      sync.Mutex
	Context *dialog.Context
}

// Registry is an in-memory index of active conversations.
type Registry struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conversations: make(map[string]*Conversation)}
}

// Create starts a new conversation with a fresh identifier.
func (r *Registry) Create() *Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv := &Conversation{ID: uuid.NewString(), Context: dialog.NewContext()}
	conv.Context.AddMessage("assistant", dialog.WelcomeMessage)
	r.conversations[conv.ID] = conv
	slog.Debug("Registry Create succeeded", "id", conv.ID)
	return conv
}

// Get returns the conversation for id, or nil when unknown.
func (r *Registry) Get(id string) *Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conversations[id]
}

// GetOrCreate returns the conversation for id, creating one under a new
// identifier when id is empty or unknown.
func (r *Registry) GetOrCreate(id string) *Conversation {
	r.mu.Lock()
	conv, ok := r.conversations[id]
	r.mu.Unlock()
	if ok {
		return conv
	}
	return r.Create()
}

// Reset restarts the conversation state for id. Returns false when the
// conversation does not exist.
func (r *Registry) Reset(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return false
	}
	conv.Mu.Lock()
	conv.Context.Reset()
	conv.Context.AddMessage("assistant", dialog.WelcomeMessage)
	conv.Mu.Unlock()
	slog.Debug("Registry Reset succeeded", "id", id)
	return true
}

// Destroy removes the conversation for id.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conversations, id)
}
