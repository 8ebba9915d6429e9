package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vet-eye/serviceflow/internal/dialog"
	"github.com/vet-eye/serviceflow/internal/models"
	"github.com/vet-eye/serviceflow/internal/session"
)

// Server exposes the conversation engine over HTTP.
type Server struct {
	engine   *dialog.Engine
	sessions *session.Registry
}

// NewServer creates a server over the given engine and session registry.
func NewServer(engine *dialog.Engine, sessions *session.Registry) *Server {
	return &Server{engine: engine, sessions: sessions}
}

// Routes registers the server's endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /messages", s.postMessage)
	mux.HandleFunc("GET /conversations/{id}", s.getConversation)
	mux.HandleFunc("POST /conversations/{id}/reset", s.resetConversation)
	mux.HandleFunc("GET /health", s.health)
}

type messageRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type messageResponse struct {
	ConversationID string                   `json:"conversation_id"`
	Reply          string                   `json:"reply"`
	State          models.ConversationState `json:"state"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("API postMessage invalid payload", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	conv := s.sessions.GetOrCreate(req.ConversationID)

	conv.Mu.Lock()
	reply := s.engine.Handle(r.Context(), conv.Context, req.Text)
	state := conv.Context.CurrentState()
	conv.Mu.Unlock()

	writeJSON(w, http.StatusOK, messageResponse{
		ConversationID: conv.ID,
		Reply:          reply,
		State:          state,
	})
}

type conversationResponse struct {
	ConversationID string                     `json:"conversation_id"`
	State          models.ConversationState   `json:"state"`
	StateHistory   []models.ConversationState `json:"state_history"`
	Messages       []models.Message           `json:"messages"`
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	conv := s.sessions.Get(r.PathValue("id"))
	if conv == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	conv.Mu.Lock()
	resp := conversationResponse{
		ConversationID: conv.ID,
		State:          conv.Context.CurrentState(),
		StateHistory:   append([]models.ConversationState(nil), conv.Context.StateHistory...),
		Messages:       append([]models.Message(nil), conv.Context.Messages...),
	}
	conv.Mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.Reset(id) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conversation_id": id, "status": "reset"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
