package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/flow"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

// conversationView is a conversation snapshot plus the id of its session record,
// once the record exists.
type conversationView struct {
	flow.Snapshot
	SessionID *int64 `json:"sessionId,omitempty"`
}

type postMessageRequest struct {
	Content string `json:"content"`
}

type postMessageResponse struct {
	Reply     models.ChatMessage `json:"reply"`
	Step      flow.Step          `json:"step"`
	Composing bool               `json:"composing"`
	SessionID *int64             `json:"sessionId,omitempty"`
}

// startConversationHandler opens a conversation and returns it with the greeting.
func (s *Server) startConversationHandler(w http.ResponseWriter, r *http.Request) {
	c, _ := s.registry.Start()
	slog.Info("Server.startConversationHandler: conversation started", "conversationID", c.ID())
	writeJSONResponse(w, http.StatusCreated, s.view(c))
}

func (s *Server) getConversationHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, s.view(c))
}

// postMessageHandler submits candidate input and blocks for the composing delay.
// A client that goes away during the delay withdraws its input.
func (s *Server) postMessageHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.registry.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req postMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.postMessageHandler: bad request body", "conversationID", id, "error", err)
		writeError(w, err)
		return
	}

	reply, err := s.registry.Engine().Submit(r.Context(), c, req.Content)
	if err != nil {
		slog.Debug("Server.postMessageHandler: submit failed", "conversationID", id, "error", err)
		writeError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, postMessageResponse{
		Reply:     reply,
		Step:      c.Step(),
		Composing: c.Composing(),
		SessionID: s.sessionID(c),
	})
}

func (s *Server) view(c *flow.Conversation) conversationView {
	return conversationView{Snapshot: c.Snapshot(), SessionID: s.sessionID(c)}
}

func (s *Server) sessionID(c *flow.Conversation) *int64 {
	if s.sessions == nil {
		return nil
	}
	id, ok := s.sessions.SessionID(c.Handle())
	if !ok {
		return nil
	}
	return &id
}
