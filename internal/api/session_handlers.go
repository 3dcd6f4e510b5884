package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shubha9696/hiring-assistant-chatbot/internal/models"
)

func (s *Server) sessionRoutes(r chi.Router) {
	r.Post("/", s.createSessionHandler)
	r.Get("/", s.listSessionsHandler)
	r.Get("/{id}", s.getSessionHandler)
	r.Patch("/{id}", s.updateSessionHandler)
}

// createSessionHandler stores a new interview session and returns the record.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.NewSession
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.createSessionHandler: bad request body", "error", err)
		writeError(w, err)
		return
	}
	if err := models.ValidateNewSession(&req); err != nil {
		slog.Warn("Server.createSessionHandler: validation failed", "error", err)
		writeError(w, err)
		return
	}

	sess, err := s.store.CreateSession(r.Context(), req)
	if err != nil {
		slog.Error("Server.createSessionHandler: store create failed", "error", err)
		writeError(w, err)
		return
	}
	slog.Info("Server.createSessionHandler: session created", "sessionID", sess.ID)
	writeJSONResponse(w, http.StatusOK, sess)
}

func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		slog.Error("Server.listSessionsHandler: store list failed", "error", err)
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.InterviewSession{}
	}
	writeJSONResponse(w, http.StatusOK, sessions)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		slog.Debug("Server.getSessionHandler: lookup failed", "sessionID", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, sess)
}

// updateSessionHandler applies a partial update. Reopening a completed session is
// rejected rather than silently ignored.
func (s *Server) updateSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var patch models.SessionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		slog.Warn("Server.updateSessionHandler: bad request body", "sessionID", id, "error", err)
		writeError(w, err)
		return
	}
	if err := models.ValidatePatch(&patch); err != nil {
		slog.Warn("Server.updateSessionHandler: validation failed", "sessionID", id, "error", err)
		writeError(w, err)
		return
	}

	if patch.Status != nil {
		current, err := s.store.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if patch.RegressesStatus(current.Status) {
			slog.Warn("Server.updateSessionHandler: status regression rejected", "sessionID", id)
			writeError(w, models.ErrStatusRegression)
			return
		}
	}

	sess, err := s.store.UpdateSession(r.Context(), id, patch)
	if err != nil {
		slog.Debug("Server.updateSessionHandler: update failed", "sessionID", id, "error", err)
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, sess)
}

func sessionIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: session id %q is not an integer", ErrInvalidRequest, raw)
	}
	return id, nil
}
