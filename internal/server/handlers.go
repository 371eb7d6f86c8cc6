package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jnst/lifetime-analyzer/internal/lifecycle"
	"github.com/jnst/lifetime-analyzer/internal/model"
	"github.com/jnst/lifetime-analyzer/internal/prompt"
	"github.com/jnst/lifetime-analyzer/internal/session"
)

const maxBodyBytes = 1 << 16

type sessionResponse struct {
	ID    string             `json:"id"`
	State model.SessionState `json:"state"`
	Input *model.UserInput   `json:"input,omitempty"`
}

type stateResponse struct {
	State model.SessionState `json:"state"`
}

func (*Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"configured": s.cfg.ConfigErr == nil,
		"model":      s.cfg.Model,
	}

	if s.cfg.ConfigErr != nil {
		resp["message"] = ConfigurationMessage
	}

	if s.sessions != nil {
		resp["sessions"] = s.sessions.Len()
	}

	respondJSON(w, http.StatusOK, resp)
}

func (*Server) handleSections(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"sections":     prompt.Sections(),
		"closing_line": prompt.ClosingLine,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, c := s.sessions.Create()

	respondJSON(w, http.StatusCreated, sessionResponse{ID: id, State: c.State()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	resp := sessionResponse{ID: c.ID(), State: c.State()}
	if in, ok := c.Input(); ok {
		resp.Input = &in
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var in model.UserInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if _, err := c.Submit(in); err != nil {
		respondControllerError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, stateResponse{State: c.State()})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if _, err := c.Retry(); err != nil {
		respondControllerError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, stateResponse{State: c.State()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}

	c.Reset()

	respondJSON(w, http.StatusOK, stateResponse{State: c.State()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*lifecycle.Controller, bool) {
	c, err := s.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return nil, false
	}

	return c, true
}

func respondControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrBusy), errors.Is(err, lifecycle.ErrNothingToRetry):
		respondError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, lifecycle.ErrClosed), errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusGone, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
