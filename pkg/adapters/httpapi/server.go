package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/espalier/pkg/chart"
)

// NewHandler creates the HTTP handler for the session manager.
//
//	POST   /sessions                  create and start a session
//	GET    /sessions/{id}/states      current active configuration
//	POST   /sessions/{id}/events      send an event, returns new configuration
//	DELETE /sessions/{id}             stop and dispose the session
func NewHandler(m *Manager) http.Handler {
	r := chi.NewRouter()

	r.Post("/sessions", m.handleCreate)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/states", m.handleStates)
		r.Post("/events", m.handleEvent)
		r.Delete("/", m.handleStop)
	})

	return r
}

type sessionResponse struct {
	SessionID     string   `json:"session_id"`
	Configuration []string `json:"configuration"`
	Stopped       bool     `json:"stopped,omitempty"`
}

type eventRequest struct {
	Name    string `json:"name"`
	Payload any    `json:"payload,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (m *Manager) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, interp, err := m.Create(r.Context())
	if err != nil {
		m.log.Error("session create failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:     id,
		Configuration: interp.CurrentStates(),
	})
}

func (m *Manager) handleStates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	interp, err := m.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	snap := interp.Snapshot()
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:     id,
		Configuration: snap.Configuration,
		Stopped:       snap.Stopped,
	})
}

func (m *Manager) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var body eventRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		m.log.Warn("invalid event body", "session", id, "err", err)
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("event name is required"))
		return
	}

	states, err := m.Send(r.Context(), id, chart.Event{Name: body.Name, Payload: body.Payload})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Configuration: states})
}

func (m *Manager) handleStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := m.Stop(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chart.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chart.ErrStopped), errors.Is(err, chart.ErrNotStarted):
		return http.StatusConflict
	case errors.Is(err, chart.ErrUnstable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
