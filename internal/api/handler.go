package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"experiment-bridge/internal/config"
	"experiment-bridge/internal/emitter"
	"experiment-bridge/internal/engine"
	"experiment-bridge/internal/host"
)

type SessionHandler struct {
	Sessions *Sessions
}

func NewSessionHandler(s *Sessions) *SessionHandler {
	return &SessionHandler{Sessions: s}
}

type createRequest struct {
	Options *config.IntegrationPatch `json:"options,omitempty"`
	Host    host.Document            `json:"host"`
}

type createResponse struct {
	SessionID string          `json:"sessionId"`
	Events    []emitter.Event `json:"events"`
}

type eventsResponse struct {
	Events []emitter.Event `json:"events"`
}

// decideRequest is a campaign activation. Redirect, when set, replaces the
// redirect info the host reports from now on.
type decideRequest struct {
	host.CampaignState
	Redirect *host.RedirectInfo `json:"redirect,omitempty"`
}

type experimentsRequest struct {
	Experiments []engine.ExperimentState `json:"experiments"`
}

type trackRequest struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

type identifyRequest struct {
	UserID string `json:"userId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func nonNil(events []emitter.Event) []emitter.Event {
	if events == nil {
		return []emitter.Event{}
	}
	return events
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid session body: "+err.Error())
		return
	}
	s, events := h.Sessions.Create(req.Host, req.Options)
	writeJSON(w, http.StatusCreated, createResponse{SessionID: s.ID, Events: nonNil(events)})
}

// session resolves the {id} URL param, writing 404 when it is unknown.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req decideRequest
	if err := decode(r, &req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "campaign with id required")
		return
	}
	events := s.Do(func(hm *host.Memory, _ *emitter.Emitter) {
		if req.Redirect != nil {
			hm.SetRedirect(req.Redirect)
		}
		hm.Decide(req.CampaignState)
	})
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(events)})
}

// Experiments emits experiment states the page already joined with their
// variations.
func (h *SessionHandler) Experiments(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req experimentsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid experiments body: "+err.Error())
		return
	}
	for _, st := range req.Experiments {
		if st.Experiment.ID == "" {
			writeError(w, http.StatusBadRequest, "experiment id required")
			return
		}
	}
	events := s.Do(func(*host.Memory, *emitter.Emitter) { s.reg.ProcessExperiments(req.Experiments) })
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(events)})
}

func (h *SessionHandler) Initialized(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	events := s.Do(func(hm *host.Memory, _ *emitter.Emitter) { hm.MarkInitialized() })
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(events)})
}

func (h *SessionHandler) Track(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req trackRequest
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Event) == "" {
		writeError(w, http.StatusBadRequest, "event name required")
		return
	}
	events := s.Do(func(_ *host.Memory, em *emitter.Emitter) { em.Track(req.Event, req.Properties) })
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(events)})
}

func (h *SessionHandler) Page(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var p emitter.Page
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid page body: "+err.Error())
		return
	}
	events := s.Do(func(_ *host.Memory, em *emitter.Emitter) { em.EmitPageTrack(p) })
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(events)})
}

func (h *SessionHandler) Identify(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req identifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid identify body: "+err.Error())
		return
	}
	events := s.Do(func(_ *host.Memory, em *emitter.Emitter) { em.Identify(req.UserID) })
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(events)})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Referrer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ref, ok := s.Referrer()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	log.Debug().Str("session", s.ID).Str("referrer", ref).Msg("referrer override read")
	writeJSON(w, http.StatusOK, map[string]string{"referrer": ref})
}
