// Package handlers is the HTTP JSON API: leagues, drafts, event stats and
// the device-local fantasy teams, plus SSE and WebSocket change streams.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Con7105/fantasy-valo/internal/dal"
	"github.com/Con7105/fantasy-valo/internal/kv"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/service"
	"github.com/Con7105/fantasy-valo/internal/stats"
	"github.com/Con7105/fantasy-valo/internal/teams"
)

// Stats computes event points and the draftable player pool.
type Stats interface {
	PerPlayerMapPoints(ctx context.Context, eventID string, filter stats.MatchFilter) (stats.PointsResult, error)
	PointsForPhase(ctx context.Context, eventID string, phase models.Phase) (stats.PointsResult, error)
	EventPlayerPool(ctx context.Context, eventID string) ([]models.EventPlayerStat, error)
}

// Matches lists an event's matches; rosters lock once one has started.
type Matches interface {
	EventMatches(ctx context.Context, eventID string) ([]models.EventMatch, error)
}

// APIHandlers contains all API handler methods
type APIHandlers struct {
	registry *service.Registry
	bus      service.Bus
	stats    Stats
	matches  Matches
	local    kv.Store
	book     *teams.Book
	prefs    *teams.Preferences
	validate *validator.Validate
}

// NewAPIHandlers wires the handlers. stats and matches may be nil when no
// provider is configured; those routes then answer 503.
func NewAPIHandlers(registry *service.Registry, bus service.Bus, st Stats, matches Matches, local kv.Store) *APIHandlers {
	return &APIHandlers{
		registry: registry,
		bus:      bus,
		stats:    st,
		matches:  matches,
		local:    local,
		book:     teams.NewBook(local),
		prefs:    teams.NewPreferences(local),
		validate: validator.New(),
	}
}

// Register mounts every API route on mux.
func (h *APIHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/leagues", h.ListLeagues)
	mux.HandleFunc("POST /api/leagues", h.CreateLeague)
	mux.HandleFunc("GET /api/leagues/{id}", h.GetLeague)
	mux.HandleFunc("POST /api/leagues/{id}/members", h.JoinLeague)
	mux.HandleFunc("POST /api/leagues/{id}/draft", h.StartDraft)
	mux.HandleFunc("POST /api/leagues/{id}/weeks/{week}/score", h.ScoreWeek)

	mux.HandleFunc("GET /api/drafts/{id}", h.GetDraft)
	mux.HandleFunc("POST /api/drafts/{id}/picks", h.SubmitPick)
	mux.HandleFunc("POST /api/drafts/{id}/matchups", h.GenerateMatchups)
	mux.HandleFunc("GET /api/drafts/{id}/me", h.GetMyParticipant)
	mux.HandleFunc("PUT /api/drafts/{id}/me", h.SetMyParticipant)

	mux.HandleFunc("GET /api/stats/{eventId}/points", h.PlayerPoints)
	mux.HandleFunc("GET /api/stats/{eventId}/players", h.PlayerPool)

	mux.HandleFunc("GET /api/teams", h.ListTeams)
	mux.HandleFunc("POST /api/teams", h.AddTeam)
	mux.HandleFunc("PUT /api/teams/{id}", h.RenameTeam)
	mux.HandleFunc("DELETE /api/teams/{id}", h.DeleteTeam)
	mux.HandleFunc("POST /api/teams/{id}/players", h.AddTeamPlayer)
	mux.HandleFunc("DELETE /api/teams/{id}/players", h.RemoveTeamPlayer)

	mux.HandleFunc("GET /api/roster/{eventId}", h.GetRoster)
	mux.HandleFunc("POST /api/roster/{eventId}", h.AddRosterPlayer)
	mux.HandleFunc("DELETE /api/roster/{eventId}", h.RemoveRosterPlayer)

	mux.HandleFunc("GET /api/prefs/event", h.GetSelectedEvent)
	mux.HandleFunc("PUT /api/prefs/event", h.SelectEvent)

	mux.HandleFunc("GET /api/events", h.EventsSSE)
	mux.HandleFunc("GET /api/ws", h.EventsWS)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v and validates its struct tags.
func (h *APIHandlers) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", service.ErrInvalidInput, err)
	}
	if err := h.validate.StructCtx(r.Context(), v); err != nil {
		return fmt.Errorf("%w: validation failed: %v", service.ErrInvalidInput, err)
	}
	return nil
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, teams.ErrRosterFull),
		errors.Is(err, teams.ErrAlreadyAdded),
		errors.Is(err, teams.ErrTeamLimit):
		return http.StatusBadRequest
	case errors.Is(err, dal.ErrNotFound), errors.Is(err, teams.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dal.ErrConflict),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, teams.ErrRosterLocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail logs and writes err with its mapped status.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func parsePhase(s string) (models.Phase, error) {
	switch p := models.Phase(strings.TrimSpace(s)); p {
	case models.PhaseOpening, models.PhaseMiddle, models.PhaseDecider:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown phase %q", service.ErrInvalidInput, s)
	}
}
