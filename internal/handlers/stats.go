package handlers

import (
	"errors"
	"net/http"

	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/stats"
)

var errNoProvider = errors.New("stats provider is not configured")

type pointsResponse struct {
	EventID     string             `json:"eventId"`
	Phase       models.Phase       `json:"phase,omitempty"`
	FinalScores map[string]float64 `json:"finalScores"`
	stats.PointsResult
}

// PlayerPoints returns every player's per-map points for an event, limited
// to one phase when ?phase= is given.
func (h *APIHandlers) PlayerPoints(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusServiceUnavailable, errNoProvider.Error())
		return
	}
	eventID := r.PathValue("eventId")

	var (
		res   stats.PointsResult
		phase models.Phase
		err   error
	)
	if q := r.URL.Query().Get("phase"); q != "" {
		if phase, err = parsePhase(q); err != nil {
			fail(w, r, err)
			return
		}
		res, err = h.stats.PointsForPhase(r.Context(), eventID, phase)
	} else {
		res, err = h.stats.PerPlayerMapPoints(r.Context(), eventID, nil)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, pointsResponse{
		EventID:      eventID,
		Phase:        phase,
		FinalScores:  res.FinalScores(),
		PointsResult: res,
	})
}

// PlayerPool returns the draftable players of an event with their averages.
func (h *APIHandlers) PlayerPool(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusServiceUnavailable, errNoProvider.Error())
		return
	}
	pool, err := h.stats.EventPlayerPool(r.Context(), r.PathValue("eventId"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if pool == nil {
		pool = []models.EventPlayerStat{}
	}
	writeJSON(w, http.StatusOK, pool)
}
