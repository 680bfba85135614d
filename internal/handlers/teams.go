package handlers

import (
	"net/http"

	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/teams"
)

type teamRequest struct {
	Label string `json:"label" validate:"max=100"`
}

type slotRequest struct {
	PlayerName string `json:"playerName" validate:"required,max=100"`
	TeamName   string `json:"teamName" validate:"required,max=100"`
	PlayerURL  string `json:"playerUrl" validate:"omitempty,url"`
}

func (s slotRequest) slot() models.RosterSlot {
	return models.RosterSlot{PlayerName: s.PlayerName, TeamName: s.TeamName, PlayerURL: s.PlayerURL}
}

type selectEventRequest struct {
	EventID   string `json:"eventId" validate:"required"`
	EventName string `json:"eventName"`
}

func (h *APIHandlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	list, err := h.book.List()
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *APIHandlers) AddTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	team, err := h.book.Add(req.Label)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *APIHandlers) RenameTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	team, err := h.book.Rename(r.PathValue("id"), req.Label)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *APIHandlers) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.book.Delete(r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *APIHandlers) AddTeamPlayer(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	team, err := h.book.AddPlayer(r.PathValue("id"), req.slot())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *APIHandlers) RemoveTeamPlayer(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	team, err := h.book.RemovePlayer(r.PathValue("id"), req.slot())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

type rosterResponse struct {
	EventID string              `json:"eventId"`
	Slots   []models.RosterSlot `json:"slots"`
	Locked  bool                `json:"locked"`
	Total   *float64            `json:"total,omitempty"`
}

// locked asks the provider whether the event has started. Without a
// provider the roster stays editable.
func (h *APIHandlers) locked(r *http.Request, eventID string) (bool, error) {
	if h.matches == nil {
		return false, nil
	}
	matches, err := h.matches.EventMatches(r.Context(), eventID)
	if err != nil {
		return false, err
	}
	return teams.Locked(matches), nil
}

// GetRoster returns the pick-five roster; ?points=1 adds its total score.
func (h *APIHandlers) GetRoster(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")
	slots, err := teams.NewRoster(h.local, eventID).Slots()
	if err != nil {
		fail(w, r, err)
		return
	}
	resp := rosterResponse{EventID: eventID, Slots: slots}
	if resp.Locked, err = h.locked(r, eventID); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if r.URL.Query().Get("points") != "" && h.stats != nil {
		res, err := h.stats.PerPlayerMapPoints(r.Context(), eventID, nil)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		total := teams.TotalPoints(slots, res.MapPoints)
		resp.Total = &total
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) AddRosterPlayer(w http.ResponseWriter, r *http.Request) {
	h.changeRoster(w, r, (*teams.Roster).Add)
}

func (h *APIHandlers) RemoveRosterPlayer(w http.ResponseWriter, r *http.Request) {
	h.changeRoster(w, r, (*teams.Roster).Remove)
}

func (h *APIHandlers) changeRoster(w http.ResponseWriter, r *http.Request, change func(*teams.Roster, models.RosterSlot, bool) ([]models.RosterSlot, error)) {
	var req slotRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	eventID := r.PathValue("eventId")
	locked, err := h.locked(r, eventID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	slots, err := change(teams.NewRoster(h.local, eventID), req.slot(), locked)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rosterResponse{EventID: eventID, Slots: slots, Locked: locked})
}

func (h *APIHandlers) GetSelectedEvent(w http.ResponseWriter, r *http.Request) {
	id, name, err := h.prefs.SelectedEvent()
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"eventId": id, "eventName": name})
}

func (h *APIHandlers) SelectEvent(w http.ResponseWriter, r *http.Request) {
	var req selectEventRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.prefs.SelectEvent(req.EventID, req.EventName); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"eventId": req.EventID, "eventName": req.EventName})
}
