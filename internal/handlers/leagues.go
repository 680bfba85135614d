package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Con7105/fantasy-valo/internal/draft"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/service"
)

type createLeagueRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	EventID   string `json:"eventId" validate:"required"`
	EventName string `json:"eventName" validate:"omitempty,max=200"`
}

type joinLeagueRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type pickRequest struct {
	PlayerName  string      `json:"playerName" validate:"required,max=100"`
	TeamName    string      `json:"teamName" validate:"max=100"`
	Role        models.Role `json:"role" validate:"omitempty,oneof=duelist flex senti controller initiator senti_controller_initiator"`
	Participant *int        `json:"participant" validate:"omitempty,min=0"`
}

// pickResponse carries the outcome with the state after it, so a client
// that lost a race can redraw without another request.
type pickResponse struct {
	Outcome draft.Outcome     `json:"outcome"`
	State   service.DraftView `json:"state"`
}

func (h *APIHandlers) ListLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.registry.ListLeagues(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if leagues == nil {
		leagues = []models.League{}
	}
	writeJSON(w, http.StatusOK, leagues)
}

func (h *APIHandlers) CreateLeague(w http.ResponseWriter, r *http.Request) {
	var req createLeagueRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	l, err := h.registry.CreateLeague(r.Context(), req.Name, req.EventID, req.EventName)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *APIHandlers) GetLeague(w http.ResponseWriter, r *http.Request) {
	svc, err := h.registry.LoadedLeague(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc.CurrentState())
}

func (h *APIHandlers) JoinLeague(w http.ResponseWriter, r *http.Request) {
	var req joinLeagueRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	svc, err := h.registry.LoadedLeague(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	member, err := svc.Join(r.Context(), req.Name)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *APIHandlers) StartDraft(w http.ResponseWriter, r *http.Request) {
	svc, err := h.registry.LoadedLeague(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	room, err := svc.StartDraft(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *APIHandlers) ScoreWeek(w http.ResponseWriter, r *http.Request) {
	week, err := strconv.Atoi(r.PathValue("week"))
	if err != nil || week < 1 {
		fail(w, r, fmt.Errorf("%w: week must be a positive number", service.ErrInvalidInput))
		return
	}
	svc, err := h.registry.LoadedLeague(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := svc.ScoreWeek(r.Context(), week)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	svc, err := h.registry.LoadedDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc.CurrentState())
}

func (h *APIHandlers) SubmitPick(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Available() {
		fail(w, r, service.ErrStoreUnavailable)
		return
	}
	var req pickRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	svc, err := h.registry.LoadedDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	out := svc.SubmitPick(r.Context(), service.PickRequest{
		Candidate:   draft.Candidate{PlayerName: req.PlayerName, TeamName: req.TeamName, Role: req.Role},
		Participant: req.Participant,
	})

	status := http.StatusCreated
	switch out.Kind {
	case draft.OutcomeRejected:
		status = http.StatusBadRequest
	case draft.OutcomeConflict:
		status = http.StatusConflict
	case draft.OutcomeFailed:
		status = statusFor(out.Err)
		if status >= http.StatusInternalServerError {
			logger.Error("Pick failed", "room_id", svc.ID(), "message", out.Message)
		}
	}
	writeJSON(w, status, pickResponse{Outcome: out, State: svc.CurrentState()})
}

func (h *APIHandlers) GenerateMatchups(w http.ResponseWriter, r *http.Request) {
	svc, err := h.registry.LoadedDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	rounds, err := svc.GenerateMatchups(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

type myParticipantRequest struct {
	Participant *int `json:"participant" validate:"required,min=0"`
}

// GetMyParticipant returns which participant this device drafts for, or -1.
func (h *APIHandlers) GetMyParticipant(w http.ResponseWriter, r *http.Request) {
	idx, err := h.prefs.MyParticipant(r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"participant": idx})
}

func (h *APIHandlers) SetMyParticipant(w http.ResponseWriter, r *http.Request) {
	var req myParticipantRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.prefs.SetMyParticipant(r.PathValue("id"), *req.Participant); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"participant": *req.Participant})
}
