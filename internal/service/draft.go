package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Con7105/fantasy-valo/internal/dal"
	"github.com/Con7105/fantasy-valo/internal/draft"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/matchup"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/pubsub"
)

// DraftView is everything a client needs to render a draft room.
type DraftView struct {
	Room    models.DraftRoom     `json:"room"`
	Picks   []models.DraftPick   `json:"picks"`
	Rosters [][]models.DraftPick `json:"rosters"`
	// CurrentParticipant is -1 when nobody is on the clock.
	CurrentParticipant int         `json:"currentParticipant"`
	CurrentName        string      `json:"currentName,omitempty"`
	RequiredRole       models.Role `json:"requiredRole,omitempty"`
	TotalPicks         int         `json:"totalPicks"`
	Error              string      `json:"error,omitempty"`
	Disabled           bool        `json:"disabled,omitempty"`
	Loaded             bool        `json:"loaded"`
}

func newDraftView(room models.DraftRoom, picks []models.DraftPick) DraftView {
	v := DraftView{
		Room:               room,
		Picks:              picks,
		Rosters:            draft.Rosters(room, picks),
		CurrentParticipant: -1,
		TotalPicks:         draft.TotalPicks(len(room.Participants), room.SlotCount),
		Loaded:             true,
	}
	if p, ok := draft.CurrentTurn(room); ok {
		v.CurrentParticipant = p
		if p < len(room.Participants) {
			v.CurrentName = room.Participants[p]
		}
		v.RequiredRole, _ = draft.RequiredRole(room)
	}
	return v
}

// PickRequest is a participant's attempt to draft a player. Participant,
// when set, must be the one on the clock.
type PickRequest struct {
	draft.Candidate
	Participant *int `json:"participant,omitempty"`
}

// DraftService is the live view of one draft room.
type DraftService struct {
	roomID string
	store  dal.Store
	bus    Bus

	mu   sync.RWMutex
	view DraftView

	listeners listeners[DraftView]
}

// NewDraftService builds the service for roomID. A nil store yields a
// disabled service that reports ErrStoreUnavailable.
func NewDraftService(roomID string, store dal.Store, bus Bus) *DraftService {
	s := &DraftService{roomID: roomID, store: store, bus: bus}
	if store == nil {
		s.view = DraftView{CurrentParticipant: -1, Disabled: true, Error: ErrStoreUnavailable.Error()}
	}
	return s
}

func (s *DraftService) ID() string {
	return s.roomID
}

func (s *DraftService) CurrentState() DraftView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Subscribe calls fn with every new view until cancel is called.
func (s *DraftService) Subscribe(fn func(DraftView)) (cancel func()) {
	return s.listeners.add(fn)
}

func (s *DraftService) set(v DraftView) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	s.listeners.notify(v)
}

func (s *DraftService) setError(msg string) {
	s.mu.Lock()
	s.view.Error = msg
	v := s.view
	s.mu.Unlock()
	s.listeners.notify(v)
}

// Refresh reloads the room and its picks from the store.
func (s *DraftService) Refresh(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	room, err := s.store.GetRoom(ctx, s.roomID)
	if err != nil {
		s.setError(describe(err, "draft room"))
		return err
	}
	picks, err := s.store.ListPicks(ctx, s.roomID)
	if err != nil {
		s.setError(describe(err, "draft picks"))
		return err
	}
	s.set(newDraftView(room, picks))
	return nil
}

func (s *DraftService) loaded(ctx context.Context) (DraftView, error) {
	if v := s.CurrentState(); v.Loaded {
		return v, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return DraftView{}, err
	}
	return s.CurrentState(), nil
}

// SubmitPick validates the pick against the cached room and asks the store
// to append it. Losing a race to another client is not an error: the view
// is reloaded and a conflict outcome returned.
func (s *DraftService) SubmitPick(ctx context.Context, req PickRequest) draft.Outcome {
	if s.store == nil {
		return draft.Failed(ErrStoreUnavailable)
	}
	view, err := s.loaded(ctx)
	if err != nil {
		return draft.Failed(err)
	}

	pick, rejection := draft.Plan(view.Room, view.Picks, req.Candidate)
	if rejection == "" && req.Participant != nil && *req.Participant != pick.ParticipantIndex {
		rejection = draft.RejectNotYourTurn
	}
	if rejection != "" {
		logger.Debug("Pick rejected", "room_id", s.roomID, "player", req.PlayerName, "reason", rejection)
		return draft.Rejected(rejection)
	}

	next := draft.Advance(view.Room)
	err = s.store.InsertPick(ctx, &pick, &next)
	if errors.Is(err, dal.ErrConflict) {
		logger.Info("Pick lost a race, resyncing", "room_id", s.roomID, "player_key", pick.PlayerKey)
		if rerr := s.Refresh(ctx); rerr != nil {
			logger.Warn("Failed to resync draft room", "room_id", s.roomID, "error", rerr)
		}
		s.setError(draft.ConflictMessage)
		return draft.Conflict()
	}
	if err != nil {
		logger.Error("Failed to save pick", "room_id", s.roomID, "error", err)
		s.setError(err.Error())
		return draft.Failed(err)
	}

	picks := append(append([]models.DraftPick(nil), view.Picks...), pick)
	s.set(newDraftView(next, picks))

	logger.Info("Player drafted", "room_id", s.roomID, "player_key", pick.PlayerKey,
		"round", pick.Round, "pick_index", pick.PickIndex, "participant", pick.ParticipantIndex)

	inserted := pubsub.Changed(pubsub.TypeInsert, pubsub.TableDraftPicks, s.roomID)
	inserted.Payload = map[string]any{
		"playerKey":        pick.PlayerKey,
		"round":            pick.Round,
		"pickIndex":        pick.PickIndex,
		"participantIndex": pick.ParticipantIndex,
	}
	publish(s.bus, inserted, roomChanged(next))
	return draft.Accepted(pick)
}

// GenerateMatchups schedules the round robin for a completed draft. For a
// league draft it also creates the scoring weeks and activates the league.
// Calling it again returns the stored schedule.
func (s *DraftService) GenerateMatchups(ctx context.Context) ([]models.MatchupRound, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	room, err := s.store.GetRoom(ctx, s.roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.DraftCompleted {
		return nil, fmt.Errorf("%w: draft is not complete", ErrInvalidState)
	}
	if len(room.Matchups) > 0 {
		return room.Matchups, nil
	}

	room.Matchups = matchup.Generate(room.Participants)
	if err := s.store.UpdateRoom(ctx, &room); err != nil {
		return nil, fmt.Errorf("failed to save matchups: %w", err)
	}
	publish(s.bus, roomChanged(room))
	logger.Info("Matchups generated", "room_id", s.roomID, "rounds", len(room.Matchups))

	if room.LeagueID != "" {
		if err := s.activateLeague(ctx, room); err != nil {
			return nil, err
		}
	}

	if err := s.Refresh(ctx); err != nil {
		logger.Warn("Failed to refresh after generating matchups", "room_id", s.roomID, "error", err)
	}
	return room.Matchups, nil
}

func (s *DraftService) activateLeague(ctx context.Context, room models.DraftRoom) error {
	weeks := matchup.SeasonWeeks(room.LeagueID, room.Matchups)
	if err := s.store.CreateWeeks(ctx, weeks); err != nil && !errors.Is(err, dal.ErrConflict) {
		return fmt.Errorf("failed to create league weeks: %w", err)
	}

	league, err := s.store.GetLeague(ctx, room.LeagueID)
	if err != nil {
		return fmt.Errorf("failed to load league: %w", err)
	}
	league.Status = models.LeagueActive
	if err := s.store.UpdateLeague(ctx, &league); err != nil {
		return fmt.Errorf("failed to activate league: %w", err)
	}

	publish(s.bus,
		pubsub.Changed(pubsub.TypeInsert, pubsub.TableLeagueWeeks, league.ID),
		pubsub.Changed(pubsub.TypeUpdate, pubsub.TableLeagues, league.ID),
	)
	logger.Info("League activated", "league_id", league.ID, "weeks", len(weeks))
	return nil
}

// Watch refreshes the view whenever another client changes the room or its
// picks. It returns when ctx is done.
func (s *DraftService) Watch(ctx context.Context) {
	if s.store == nil {
		return
	}
	watch(ctx.Done(), s.bus, s.roomID, []string{pubsub.TableDraftRooms, pubsub.TableDraftPicks}, func() {
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Failed to refresh draft room", "room_id", s.roomID, "error", err)
		}
	})
}

func roomChanged(room models.DraftRoom) pubsub.Event {
	e := pubsub.Changed(pubsub.TypeUpdate, pubsub.TableDraftRooms, room.ID)
	e.Payload = map[string]any{
		"status":           string(room.Status),
		"currentPickIndex": room.CurrentPickIndex,
		"currentRound":     room.CurrentRound,
	}
	return e
}

// describe turns a store error into a short message for the view.
func describe(err error, what string) string {
	switch {
	case errors.Is(err, dal.ErrNotFound):
		return what + " not found"
	case errors.Is(err, ErrStoreUnavailable):
		return err.Error()
	default:
		return "failed to load " + what + ": " + err.Error()
	}
}
