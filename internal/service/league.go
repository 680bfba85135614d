package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Con7105/fantasy-valo/internal/dal"
	"github.com/Con7105/fantasy-valo/internal/draft"
	"github.com/Con7105/fantasy-valo/internal/league"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/pubsub"
)

const (
	DefaultSlotCount = 4
	DefaultPhase     = models.PhaseOpening
	MinMembers       = 2
)

// DefaultRoleConstraints fill a four-round draft: one duelist, one flex,
// one controller and one initiator.
var DefaultRoleConstraints = []models.RoleConstraint{
	{Slot: 0, Role: models.RoleDuelist},
	{Slot: 1, Role: models.RoleFlex},
	{Slot: 2, Role: models.RoleController},
	{Slot: 3, Role: models.RoleInitiator},
}

// WeekScorer scores one league week.
type WeekScorer interface {
	ScoreWeek(ctx context.Context, leagueID string, weekNumber int) (league.WeekResult, error)
}

type Standing struct {
	Name  string  `json:"name"`
	Wins  int     `json:"wins"`
	Score float64 `json:"score"`
}

type LeagueView struct {
	League    models.League         `json:"league"`
	Members   []models.LeagueMember `json:"members"`
	Weeks     []models.LeagueWeek   `json:"weeks"`
	Standings []Standing            `json:"standings"`
	Error     string                `json:"error,omitempty"`
	Disabled  bool                  `json:"disabled,omitempty"`
	Loaded    bool                  `json:"loaded"`
}

// Standings orders members by wins, then total scored points, then name.
func Standings(members []models.LeagueMember, weeks []models.LeagueWeek) []Standing {
	totals := map[string]float64{}
	for _, w := range weeks {
		if w.Status != models.WeekScored {
			continue
		}
		for name, s := range w.Scores {
			totals[name] += s
		}
	}
	out := make([]Standing, 0, len(members))
	for _, m := range members {
		out = append(out, Standing{Name: m.Name, Wins: m.Wins, Score: totals[m.Name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LeagueService is the live view of one league.
type LeagueService struct {
	leagueID string
	store    dal.Store
	scorer   WeekScorer
	bus      Bus

	mu   sync.RWMutex
	view LeagueView

	listeners listeners[LeagueView]
}

func NewLeagueService(leagueID string, store dal.Store, scorer WeekScorer, bus Bus) *LeagueService {
	s := &LeagueService{leagueID: leagueID, store: store, scorer: scorer, bus: bus}
	if store == nil {
		s.view = LeagueView{Disabled: true, Error: ErrStoreUnavailable.Error()}
	}
	return s
}

func (s *LeagueService) ID() string {
	return s.leagueID
}

func (s *LeagueService) CurrentState() LeagueView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *LeagueService) Subscribe(fn func(LeagueView)) (cancel func()) {
	return s.listeners.add(fn)
}

func (s *LeagueService) set(v LeagueView) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	s.listeners.notify(v)
}

func (s *LeagueService) setError(msg string) {
	s.mu.Lock()
	s.view.Error = msg
	v := s.view
	s.mu.Unlock()
	s.listeners.notify(v)
}

// Refresh reloads the league, its members and its weeks.
func (s *LeagueService) Refresh(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	l, err := s.store.GetLeague(ctx, s.leagueID)
	if err != nil {
		s.setError(describe(err, "league"))
		return err
	}
	members, err := s.store.ListMembers(ctx, s.leagueID)
	if err != nil {
		s.setError(describe(err, "league members"))
		return err
	}
	weeks, err := s.store.ListWeeks(ctx, s.leagueID)
	if err != nil {
		s.setError(describe(err, "league weeks"))
		return err
	}
	s.set(LeagueView{
		League:    l,
		Members:   members,
		Weeks:     weeks,
		Standings: Standings(members, weeks),
		Loaded:    true,
	})
	return nil
}

// Join adds name to a league that is still taking members.
func (s *LeagueService) Join(ctx context.Context, name string) (models.LeagueMember, error) {
	if s.store == nil {
		return models.LeagueMember{}, ErrStoreUnavailable
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.LeagueMember{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	l, err := s.store.GetLeague(ctx, s.leagueID)
	if err != nil {
		return models.LeagueMember{}, err
	}
	if l.Status != models.LeagueJoining {
		return models.LeagueMember{}, fmt.Errorf("%w: league is no longer taking members", ErrInvalidState)
	}

	// join order races with other joiners; a lost race retries with the new count
	for attempt := 0; attempt < 3; attempt++ {
		members, err := s.store.ListMembers(ctx, s.leagueID)
		if err != nil {
			return models.LeagueMember{}, err
		}
		for _, m := range members {
			if strings.EqualFold(m.Name, name) {
				return models.LeagueMember{}, fmt.Errorf("%q already joined: %w", name, dal.ErrConflict)
			}
		}

		member := models.LeagueMember{LeagueID: s.leagueID, Name: name, JoinOrder: len(members)}
		err = s.store.AddMember(ctx, &member)
		if errors.Is(err, dal.ErrConflict) {
			continue
		}
		if err != nil {
			return models.LeagueMember{}, err
		}

		logger.Info("Member joined league", "league_id", s.leagueID, "name", name, "join_order", member.JoinOrder)
		e := pubsub.Changed(pubsub.TypeInsert, pubsub.TableLeagueMembers, s.leagueID)
		e.Payload = map[string]any{"name": name}
		publish(s.bus, e)
		s.refreshQuietly(ctx)
		return member, nil
	}
	return models.LeagueMember{}, fmt.Errorf("could not join %q: %w", name, dal.ErrConflict)
}

// StartDraft opens the league's draft room with members in join order and
// a random snake order.
func (s *LeagueService) StartDraft(ctx context.Context) (models.DraftRoom, error) {
	if s.store == nil {
		return models.DraftRoom{}, ErrStoreUnavailable
	}
	l, err := s.store.GetLeague(ctx, s.leagueID)
	if err != nil {
		return models.DraftRoom{}, err
	}
	if l.Status != models.LeagueJoining {
		return models.DraftRoom{}, fmt.Errorf("%w: draft already started", ErrInvalidState)
	}
	members, err := s.store.ListMembers(ctx, s.leagueID)
	if err != nil {
		return models.DraftRoom{}, err
	}
	if len(members) < MinMembers {
		return models.DraftRoom{}, fmt.Errorf("%w: need at least %d members to start the draft", ErrInvalidState, MinMembers)
	}

	sort.SliceStable(members, func(i, j int) bool { return members[i].JoinOrder < members[j].JoinOrder })
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}

	room := models.DraftRoom{
		LeagueID:        l.ID,
		EventID:         l.EventID,
		EventName:       l.EventName,
		Phase:           DefaultPhase,
		Participants:    names,
		SnakeOrder:      draft.RandomSnakeOrder(len(names)),
		SlotCount:       DefaultSlotCount,
		RoleConstraints: append([]models.RoleConstraint(nil), DefaultRoleConstraints...),
		CurrentRound:    1,
		Status:          models.DraftDrafting,
	}
	if err := s.store.CreateRoom(ctx, &room); err != nil {
		return models.DraftRoom{}, fmt.Errorf("failed to create draft room: %w", err)
	}

	l.DraftRoomID = room.ID
	l.Status = models.LeagueDrafting
	if err := s.store.UpdateLeague(ctx, &l); err != nil {
		return models.DraftRoom{}, fmt.Errorf("failed to link draft room: %w", err)
	}

	logger.Info("Draft started", "league_id", l.ID, "room_id", room.ID, "participants", len(names))
	publish(s.bus,
		pubsub.Changed(pubsub.TypeInsert, pubsub.TableDraftRooms, room.ID),
		pubsub.Changed(pubsub.TypeUpdate, pubsub.TableLeagues, l.ID),
	)
	s.refreshQuietly(ctx)
	return room, nil
}

// ScoreWeek scores a week of this league. Scoring an already scored week
// returns the stored result.
func (s *LeagueService) ScoreWeek(ctx context.Context, weekNumber int) (league.WeekResult, error) {
	if s.store == nil || s.scorer == nil {
		return league.WeekResult{}, ErrStoreUnavailable
	}
	res, err := s.scorer.ScoreWeek(ctx, s.leagueID, weekNumber)
	if err != nil {
		s.setError(err.Error())
		return league.WeekResult{}, err
	}
	if !res.AlreadyScored {
		e := pubsub.Changed(pubsub.TypeUpdate, pubsub.TableLeagueWeeks, s.leagueID)
		e.Payload = map[string]any{"weekNumber": weekNumber}
		publish(s.bus, e, pubsub.Changed(pubsub.TypeUpdate, pubsub.TableLeagueMembers, s.leagueID))
	}
	s.refreshQuietly(ctx)
	return res, nil
}

// Watch refreshes the view whenever the league, its members or its weeks
// change. It returns when ctx is done.
func (s *LeagueService) Watch(ctx context.Context) {
	if s.store == nil {
		return
	}
	tables := []string{pubsub.TableLeagues, pubsub.TableLeagueMembers, pubsub.TableLeagueWeeks}
	watch(ctx.Done(), s.bus, s.leagueID, tables, func() {
		s.refreshQuietly(ctx)
	})
}

func (s *LeagueService) refreshQuietly(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("Failed to refresh league", "league_id", s.leagueID, "error", err)
	}
}
