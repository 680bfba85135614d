package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Con7105/fantasy-valo/internal/dal"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/pubsub"
)

// Registry caches one live service per draft room and league so every
// transport shares the same views.
type Registry struct {
	store  dal.Store
	scorer WeekScorer
	bus    Bus

	mu       sync.Mutex
	drafts   map[string]*DraftService
	leagues  map[string]*LeagueService
	watchCtx context.Context
}

// NewRegistry builds a registry. A nil store disables draft and league
// features without failing.
func NewRegistry(store dal.Store, scorer WeekScorer, bus Bus) *Registry {
	return &Registry{
		store:   store,
		scorer:  scorer,
		bus:     bus,
		drafts:  map[string]*DraftService{},
		leagues: map[string]*LeagueService{},
	}
}

func (r *Registry) Available() bool {
	return r.store != nil
}

// WatchAll starts change watchers for cached services and for every service
// created afterwards. They stop when ctx is done.
func (r *Registry) WatchAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchCtx = ctx
	for _, d := range r.drafts {
		go d.Watch(ctx)
	}
	for _, l := range r.leagues {
		go l.Watch(ctx)
	}
}

func (r *Registry) Draft(roomID string) *DraftService {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.drafts[roomID]; ok {
		return d
	}
	d := NewDraftService(roomID, r.store, r.bus)
	r.drafts[roomID] = d
	if r.watchCtx != nil {
		go d.Watch(r.watchCtx)
	}
	return d
}

func (r *Registry) League(leagueID string) *LeagueService {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leagues[leagueID]; ok {
		return l
	}
	l := NewLeagueService(leagueID, r.store, r.scorer, r.bus)
	r.leagues[leagueID] = l
	if r.watchCtx != nil {
		go l.Watch(r.watchCtx)
	}
	return l
}

// LoadedDraft returns the draft service with a loaded view.
// Unknown ids are checked against the store first so they are never cached.
func (r *Registry) LoadedDraft(ctx context.Context, roomID string) (*DraftService, error) {
	r.mu.Lock()
	_, cached := r.drafts[roomID]
	r.mu.Unlock()
	if !cached {
		if r.store == nil {
			return nil, ErrStoreUnavailable
		}
		if _, err := r.store.GetRoom(ctx, roomID); err != nil {
			return nil, err
		}
	}
	d := r.Draft(roomID)
	if !d.CurrentState().Loaded {
		if err := d.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// LoadedLeague returns the league service with a loaded view.
func (r *Registry) LoadedLeague(ctx context.Context, leagueID string) (*LeagueService, error) {
	r.mu.Lock()
	_, cached := r.leagues[leagueID]
	r.mu.Unlock()
	if !cached {
		if r.store == nil {
			return nil, ErrStoreUnavailable
		}
		if _, err := r.store.GetLeague(ctx, leagueID); err != nil {
			return nil, err
		}
	}
	l := r.League(leagueID)
	if !l.CurrentState().Loaded {
		if err := l.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// CreateLeague opens a new league for an event.
func (r *Registry) CreateLeague(ctx context.Context, name, eventID, eventName string) (models.League, error) {
	if r.store == nil {
		return models.League{}, ErrStoreUnavailable
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(eventID) == "" {
		return models.League{}, fmt.Errorf("%w: league name and event are required", ErrInvalidInput)
	}
	l := models.League{Name: name, EventID: eventID, EventName: eventName, Status: models.LeagueJoining}
	if err := r.store.CreateLeague(ctx, &l); err != nil {
		return models.League{}, fmt.Errorf("failed to create league: %w", err)
	}
	logger.Info("League created", "league_id", l.ID, "event_id", eventID)
	publish(r.bus, pubsub.Changed(pubsub.TypeInsert, pubsub.TableLeagues, l.ID))
	return l, nil
}

func (r *Registry) ListLeagues(ctx context.Context) ([]models.League, error) {
	if r.store == nil {
		return nil, ErrStoreUnavailable
	}
	return r.store.ListLeagues(ctx)
}

// RefreshDrafts reloads every cached draft that is still in progress.
func (r *Registry) RefreshDrafts(ctx context.Context) {
	for _, d := range r.draftList() {
		v := d.CurrentState()
		if v.Disabled || (v.Loaded && v.Room.Status == models.DraftCompleted && len(v.Room.Matchups) > 0) {
			continue
		}
		if err := d.Refresh(ctx); err != nil {
			logger.Debug("Draft poll failed", "room_id", d.ID(), "error", err)
		}
	}
}

// RefreshLeagues reloads every cached league.
func (r *Registry) RefreshLeagues(ctx context.Context) {
	for _, l := range r.leagueList() {
		if l.CurrentState().Disabled {
			continue
		}
		if err := l.Refresh(ctx); err != nil {
			logger.Debug("League poll failed", "league_id", l.ID(), "error", err)
		}
	}
}

func (r *Registry) draftList() []*DraftService {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*DraftService, 0, len(r.drafts))
	for _, d := range r.drafts {
		out = append(out, d)
	}
	return out
}

func (r *Registry) leagueList() []*LeagueService {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*LeagueService, 0, len(r.leagues))
	for _, l := range r.leagues {
		out = append(out, l)
	}
	return out
}
