package dal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Con7105/fantasy-valo/internal/models"
)

// MemoryStore implements Store using in-memory storage
type MemoryStore struct {
	mu      sync.RWMutex
	rooms   map[string]models.DraftRoom
	picks   map[string][]models.DraftPick
	leagues map[string]models.League
	members map[string][]models.LeagueMember
	weeks   map[string][]models.LeagueWeek
}

// NewMemoryStore creates a new in-memory data access layer
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]models.DraftRoom),
		picks:   make(map[string][]models.DraftPick),
		leagues: make(map[string]models.League),
		members: make(map[string][]models.LeagueMember),
		weeks:   make(map[string][]models.LeagueWeek),
	}
}

func (m *MemoryStore) CreateRoom(ctx context.Context, room *models.DraftRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.ID == "" {
		room.ID = newID()
	}
	if _, ok := m.rooms[room.ID]; ok {
		return fmt.Errorf("room %s: %w", room.ID, ErrConflict)
	}
	now := time.Now().UTC()
	room.CreatedAt, room.UpdatedAt = now, now
	m.rooms[room.ID] = room.Clone()
	return nil
}

func (m *MemoryStore) GetRoom(ctx context.Context, id string) (models.DraftRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[id]
	if !ok {
		return models.DraftRoom{}, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	return room.Clone(), nil
}

func (m *MemoryStore) UpdateRoom(ctx context.Context, room *models.DraftRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.rooms[room.ID]
	if !ok {
		return fmt.Errorf("room %s: %w", room.ID, ErrNotFound)
	}
	room.CreatedAt = old.CreatedAt
	room.UpdatedAt = time.Now().UTC()
	m.rooms[room.ID] = room.Clone()
	return nil
}

func (m *MemoryStore) InsertPick(ctx context.Context, pick *models.DraftPick, next *models.DraftRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[pick.RoomID]
	if !ok {
		return fmt.Errorf("room %s: %w", pick.RoomID, ErrNotFound)
	}
	for _, p := range m.picks[pick.RoomID] {
		if p.PlayerKey == pick.PlayerKey || (p.Round == pick.Round && p.PickIndex == pick.PickIndex) {
			return fmt.Errorf("pick %s in room %s: %w", pick.PlayerKey, pick.RoomID, ErrConflict)
		}
	}
	if room.CurrentPickIndex != next.CurrentPickIndex-1 {
		return fmt.Errorf("room %s advanced to pick %d: %w", room.ID, room.CurrentPickIndex, ErrConflict)
	}

	now := time.Now().UTC()
	if pick.ID == "" {
		pick.ID = newID()
	}
	pick.CreatedAt = now
	m.picks[pick.RoomID] = append(m.picks[pick.RoomID], *pick)

	next.CreatedAt = room.CreatedAt
	next.UpdatedAt = now
	m.rooms[next.ID] = next.Clone()
	return nil
}

func (m *MemoryStore) ListPicks(ctx context.Context, roomID string) ([]models.DraftPick, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.DraftPick, len(m.picks[roomID]))
	copy(out, m.picks[roomID])
	return out, nil
}

func (m *MemoryStore) CreateLeague(ctx context.Context, league *models.League) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if league.ID == "" {
		league.ID = newID()
	}
	if _, ok := m.leagues[league.ID]; ok {
		return fmt.Errorf("league %s: %w", league.ID, ErrConflict)
	}
	now := time.Now().UTC()
	league.CreatedAt, league.UpdatedAt = now, now
	m.leagues[league.ID] = *league
	return nil
}

func (m *MemoryStore) GetLeague(ctx context.Context, id string) (models.League, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leagues[id]
	if !ok {
		return models.League{}, fmt.Errorf("league %s: %w", id, ErrNotFound)
	}
	return l, nil
}

func (m *MemoryStore) ListLeagues(ctx context.Context) ([]models.League, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.League, 0, len(m.leagues))
	for _, l := range m.leagues {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) UpdateLeague(ctx context.Context, league *models.League) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.leagues[league.ID]
	if !ok {
		return fmt.Errorf("league %s: %w", league.ID, ErrNotFound)
	}
	league.CreatedAt = old.CreatedAt
	league.UpdatedAt = time.Now().UTC()
	m.leagues[league.ID] = *league
	return nil
}

func (m *MemoryStore) AddMember(ctx context.Context, member *models.LeagueMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leagues[member.LeagueID]; !ok {
		return fmt.Errorf("league %s: %w", member.LeagueID, ErrNotFound)
	}
	for _, existing := range m.members[member.LeagueID] {
		if existing.Name == member.Name || existing.JoinOrder == member.JoinOrder {
			return fmt.Errorf("member %q in league %s: %w", member.Name, member.LeagueID, ErrConflict)
		}
	}
	if member.ID == "" {
		member.ID = newID()
	}
	member.CreatedAt = time.Now().UTC()
	m.members[member.LeagueID] = append(m.members[member.LeagueID], *member)
	return nil
}

func (m *MemoryStore) ListMembers(ctx context.Context, leagueID string) ([]models.LeagueMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.LeagueMember, len(m.members[leagueID]))
	copy(out, m.members[leagueID])
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out, nil
}

func (m *MemoryStore) CreateWeeks(ctx context.Context, weeks []models.LeagueWeek) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range weeks {
		for _, existing := range m.weeks[w.LeagueID] {
			if existing.WeekNumber == w.WeekNumber {
				return fmt.Errorf("week %d in league %s: %w", w.WeekNumber, w.LeagueID, ErrConflict)
			}
		}
	}
	now := time.Now().UTC()
	for i := range weeks {
		w := cloneWeek(weeks[i])
		if w.ID == "" {
			w.ID = newID()
		}
		if w.Status == "" {
			w.Status = models.WeekPending
		}
		w.CreatedAt, w.UpdatedAt = now, now
		weeks[i] = w
		m.weeks[w.LeagueID] = append(m.weeks[w.LeagueID], cloneWeek(w))
	}
	return nil
}

func (m *MemoryStore) ListWeeks(ctx context.Context, leagueID string) ([]models.LeagueWeek, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.LeagueWeek, 0, len(m.weeks[leagueID]))
	for _, w := range m.weeks[leagueID] {
		out = append(out, cloneWeek(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, nil
}

func (m *MemoryStore) GetWeek(ctx context.Context, leagueID string, weekNumber int) (models.LeagueWeek, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.weeks[leagueID] {
		if w.WeekNumber == weekNumber {
			return cloneWeek(w), nil
		}
	}
	return models.LeagueWeek{}, fmt.Errorf("week %d in league %s: %w", weekNumber, leagueID, ErrNotFound)
}

func (m *MemoryStore) MarkWeekScored(ctx context.Context, leagueID string, weekNumber int, scores map[string]float64, winners []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	weeks := m.weeks[leagueID]
	idx := -1
	for i, w := range weeks {
		if w.WeekNumber == weekNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("week %d in league %s: %w", weekNumber, leagueID, ErrNotFound)
	}
	if weeks[idx].Status != models.WeekPending {
		return fmt.Errorf("week %d in league %s already %s: %w", weekNumber, leagueID, weeks[idx].Status, ErrConflict)
	}

	w := weeks[idx]
	w.Scores = make(map[string]float64, len(scores))
	for k, v := range scores {
		w.Scores[k] = v
	}
	w.Status = models.WeekScored
	w.UpdatedAt = time.Now().UTC()
	weeks[idx] = w

	members := m.members[leagueID]
	for _, name := range winners {
		for i := range members {
			if members[i].Name == name {
				members[i].Wins++
			}
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func cloneWeek(w models.LeagueWeek) models.LeagueWeek {
	out := w
	out.Matchups = append([][2]string(nil), w.Matchups...)
	if w.Scores != nil {
		out.Scores = make(map[string]float64, len(w.Scores))
		for k, v := range w.Scores {
			out.Scores[k] = v
		}
	}
	return out
}
