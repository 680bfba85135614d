package teams

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Con7105/fantasy-valo/internal/kv"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/scoring"
)

const (
	RosterSize = 5
	// MaxPerTeam caps how many players one real team may contribute.
	MaxPerTeam = 2

	rosterKeyPrefix = "fantasyRoster_"
)

var (
	ErrRosterLocked = errors.New("roster is locked: the event has started")
	ErrRosterFull   = errors.New("roster is full")
	ErrAlreadyAdded = errors.New("player is already on the roster")
	ErrTeamLimit    = errors.New("roster already has the maximum players from that team")
)

// Roster is the single-player pick-five roster for one event.
type Roster struct {
	store   kv.Store
	eventID string
}

func NewRoster(store kv.Store, eventID string) *Roster {
	return &Roster{store: store, eventID: eventID}
}

func (r *Roster) key() string {
	return rosterKeyPrefix + r.eventID
}

func (r *Roster) Slots() ([]models.RosterSlot, error) {
	raw, err := r.store.Get(r.key())
	if err != nil {
		return nil, err
	}
	slots := []models.RosterSlot{}
	if raw == "" {
		return slots, nil
	}
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		logger.Warn("Ignoring unreadable roster", "event_id", r.eventID, "error", err)
		return []models.RosterSlot{}, nil
	}
	return slots, nil
}

func (r *Roster) save(slots []models.RosterSlot) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal roster: %w", err)
	}
	return r.store.Set(r.key(), string(data))
}

// Add puts a player on the roster. locked is true once any of the event's
// matches has started.
func (r *Roster) Add(slot models.RosterSlot, locked bool) ([]models.RosterSlot, error) {
	if locked {
		return nil, ErrRosterLocked
	}
	slots, err := r.Slots()
	if err != nil {
		return nil, err
	}
	if len(slots) >= RosterSize {
		return slots, ErrRosterFull
	}
	fromTeam := 0
	for _, s := range slots {
		if s.PlayerName == slot.PlayerName {
			return slots, ErrAlreadyAdded
		}
		if s.TeamName == slot.TeamName {
			fromTeam++
		}
	}
	if fromTeam >= MaxPerTeam {
		return slots, ErrTeamLimit
	}
	slots = append(slots, slot)
	return slots, r.save(slots)
}

func (r *Roster) Remove(slot models.RosterSlot, locked bool) ([]models.RosterSlot, error) {
	if locked {
		return nil, ErrRosterLocked
	}
	slots, err := r.Slots()
	if err != nil {
		return nil, err
	}
	kept := make([]models.RosterSlot, 0, len(slots))
	for _, s := range slots {
		if s.Key() != slot.Key() {
			kept = append(kept, s)
		}
	}
	return kept, r.save(kept)
}

// Locked reports whether the listing shows any match underway or finished.
func Locked(matches []models.EventMatch) bool {
	for _, m := range matches {
		if m.Status.Scoreable() {
			return true
		}
	}
	return false
}

// TotalPoints sums each slot's final score; players without maps count 0.
func TotalPoints(slots []models.RosterSlot, mapPoints map[string][]float64) float64 {
	total := 0.0
	for _, s := range slots {
		total += scoring.FinalScore(mapPoints[s.Key()])
	}
	return total
}
