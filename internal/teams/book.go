// Package teams manages device-local fantasy teams and per-event rosters on
// top of a kv.Store. Stored values that are missing or unreadable are treated
// as empty.
package teams

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Con7105/fantasy-valo/internal/kv"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
)

const (
	fantasyTeamsKey = "fantasyTeams"
	unnamedTeam     = "Unnamed team"
)

var ErrNotFound = errors.New("team not found")

// Book is the saved list of fantasy teams used for side-by-side comparison.
type Book struct {
	store kv.Store
}

func NewBook(store kv.Store) *Book {
	return &Book{store: store}
}

func (b *Book) List() ([]models.FantasyTeam, error) {
	raw, err := b.store.Get(fantasyTeamsKey)
	if err != nil {
		return nil, err
	}
	teams := []models.FantasyTeam{}
	if raw == "" {
		return teams, nil
	}
	if err := json.Unmarshal([]byte(raw), &teams); err != nil {
		logger.Warn("Ignoring unreadable fantasy teams", "error", err)
		return []models.FantasyTeam{}, nil
	}
	for i := range teams {
		if teams[i].Players == nil {
			teams[i].Players = []models.RosterSlot{}
		}
	}
	return teams, nil
}

func (b *Book) save(teams []models.FantasyTeam) error {
	data, err := json.Marshal(teams)
	if err != nil {
		return fmt.Errorf("failed to marshal fantasy teams: %w", err)
	}
	return b.store.Set(fantasyTeamsKey, string(data))
}

// Add creates a team. A blank label becomes "Unnamed team".
func (b *Book) Add(label string) (models.FantasyTeam, error) {
	teams, err := b.List()
	if err != nil {
		return models.FantasyTeam{}, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = unnamedTeam
	}
	team := models.FantasyTeam{ID: uuid.NewString(), Label: label, Players: []models.RosterSlot{}}
	if err := b.save(append(teams, team)); err != nil {
		return models.FantasyTeam{}, err
	}
	return team, nil
}

// Rename changes a team's label. A blank label keeps the old one.
func (b *Book) Rename(id, label string) (models.FantasyTeam, error) {
	return b.update(id, func(t *models.FantasyTeam) {
		if l := strings.TrimSpace(label); l != "" {
			t.Label = l
		}
	})
}

func (b *Book) Delete(id string) error {
	teams, err := b.List()
	if err != nil {
		return err
	}
	kept := teams[:0]
	for _, t := range teams {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(teams) {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return b.save(kept)
}

// AddPlayer appends slot unless the team already has that player.
func (b *Book) AddPlayer(id string, slot models.RosterSlot) (models.FantasyTeam, error) {
	return b.update(id, func(t *models.FantasyTeam) {
		for _, p := range t.Players {
			if p.Key() == slot.Key() {
				return
			}
		}
		t.Players = append(t.Players, slot)
	})
}

func (b *Book) RemovePlayer(id string, slot models.RosterSlot) (models.FantasyTeam, error) {
	return b.update(id, func(t *models.FantasyTeam) {
		kept := make([]models.RosterSlot, 0, len(t.Players))
		for _, p := range t.Players {
			if p.Key() != slot.Key() {
				kept = append(kept, p)
			}
		}
		t.Players = kept
	})
}

func (b *Book) update(id string, fn func(*models.FantasyTeam)) (models.FantasyTeam, error) {
	teams, err := b.List()
	if err != nil {
		return models.FantasyTeam{}, err
	}
	for i := range teams {
		if teams[i].ID != id {
			continue
		}
		fn(&teams[i])
		if err := b.save(teams); err != nil {
			return models.FantasyTeam{}, err
		}
		return teams[i], nil
	}
	return models.FantasyTeam{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}
