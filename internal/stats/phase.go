package stats

import (
	"strings"

	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/vlr"
)

// MatchFilter selects matches from an event listing.
type MatchFilter func(models.EventMatch) bool

// phaseStageHints are substrings of the provider's free-text stage label that
// place a match in a scoring phase. There is no structured phase field.
var phaseStageHints = map[models.Phase][]string{
	models.PhaseOpening: {"round 1", "0-0", "r1"},
	models.PhaseMiddle:  {"round 2", "1-0", "0-1", "r2"},
	models.PhaseDecider: {"round 3", "1-1", "r3"},
}

// PhaseFilter keeps matches whose stage mentions the phase. A match with no
// stage label is kept for every phase.
func PhaseFilter(phase models.Phase) MatchFilter {
	hints := phaseStageHints[phase]
	return func(m models.EventMatch) bool {
		stage := strings.ToLower(strings.TrimSpace(m.Stage))
		if stage == "" {
			return true
		}
		for _, h := range hints {
			if strings.Contains(stage, h) {
				return true
			}
		}
		return false
	}
}

// Scoreable keeps started or finished matches between two known teams.
func Scoreable(m models.EventMatch) bool {
	return m.Status.Scoreable() && m.Team1Name != vlr.TBD && m.Team2Name != vlr.TBD
}
