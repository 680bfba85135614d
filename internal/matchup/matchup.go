// Package matchup builds round-robin head-to-head schedules.
package matchup

import (
	"github.com/Con7105/fantasy-valo/internal/models"
)

// WeekPhases are the scoring phases assigned to the first league weeks, in order.
var WeekPhases = []models.Phase{models.PhaseOpening, models.PhaseMiddle, models.PhaseDecider}

// Generate schedules every participant against every other using the circle
// method: position 0 stays fixed while the rest rotate one step per round.
// With an odd count one participant sits out each round and no pairing is
// recorded for them.
func Generate(names []string) []models.MatchupRound {
	n := len(names)
	if n < 2 {
		return nil
	}

	rounds := make([]models.MatchupRound, 0, n-1)
	rest := n - 1
	for r := 0; r < n-1; r++ {
		pos := make([]int, n)
		for i := 1; i < n; i++ {
			pos[i] = 1 + (i-1+r)%rest
		}

		var pairs [][2]string
		for i := 0; i < n/2; i++ {
			a, b := pos[i], pos[n-1-i]
			if a == b {
				continue
			}
			pairs = append(pairs, [2]string{names[a], names[b]})
		}
		rounds = append(rounds, models.MatchupRound{Round: r + 1, Pairs: pairs})
	}
	return rounds
}

// Byes lists, per round, the participants with no opponent.
func Byes(rounds []models.MatchupRound, names []string) [][]string {
	out := make([][]string, len(rounds))
	for i, r := range rounds {
		playing := make(map[string]bool, len(names))
		for _, p := range r.Pairs {
			playing[p[0]] = true
			playing[p[1]] = true
		}
		for _, name := range names {
			if !playing[name] {
				out[i] = append(out[i], name)
			}
		}
	}
	return out
}

// SeasonWeeks turns the first rounds into pending league weeks, one per
// scoring phase.
func SeasonWeeks(leagueID string, rounds []models.MatchupRound) []models.LeagueWeek {
	var weeks []models.LeagueWeek
	for w := 0; w < len(WeekPhases) && w < len(rounds); w++ {
		weeks = append(weeks, models.LeagueWeek{
			LeagueID:   leagueID,
			WeekNumber: w + 1,
			Phase:      WeekPhases[w],
			Matchups:   append([][2]string(nil), rounds[w].Pairs...),
			Scores:     map[string]float64{},
			Status:     models.WeekPending,
		})
	}
	return weeks
}
