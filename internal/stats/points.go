package stats

import (
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/scoring"
)

// PointsResult collects per-map points and breakdowns keyed by player key.
type PointsResult struct {
	MapPoints  map[string][]float64                   `json:"mapPoints"`
	Breakdowns map[string][]models.MapPointsBreakdown `json:"mapBreakdowns"`
}

func NewPointsResult() PointsResult {
	return PointsResult{
		MapPoints:  map[string][]float64{},
		Breakdowns: map[string][]models.MapPointsBreakdown{},
	}
}

func (r PointsResult) add(key string, b models.MapPointsBreakdown) {
	r.MapPoints[key] = append(r.MapPoints[key], b.Total)
	r.Breakdowns[key] = append(r.Breakdowns[key], b)
}

// FinalScore is the player's season score over everything collected.
func (r PointsResult) FinalScore(key string) float64 {
	return scoring.FinalScore(r.MapPoints[key])
}

// FinalScores returns FinalScore for every player seen.
func (r PointsResult) FinalScores() map[string]float64 {
	out := make(map[string]float64, len(r.MapPoints))
	for k, pts := range r.MapPoints {
		out[k] = scoring.FinalScore(pts)
	}
	return out
}

// ScoreMatch scores every player line of a normalized match into r.
//
// The win bonus goes to the winning side of completed matches only. When the
// match-level clutch table knows a player it replaces the per-map counts and
// its points are spread evenly over the maps played.
func ScoreMatch(m Match, r PointsResult) {
	played := m.MapsPlayed()
	bonus := scoring.WinBonusPerMap(played)

	for _, rows := range m.Maps {
		for _, stat := range rows {
			win := 0.0
			if m.Completed() && m.Winner != "" && stat.Team == m.Winner {
				win = bonus
			}

			input := stat
			override, ok := models.ClutchCounts{}, false
			if m.Completed() {
				override, ok = m.Clutches.Lookup(stat.Name, stat.Team)
				if ok {
					input.Clutches = nil
				}
			}

			b := scoring.Breakdown(input, rows, win)
			if ok {
				b = scoring.AddClutch(b, override, scoring.ClutchPoints(&override)/float64(played))
			}
			r.add(stat.Key(), b)
		}
	}
}
