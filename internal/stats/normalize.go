// Package stats turns raw provider payloads into canonical per-map player
// lines and aggregates fantasy points across an event.
package stats

import (
	"math"
	"strconv"
	"strings"

	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/vlr"
)

// Match is one normalized series.
type Match struct {
	ID     string
	Status models.MatchStatus
	Team1  string
	Team2  string
	// Winner is empty when scores are missing or tied.
	Winner string
	// Maps holds only maps that were actually played.
	Maps [][]models.MapPlayerStat
	// Clutches is the match-level clutch table; empty unless completed.
	Clutches ClutchIndex
}

func (m Match) MapsPlayed() int {
	return len(m.Maps)
}

func (m Match) Completed() bool {
	return m.Status == models.MatchCompleted
}

// Normalize converts a match detail into canonical records. known supplies the
// team names, scores and status from the event listing; the detail wins
// wherever it has a value.
func Normalize(detail *vlr.MatchDetail, known models.EventMatch) Match {
	m := Match{
		ID:     known.ID,
		Status: known.Status,
		Team1:  known.Team1Name,
		Team2:  known.Team2Name,
	}
	if detail == nil {
		return m
	}

	var s1, s2 *int
	m.Team1, m.Team2, s1, s2 = teams(detail, known)
	m.Winner = winner(m.Team1, m.Team2, s1, s2)

	for _, mp := range detail.Maps {
		rows := make([]models.MapPlayerStat, 0, len(mp.Players.Team1)+len(mp.Players.Team2))
		for _, p := range mp.Players.Team1 {
			if s, ok := playerLine(p, m.Team1, m.Completed()); ok {
				rows = append(rows, s)
			}
		}
		for _, p := range mp.Players.Team2 {
			if s, ok := playerLine(p, m.Team2, m.Completed()); ok {
				rows = append(rows, s)
			}
		}
		if played(rows) {
			m.Maps = append(m.Maps, rows)
		}
	}

	if m.Completed() {
		m.Clutches = NewClutchIndex(detail.Performance.AdvancedStats)
	}
	return m
}

// teams resolves names and series scores, preferring the detail's values.
func teams(detail *vlr.MatchDetail, known models.EventMatch) (team1, team2 string, s1, s2 *int) {
	team1, team2 = known.Team1Name, known.Team2Name
	s1, s2 = known.Team1Score, known.Team2Score
	if len(detail.Teams) > 0 {
		if name := detail.Teams[0].Name.String(); name != "" {
			team1 = name
		}
		if s := vlr.ParseScore(detail.Teams[0].Score.String()); s != nil {
			s1 = s
		}
	}
	if len(detail.Teams) > 1 {
		if name := detail.Teams[1].Name.String(); name != "" {
			team2 = name
		}
		if s := vlr.ParseScore(detail.Teams[1].Score.String()); s != nil {
			s2 = s
		}
	}
	return team1, team2, s1, s2
}

func winner(team1, team2 string, s1, s2 *int) string {
	if s1 == nil || s2 == nil {
		return ""
	}
	switch {
	case *s1 > *s2:
		return team1
	case *s2 > *s1:
		return team2
	default:
		return ""
	}
}

// played reports whether anyone on the map registered a kill, assist or
// first death. Unreported maps come back as all zeros.
func played(rows []models.MapPlayerStat) bool {
	for _, r := range rows {
		if r.Kills > 0 || r.FirstDeaths > 0 || r.Assists > 0 {
			return true
		}
	}
	return false
}

func playerLine(p vlr.PlayerStat, team string, withClutches bool) (models.MapPlayerStat, bool) {
	name := p.Name()
	if name == "" {
		return models.MapPlayerStat{}, false
	}
	s := models.MapPlayerStat{
		Name:        name,
		Team:        team,
		Kills:       count(p.Field("kills")),
		FirstKills:  count(p.Field("fk")),
		FirstDeaths: count(p.Field("fd")),
		Assists:     count(p.Field("assists")),
		ACS:         measure(p.Field("acs")),
		KASTPercent: measure(p.Field("kast")),
		ADR:         measure(p.Field("adr")),
		HSPercent:   measure(p.Field("hs")),
	}
	if withClutches {
		s.Clutches = &models.ClutchCounts{
			C1v1: count(p.Clutch(1)),
			C1v2: count(p.Clutch(2)),
			C1v3: count(p.Clutch(3)),
			C1v4: count(p.Clutch(4)),
			C1v5: count(p.Clutch(5)),
		}
	}
	return s, true
}

// count parses a non-negative integer, truncating decimals. Anything
// unparseable is 0.
func count(s string) int {
	v := measure(s)
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// measure parses a non-negative decimal, tolerating a trailing percent sign.
func measure(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
