// Package scoring turns per-map player statistics into fantasy points.
// Everything here is pure: no I/O, no clocks, no shared state.
package scoring

import (
	"math"

	"github.com/Con7105/fantasy-valo/internal/models"
)

const (
	PointsPerKill           = 3.0
	PointsPerFirstKillBonus = 2.0
	PointsPerAssist         = 1.5
	PointsPerFirstDeath     = -1.0
	PointsHighestOnMap      = 2.0
	PointsTeamMatchWin      = 3.0
	// A 1vN clutch is worth N times this.
	ClutchPointsPerOpponent = 1.0
)

// ClutchPoints scores clutch counts linearly in the number of opponents.
func ClutchPoints(c *models.ClutchCounts) float64 {
	if c == nil {
		return 0
	}
	return ClutchPointsPerOpponent * float64(
		c.C1v1*1+c.C1v2*2+c.C1v3*3+c.C1v4*4+c.C1v5*5,
	)
}

// WinBonusPerMap spreads the match-win bonus over the maps played.
func WinBonusPerMap(mapsPlayed int) float64 {
	if mapsPlayed <= 0 {
		return 0
	}
	return PointsTeamMatchWin / float64(mapsPlayed)
}

type cohortMax struct {
	acs, kast, adr, hs float64
}

func maxima(cohort []models.MapPlayerStat) cohortMax {
	var m cohortMax
	for _, p := range cohort {
		m.acs = math.Max(m.acs, p.ACS)
		m.kast = math.Max(m.kast, p.KASTPercent)
		m.adr = math.Max(m.adr, p.ADR)
		m.hs = math.Max(m.hs, p.HSPercent)
	}
	return m
}

// highest awards the bonus on ties; zero never qualifies.
func highest(v, max float64) float64 {
	if v > 0 && v >= max {
		return PointsHighestOnMap
	}
	return 0
}

// Breakdown scores one player's map against everyone who played that map.
// winBonus is added as-is; pass 0 when the player's team did not win.
func Breakdown(stat models.MapPlayerStat, cohort []models.MapPlayerStat, winBonus float64) models.MapPointsBreakdown {
	m := maxima(cohort)

	var clutches models.ClutchCounts
	if stat.Clutches != nil {
		clutches = *stat.Clutches
	}

	pts := models.PointComponents{
		Kills:       float64(stat.Kills) * PointsPerKill,
		FirstKills:  float64(stat.FirstKills) * PointsPerFirstKillBonus,
		Assists:     float64(stat.Assists) * PointsPerAssist,
		FirstDeaths: float64(stat.FirstDeaths) * PointsPerFirstDeath,
		Clutch:      ClutchPoints(stat.Clutches),
		ACSBonus:    highest(stat.ACS, m.acs),
		KASTBonus:   highest(stat.KASTPercent, m.kast),
		ADRBonus:    highest(stat.ADR, m.adr),
		HSBonus:     highest(stat.HSPercent, m.hs),
		WinBonus:    winBonus,
	}

	return models.MapPointsBreakdown{
		Stats: models.BreakdownStats{
			Kills:       stat.Kills,
			FirstKills:  stat.FirstKills,
			Assists:     stat.Assists,
			FirstDeaths: stat.FirstDeaths,
			ACS:         stat.ACS,
			KASTPercent: stat.KASTPercent,
			ADR:         stat.ADR,
			HSPercent:   stat.HSPercent,
			Clutches:    clutches,
		},
		Points: pts,
		Total:  pts.Sum(),
	}
}

// AddClutch returns b with extra clutch points folded into both the clutch
// component and the total, recording counts as the clutch source.
func AddClutch(b models.MapPointsBreakdown, counts models.ClutchCounts, points float64) models.MapPointsBreakdown {
	b.Stats.Clutches = counts
	b.Points.Clutch += points
	b.Total = b.Points.Sum()
	return b
}

// Round1 rounds to one decimal place, halves rounding up.
func Round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// FinalScore is the mean of per-map totals rounded to one decimal.
func FinalScore(mapPoints []float64) float64 {
	if len(mapPoints) == 0 {
		return 0
	}
	var sum float64
	for _, p := range mapPoints {
		sum += p
	}
	return Round1(sum / float64(len(mapPoints)))
}

// SeasonScore is FinalScore over a list of breakdowns.
func SeasonScore(breakdowns []models.MapPointsBreakdown) float64 {
	totals := make([]float64, len(breakdowns))
	for i, b := range breakdowns {
		totals[i] = b.Total
	}
	return FinalScore(totals)
}
