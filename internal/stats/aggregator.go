package stats

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/vlr"
)

// Source is the part of the provider client the aggregator needs.
type Source interface {
	EventMatches(ctx context.Context, eventID string) ([]models.EventMatch, error)
	MatchDetail(ctx context.Context, matchID string) (*vlr.MatchDetail, error)
}

// Aggregator fetches match details for an event and folds them into points.
// Details are fetched concurrently; results are always applied in listing order.
type Aggregator struct {
	src     Source
	workers int
}

func NewAggregator(src Source, workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{src: src, workers: workers}
}

// PerPlayerMapPoints scores every scoreable match of the event that passes
// filter (nil keeps all). A match whose detail cannot be fetched is skipped.
func (a *Aggregator) PerPlayerMapPoints(ctx context.Context, eventID string, filter MatchFilter) (PointsResult, error) {
	listing, err := a.src.EventMatches(ctx, eventID)
	if err != nil {
		return PointsResult{}, fmt.Errorf("list matches for event %s: %w", eventID, err)
	}

	var toScore []models.EventMatch
	for _, m := range listing {
		if Scoreable(m) && (filter == nil || filter(m)) {
			toScore = append(toScore, m)
		}
	}

	matches, err := a.fetchAll(ctx, toScore)
	if err != nil {
		return PointsResult{}, err
	}

	result := NewPointsResult()
	for _, m := range matches {
		ScoreMatch(m.Match, result)
	}
	logger.Debug("Aggregated event points", "event_id", eventID, "matches", len(matches), "players", len(result.MapPoints))
	return result, nil
}

// PointsForPhase is PerPlayerMapPoints restricted to one scoring phase.
func (a *Aggregator) PointsForPhase(ctx context.Context, eventID string, phase models.Phase) (PointsResult, error) {
	return a.PerPlayerMapPoints(ctx, eventID, PhaseFilter(phase))
}

// EventPlayerPool averages every player's played maps across the event. It is
// the list participants draft from.
func (a *Aggregator) EventPlayerPool(ctx context.Context, eventID string) ([]models.EventPlayerStat, error) {
	listing, err := a.src.EventMatches(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list matches for event %s: %w", eventID, err)
	}

	var known []models.EventMatch
	for _, m := range listing {
		if m.Team1Name != vlr.TBD && m.Team2Name != vlr.TBD {
			known = append(known, m)
		}
	}

	matches, err := a.fetchAll(ctx, known)
	if err != nil {
		return nil, err
	}

	type acc struct {
		models.EventPlayerStat
		acs, rating, adr float64
	}
	byKey := map[string]*acc{}
	for _, m := range matches {
		for _, rows := range m.Maps {
			for _, s := range rows {
				e, ok := byKey[s.Key()]
				if !ok {
					e = &acc{EventPlayerStat: models.EventPlayerStat{PlayerName: s.Name, TeamName: s.Team}}
					byKey[s.Key()] = e
				}
				e.Maps++
				e.Kills += s.Kills
				e.Assists += s.Assists
				e.FirstKills += s.FirstKills
				e.FirstDeaths += s.FirstDeaths
				e.acs += s.ACS
				e.adr += s.ADR
			}
		}
		for key, extra := range m.extras {
			if e, ok := byKey[key]; ok {
				e.Deaths += extra.deaths
				e.rating += extra.rating
			}
		}
	}

	pool := make([]models.EventPlayerStat, 0, len(byKey))
	for _, e := range byKey {
		s := e.EventPlayerStat
		if s.Maps > 0 {
			s.ACS = e.acs / float64(s.Maps)
			s.ADR = e.adr / float64(s.Maps)
			s.Rating = e.rating / float64(s.Maps)
		}
		if s.Deaths > 0 {
			s.KDRatio = float64(s.Kills) / float64(s.Deaths)
		}
		pool = append(pool, s)
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].TeamName != pool[j].TeamName {
			return pool[i].TeamName < pool[j].TeamName
		}
		return pool[i].PlayerName < pool[j].PlayerName
	})
	return pool, nil
}

// fetched pairs a normalized match with the columns only the player pool uses.
type fetched struct {
	Match
	extras map[string]poolExtra
}

type poolExtra struct {
	deaths int
	rating float64
}

// fetchAll retrieves and normalizes details on a bounded worker pool.
// Failed or empty fetches are logged and dropped.
func (a *Aggregator) fetchAll(ctx context.Context, listing []models.EventMatch) ([]fetched, error) {
	if len(listing) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(a.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	slots := make([]*fetched, len(listing))
	var wg sync.WaitGroup
	for i, m := range listing {
		i, m := i, m
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			detail, err := a.src.MatchDetail(ctx, m.ID)
			if err != nil {
				logger.Warn("Skipping match: detail fetch failed", "match_id", m.ID, "error", err)
				return
			}
			if detail == nil {
				logger.Debug("Skipping match: no detail segment", "match_id", m.ID)
				return
			}
			slots[i] = &fetched{Match: Normalize(detail, m), extras: poolExtras(detail, m)}
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]fetched, 0, len(slots))
	for _, f := range slots {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

// poolExtras sums deaths and rating for played maps, keyed by player key.
func poolExtras(detail *vlr.MatchDetail, known models.EventMatch) map[string]poolExtra {
	team1, team2, _, _ := teams(detail, known)
	out := map[string]poolExtra{}
	for _, mp := range detail.Maps {
		sides := []struct {
			team string
			rows []vlr.PlayerStat
		}{{team1, mp.Players.Team1}, {team2, mp.Players.Team2}}

		var lines []models.MapPlayerStat
		for _, side := range sides {
			for _, p := range side.rows {
				if l, ok := playerLine(p, side.team, false); ok {
					lines = append(lines, l)
				}
			}
		}
		if !played(lines) {
			continue
		}
		for _, side := range sides {
			for _, p := range side.rows {
				if p.Name() == "" {
					continue
				}
				key := models.PlayerKey(p.Name(), side.team)
				e := out[key]
				e.deaths += count(p.Field("deaths"))
				e.rating += measure(p.Field("rating"))
				out[key] = e
			}
		}
	}
	return out
}
