// Package league scores league weeks from drafted rosters and real match
// statistics.
package league

import (
	"context"
	"errors"
	"fmt"

	"github.com/Con7105/fantasy-valo/internal/dal"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/scoring"
	"github.com/Con7105/fantasy-valo/internal/stats"
)

// PointsSource yields per-player map points for the matches of one phase.
type PointsSource interface {
	PointsForPhase(ctx context.Context, eventID string, phase models.Phase) (stats.PointsResult, error)
}

// ScoreSink receives scored weeks for history. Failures never fail scoring.
type ScoreSink interface {
	RecordWeek(ctx context.Context, week models.LeagueWeek, winners []string) error
	RecordPlayerPoints(ctx context.Context, eventID string, phase models.Phase, finals map[string]float64) error
}

type WeekResult struct {
	Week    models.LeagueWeek `json:"week"`
	Winners []string          `json:"winners"`
	// AlreadyScored is set when the week was scored before this call, by
	// us earlier or by another scorer racing us.
	AlreadyScored bool `json:"alreadyScored"`
}

type Scorer struct {
	store  dal.Store
	points PointsSource
	sink   ScoreSink
}

// NewScorer builds a scorer. sink may be nil.
func NewScorer(store dal.Store, points PointsSource, sink ScoreSink) *Scorer {
	return &Scorer{store: store, points: points, sink: sink}
}

// ScoreWeek scores a pending week: sums each member's drafted players'
// final scores for the week's phase, decides every pairing and stores the
// result. A week that is already scored is returned unchanged.
func (s *Scorer) ScoreWeek(ctx context.Context, leagueID string, weekNumber int) (WeekResult, error) {
	week, err := s.store.GetWeek(ctx, leagueID, weekNumber)
	if err != nil {
		return WeekResult{}, fmt.Errorf("failed to load week %d: %w", weekNumber, err)
	}
	if week.Status == models.WeekScored {
		return WeekResult{Week: week, Winners: Winners(week.Matchups, week.Scores), AlreadyScored: true}, nil
	}

	league, err := s.store.GetLeague(ctx, leagueID)
	if err != nil {
		return WeekResult{}, fmt.Errorf("failed to load league: %w", err)
	}
	members, err := s.store.ListMembers(ctx, leagueID)
	if err != nil {
		return WeekResult{}, fmt.Errorf("failed to load members: %w", err)
	}
	rosters, err := s.rosters(ctx, league)
	if err != nil {
		return WeekResult{}, err
	}

	points, err := s.points.PointsForPhase(ctx, league.EventID, week.Phase)
	if err != nil {
		return WeekResult{}, fmt.Errorf("failed to compute points for phase %s: %w", week.Phase, err)
	}
	finals := points.FinalScores()

	scores := MemberScores(members, rosters, finals)
	winners := Winners(week.Matchups, scores)

	err = s.store.MarkWeekScored(ctx, leagueID, weekNumber, scores, winners)
	if errors.Is(err, dal.ErrConflict) {
		logger.Info("Week already scored by another client", "league_id", leagueID, "week", weekNumber)
		week, err = s.store.GetWeek(ctx, leagueID, weekNumber)
		if err != nil {
			return WeekResult{}, err
		}
		return WeekResult{Week: week, Winners: Winners(week.Matchups, week.Scores), AlreadyScored: true}, nil
	}
	if err != nil {
		return WeekResult{}, fmt.Errorf("failed to store week scores: %w", err)
	}

	week.Scores = scores
	week.Status = models.WeekScored
	logger.Info("Week scored", "league_id", leagueID, "week", weekNumber, "phase", week.Phase, "winners", winners)

	s.record(ctx, league.EventID, week, winners, finals)
	return WeekResult{Week: week, Winners: winners}, nil
}

// rosters maps member name to drafted player keys. Draft participants are
// the member names, so a pick's participant index resolves to its owner.
func (s *Scorer) rosters(ctx context.Context, league models.League) (map[string][]string, error) {
	out := map[string][]string{}
	if league.DraftRoomID == "" {
		return out, nil
	}
	room, err := s.store.GetRoom(ctx, league.DraftRoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft room: %w", err)
	}
	picks, err := s.store.ListPicks(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load picks: %w", err)
	}
	for _, p := range picks {
		if p.ParticipantIndex < 0 || p.ParticipantIndex >= len(room.Participants) {
			continue
		}
		name := room.Participants[p.ParticipantIndex]
		out[name] = append(out[name], p.PlayerKey)
	}
	return out, nil
}

func (s *Scorer) record(ctx context.Context, eventID string, week models.LeagueWeek, winners []string, finals map[string]float64) {
	if s.sink == nil {
		return
	}
	if err := s.sink.RecordWeek(ctx, week, winners); err != nil {
		logger.Warn("Failed to record week in score sink", "error", err, "league_id", week.LeagueID, "week", week.WeekNumber)
	}
	if err := s.sink.RecordPlayerPoints(ctx, eventID, week.Phase, finals); err != nil {
		logger.Warn("Failed to record player points in score sink", "error", err, "event_id", eventID)
	}
}

// MemberScores sums each member's drafted players' final scores, rounded
// to one decimal. Members without picks score 0.
func MemberScores(members []models.LeagueMember, rosters map[string][]string, finals map[string]float64) map[string]float64 {
	scores := make(map[string]float64, len(members))
	for _, m := range members {
		var total float64
		for _, key := range rosters[m.Name] {
			total += finals[key]
		}
		scores[m.Name] = scoring.Round1(total)
	}
	return scores
}

// Winners returns the strictly higher scorer of each pair. Ties have no
// winner.
func Winners(pairs [][2]string, scores map[string]float64) []string {
	var out []string
	for _, p := range pairs {
		a, b := scores[p[0]], scores[p[1]]
		switch {
		case a > b:
			out = append(out, p[0])
		case b > a:
			out = append(out, p[1])
		}
	}
	return out
}
