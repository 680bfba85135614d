package mocks

import (
	"context"
	"sync"

	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
)

// ScoreSink keeps recorded weeks and player scores in memory. It stands in
// for ClickHouse in development and in tests.
type ScoreSink struct {
	mu      sync.Mutex
	weeks   []RecordedWeek
	players map[string]float64 // eventID|phase|playerKey
	// Err, when set, is returned from every Record call.
	Err error
}

type RecordedWeek struct {
	Week    models.LeagueWeek
	Winners []string
}

func NewScoreSink() *ScoreSink {
	logger.Info("Using MOCK ClickHouse score sink for local development")
	return &ScoreSink{players: map[string]float64{}}
}

func (m *ScoreSink) RecordWeek(ctx context.Context, week models.LeagueWeek, winners []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.weeks = append(m.weeks, RecordedWeek{Week: week, Winners: append([]string(nil), winners...)})
	return nil
}

func (m *ScoreSink) RecordPlayerPoints(ctx context.Context, eventID string, phase models.Phase, finals map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for k, v := range finals {
		m.players[eventID+"|"+string(phase)+"|"+k] = v
	}
	return nil
}

// MemberTotals sums recorded weekly scores per member of a league.
func (m *ScoreSink) MemberTotals(ctx context.Context, leagueID string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := map[string]float64{}
	for _, w := range m.weeks {
		if w.Week.LeagueID != leagueID {
			continue
		}
		for name, s := range w.Week.Scores {
			totals[name] += s
		}
	}
	return totals, nil
}

// RecordedWeeks returns a snapshot of what has been recorded so far.
func (m *ScoreSink) RecordedWeeks() []RecordedWeek {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedWeek(nil), m.weeks...)
}

func (m *ScoreSink) PlayerScore(eventID string, phase models.Phase, playerKey string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.players[eventID+"|"+string(phase)+"|"+playerKey]
	return v, ok
}

func (m *ScoreSink) Close() error { return nil }
