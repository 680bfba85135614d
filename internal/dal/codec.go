package dal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Con7105/fantasy-valo/internal/models"
)

// The SQL stores keep list and map fields as JSON text and timestamps as
// unix milliseconds so both drivers share the same row codec.

type scanner interface {
	Scan(dest ...any) error
}

const roomColumns = `id, league_id, event_id, event_name, phase, participants, snake_order, slot_count,
	role_constraints, player_roles, current_round, current_pick_index, status, matchups, created_at, updated_at`

type roomJSON struct {
	participants, snakeOrder, constraints, roles, matchups string
}

func encodeRoom(r *models.DraftRoom) (roomJSON, error) {
	var out roomJSON
	fields := []struct {
		dst *string
		v   any
	}{
		{&out.participants, nonNilStrings(r.Participants)},
		{&out.snakeOrder, nonNilInts(r.SnakeOrder)},
		{&out.constraints, r.RoleConstraints},
		{&out.roles, r.PlayerRoles},
		{&out.matchups, r.Matchups},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return roomJSON{}, fmt.Errorf("failed to marshal room %s: %w", r.ID, err)
		}
		*f.dst = string(b)
	}
	return out, nil
}

func scanRoom(s scanner) (models.DraftRoom, error) {
	var (
		r                models.DraftRoom
		j                roomJSON
		created, updated int64
		phase, status    string
	)
	err := s.Scan(&r.ID, &r.LeagueID, &r.EventID, &r.EventName, &phase, &j.participants, &j.snakeOrder,
		&r.SlotCount, &j.constraints, &j.roles, &r.CurrentRound, &r.CurrentPickIndex, &status, &j.matchups,
		&created, &updated)
	if err != nil {
		return models.DraftRoom{}, err
	}
	r.Phase = models.Phase(phase)
	r.Status = models.DraftStatus(status)
	r.CreatedAt, r.UpdatedAt = fromMillis(created), fromMillis(updated)

	fields := []struct {
		src string
		dst any
	}{
		{j.participants, &r.Participants},
		{j.snakeOrder, &r.SnakeOrder},
		{j.constraints, &r.RoleConstraints},
		{j.roles, &r.PlayerRoles},
		{j.matchups, &r.Matchups},
	}
	for _, f := range fields {
		if f.src == "" || f.src == "null" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return models.DraftRoom{}, fmt.Errorf("failed to decode room %s: %w", r.ID, err)
		}
	}
	return r, nil
}

const pickColumns = `id, room_id, round, pick_index, participant_index, player_key, player_name, team_name, role, created_at`

func scanPick(s scanner) (models.DraftPick, error) {
	var (
		p       models.DraftPick
		role    string
		created int64
	)
	if err := s.Scan(&p.ID, &p.RoomID, &p.Round, &p.PickIndex, &p.ParticipantIndex, &p.PlayerKey,
		&p.PlayerName, &p.TeamName, &role, &created); err != nil {
		return models.DraftPick{}, err
	}
	p.Role = models.Role(role)
	p.CreatedAt = fromMillis(created)
	return p, nil
}

const leagueColumns = `id, name, event_id, event_name, status, draft_room_id, created_at, updated_at`

func scanLeague(s scanner) (models.League, error) {
	var (
		l                models.League
		status           string
		created, updated int64
	)
	if err := s.Scan(&l.ID, &l.Name, &l.EventID, &l.EventName, &status, &l.DraftRoomID, &created, &updated); err != nil {
		return models.League{}, err
	}
	l.Status = models.LeagueStatus(status)
	l.CreatedAt, l.UpdatedAt = fromMillis(created), fromMillis(updated)
	return l, nil
}

const memberColumns = `id, league_id, name, join_order, wins, created_at`

func scanMember(s scanner) (models.LeagueMember, error) {
	var (
		m       models.LeagueMember
		created int64
	)
	if err := s.Scan(&m.ID, &m.LeagueID, &m.Name, &m.JoinOrder, &m.Wins, &created); err != nil {
		return models.LeagueMember{}, err
	}
	m.CreatedAt = fromMillis(created)
	return m, nil
}

const weekColumns = `id, league_id, week_number, phase, matchups, scores, status, created_at, updated_at`

func encodeWeek(w models.LeagueWeek) (matchups, scores string, err error) {
	pairs := w.Matchups
	if pairs == nil {
		pairs = [][2]string{}
	}
	m, err := json.Marshal(pairs)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal matchups for week %d: %w", w.WeekNumber, err)
	}
	sc := w.Scores
	if sc == nil {
		sc = map[string]float64{}
	}
	s, err := json.Marshal(sc)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal scores for week %d: %w", w.WeekNumber, err)
	}
	return string(m), string(s), nil
}

func scanWeek(s scanner) (models.LeagueWeek, error) {
	var (
		w                models.LeagueWeek
		phase, status    string
		matchups, scores string
		created, updated int64
	)
	if err := s.Scan(&w.ID, &w.LeagueID, &w.WeekNumber, &phase, &matchups, &scores, &status, &created, &updated); err != nil {
		return models.LeagueWeek{}, err
	}
	w.Phase = models.Phase(phase)
	w.Status = models.WeekStatus(status)
	w.CreatedAt, w.UpdatedAt = fromMillis(created), fromMillis(updated)
	if err := json.Unmarshal([]byte(matchups), &w.Matchups); err != nil {
		return models.LeagueWeek{}, fmt.Errorf("failed to decode matchups for week %d: %w", w.WeekNumber, err)
	}
	w.Scores = map[string]float64{}
	if err := json.Unmarshal([]byte(scores), &w.Scores); err != nil {
		return models.LeagueWeek{}, fmt.Errorf("failed to decode scores for week %d: %w", w.WeekNumber, err)
	}
	return w, nil
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nowMillis() (time.Time, int64) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return now, millis(now)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
