package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects with retries, tuned for CloudNativePG clusters.
func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// CloudNativePG default max_connections is 100
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	// Recycle connections to ride out failovers
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Kubernetes DNS can lag behind the pod, so retry the first ping.
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			break
		}
		logger.Warn("Postgres ping failed", "attempt", i+1, "error", lastErr)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	p := &PostgresStore{db: db}
	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS draft_rooms (
		id TEXT PRIMARY KEY,
		league_id TEXT NOT NULL DEFAULT '',
		event_id TEXT NOT NULL,
		event_name TEXT NOT NULL DEFAULT '',
		phase TEXT NOT NULL DEFAULT '',
		participants JSONB NOT NULL,
		snake_order JSONB NOT NULL,
		slot_count INTEGER NOT NULL,
		role_constraints JSONB NOT NULL DEFAULT 'null'::jsonb,
		player_roles JSONB NOT NULL DEFAULT 'null'::jsonb,
		current_round INTEGER NOT NULL DEFAULT 1,
		current_pick_index INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		matchups JSONB NOT NULL DEFAULT 'null'::jsonb,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS draft_picks (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES draft_rooms(id) ON DELETE CASCADE,
		round INTEGER NOT NULL,
		pick_index INTEGER NOT NULL,
		participant_index INTEGER NOT NULL,
		player_key TEXT NOT NULL,
		player_name TEXT NOT NULL,
		team_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		UNIQUE (room_id, player_key),
		UNIQUE (room_id, round, pick_index)
	);

	CREATE TABLE IF NOT EXISTS leagues (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		event_id TEXT NOT NULL,
		event_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		draft_room_id TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS league_members (
		id TEXT PRIMARY KEY,
		league_id TEXT NOT NULL REFERENCES leagues(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		join_order INTEGER NOT NULL,
		wins INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		UNIQUE (league_id, name),
		UNIQUE (league_id, join_order)
	);

	CREATE TABLE IF NOT EXISTS league_weeks (
		id TEXT PRIMARY KEY,
		league_id TEXT NOT NULL REFERENCES leagues(id) ON DELETE CASCADE,
		week_number INTEGER NOT NULL,
		phase TEXT NOT NULL,
		matchups JSONB NOT NULL,
		scores JSONB NOT NULL DEFAULT '{}'::jsonb,
		status TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		UNIQUE (league_id, week_number)
	);

	CREATE INDEX IF NOT EXISTS idx_draft_picks_room ON draft_picks(room_id);
	CREATE INDEX IF NOT EXISTS idx_league_members_league ON league_members(league_id);
	CREATE INDEX IF NOT EXISTS idx_leagues_created_at ON leagues(created_at);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return err
	}

	// Rooms created before per-room role tables existed lack player_roles.
	if _, err := p.db.Exec(`
		ALTER TABLE draft_rooms
		ADD COLUMN IF NOT EXISTS player_roles JSONB NOT NULL DEFAULT 'null'::jsonb
	`); err != nil {
		return fmt.Errorf("failed to add player_roles column: %w", err)
	}
	return nil
}

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func postgresErr(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (p *PostgresStore) CreateRoom(ctx context.Context, room *models.DraftRoom) error {
	if room.ID == "" {
		room.ID = newID()
	}
	j, err := encodeRoom(room)
	if err != nil {
		return err
	}
	now, ms := nowMillis()

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO draft_rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, room.ID, room.LeagueID, room.EventID, room.EventName, string(room.Phase), j.participants, j.snakeOrder,
		room.SlotCount, j.constraints, j.roles, room.CurrentRound, room.CurrentPickIndex, string(room.Status),
		j.matchups, ms, ms)
	if err != nil {
		return postgresErr(err, "insert room "+room.ID)
	}
	room.CreatedAt, room.UpdatedAt = now, now
	return nil
}

func (p *PostgresStore) GetRoom(ctx context.Context, id string) (models.DraftRoom, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM draft_rooms WHERE id = $1`, id)
	room, err := scanRoom(row)
	if err != nil {
		return models.DraftRoom{}, notFound(err, "room "+id)
	}
	return room, nil
}

func (p *PostgresStore) UpdateRoom(ctx context.Context, room *models.DraftRoom) error {
	return updateRoomPostgres(ctx, p.db, room, -1)
}

type pgExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateRoomPostgres(ctx context.Context, db pgExecer, room *models.DraftRoom, expectIndex int) error {
	j, err := encodeRoom(room)
	if err != nil {
		return err
	}
	now, ms := nowMillis()

	query := `
		UPDATE draft_rooms SET league_id = $1, event_id = $2, event_name = $3, phase = $4, participants = $5,
			snake_order = $6, slot_count = $7, role_constraints = $8, player_roles = $9, current_round = $10,
			current_pick_index = $11, status = $12, matchups = $13, updated_at = $14
		WHERE id = $15`
	args := []any{room.LeagueID, room.EventID, room.EventName, string(room.Phase), j.participants,
		j.snakeOrder, room.SlotCount, j.constraints, j.roles, room.CurrentRound,
		room.CurrentPickIndex, string(room.Status), j.matchups, ms, room.ID}
	if expectIndex >= 0 {
		query += ` AND current_pick_index = $16`
		args = append(args, expectIndex)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return postgresErr(err, "update room "+room.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if expectIndex >= 0 {
			return fmt.Errorf("room %s moved past pick %d: %w", room.ID, expectIndex, ErrConflict)
		}
		return fmt.Errorf("room %s: %w", room.ID, ErrNotFound)
	}
	room.UpdatedAt = now
	return nil
}

func (p *PostgresStore) InsertPick(ctx context.Context, pick *models.DraftPick, next *models.DraftRoom) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if pick.ID == "" {
		pick.ID = newID()
	}
	now, ms := nowMillis()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO draft_picks (`+pickColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, pick.ID, pick.RoomID, pick.Round, pick.PickIndex, pick.ParticipantIndex, pick.PlayerKey,
		pick.PlayerName, pick.TeamName, string(pick.Role), ms)
	if err != nil {
		return postgresErr(err, "insert pick "+pick.PlayerKey)
	}

	if err := updateRoomPostgres(ctx, tx, next, next.CurrentPickIndex-1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	pick.CreatedAt = now
	return nil
}

func (p *PostgresStore) ListPicks(ctx context.Context, roomID string) ([]models.DraftPick, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+pickColumns+` FROM draft_picks WHERE room_id = $1 ORDER BY round ASC, pick_index ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	picks := []models.DraftPick{}
	for rows.Next() {
		pk, err := scanPick(rows)
		if err != nil {
			return nil, err
		}
		picks = append(picks, pk)
	}
	return picks, rows.Err()
}

func (p *PostgresStore) CreateLeague(ctx context.Context, league *models.League) error {
	if league.ID == "" {
		league.ID = newID()
	}
	now, ms := nowMillis()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO leagues (`+leagueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, league.ID, league.Name, league.EventID, league.EventName, string(league.Status), league.DraftRoomID, ms, ms)
	if err != nil {
		return postgresErr(err, "insert league "+league.ID)
	}
	league.CreatedAt, league.UpdatedAt = now, now
	return nil
}

func (p *PostgresStore) GetLeague(ctx context.Context, id string) (models.League, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1`, id)
	l, err := scanLeague(row)
	if err != nil {
		return models.League{}, notFound(err, "league "+id)
	}
	return l, nil
}

func (p *PostgresStore) ListLeagues(ctx context.Context) ([]models.League, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+leagueColumns+` FROM leagues ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := []models.League{}
	for rows.Next() {
		l, err := scanLeague(rows)
		if err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

func (p *PostgresStore) UpdateLeague(ctx context.Context, league *models.League) error {
	now, ms := nowMillis()
	res, err := p.db.ExecContext(ctx, `
		UPDATE leagues SET name = $1, event_id = $2, event_name = $3, status = $4, draft_room_id = $5, updated_at = $6
		WHERE id = $7
	`, league.Name, league.EventID, league.EventName, string(league.Status), league.DraftRoomID, ms, league.ID)
	if err != nil {
		return postgresErr(err, "update league "+league.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("league %s: %w", league.ID, ErrNotFound)
	}
	league.UpdatedAt = now
	return nil
}

func (p *PostgresStore) AddMember(ctx context.Context, member *models.LeagueMember) error {
	if _, err := p.GetLeague(ctx, member.LeagueID); err != nil {
		return err
	}
	if member.ID == "" {
		member.ID = newID()
	}
	now, ms := nowMillis()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO league_members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, member.ID, member.LeagueID, member.Name, member.JoinOrder, member.Wins, ms)
	if err != nil {
		return postgresErr(err, fmt.Sprintf("insert member %q", member.Name))
	}
	member.CreatedAt = now
	return nil
}

func (p *PostgresStore) ListMembers(ctx context.Context, leagueID string) ([]models.LeagueMember, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+memberColumns+` FROM league_members WHERE league_id = $1 ORDER BY join_order ASC
	`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.LeagueMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (p *PostgresStore) CreateWeeks(ctx context.Context, weeks []models.LeagueWeek) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO league_weeks (`+weekColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now, ms := nowMillis()
	for i := range weeks {
		w := &weeks[i]
		if w.ID == "" {
			w.ID = newID()
		}
		if w.Status == "" {
			w.Status = models.WeekPending
		}
		matchups, scores, err := encodeWeek(*w)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, w.ID, w.LeagueID, w.WeekNumber, string(w.Phase), matchups, scores,
			string(w.Status), ms, ms); err != nil {
			return postgresErr(err, fmt.Sprintf("insert week %d", w.WeekNumber))
		}
		w.CreatedAt, w.UpdatedAt = now, now
	}
	return tx.Commit()
}

func (p *PostgresStore) ListWeeks(ctx context.Context, leagueID string) ([]models.LeagueWeek, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+weekColumns+` FROM league_weeks WHERE league_id = $1 ORDER BY week_number ASC
	`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weeks := []models.LeagueWeek{}
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

func (p *PostgresStore) GetWeek(ctx context.Context, leagueID string, weekNumber int) (models.LeagueWeek, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+weekColumns+` FROM league_weeks WHERE league_id = $1 AND week_number = $2
	`, leagueID, weekNumber)
	w, err := scanWeek(row)
	if err != nil {
		return models.LeagueWeek{}, notFound(err, fmt.Sprintf("week %d in league %s", weekNumber, leagueID))
	}
	return w, nil
}

func (p *PostgresStore) MarkWeekScored(ctx context.Context, leagueID string, weekNumber int, scores map[string]float64, winners []string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, encoded, err := encodeWeek(models.LeagueWeek{WeekNumber: weekNumber, Scores: scores})
	if err != nil {
		return err
	}
	_, ms := nowMillis()

	// The status predicate makes concurrent scorers race on the row lock;
	// only one sees a pending week.
	res, err := tx.ExecContext(ctx, `
		UPDATE league_weeks SET scores = $1, status = $2, updated_at = $3
		WHERE league_id = $4 AND week_number = $5 AND status = $6
	`, encoded, string(models.WeekScored), ms, leagueID, weekNumber, string(models.WeekPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM league_weeks WHERE league_id = $1 AND week_number = $2)
		`, leagueID, weekNumber).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("week %d in league %s: %w", weekNumber, leagueID, ErrNotFound)
		}
		return fmt.Errorf("week %d in league %s already scored: %w", weekNumber, leagueID, ErrConflict)
	}

	if len(winners) > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE league_members SET wins = wins + 1 WHERE league_id = $1 AND name = ANY($2)
		`, leagueID, pq.Array(winners)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
