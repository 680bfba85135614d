package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/Con7105/fantasy-valo/internal/models"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath. ":memory:" works
// for tests since the pool is held to a single connection.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer at a time; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS draft_rooms (
		id TEXT PRIMARY KEY,
		league_id TEXT NOT NULL DEFAULT '',
		event_id TEXT NOT NULL,
		event_name TEXT NOT NULL DEFAULT '',
		phase TEXT NOT NULL DEFAULT '',
		participants TEXT NOT NULL,
		snake_order TEXT NOT NULL,
		slot_count INTEGER NOT NULL,
		role_constraints TEXT NOT NULL DEFAULT 'null',
		player_roles TEXT NOT NULL DEFAULT 'null',
		current_round INTEGER NOT NULL DEFAULT 1,
		current_pick_index INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		matchups TEXT NOT NULL DEFAULT 'null',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS draft_picks (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		pick_index INTEGER NOT NULL,
		participant_index INTEGER NOT NULL,
		player_key TEXT NOT NULL,
		player_name TEXT NOT NULL,
		team_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		FOREIGN KEY (room_id) REFERENCES draft_rooms(id),
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
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS league_members (
		id TEXT PRIMARY KEY,
		league_id TEXT NOT NULL,
		name TEXT NOT NULL,
		join_order INTEGER NOT NULL,
		wins INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (league_id) REFERENCES leagues(id),
		UNIQUE (league_id, name),
		UNIQUE (league_id, join_order)
	);

	CREATE TABLE IF NOT EXISTS league_weeks (
		id TEXT PRIMARY KEY,
		league_id TEXT NOT NULL,
		week_number INTEGER NOT NULL,
		phase TEXT NOT NULL,
		matchups TEXT NOT NULL,
		scores TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (league_id) REFERENCES leagues(id),
		UNIQUE (league_id, week_number)
	);

	CREATE INDEX IF NOT EXISTS idx_draft_picks_room ON draft_picks(room_id);
	CREATE INDEX IF NOT EXISTS idx_league_members_league ON league_members(league_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Rooms created before per-room role tables existed lack player_roles.
	// SQLite doesn't support IF NOT EXISTS for ALTER TABLE, so we check first
	var rolesExists int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info('draft_rooms')
		WHERE name='player_roles'
	`).Scan(&rolesExists)
	if err != nil {
		return fmt.Errorf("failed to check player_roles column existence: %w", err)
	}
	if rolesExists == 0 {
		if _, err := s.db.Exec(`ALTER TABLE draft_rooms ADD COLUMN player_roles TEXT NOT NULL DEFAULT 'null'`); err != nil {
			return fmt.Errorf("failed to add player_roles column: %w", err)
		}
	}

	return nil
}

// sqliteErr maps uniqueness violations to ErrConflict.
func sqliteErr(err error, what string) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func (s *SQLiteStore) CreateRoom(ctx context.Context, room *models.DraftRoom) error {
	if room.ID == "" {
		room.ID = newID()
	}
	j, err := encodeRoom(room)
	if err != nil {
		return err
	}
	now, ms := nowMillis()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO draft_rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, room.ID, room.LeagueID, room.EventID, room.EventName, string(room.Phase), j.participants, j.snakeOrder,
		room.SlotCount, j.constraints, j.roles, room.CurrentRound, room.CurrentPickIndex, string(room.Status),
		j.matchups, ms, ms)
	if err != nil {
		return sqliteErr(err, "insert room "+room.ID)
	}
	room.CreatedAt, room.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (models.DraftRoom, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM draft_rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		return models.DraftRoom{}, notFound(err, "room "+id)
	}
	return room, nil
}

func (s *SQLiteStore) UpdateRoom(ctx context.Context, room *models.DraftRoom) error {
	return updateRoomSQLite(ctx, s.db, room, -1)
}

type sqliteExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// updateRoomSQLite saves room. When expectIndex is >= 0 the row must still
// be at that pick index.
func updateRoomSQLite(ctx context.Context, db sqliteExecer, room *models.DraftRoom, expectIndex int) error {
	j, err := encodeRoom(room)
	if err != nil {
		return err
	}
	now, ms := nowMillis()

	query := `
		UPDATE draft_rooms SET league_id = ?, event_id = ?, event_name = ?, phase = ?, participants = ?,
			snake_order = ?, slot_count = ?, role_constraints = ?, player_roles = ?, current_round = ?,
			current_pick_index = ?, status = ?, matchups = ?, updated_at = ?
		WHERE id = ?`
	args := []any{room.LeagueID, room.EventID, room.EventName, string(room.Phase), j.participants,
		j.snakeOrder, room.SlotCount, j.constraints, j.roles, room.CurrentRound,
		room.CurrentPickIndex, string(room.Status), j.matchups, ms, room.ID}
	if expectIndex >= 0 {
		query += ` AND current_pick_index = ?`
		args = append(args, expectIndex)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return sqliteErr(err, "update room "+room.ID)
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

func (s *SQLiteStore) InsertPick(ctx context.Context, pick *models.DraftPick, next *models.DraftRoom) error {
	tx, err := s.db.BeginTx(ctx, nil)
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pick.ID, pick.RoomID, pick.Round, pick.PickIndex, pick.ParticipantIndex, pick.PlayerKey,
		pick.PlayerName, pick.TeamName, string(pick.Role), ms)
	if err != nil {
		return sqliteErr(err, "insert pick "+pick.PlayerKey)
	}

	if err := updateRoomSQLite(ctx, tx, next, next.CurrentPickIndex-1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	pick.CreatedAt = now
	return nil
}

func (s *SQLiteStore) ListPicks(ctx context.Context, roomID string) ([]models.DraftPick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pickColumns+` FROM draft_picks WHERE room_id = ? ORDER BY round ASC, pick_index ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	picks := []models.DraftPick{}
	for rows.Next() {
		p, err := scanPick(rows)
		if err != nil {
			return nil, err
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

func (s *SQLiteStore) CreateLeague(ctx context.Context, league *models.League) error {
	if league.ID == "" {
		league.ID = newID()
	}
	now, ms := nowMillis()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leagues (`+leagueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, league.ID, league.Name, league.EventID, league.EventName, string(league.Status), league.DraftRoomID, ms, ms)
	if err != nil {
		return sqliteErr(err, "insert league "+league.ID)
	}
	league.CreatedAt, league.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) GetLeague(ctx context.Context, id string) (models.League, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = ?`, id)
	l, err := scanLeague(row)
	if err != nil {
		return models.League{}, notFound(err, "league "+id)
	}
	return l, nil
}

func (s *SQLiteStore) ListLeagues(ctx context.Context) ([]models.League, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+leagueColumns+` FROM leagues ORDER BY created_at DESC, id ASC`)
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

func (s *SQLiteStore) UpdateLeague(ctx context.Context, league *models.League) error {
	now, ms := nowMillis()
	res, err := s.db.ExecContext(ctx, `
		UPDATE leagues SET name = ?, event_id = ?, event_name = ?, status = ?, draft_room_id = ?, updated_at = ?
		WHERE id = ?
	`, league.Name, league.EventID, league.EventName, string(league.Status), league.DraftRoomID, ms, league.ID)
	if err != nil {
		return sqliteErr(err, "update league "+league.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("league %s: %w", league.ID, ErrNotFound)
	}
	league.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) AddMember(ctx context.Context, member *models.LeagueMember) error {
	if _, err := s.GetLeague(ctx, member.LeagueID); err != nil {
		return err
	}
	if member.ID == "" {
		member.ID = newID()
	}
	now, ms := nowMillis()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO league_members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, member.ID, member.LeagueID, member.Name, member.JoinOrder, member.Wins, ms)
	if err != nil {
		return sqliteErr(err, fmt.Sprintf("insert member %q", member.Name))
	}
	member.CreatedAt = now
	return nil
}

func (s *SQLiteStore) ListMembers(ctx context.Context, leagueID string) ([]models.LeagueMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memberColumns+` FROM league_members WHERE league_id = ? ORDER BY join_order ASC
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

func (s *SQLiteStore) CreateWeeks(ctx context.Context, weeks []models.LeagueWeek) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

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
		_, err = tx.ExecContext(ctx, `
			INSERT INTO league_weeks (`+weekColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, w.ID, w.LeagueID, w.WeekNumber, string(w.Phase), matchups, scores, string(w.Status), ms, ms)
		if err != nil {
			return sqliteErr(err, fmt.Sprintf("insert week %d", w.WeekNumber))
		}
		w.CreatedAt, w.UpdatedAt = now, now
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListWeeks(ctx context.Context, leagueID string) ([]models.LeagueWeek, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+weekColumns+` FROM league_weeks WHERE league_id = ? ORDER BY week_number ASC
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

func (s *SQLiteStore) GetWeek(ctx context.Context, leagueID string, weekNumber int) (models.LeagueWeek, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+weekColumns+` FROM league_weeks WHERE league_id = ? AND week_number = ?
	`, leagueID, weekNumber)
	w, err := scanWeek(row)
	if err != nil {
		return models.LeagueWeek{}, notFound(err, fmt.Sprintf("week %d in league %s", weekNumber, leagueID))
	}
	return w, nil
}

func (s *SQLiteStore) MarkWeekScored(ctx context.Context, leagueID string, weekNumber int, scores map[string]float64, winners []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, encoded, err := encodeWeek(models.LeagueWeek{WeekNumber: weekNumber, Scores: scores})
	if err != nil {
		return err
	}
	_, ms := nowMillis()

	res, err := tx.ExecContext(ctx, `
		UPDATE league_weeks SET scores = ?, status = ?, updated_at = ?
		WHERE league_id = ? AND week_number = ? AND status = ?
	`, encoded, string(models.WeekScored), ms, leagueID, weekNumber, string(models.WeekPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM league_weeks WHERE league_id = ? AND week_number = ?
		`, leagueID, weekNumber).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("week %d in league %s: %w", weekNumber, leagueID, ErrNotFound)
		}
		return fmt.Errorf("week %d in league %s already scored: %w", weekNumber, leagueID, ErrConflict)
	}

	for _, name := range winners {
		if _, err := tx.ExecContext(ctx, `
			UPDATE league_members SET wins = wins + 1 WHERE league_id = ? AND name = ?
		`, leagueID, name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
