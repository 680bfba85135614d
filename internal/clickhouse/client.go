package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
)

// Client records scored league weeks and per-player phase scores in
// ClickHouse for season history.
type Client struct {
	conn driver.Conn
}

const schema = `
CREATE TABLE IF NOT EXISTS league_week_scores (
	league_id   String,
	week_number UInt16,
	phase       String,
	member      String,
	score       Float64,
	won         UInt8,
	scored_at   DateTime
) ENGINE = ReplacingMergeTree
ORDER BY (league_id, week_number, member);

CREATE TABLE IF NOT EXISTS player_phase_points (
	event_id    String,
	phase       String,
	player_key  String,
	final_score Float64,
	recorded_at DateTime
) ENGINE = ReplacingMergeTree(recorded_at)
ORDER BY (event_id, phase, player_key)`

func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("ClickHouse score sink ready", "addr", addr, "database", database)
	return c, nil
}

func (c *Client) ensureSchema(ctx context.Context) error {
	// the native protocol runs one statement per Exec
	for _, stmt := range splitStatements(schema) {
		if err := c.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ClickHouse schema: %w", err)
		}
	}
	return nil
}

// RecordWeek writes one row per member of a scored week.
func (c *Client) RecordWeek(ctx context.Context, week models.LeagueWeek, winners []string) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO league_week_scores")
	if err != nil {
		return fmt.Errorf("failed to prepare week batch: %w", err)
	}

	won := make(map[string]bool, len(winners))
	for _, w := range winners {
		won[w] = true
	}
	now := time.Now().UTC()
	for _, member := range sortedKeys(week.Scores) {
		var flag uint8
		if won[member] {
			flag = 1
		}
		if err := batch.Append(week.LeagueID, uint16(week.WeekNumber), string(week.Phase), member, week.Scores[member], flag, now); err != nil {
			return fmt.Errorf("failed to append week row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send week batch: %w", err)
	}
	return nil
}

// RecordPlayerPoints writes the final score of every player for a phase.
func (c *Client) RecordPlayerPoints(ctx context.Context, eventID string, phase models.Phase, finals map[string]float64) error {
	if len(finals) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO player_phase_points")
	if err != nil {
		return fmt.Errorf("failed to prepare player batch: %w", err)
	}
	now := time.Now().UTC()
	for _, key := range sortedKeys(finals) {
		if err := batch.Append(eventID, string(phase), key, finals[key], now); err != nil {
			return fmt.Errorf("failed to append player row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send player batch: %w", err)
	}
	return nil
}

// MemberTotals sums recorded weekly scores per member of a league.
func (c *Client) MemberTotals(ctx context.Context, leagueID string) (map[string]float64, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT member, sum(score)
		FROM league_week_scores FINAL
		WHERE league_id = ?
		GROUP BY member`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var (
			member string
			total  float64
		)
		if err := rows.Scan(&member, &total); err != nil {
			return nil, err
		}
		totals[member] = total
	}
	return totals, rows.Err()
}

// Ping checks the connection; used as an optional health check.
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
