package clickhouse

import (
	"context"
	"os"
	"testing"

	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
)

func init() {
	logger.Init()
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements(schema)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	for _, s := range got {
		if s[:6] != "CREATE" {
			t.Errorf("statement does not start with CREATE: %q", s)
		}
	}
	if n := len(splitStatements(" ; ;")); n != 0 {
		t.Errorf("blank input produced %d statements", n)
	}
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]float64{"ben": 1, "ana": 2, "cat": 3})
	want := []string{"ana", "ben", "cat"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sortedKeys() = %v, want %v", got, want)
		}
	}
}

// TestRecordWeek needs a scratch server, e.g. TEST_CLICKHOUSE_ADDR=localhost:9000.
func TestRecordWeek(t *testing.T) {
	addr := os.Getenv("TEST_CLICKHOUSE_ADDR")
	if addr == "" {
		t.Skip("TEST_CLICKHOUSE_ADDR not set")
	}
	c, err := NewClient(addr, "default", "default", os.Getenv("TEST_CLICKHOUSE_PASSWORD"))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	leagueID := "test-" + t.Name()
	week := models.LeagueWeek{
		LeagueID:   leagueID,
		WeekNumber: 1,
		Phase:      models.PhaseOpening,
		Scores:     map[string]float64{"ana": 41.2, "ben": 39.9},
	}
	if err := c.RecordWeek(ctx, week, []string{"ana"}); err != nil {
		t.Fatalf("RecordWeek() failed: %v", err)
	}
	if err := c.RecordPlayerPoints(ctx, "2283", models.PhaseOpening, map[string]float64{"TenZ|SEN": 42.1}); err != nil {
		t.Fatalf("RecordPlayerPoints() failed: %v", err)
	}

	totals, err := c.MemberTotals(ctx, leagueID)
	if err != nil {
		t.Fatalf("MemberTotals() failed: %v", err)
	}
	if totals["ana"] != 41.2 {
		t.Errorf("MemberTotals()[ana] = %v, want 41.2", totals["ana"])
	}
}
