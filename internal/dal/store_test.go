package dal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
)

func init() {
	logger.Init()
}

// storeFactories returns every backend the contract tests run against.
// Postgres joins when TEST_DATABASE_URL points at a scratch database.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	factories := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.sqlite"))
			if err != nil {
				t.Fatalf("NewSQLiteStore() failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		factories["postgres"] = func(t *testing.T) Store {
			s, err := NewPostgresStore(url)
			if err != nil {
				t.Fatalf("NewPostgresStore() failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}
	}
	return factories
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func newTestRoom() *models.DraftRoom {
	return &models.DraftRoom{
		EventID:          "2283",
		EventName:        "Champions",
		Phase:            models.PhaseOpening,
		Participants:     []string{"ana", "ben"},
		SnakeOrder:       []int{1, 0},
		SlotCount:        2,
		RoleConstraints:  []models.RoleConstraint{{Slot: 0, Role: models.RoleDuelist}},
		PlayerRoles:      map[string]models.Role{"TenZ|SEN": models.RoleDuelist},
		CurrentRound:     1,
		CurrentPickIndex: 0,
		Status:           models.DraftDrafting,
	}
}

func pickAt(room models.DraftRoom, player string) (*models.DraftPick, *models.DraftRoom) {
	pick := &models.DraftPick{
		RoomID:           room.ID,
		Round:            room.CurrentPickIndex/len(room.Participants) + 1,
		PickIndex:        room.CurrentPickIndex % len(room.Participants),
		ParticipantIndex: 0,
		PlayerKey:        models.PlayerKey(player, "SEN"),
		PlayerName:       player,
		TeamName:         "SEN",
	}
	next := room.Clone()
	next.CurrentPickIndex++
	next.CurrentRound = next.CurrentPickIndex/len(next.Participants) + 1
	return pick, &next
}

func TestRoomRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room := newTestRoom()
		if err := s.CreateRoom(ctx, room); err != nil {
			t.Fatalf("CreateRoom() failed: %v", err)
		}
		if room.ID == "" {
			t.Fatal("CreateRoom() should assign an id")
		}

		got, err := s.GetRoom(ctx, room.ID)
		if err != nil {
			t.Fatalf("GetRoom() failed: %v", err)
		}
		if len(got.Participants) != 2 || got.SnakeOrder[0] != 1 || got.Status != models.DraftDrafting {
			t.Errorf("unexpected room: %+v", got)
		}
		if got.PlayerRoles["TenZ|SEN"] != models.RoleDuelist || len(got.RoleConstraints) != 1 {
			t.Errorf("role data lost: %+v", got)
		}

		got.Matchups = []models.MatchupRound{{Round: 1, Pairs: [][2]string{{"ana", "ben"}}}}
		if err := s.UpdateRoom(ctx, &got); err != nil {
			t.Fatalf("UpdateRoom() failed: %v", err)
		}
		again, _ := s.GetRoom(ctx, room.ID)
		if len(again.Matchups) != 1 || again.Matchups[0].Pairs[0][1] != "ben" {
			t.Errorf("matchups not saved: %+v", again.Matchups)
		}

		if _, err := s.GetRoom(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetRoom(missing) error = %v, want ErrNotFound", err)
		}
		missing := newTestRoom()
		missing.ID = "missing"
		if err := s.UpdateRoom(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateRoom(missing) error = %v, want ErrNotFound", err)
		}
	})
}

func TestInsertPickConflicts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room := newTestRoom()
		if err := s.CreateRoom(ctx, room); err != nil {
			t.Fatalf("CreateRoom() failed: %v", err)
		}

		pick, next := pickAt(*room, "TenZ")
		if err := s.InsertPick(ctx, pick, next); err != nil {
			t.Fatalf("InsertPick() failed: %v", err)
		}

		// a stale client submitting for the same slot
		stale, staleNext := pickAt(*room, "Zekken")
		if err := s.InsertPick(ctx, stale, staleNext); !errors.Is(err, ErrConflict) {
			t.Errorf("same slot error = %v, want ErrConflict", err)
		}

		// the same player at the next slot
		current, _ := s.GetRoom(ctx, room.ID)
		dup, dupNext := pickAt(current, "TenZ")
		if err := s.InsertPick(ctx, dup, dupNext); !errors.Is(err, ErrConflict) {
			t.Errorf("duplicate player error = %v, want ErrConflict", err)
		}

		picks, err := s.ListPicks(ctx, room.ID)
		if err != nil {
			t.Fatalf("ListPicks() failed: %v", err)
		}
		if len(picks) != 1 || picks[0].PlayerName != "TenZ" {
			t.Errorf("expected only the winning pick, got %+v", picks)
		}
		if current.CurrentPickIndex != 1 {
			t.Errorf("expected room at pick 1, got %d", current.CurrentPickIndex)
		}
	})
}

func TestInsertPickRace(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		room := newTestRoom()
		if err := s.CreateRoom(ctx, room); err != nil {
			t.Fatalf("CreateRoom() failed: %v", err)
		}

		players := []string{"TenZ", "Zekken", "Sacy", "johnqt", "zellsis"}
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			accepted  int
			conflicts int
		)
		for _, name := range players {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				pick, next := pickAt(*room, name)
				err := s.InsertPick(ctx, pick, next)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					accepted++
				case errors.Is(err, ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected InsertPick() error: %v", err)
				}
			}(name)
		}
		wg.Wait()

		if accepted != 1 || conflicts != len(players)-1 {
			t.Errorf("expected 1 accepted and %d conflicts, got %d and %d", len(players)-1, accepted, conflicts)
		}
	})
}

func TestLeagueMembersAndWeeks(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		league := &models.League{Name: "Friday", EventID: "2283", Status: models.LeagueJoining}
		if err := s.CreateLeague(ctx, league); err != nil {
			t.Fatalf("CreateLeague() failed: %v", err)
		}

		for i, name := range []string{"ana", "ben"} {
			m := &models.LeagueMember{LeagueID: league.ID, Name: name, JoinOrder: i}
			if err := s.AddMember(ctx, m); err != nil {
				t.Fatalf("AddMember(%s) failed: %v", name, err)
			}
		}
		if err := s.AddMember(ctx, &models.LeagueMember{LeagueID: league.ID, Name: "ana", JoinOrder: 2}); !errors.Is(err, ErrConflict) {
			t.Errorf("duplicate member error = %v, want ErrConflict", err)
		}
		if err := s.AddMember(ctx, &models.LeagueMember{LeagueID: "nope", Name: "cat"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("member of missing league error = %v, want ErrNotFound", err)
		}

		league.Status = models.LeagueActive
		if err := s.UpdateLeague(ctx, league); err != nil {
			t.Fatalf("UpdateLeague() failed: %v", err)
		}
		leagues, err := s.ListLeagues(ctx)
		if err != nil || len(leagues) != 1 || leagues[0].Status != models.LeagueActive {
			t.Fatalf("ListLeagues() = %+v, %v", leagues, err)
		}

		weeks := []models.LeagueWeek{
			{LeagueID: league.ID, WeekNumber: 1, Phase: models.PhaseOpening, Matchups: [][2]string{{"ana", "ben"}}},
			{LeagueID: league.ID, WeekNumber: 2, Phase: models.PhaseMiddle, Matchups: [][2]string{{"ben", "ana"}}},
		}
		if err := s.CreateWeeks(ctx, weeks); err != nil {
			t.Fatalf("CreateWeeks() failed: %v", err)
		}
		if weeks[0].ID == "" || weeks[0].Status != models.WeekPending {
			t.Errorf("CreateWeeks() should fill id and status: %+v", weeks[0])
		}

		scores := map[string]float64{"ana": 41.2, "ben": 39.9}
		if err := s.MarkWeekScored(ctx, league.ID, 1, scores, []string{"ana"}); err != nil {
			t.Fatalf("MarkWeekScored() failed: %v", err)
		}
		// second call must not change anything
		if err := s.MarkWeekScored(ctx, league.ID, 1, map[string]float64{"ana": 0}, []string{"ana"}); !errors.Is(err, ErrConflict) {
			t.Errorf("rescoring error = %v, want ErrConflict", err)
		}
		if err := s.MarkWeekScored(ctx, league.ID, 9, scores, nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing week error = %v, want ErrNotFound", err)
		}

		w, err := s.GetWeek(ctx, league.ID, 1)
		if err != nil {
			t.Fatalf("GetWeek() failed: %v", err)
		}
		if w.Status != models.WeekScored || w.Scores["ana"] != 41.2 {
			t.Errorf("unexpected scored week: %+v", w)
		}

		members, err := s.ListMembers(ctx, league.ID)
		if err != nil {
			t.Fatalf("ListMembers() failed: %v", err)
		}
		if members[0].Name != "ana" || members[0].Wins != 1 || members[1].Wins != 0 {
			t.Errorf("unexpected wins: %+v", members)
		}

		all, err := s.ListWeeks(ctx, league.ID)
		if err != nil || len(all) != 2 || all[1].Matchups[0][0] != "ben" {
			t.Errorf("ListWeeks() = %+v, %v", all, err)
		}
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	room := newTestRoom()
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom() failed: %v", err)
	}

	got, _ := s.GetRoom(ctx, room.ID)
	got.Participants[0] = "mallory"
	got.PlayerRoles["TenZ|SEN"] = models.RoleFlex

	again, _ := s.GetRoom(ctx, room.ID)
	if again.Participants[0] != "ana" || again.PlayerRoles["TenZ|SEN"] != models.RoleDuelist {
		t.Errorf("stored room was mutated through a returned copy: %+v", again)
	}
}
