package draft

import (
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/Con7105/fantasy-valo/internal/models"
)

func newRoom(n, slots int) models.DraftRoom {
	names := []string{"ana", "ben", "cat", "dan", "eve", "fay"}[:n]
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return models.DraftRoom{
		ID:           "room-1",
		Participants: names,
		SnakeOrder:   order,
		SlotCount:    slots,
		CurrentRound: 1,
		Status:       models.DraftDrafting,
	}
}

func TestOrderForRound(t *testing.T) {
	snake := []int{2, 0, 3, 1}

	if got := OrderForRound(snake, 1); !reflect.DeepEqual(got, snake) {
		t.Errorf("round 1 = %v, want %v", got, snake)
	}
	if got, want := OrderForRound(snake, 2), []int{1, 3, 0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("round 2 = %v, want %v", got, want)
	}
	if got := OrderForRound(snake, 3); !reflect.DeepEqual(got, OrderForRound(snake, 1)) {
		t.Errorf("round 3 = %v, want round 1 order", got)
	}
	if snake[0] != 2 {
		t.Errorf("OrderForRound mutated its input: %v", snake)
	}
}

func TestSequenceFourByTwo(t *testing.T) {
	got := Sequence([]int{0, 1, 2, 3}, 2)
	want := []int{0, 1, 2, 3, 3, 2, 1, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sequence = %v, want %v", got, want)
	}
}

func TestRoundAndIndex(t *testing.T) {
	tests := []struct {
		global, n, round, idx int
	}{
		{0, 4, 1, 0},
		{3, 4, 1, 3},
		{4, 4, 2, 0},
		{9, 4, 3, 1},
		{0, 0, 1, 0},
	}
	for _, tt := range tests {
		r, i := RoundAndIndex(tt.global, tt.n)
		if r != tt.round || i != tt.idx {
			t.Errorf("RoundAndIndex(%d, %d) = (%d, %d), want (%d, %d)", tt.global, tt.n, r, i, tt.round, tt.idx)
		}
	}
}

func TestRandomSnakeOrderIsPermutation(t *testing.T) {
	for n := 0; n < 8; n++ {
		order := RandomSnakeOrder(n)
		sorted := append([]int(nil), order...)
		sort.Ints(sorted)
		for i, v := range sorted {
			if v != i {
				t.Fatalf("RandomSnakeOrder(%d) = %v is not a permutation", n, order)
			}
		}
	}
}

func TestRoleSatisfies(t *testing.T) {
	tests := []struct {
		required, actual models.Role
		want             bool
	}{
		{"", "", true},
		{"", models.RoleDuelist, true},
		{models.RoleDuelist, models.RoleDuelist, true},
		{models.RoleDuelist, models.RoleFlex, false},
		{models.RoleSupport, models.RoleSentinel, true},
		{models.RoleSupport, models.RoleController, true},
		{models.RoleSupport, models.RoleInitiator, true},
		{models.RoleSupport, models.RoleSupport, true},
		{models.RoleSupport, models.RoleDuelist, false},
		{models.RoleController, "", false},
	}
	for _, tt := range tests {
		if got := RoleSatisfies(tt.required, tt.actual); got != tt.want {
			t.Errorf("RoleSatisfies(%q, %q) = %v, want %v", tt.required, tt.actual, got, tt.want)
		}
	}
}

func TestPlanAndAdvanceWholeDraft(t *testing.T) {
	room := newRoom(4, 2)
	var picks []models.DraftPick
	var who []int

	for i := 0; i < 8; i++ {
		turn, ok := CurrentTurn(room)
		if !ok {
			t.Fatalf("pick %d: CurrentTurn not ok", i)
		}
		pick, rej := Plan(room, picks, Candidate{PlayerName: string(rune('a' + i)), TeamName: "T"})
		if rej != "" {
			t.Fatalf("pick %d rejected: %s", i, rej)
		}
		if pick.ParticipantIndex != turn {
			t.Errorf("pick %d participant = %d, want %d", i, pick.ParticipantIndex, turn)
		}
		picks = append(picks, pick)
		who = append(who, pick.ParticipantIndex)
		room = Advance(room)
		if room.CurrentPickIndex != i+1 {
			t.Fatalf("CurrentPickIndex = %d, want %d", room.CurrentPickIndex, i+1)
		}
	}

	if !reflect.DeepEqual(who, []int{0, 1, 2, 3, 3, 2, 1, 0}) {
		t.Errorf("pick owners = %v", who)
	}
	if room.Status != models.DraftCompleted {
		t.Errorf("Status = %s, want completed", room.Status)
	}
	if _, ok := CurrentTurn(room); ok {
		t.Error("CurrentTurn ok after completion")
	}
	if picks[5].Round != 2 || picks[5].PickIndex != 1 {
		t.Errorf("pick 5 = round %d idx %d, want round 2 idx 1", picks[5].Round, picks[5].PickIndex)
	}
}

func TestPlanRejections(t *testing.T) {
	done := newRoom(2, 1)
	done.CurrentPickIndex = 2

	setup := newRoom(2, 1)
	setup.Status = models.DraftSetup

	constrained := newRoom(2, 2)
	constrained.RoleConstraints = []models.RoleConstraint{{Slot: 0, Role: models.RoleDuelist}, {Slot: 1, Role: models.RoleSupport}}
	constrained.PlayerRoles = map[string]models.Role{"boaster|FNC": models.RoleController}

	taken := []models.DraftPick{{PlayerKey: "derke|FNC"}}

	tests := []struct {
		name  string
		room  models.DraftRoom
		picks []models.DraftPick
		c     Candidate
		want  Rejection
	}{
		{"not drafting", setup, nil, Candidate{PlayerName: "x"}, RejectNotDrafting},
		{"complete", done, nil, Candidate{PlayerName: "x"}, RejectComplete},
		{"empty name", newRoom(2, 1), nil, Candidate{PlayerName: "  "}, RejectNoPlayer},
		{"role from table", constrained, nil, Candidate{PlayerName: "boaster", TeamName: "FNC"}, RejectRoleMismatch},
		{"claim against table", constrained, nil, Candidate{PlayerName: "boaster", TeamName: "FNC", Role: models.RoleDuelist}, RejectRoleConflict},
		{"unlisted with wrong claim", constrained, nil, Candidate{PlayerName: "nobody", TeamName: "FNC", Role: models.RoleInitiator}, RejectRoleMismatch},
		{"unlisted without claim", constrained, nil, Candidate{PlayerName: "nobody", TeamName: "FNC"}, ""},
		{"role ok", constrained, nil, Candidate{PlayerName: "derke", TeamName: "FNC", Role: models.RoleDuelist}, ""},
		{"taken", newRoom(2, 1), taken, Candidate{PlayerName: "derke", TeamName: "FNC"}, RejectTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.room.Clone()
			_, got := Plan(tt.room, tt.picks, tt.c)
			if got != tt.want {
				t.Errorf("Plan() rejection = %q, want %q", got, tt.want)
			}
			if !reflect.DeepEqual(before, tt.room) {
				t.Error("Plan() mutated the room")
			}
		})
	}
}

func TestPlanRecordsResolvedRole(t *testing.T) {
	room := newRoom(2, 2)
	room.RoleConstraints = []models.RoleConstraint{{Role: models.RoleDuelist}, {Role: models.RoleSupport}}
	room.PlayerRoles = map[string]models.Role{"boaster|FNC": models.RoleController, "derke|FNC": models.RoleDuelist}

	tests := []struct {
		name string
		c    Candidate
		want models.Role
	}{
		{"listed player", Candidate{PlayerName: "derke", TeamName: "FNC"}, models.RoleDuelist},
		{"listed player with matching claim", Candidate{PlayerName: "derke", TeamName: "FNC", Role: models.RoleDuelist}, models.RoleDuelist},
		{"unlisted player takes the round's role", Candidate{PlayerName: "TenZ", TeamName: "SEN"}, models.RoleDuelist},
		{"unlisted player keeps a fitting claim", Candidate{PlayerName: "TenZ", TeamName: "SEN", Role: models.RoleDuelist}, models.RoleDuelist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pick, rej := Plan(room, nil, tt.c)
			if rej != "" {
				t.Fatalf("Plan() rejected: %s", rej)
			}
			if pick.Role != tt.want {
				t.Errorf("pick.Role = %q, want %q", pick.Role, tt.want)
			}
		})
	}

	// a listed controller cannot be passed off as a duelist
	if pick, rej := Plan(room, nil, Candidate{PlayerName: "boaster", TeamName: "FNC", Role: models.RoleDuelist}); rej != RejectRoleConflict {
		t.Errorf("Plan() = %+v, %q; want %q", pick, rej, RejectRoleConflict)
	}
}

func TestRequiredRoleUnionRound(t *testing.T) {
	room := newRoom(2, 2)
	room.RoleConstraints = []models.RoleConstraint{{Role: models.RoleDuelist}, {Role: models.RoleSupport}}
	room.CurrentRound = 2
	room.CurrentPickIndex = 2

	req, ok := RequiredRole(room)
	if !ok || req != models.RoleSupport {
		t.Fatalf("RequiredRole = %q, %v; want support", req, ok)
	}
	if _, rej := Plan(room, nil, Candidate{PlayerName: "sova", TeamName: "X", Role: models.RoleInitiator}); rej != "" {
		t.Errorf("initiator rejected for support slot: %s", rej)
	}
}

func TestRosters(t *testing.T) {
	room := newRoom(2, 2)
	picks := []models.DraftPick{
		{ParticipantIndex: 0, PlayerKey: "a"},
		{ParticipantIndex: 1, PlayerKey: "b"},
		{ParticipantIndex: 1, PlayerKey: "c"},
		{ParticipantIndex: 7, PlayerKey: "ignored"},
	}
	r := Rosters(room, picks)
	if len(r[0]) != 1 || len(r[1]) != 2 {
		t.Errorf("Rosters = %v", r)
	}
}

func TestOutcomes(t *testing.T) {
	if o := Conflict(); o.Kind != OutcomeConflict || o.Message != ConflictMessage {
		t.Errorf("Conflict() = %+v", o)
	}
	if o := Rejected(RejectTaken); o.Reason != RejectTaken {
		t.Errorf("Rejected() = %+v", o)
	}
	if o := Accepted(models.DraftPick{ID: "p"}); o.Pick == nil || o.Pick.ID != "p" {
		t.Errorf("Accepted() = %+v", o)
	}
	cause := fmt.Errorf("store down")
	if o := Failed(cause); o.Err != cause || o.Message != "store down" {
		t.Errorf("Failed() = %+v", o)
	}
}
