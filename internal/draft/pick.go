package draft

import (
	"strings"

	"github.com/Con7105/fantasy-valo/internal/models"
)

// Rejection explains why a pick was refused. The zero value means accepted.
type Rejection string

const (
	RejectNotDrafting  Rejection = "draft is not in progress"
	RejectComplete     Rejection = "draft is already complete"
	RejectNoPlayer     Rejection = "player name is required"
	RejectRoleMismatch Rejection = "player does not fill the role required this round"
	RejectRoleConflict Rejection = "claimed role differs from the player's listed role"
	RejectTaken        Rejection = "player has already been drafted"
	RejectNotYourTurn  Rejection = "it is not your turn"
)

// Candidate is the player a participant wants to draft.
type Candidate struct {
	PlayerName string      `json:"playerName"`
	TeamName   string      `json:"teamName"`
	Role       models.Role `json:"role,omitempty"`
}

func (c Candidate) Key() string {
	return models.PlayerKey(c.PlayerName, c.TeamName)
}

// RoleSatisfies reports whether a player with role actual may fill required.
func RoleSatisfies(required, actual models.Role) bool {
	if required == "" || required == actual {
		return true
	}
	if required == models.RoleSupport {
		switch actual {
		case models.RoleSentinel, models.RoleController, models.RoleInitiator:
			return true
		}
	}
	return false
}

// RequiredRole returns the role constraint for the room's current round.
// Constraints are positional: the i-th applies to round i+1.
func RequiredRole(room models.DraftRoom) (models.Role, bool) {
	i := room.CurrentRound - 1
	if i < 0 || i >= len(room.RoleConstraints) {
		return "", false
	}
	r := room.RoleConstraints[i].Role
	return r, r != ""
}

// ResolveRole decides the role recorded on a pick and checks it against the
// round. The room's role table is authoritative; a claimed role only counts
// for players it does not list, and a pick with neither takes the role the
// round requires.
func ResolveRole(room models.DraftRoom, c Candidate) (models.Role, Rejection) {
	required, _ := RequiredRole(room)
	role := c.Role
	if listed := room.PlayerRoles[c.Key()]; listed != "" {
		if c.Role != "" && c.Role != listed {
			return "", RejectRoleConflict
		}
		role = listed
	} else if role == "" {
		role = required
	}
	if !RoleSatisfies(required, role) {
		return "", RejectRoleMismatch
	}
	return role, ""
}

// Plan validates a candidate against the room and, when acceptable, returns
// the pick to persist. picks may be nil when the caller has not loaded them;
// duplicate players are then left to the store's uniqueness constraint.
func Plan(room models.DraftRoom, picks []models.DraftPick, c Candidate) (models.DraftPick, Rejection) {
	n := len(room.Participants)
	if room.Status != models.DraftDrafting {
		return models.DraftPick{}, RejectNotDrafting
	}
	if room.CurrentPickIndex >= TotalPicks(n, room.SlotCount) || len(room.SnakeOrder) != n {
		return models.DraftPick{}, RejectComplete
	}
	c.PlayerName = strings.TrimSpace(c.PlayerName)
	c.TeamName = strings.TrimSpace(c.TeamName)
	if c.PlayerName == "" {
		return models.DraftPick{}, RejectNoPlayer
	}

	role, rejection := ResolveRole(room, c)
	if rejection != "" {
		return models.DraftPick{}, rejection
	}

	key := c.Key()
	for _, p := range picks {
		if p.PlayerKey == key {
			return models.DraftPick{}, RejectTaken
		}
	}

	round, idx := RoundAndIndex(room.CurrentPickIndex, n)
	return models.DraftPick{
		RoomID:           room.ID,
		Round:            round,
		PickIndex:        idx,
		ParticipantIndex: ParticipantAt(room.SnakeOrder, room.CurrentPickIndex),
		PlayerKey:        key,
		PlayerName:       c.PlayerName,
		TeamName:         c.TeamName,
		Role:             role,
	}, ""
}

// Advance returns the room after one accepted pick.
func Advance(room models.DraftRoom) models.DraftRoom {
	next := room.Clone()
	n := len(next.Participants)
	next.CurrentPickIndex++
	next.CurrentRound, _ = RoundAndIndex(next.CurrentPickIndex, n)
	if next.CurrentPickIndex >= TotalPicks(n, next.SlotCount) {
		next.Status = models.DraftCompleted
	}
	return next
}

// Rosters groups picks by participant index in pick order.
func Rosters(room models.DraftRoom, picks []models.DraftPick) [][]models.DraftPick {
	out := make([][]models.DraftPick, len(room.Participants))
	for _, p := range picks {
		if p.ParticipantIndex >= 0 && p.ParticipantIndex < len(out) {
			out[p.ParticipantIndex] = append(out[p.ParticipantIndex], p)
		}
	}
	return out
}
