package models

import "time"

// Role is a player's in-game role used by per-round draft constraints.
type Role string

const (
	RoleDuelist    Role = "duelist"
	RoleFlex       Role = "flex"
	RoleSentinel   Role = "senti"
	RoleController Role = "controller"
	RoleInitiator  Role = "initiator"
	// RoleSupport is satisfied by any sentinel, controller or initiator.
	RoleSupport Role = "senti_controller_initiator"
)

// Phase names a scoring segment of the event schedule.
type Phase string

const (
	PhaseOpening Phase = "0-0"
	PhaseMiddle  Phase = "1-0/0-1"
	PhaseDecider Phase = "1-1"
)

// DraftStatus is the lifecycle of a draft room
type DraftStatus string

const (
	DraftSetup     DraftStatus = "setup"
	DraftDrafting  DraftStatus = "drafting"
	DraftCompleted DraftStatus = "completed"
)

type LeagueStatus string

const (
	LeagueJoining  LeagueStatus = "joining"
	LeagueDrafting LeagueStatus = "drafting"
	LeagueActive   LeagueStatus = "active"
)

type WeekStatus string

const (
	WeekPending WeekStatus = "pending"
	WeekScored  WeekStatus = "scored"
)

// PlayerKey is the identity of a real player within an event: "name|team".
func PlayerKey(playerName, teamName string) string {
	return playerName + "|" + teamName
}

// RosterSlot is one real player owned by a roster or fantasy team
type RosterSlot struct {
	PlayerName string `json:"playerName"`
	TeamName   string `json:"teamName"`
	PlayerURL  string `json:"playerUrl,omitempty"`
}

func (s RosterSlot) Key() string {
	return PlayerKey(s.PlayerName, s.TeamName)
}

// RoleConstraint requires a role for one draft round. Slot is the
// zero-based round it applies to.
type RoleConstraint struct {
	Slot int  `json:"slot"`
	Role Role `json:"role"`
}

// MatchupRound is one round of head-to-head pairings.
type MatchupRound struct {
	Round int         `json:"round"`
	Pairs [][2]string `json:"pairs"`
}

// DraftRoom holds the shared state of a snake draft
type DraftRoom struct {
	ID               string           `json:"id"`
	LeagueID         string           `json:"leagueId,omitempty"`
	EventID          string           `json:"eventId"`
	EventName        string           `json:"eventName"`
	Phase            Phase            `json:"phase"`
	Participants     []string         `json:"participants"`
	SnakeOrder       []int            `json:"snakeOrder"`
	SlotCount        int              `json:"slotCount"`
	RoleConstraints  []RoleConstraint `json:"roleConstraints,omitempty"`
	PlayerRoles      map[string]Role  `json:"playerRoles,omitempty"`
	CurrentRound     int              `json:"currentRound"`
	CurrentPickIndex int              `json:"currentPickIndex"`
	Status           DraftStatus      `json:"status"`
	Matchups         []MatchupRound   `json:"matchups,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate freely.
func (r DraftRoom) Clone() DraftRoom {
	out := r
	out.Participants = append([]string(nil), r.Participants...)
	out.SnakeOrder = append([]int(nil), r.SnakeOrder...)
	out.RoleConstraints = append([]RoleConstraint(nil), r.RoleConstraints...)
	if r.PlayerRoles != nil {
		out.PlayerRoles = make(map[string]Role, len(r.PlayerRoles))
		for k, v := range r.PlayerRoles {
			out.PlayerRoles[k] = v
		}
	}
	if r.Matchups != nil {
		out.Matchups = make([]MatchupRound, len(r.Matchups))
		for i, m := range r.Matchups {
			out.Matchups[i] = MatchupRound{Round: m.Round, Pairs: append([][2]string(nil), m.Pairs...)}
		}
	}
	return out
}

// DraftPick is an accepted pick. Picks are append-only.
type DraftPick struct {
	ID               string    `json:"id"`
	RoomID           string    `json:"roomId"`
	Round            int       `json:"round"`
	PickIndex        int       `json:"pickIndex"`
	ParticipantIndex int       `json:"participantIndex"`
	PlayerKey        string    `json:"playerKey"`
	PlayerName       string    `json:"playerName"`
	TeamName         string    `json:"teamName"`
	Role             Role      `json:"role,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type League struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	EventID     string       `json:"eventId"`
	EventName   string       `json:"eventName"`
	Status      LeagueStatus `json:"status"`
	DraftRoomID string       `json:"draftRoomId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type LeagueMember struct {
	ID        string    `json:"id"`
	LeagueID  string    `json:"leagueId"`
	Name      string    `json:"name"`
	JoinOrder int       `json:"joinOrder"`
	Wins      int       `json:"wins"`
	CreatedAt time.Time `json:"createdAt"`
}

// LeagueWeek is one scheduled scoring week. Once Status is scored it never changes.
type LeagueWeek struct {
	ID         string             `json:"id"`
	LeagueID   string             `json:"leagueId"`
	WeekNumber int                `json:"weekNumber"`
	Phase      Phase              `json:"phase"`
	Matchups   [][2]string        `json:"matchups"`
	Scores     map[string]float64 `json:"scores"`
	Status     WeekStatus         `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// FantasyTeam is a device-local named roster used for comparisons.
type FantasyTeam struct {
	ID      string       `json:"id"`
	Label   string       `json:"label"`
	Players []RosterSlot `json:"players"`
}
