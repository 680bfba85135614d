package dal

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Con7105/fantasy-valo/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write loses a uniqueness or state race.
	ErrConflict = errors.New("conflict")
)

// Store defines the durable data access layer shared by every client.
// Uniqueness is enforced here, not by callers.
type Store interface {
	CreateRoom(ctx context.Context, room *models.DraftRoom) error
	GetRoom(ctx context.Context, id string) (models.DraftRoom, error)
	UpdateRoom(ctx context.Context, room *models.DraftRoom) error

	// InsertPick appends pick and saves next, the room advanced past it, in
	// one step. It returns ErrConflict when another pick already holds the
	// same player or slot, or when the room moved on since it was read.
	InsertPick(ctx context.Context, pick *models.DraftPick, next *models.DraftRoom) error
	ListPicks(ctx context.Context, roomID string) ([]models.DraftPick, error)

	CreateLeague(ctx context.Context, league *models.League) error
	GetLeague(ctx context.Context, id string) (models.League, error)
	ListLeagues(ctx context.Context) ([]models.League, error)
	UpdateLeague(ctx context.Context, league *models.League) error

	// AddMember returns ErrConflict when the name is already in the league.
	AddMember(ctx context.Context, member *models.LeagueMember) error
	ListMembers(ctx context.Context, leagueID string) ([]models.LeagueMember, error)

	CreateWeeks(ctx context.Context, weeks []models.LeagueWeek) error
	ListWeeks(ctx context.Context, leagueID string) ([]models.LeagueWeek, error)
	GetWeek(ctx context.Context, leagueID string, weekNumber int) (models.LeagueWeek, error)
	// MarkWeekScored stores scores, flips the week to scored and adds one win
	// to each named member. It only applies to a pending week; otherwise it
	// returns ErrConflict and changes nothing.
	MarkWeekScored(ctx context.Context, leagueID string, weekNumber int, scores map[string]float64, winners []string) error

	Close() error
}

func newID() string {
	return uuid.NewString()
}
