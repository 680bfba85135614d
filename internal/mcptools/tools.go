// Package mcptools exposes read-only fantasy tools over the Model Context
// Protocol: player points, draft state and league standings.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/service"
	"github.com/Con7105/fantasy-valo/internal/stats"
)

const defaultLimit = 20

// PointsSource computes event points.
type PointsSource interface {
	PerPlayerMapPoints(ctx context.Context, eventID string, filter stats.MatchFilter) (stats.PointsResult, error)
	PointsForPhase(ctx context.Context, eventID string, phase models.Phase) (stats.PointsResult, error)
}

type PlayerPointsArgs struct {
	EventID string `json:"event_id" jsonschema:"Event id (required)"`
	Phase   string `json:"phase,omitempty" jsonschema:"Scoring phase: 0-0, 1-0/0-1 or 1-1 (default: whole event)"`
	Player  string `json:"player,omitempty" jsonschema:"Case-insensitive filter on player or team name"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum players to return (default 20)"`
}

type DraftStateArgs struct {
	RoomID string `json:"room_id" jsonschema:"Draft room id (required)"`
}

type LeagueStandingsArgs struct {
	LeagueID string `json:"league_id" jsonschema:"League id (required)"`
}

// PlayerScore is one row of the player_points result.
type PlayerScore struct {
	PlayerKey  string    `json:"playerKey"`
	FinalScore float64   `json:"finalScore"`
	MapPoints  []float64 `json:"mapPoints"`
}

// Tools holds the dependencies shared by every tool.
type Tools struct {
	registry *service.Registry
	points   PointsSource
}

func New(registry *service.Registry, points PointsSource) *Tools {
	return &Tools{registry: registry, points: points}
}

// Server builds an MCP server with every tool registered.
func (t *Tools) Server(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "fantasy-valo", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "player_points",
		Description: "Fantasy points per player for an event, best first",
	}, t.PlayerPoints)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "draft_state",
		Description: "Picks, rosters and whose turn it is in a draft room",
	}, t.DraftState)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "league_standings",
		Description: "League members ordered by wins then total points, with week results",
	}, t.LeagueStandings)

	return server
}

// Handler serves the tools over streamable HTTP.
func (t *Tools) Handler(version string) http.Handler {
	server := t.Server(version)
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})
}

func (t *Tools) PlayerPoints(ctx context.Context, req *mcp.CallToolRequest, args PlayerPointsArgs) (*mcp.CallToolResult, any, error) {
	if t.points == nil {
		return toolError(fmt.Errorf("stats provider is not configured")), nil, nil
	}
	eventID := strings.TrimSpace(args.EventID)
	if eventID == "" {
		return toolError(fmt.Errorf("event_id is required")), nil, nil
	}

	var (
		res stats.PointsResult
		err error
	)
	switch phase := models.Phase(strings.TrimSpace(args.Phase)); phase {
	case "":
		res, err = t.points.PerPlayerMapPoints(ctx, eventID, nil)
	case models.PhaseOpening, models.PhaseMiddle, models.PhaseDecider:
		res, err = t.points.PointsForPhase(ctx, eventID, phase)
	default:
		return toolError(fmt.Errorf("unknown phase %q", args.Phase)), nil, nil
	}
	if err != nil {
		return toolError(err), nil, nil
	}

	return toolJSON(topPlayers(res, args.Player, args.Limit))
}

// topPlayers ranks players by final score, then key.
func topPlayers(res stats.PointsResult, filter string, limit int) []PlayerScore {
	if limit <= 0 {
		limit = defaultLimit
	}
	filter = strings.ToLower(strings.TrimSpace(filter))

	rows := make([]PlayerScore, 0, len(res.MapPoints))
	for key, pts := range res.MapPoints {
		if filter != "" && !strings.Contains(strings.ToLower(key), filter) {
			continue
		}
		rows = append(rows, PlayerScore{PlayerKey: key, FinalScore: res.FinalScore(key), MapPoints: pts})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FinalScore != rows[j].FinalScore {
			return rows[i].FinalScore > rows[j].FinalScore
		}
		return rows[i].PlayerKey < rows[j].PlayerKey
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func (t *Tools) DraftState(ctx context.Context, req *mcp.CallToolRequest, args DraftStateArgs) (*mcp.CallToolResult, any, error) {
	roomID := strings.TrimSpace(args.RoomID)
	if roomID == "" {
		return toolError(fmt.Errorf("room_id is required")), nil, nil
	}
	svc, err := t.registry.LoadedDraft(ctx, roomID)
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSON(svc.CurrentState())
}

func (t *Tools) LeagueStandings(ctx context.Context, req *mcp.CallToolRequest, args LeagueStandingsArgs) (*mcp.CallToolResult, any, error) {
	leagueID := strings.TrimSpace(args.LeagueID)
	if leagueID == "" {
		return toolError(fmt.Errorf("league_id is required")), nil, nil
	}
	svc, err := t.registry.LoadedLeague(ctx, leagueID)
	if err != nil {
		return toolError(err), nil, nil
	}
	v := svc.CurrentState()
	return toolJSON(map[string]any{
		"league":    v.League,
		"standings": v.Standings,
		"weeks":     v.Weeks,
	})
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}
