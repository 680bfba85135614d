// Package vlr talks to the public VALORANT stats API (vlrggapi).
package vlr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Con7105/fantasy-valo/internal/models"
)

const (
	DefaultBaseURL = "https://vlrggapi.vercel.app"

	eventsPath       = "v2/events"
	eventMatchesPath = "v2/events/matches"
	matchDetailPath  = "v2/match/details"

	maxEvents       = 60
	maxEventMatches = 50
)

// APIError is returned for non-200 upstream responses.
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vlr: %s returned HTTP %d", e.Path, e.StatusCode)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches baseURL/path?params and decodes the JSON body into result.
func (c *Client) Get(ctx context.Context, path string, params url.Values, result interface{}) error {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("error decoding %s response: %w", path, err)
	}
	return nil
}

// Events lists current events, newest first as the provider returns them.
func (c *Client) Events(ctx context.Context) ([]models.Event, error) {
	var env envelope[eventSegment]
	if err := c.Get(ctx, eventsPath, nil, &env); err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(env.Data.Segments))
	for _, seg := range env.Data.Segments {
		id := eventIDFromPath(seg.URLPath.String())
		if id == "" {
			continue
		}
		events = append(events, models.Event{
			ID:        id,
			Name:      seg.Title.String(),
			URL:       seg.URLPath.String(),
			LogoURL:   seg.Thumb.String(),
			Region:    seg.Region.String(),
			Dates:     seg.Dates.String(),
			PrizePool: seg.Prize.String(),
			Status:    ParseStatus(seg.Status.String()),
		})
		if len(events) == maxEvents {
			break
		}
	}
	return events, nil
}

// EventMatches lists an event's series. Teams not yet decided come back as "TBD".
func (c *Client) EventMatches(ctx context.Context, eventID string) ([]models.EventMatch, error) {
	var env envelope[matchSegment]
	if err := c.Get(ctx, eventMatchesPath, url.Values{"event_id": {eventID}}, &env); err != nil {
		return nil, err
	}

	segs := env.Data.Segments
	if len(segs) > maxEventMatches {
		segs = segs[:maxEventMatches]
	}
	matches := make([]models.EventMatch, 0, len(segs))
	for _, seg := range segs {
		id := seg.MatchID.String()
		if id == "" {
			continue
		}
		m := models.EventMatch{
			ID:        id,
			URL:       seg.URL.String(),
			Stage:     seg.EventSeries.String(),
			Team1Name: TBD,
			Team2Name: TBD,
			Status:    ParseStatus(seg.Status.String()),
		}
		if seg.Team1 != nil {
			m.Team1Name = orTBD(seg.Team1.Name.String())
			m.Team1Score = ParseScore(seg.Team1.Score.String())
		}
		if seg.Team2 != nil {
			m.Team2Name = orTBD(seg.Team2.Name.String())
			m.Team2Score = ParseScore(seg.Team2.Score.String())
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// MatchDetail returns the first detail segment, or nil when there is none.
func (c *Client) MatchDetail(ctx context.Context, matchID string) (*MatchDetail, error) {
	var env envelope[MatchDetail]
	if err := c.Get(ctx, matchDetailPath, url.Values{"match_id": {matchID}}, &env); err != nil {
		return nil, err
	}
	if len(env.Data.Segments) == 0 {
		return nil, nil
	}
	return &env.Data.Segments[0], nil
}

// TBD is the placeholder name for an undecided team.
const TBD = "TBD"

func orTBD(name string) string {
	if name == "" {
		return TBD
	}
	return name
}

func ParseStatus(s string) models.MatchStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upcoming":
		return models.MatchUpcoming
	case "live":
		return models.MatchLive
	case "ongoing":
		return models.MatchOngoing
	case "completed":
		return models.MatchCompleted
	default:
		return models.MatchUnknown
	}
}

// ParseScore returns nil for a missing or non-numeric score.
func ParseScore(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func eventIDFromPath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if part == "event" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
