package models

// ClutchCounts holds rounds won alone against N opponents, N = 1..5.
type ClutchCounts struct {
	C1v1 int `json:"clutch1v1"`
	C1v2 int `json:"clutch1v2"`
	C1v3 int `json:"clutch1v3"`
	C1v4 int `json:"clutch1v4"`
	C1v5 int `json:"clutch1v5"`
}

func (c ClutchCounts) Total() int {
	return c.C1v1 + c.C1v2 + c.C1v3 + c.C1v4 + c.C1v5
}

// MapPlayerStat is one player's line on one played map.
type MapPlayerStat struct {
	Name        string        `json:"name"`
	Team        string        `json:"team"`
	Kills       int           `json:"kills"`
	FirstKills  int           `json:"firstKills"`
	FirstDeaths int           `json:"firstDeaths"`
	Assists     int           `json:"assists"`
	ACS         float64       `json:"acs"`
	KASTPercent float64       `json:"kastPercent"`
	ADR         float64       `json:"adr"`
	HSPercent   float64       `json:"hsPercent"`
	Clutches    *ClutchCounts `json:"clutches,omitempty"`
}

func (s MapPlayerStat) Key() string {
	return PlayerKey(s.Name, s.Team)
}

// BreakdownStats echoes the inputs a breakdown was computed from.
type BreakdownStats struct {
	Kills       int          `json:"kills"`
	FirstKills  int          `json:"firstKills"`
	Assists     int          `json:"assists"`
	FirstDeaths int          `json:"firstDeaths"`
	ACS         float64      `json:"acs"`
	KASTPercent float64      `json:"kastPercent"`
	ADR         float64      `json:"adr"`
	HSPercent   float64      `json:"hsPercent"`
	Clutches    ClutchCounts `json:"clutches"`
}

// PointComponents are the per-category contributions to a map total.
type PointComponents struct {
	Kills       float64 `json:"kills"`
	FirstKills  float64 `json:"firstKills"`
	Assists     float64 `json:"assists"`
	FirstDeaths float64 `json:"firstDeaths"`
	Clutch      float64 `json:"clutch"`
	ACSBonus    float64 `json:"acsBonus"`
	KASTBonus   float64 `json:"kastBonus"`
	ADRBonus    float64 `json:"adrBonus"`
	HSBonus     float64 `json:"hsBonus"`
	WinBonus    float64 `json:"winBonus"`
}

func (p PointComponents) Sum() float64 {
	return p.Kills + p.FirstKills + p.Assists + p.FirstDeaths + p.Clutch +
		p.ACSBonus + p.KASTBonus + p.ADRBonus + p.HSBonus + p.WinBonus
}

type MapPointsBreakdown struct {
	Stats  BreakdownStats  `json:"stats"`
	Points PointComponents `json:"points"`
	Total  float64         `json:"total"`
}

// MatchStatus as reported by the stats provider
type MatchStatus string

const (
	MatchUpcoming  MatchStatus = "upcoming"
	MatchLive      MatchStatus = "live"
	MatchOngoing   MatchStatus = "ongoing"
	MatchCompleted MatchStatus = "completed"
	MatchUnknown   MatchStatus = "unknown"
)

// Scoreable reports whether a match has stats worth scoring.
func (s MatchStatus) Scoreable() bool {
	return s == MatchCompleted || s == MatchLive || s == MatchOngoing
}

type Event struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	URL       string      `json:"url"`
	LogoURL   string      `json:"logoUrl,omitempty"`
	Region    string      `json:"region,omitempty"`
	Dates     string      `json:"dates,omitempty"`
	PrizePool string      `json:"prizePool,omitempty"`
	Status    MatchStatus `json:"status"`
}

// EventMatch is one series in an event's match list.
type EventMatch struct {
	ID         string      `json:"id"`
	URL        string      `json:"url"`
	Stage      string      `json:"stage,omitempty"`
	Team1Name  string      `json:"team1Name"`
	Team2Name  string      `json:"team2Name"`
	Team1Score *int        `json:"team1Score,omitempty"`
	Team2Score *int        `json:"team2Score,omitempty"`
	Status     MatchStatus `json:"status"`
}

// EventPlayerStat is a season aggregate used as the draft player pool.
type EventPlayerStat struct {
	PlayerName  string  `json:"playerName"`
	TeamName    string  `json:"teamName"`
	Maps        int     `json:"maps"`
	Rating      float64 `json:"rating"`
	ACS         float64 `json:"acs"`
	KDRatio     float64 `json:"kdRatio"`
	ADR         float64 `json:"adr"`
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
	Assists     int     `json:"assists"`
	FirstKills  int     `json:"firstKills"`
	FirstDeaths int     `json:"firstDeaths"`
}

func (s EventPlayerStat) Key() string {
	return PlayerKey(s.PlayerName, s.TeamName)
}
