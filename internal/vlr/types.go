package vlr

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string or number and keeps its text. Any other
// JSON value (null, object, array, bool) decodes to the empty string.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = ""
			return nil
		}
		*f = FlexString(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*f = FlexString(data)
	default:
		*f = ""
	}
	return nil
}

func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

type envelope[T any] struct {
	Status string `json:"status"`
	Data   struct {
		Segments []T `json:"segments"`
	} `json:"data"`
}

type eventSegment struct {
	Title   FlexString `json:"title"`
	Status  FlexString `json:"status"`
	Prize   FlexString `json:"prize"`
	Dates   FlexString `json:"dates"`
	Region  FlexString `json:"region"`
	Thumb   FlexString `json:"thumb"`
	URLPath FlexString `json:"url_path"`
}

type segmentTeam struct {
	Name  FlexString `json:"name"`
	Score FlexString `json:"score"`
}

type matchSegment struct {
	MatchID     FlexString   `json:"match_id"`
	URL         FlexString   `json:"url"`
	Date        FlexString   `json:"date"`
	Status      FlexString   `json:"status"`
	EventSeries FlexString   `json:"event_series"`
	Team1       *segmentTeam `json:"team1"`
	Team2       *segmentTeam `json:"team2"`
}

// TeamScore is a team line in a match detail.
type TeamScore struct {
	Name  FlexString `json:"name"`
	Score FlexString `json:"score"`
}

// PlayerStat is a raw per-map stat row. The provider is inconsistent about
// key spelling for clutch counts, so rows keep every field and expose typed
// accessors.
type PlayerStat map[string]FlexString

func (p PlayerStat) Field(key string) string {
	return p[key].String()
}

func (p PlayerStat) Name() string {
	return p.Field("name")
}

// clutchAliases lists every spelling seen for the clutch column, in order of
// preference.
var clutchAliases = [5][3]string{
	{"clutch_1v1", "1v1", "clutch1v1"},
	{"clutch_1v2", "1v2", "clutch1v2"},
	{"clutch_1v3", "1v3", "clutch1v3"},
	{"clutch_1v4", "1v4", "clutch1v4"},
	{"clutch_1v5", "1v5", "clutch1v5"},
}

// Clutch returns the raw clutch value for 1vN from whichever alias is present.
func (p PlayerStat) Clutch(n int) string {
	if n < 1 || n > 5 {
		return ""
	}
	for _, key := range clutchAliases[n-1] {
		if v, ok := p[key]; ok {
			return v.String()
		}
	}
	return ""
}

type MapDetail struct {
	MapName FlexString `json:"map_name"`
	Players struct {
		Team1 []PlayerStat `json:"team1"`
		Team2 []PlayerStat `json:"team2"`
	} `json:"players"`
}

// AdvancedStat is one performance row. Columns "6" to "10" are clutches
// won 1v1 through 1v5.
type AdvancedStat map[string]FlexString

func (a AdvancedStat) Player() string {
	return a["player"].String()
}

func (a AdvancedStat) Column(n int) string {
	return a[strconv.Itoa(n)].String()
}

type MatchDetail struct {
	MatchID     FlexString  `json:"match_id"`
	Teams       []TeamScore `json:"teams"`
	Maps        []MapDetail `json:"maps"`
	Performance struct {
		AdvancedStats []AdvancedStat `json:"advanced_stats"`
	} `json:"performance"`
}
