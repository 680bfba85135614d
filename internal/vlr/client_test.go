package vlr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
)

func init() {
	logger.Init()
}

const eventsJSON = `{"status":"success","data":{"segments":[
	{"title":"Champions Tour","status":"ongoing","url_path":"https://www.vlr.gg/event/2283/champions-tour","region":"INT"},
	{"title":"No id","url_path":"/news/1"}
]}}`

const matchesJSON = `{"status":"success","data":{"segments":[
	{"match_id":"101","url":"/101/a-vs-b","status":"Completed","event_series":"Swiss Stage: Round 1","team1":{"name":"Alpha","score":"2"},"team2":{"name":"Beta","score":"1"}},
	{"match_id":"102","status":"upcoming","team1":{"name":""},"team2":{"name":"Gamma","score":"-"}},
	{"url":"/missing-id"}
]}}`

const detailJSON = `{"status":"success","data":{"segments":[{
	"match_id":"101",
	"teams":[{"name":"Alpha","score":"2"},{"name":"Beta","score":1}],
	"maps":[{"map_name":"Ascent","players":{
		"team1":[{"name":"ace","kills":"20","fk":3,"clutch_1v2":"1","agents":["jett"]}],
		"team2":[{"name":"bob","kills":"11","1v1":2,"clutch1v3":"1"}]
	}}],
	"performance":{"advanced_stats":[{"player":"ace Alpha","6":"1","10":"1"}]}
}]}}`

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/events":
			io.WriteString(w, eventsJSON)
		case "/v2/events/matches":
			if r.URL.Query().Get("event_id") != "2283" {
				http.Error(w, "bad event", http.StatusBadRequest)
				return
			}
			io.WriteString(w, matchesJSON)
		case "/v2/match/details":
			if r.URL.Query().Get("match_id") == "404" {
				http.NotFound(w, r)
				return
			}
			if r.URL.Query().Get("match_id") == "empty" {
				io.WriteString(w, `{"status":"success","data":{"segments":[]}}`)
				return
			}
			io.WriteString(w, detailJSON)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestEvents(t *testing.T) {
	srv := fixtureServer(t)
	defer srv.Close()

	events, err := NewClient(srv.URL, time.Second).Events(context.Background())
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].ID != "2283" || events[0].Status != models.MatchOngoing {
		t.Errorf("event = %+v", events[0])
	}
}

func TestEventMatches(t *testing.T) {
	srv := fixtureServer(t)
	defer srv.Close()

	matches, err := NewClient(srv.URL, time.Second).EventMatches(context.Background(), "2283")
	if err != nil {
		t.Fatalf("EventMatches() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}

	m := matches[0]
	if m.Status != models.MatchCompleted || m.Stage != "Swiss Stage: Round 1" {
		t.Errorf("match 0 = %+v", m)
	}
	if m.Team1Score == nil || *m.Team1Score != 2 || m.Team2Score == nil || *m.Team2Score != 1 {
		t.Errorf("scores = %v %v", m.Team1Score, m.Team2Score)
	}

	if matches[1].Team1Name != TBD {
		t.Errorf("empty team name = %q, want TBD", matches[1].Team1Name)
	}
	if matches[1].Team2Score != nil {
		t.Errorf("non-numeric score parsed as %d", *matches[1].Team2Score)
	}
}

func TestMatchDetailAliases(t *testing.T) {
	srv := fixtureServer(t)
	defer srv.Close()

	d, err := NewClient(srv.URL, time.Second).MatchDetail(context.Background(), "101")
	if err != nil {
		t.Fatalf("MatchDetail() error = %v", err)
	}
	if d == nil || len(d.Maps) != 1 {
		t.Fatalf("detail = %+v", d)
	}
	if got := d.Teams[1].Score.String(); got != "1" {
		t.Errorf("numeric score = %q, want 1", got)
	}

	ace := d.Maps[0].Players.Team1[0]
	if ace.Name() != "ace" || ace.Field("fk") != "3" || ace.Clutch(2) != "1" {
		t.Errorf("ace row = %v", ace)
	}
	if ace.Field("agents") != "" {
		t.Errorf("array field decoded as %q", ace.Field("agents"))
	}

	bob := d.Maps[0].Players.Team2[0]
	if bob.Clutch(1) != "2" || bob.Clutch(3) != "1" || bob.Clutch(5) != "" {
		t.Errorf("bob clutches = %q %q %q", bob.Clutch(1), bob.Clutch(3), bob.Clutch(5))
	}

	adv := d.Performance.AdvancedStats[0]
	if adv.Player() != "ace Alpha" || adv.Column(6) != "1" || adv.Column(10) != "1" || adv.Column(7) != "" {
		t.Errorf("advanced row = %v", adv)
	}
}

func TestMatchDetailEmptyAndErrors(t *testing.T) {
	srv := fixtureServer(t)
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)

	d, err := c.MatchDetail(context.Background(), "empty")
	if err != nil || d != nil {
		t.Errorf("empty detail = %v, %v; want nil, nil", d, err)
	}

	_, err = c.MatchDetail(context.Background(), "404")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("error = %v, want APIError 404", err)
	}
}

func TestClutchAliasPreference(t *testing.T) {
	var row PlayerStat
	if err := json.Unmarshal([]byte(`{"clutch_1v1":"3","1v1":"9","clutch1v1":"7"}`), &row); err != nil {
		t.Fatal(err)
	}
	if got := row.Clutch(1); got != "3" {
		t.Errorf("Clutch(1) = %q, want the clutch_1v1 value", got)
	}
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"12"`, "12"},
		{`12.5`, "12.5"},
		{`-3`, "-3"},
		{`null`, ""},
		{`true`, ""},
		{`{"a":1}`, ""},
		{`[1,2]`, ""},
	}
	for _, tt := range tests {
		var f FlexString
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Errorf("Unmarshal(%s) error = %v", tt.in, err)
			continue
		}
		if f.String() != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, f, tt.want)
		}
	}
}

func TestParseScore(t *testing.T) {
	if s := ParseScore(" 2 "); s == nil || *s != 2 {
		t.Errorf("ParseScore(2) = %v", s)
	}
	for _, in := range []string{"", "-", "TBD"} {
		if s := ParseScore(in); s != nil {
			t.Errorf("ParseScore(%q) = %d, want nil", in, *s)
		}
	}
}

func TestProxy(t *testing.T) {
	srv := fixtureServer(t)
	defer srv.Close()
	proxy := NewProxy(NewClient(srv.URL, time.Second))

	t.Run("forwards", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/proxy?path=v2/events/matches&event_id=2283", nil)
		w := httptest.NewRecorder()
		proxy.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("missing CORS header")
		}
		if !strings.Contains(w.Body.String(), `"match_id":"101"`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		proxy.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/proxy?path=v2/events", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", w.Code)
		}
		if w.Header().Get("Allow") != http.MethodGet {
			t.Errorf("Allow = %q", w.Header().Get("Allow"))
		}
	})

	t.Run("missing path", func(t *testing.T) {
		w := httptest.NewRecorder()
		proxy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("upstream down", func(t *testing.T) {
		down := NewProxy(NewClient("http://127.0.0.1:1", 200*time.Millisecond))
		w := httptest.NewRecorder()
		down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy?path=v2/events", nil))
		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", w.Code)
		}
	})
}
