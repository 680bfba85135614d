package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Con7105/fantasy-valo/internal/dal"
	"github.com/Con7105/fantasy-valo/internal/draft"
	"github.com/Con7105/fantasy-valo/internal/kv"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/models"
	"github.com/Con7105/fantasy-valo/internal/pubsub"
	"github.com/Con7105/fantasy-valo/internal/service"
	"github.com/Con7105/fantasy-valo/internal/stats"
)

func init() {
	logger.Init()
}

type fakeStats struct {
	points    stats.PointsResult
	pool      []models.EventPlayerStat
	lastPhase models.Phase
	err       error
}

func (f *fakeStats) PerPlayerMapPoints(ctx context.Context, eventID string, filter stats.MatchFilter) (stats.PointsResult, error) {
	return f.points, f.err
}

func (f *fakeStats) PointsForPhase(ctx context.Context, eventID string, phase models.Phase) (stats.PointsResult, error) {
	f.lastPhase = phase
	return f.points, f.err
}

func (f *fakeStats) EventPlayerPool(ctx context.Context, eventID string) ([]models.EventPlayerStat, error) {
	return f.pool, f.err
}

type fakeMatches struct {
	matches []models.EventMatch
}

func (f *fakeMatches) EventMatches(ctx context.Context, eventID string) ([]models.EventMatch, error) {
	return f.matches, nil
}

type testAPI struct {
	mux     *http.ServeMux
	store   dal.Store
	bus     *pubsub.PubSub
	stats   *fakeStats
	matches *fakeMatches
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{
		mux:     http.NewServeMux(),
		store:   dal.NewMemoryStore(),
		bus:     pubsub.New(),
		stats:   &fakeStats{points: stats.NewPointsResult()},
		matches: &fakeMatches{},
	}
	reg := service.NewRegistry(api.store, nil, api.bus)
	NewAPIHandlers(reg, api.bus, api.stats, api.matches, kv.NewMemory()).Register(api.mux)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestLeagueFlow(t *testing.T) {
	api := newTestAPI(t)

	if w := api.do(t, http.MethodPost, "/api/leagues", map[string]string{"name": "Friday"}); w.Code != http.StatusBadRequest {
		t.Errorf("league without event: status = %d, want 400", w.Code)
	}
	if w := api.do(t, http.MethodPost, "/api/leagues", "{not json"); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}

	w := api.do(t, http.MethodPost, "/api/leagues", map[string]string{"name": "Friday", "eventId": "2283"})
	if w.Code != http.StatusCreated {
		t.Fatalf("CreateLeague status = %d: %s", w.Code, w.Body.String())
	}
	l := decodeBody[models.League](t, w)

	for _, name := range []string{"ana", "ben"} {
		if w := api.do(t, http.MethodPost, "/api/leagues/"+l.ID+"/members", map[string]string{"name": name}); w.Code != http.StatusCreated {
			t.Fatalf("join %s: status = %d: %s", name, w.Code, w.Body.String())
		}
	}
	if w := api.do(t, http.MethodPost, "/api/leagues/"+l.ID+"/members", map[string]string{"name": "ana"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate join: status = %d, want 409", w.Code)
	}

	w = api.do(t, http.MethodPost, "/api/leagues/"+l.ID+"/draft", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("StartDraft status = %d: %s", w.Code, w.Body.String())
	}
	room := decodeBody[models.DraftRoom](t, w)
	if w := api.do(t, http.MethodPost, "/api/leagues/"+l.ID+"/draft", nil); w.Code != http.StatusConflict {
		t.Errorf("second StartDraft: status = %d, want 409", w.Code)
	}

	// round one requires a duelist
	w = api.do(t, http.MethodPost, "/api/drafts/"+room.ID+"/picks", map[string]string{"playerName": "Sacy", "teamName": "SEN", "role": "initiator"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong role: status = %d, want 400", w.Code)
	}
	if resp := decodeBody[pickResponse](t, w); resp.Outcome.Reason != draft.RejectRoleMismatch {
		t.Errorf("wrong role outcome = %+v", resp.Outcome)
	}

	w = api.do(t, http.MethodPost, "/api/drafts/"+room.ID+"/picks", map[string]string{"playerName": "TenZ", "teamName": "SEN", "role": "duelist"})
	if w.Code != http.StatusCreated {
		t.Fatalf("pick status = %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[pickResponse](t, w)
	if resp.Outcome.Kind != draft.OutcomeAccepted || len(resp.State.Picks) != 1 {
		t.Errorf("unexpected pick response: %+v", resp)
	}

	w = api.do(t, http.MethodGet, "/api/leagues/"+l.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GetLeague status = %d", w.Code)
	}
	view := decodeBody[service.LeagueView](t, w)
	if view.League.Status != models.LeagueDrafting || len(view.Members) != 2 {
		t.Errorf("unexpected league view: %+v", view)
	}

	if w := api.do(t, http.MethodPost, "/api/drafts/"+room.ID+"/matchups", nil); w.Code != http.StatusConflict {
		t.Errorf("matchups before the draft ends: status = %d, want 409", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/api/leagues/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown league: status = %d, want 404", w.Code)
	}
	if w := api.do(t, http.MethodPost, "/api/drafts/nope/picks", map[string]string{"playerName": "TenZ"}); w.Code != http.StatusNotFound {
		t.Errorf("pick in unknown room: status = %d, want 404", w.Code)
	}
	if w := api.do(t, http.MethodPost, "/api/leagues/"+l.ID+"/weeks/zero/score", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad week number: status = %d, want 400", w.Code)
	}
}

func TestPickConflictReturnsFreshState(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	room := models.DraftRoom{
		EventID:      "2283",
		Participants: []string{"ana", "ben"},
		SnakeOrder:   []int{0, 1},
		SlotCount:    2,
		CurrentRound: 1,
		Status:       models.DraftDrafting,
	}
	if err := api.store.CreateRoom(ctx, &room); err != nil {
		t.Fatal(err)
	}
	if w := api.do(t, http.MethodGet, "/api/drafts/"+room.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("GetDraft status = %d", w.Code)
	}

	// another instance picks behind this one's back
	pick, rej := draft.Plan(room, nil, draft.Candidate{PlayerName: "TenZ", TeamName: "SEN"})
	if rej != "" {
		t.Fatalf("Plan() rejected: %s", rej)
	}
	next := draft.Advance(room)
	if err := api.store.InsertPick(ctx, &pick, &next); err != nil {
		t.Fatal(err)
	}

	w := api.do(t, http.MethodPost, "/api/drafts/"+room.ID+"/picks", map[string]string{"playerName": "Zekken", "teamName": "SEN"})
	if w.Code != http.StatusConflict {
		t.Fatalf("stale pick: status = %d, want 409: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[pickResponse](t, w)
	if resp.Outcome.Message != draft.ConflictMessage {
		t.Errorf("conflict message = %q", resp.Outcome.Message)
	}
	if len(resp.State.Picks) != 1 || resp.State.Picks[0].PlayerName != "TenZ" || resp.State.CurrentName != "ben" {
		t.Errorf("state was not refreshed: %+v", resp.State)
	}
}

func TestDisabledStore(t *testing.T) {
	mux := http.NewServeMux()
	NewAPIHandlers(service.NewRegistry(nil, nil, nil), nil, nil, nil, kv.NewMemory()).Register(mux)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/leagues", ""},
		{http.MethodGet, "/api/drafts/room-1", ""},
		{http.MethodPost, "/api/drafts/room-1/picks", `{"playerName":"TenZ","teamName":"SEN"}`},
		{http.MethodPost, "/api/leagues/l-1/members", `{"name":"ana"}`},
		{http.MethodGet, "/api/stats/2283/points", ""},
		{http.MethodGet, "/api/events", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestPlayerPoints(t *testing.T) {
	api := newTestAPI(t)
	api.stats.points.MapPoints["TenZ|SEN"] = []float64{10, 11}

	if w := api.do(t, http.MethodGet, "/api/stats/2283/points?phase=2-0", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown phase: status = %d, want 400", w.Code)
	}

	w := api.do(t, http.MethodGet, "/api/stats/2283/points?phase=1-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[pointsResponse](t, w)
	if resp.FinalScores["TenZ|SEN"] != 10.5 || resp.Phase != models.PhaseDecider {
		t.Errorf("unexpected points response: %+v", resp)
	}
	if api.stats.lastPhase != models.PhaseDecider {
		t.Errorf("phase passed to stats = %q", api.stats.lastPhase)
	}

	api.stats.err = errors.New("provider down")
	if w := api.do(t, http.MethodGet, "/api/stats/2283/players", nil); w.Code != http.StatusBadGateway {
		t.Errorf("provider failure: status = %d, want 502", w.Code)
	}
}

func TestTeamsAndRoster(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/teams", map[string]string{"label": " "})
	if w.Code != http.StatusCreated {
		t.Fatalf("AddTeam status = %d", w.Code)
	}
	team := decodeBody[models.FantasyTeam](t, w)
	if team.Label != "Unnamed team" {
		t.Errorf("label = %q, want Unnamed team", team.Label)
	}

	slot := map[string]string{"playerName": "TenZ", "teamName": "SEN"}
	for i := 0; i < 2; i++ {
		if w := api.do(t, http.MethodPost, "/api/teams/"+team.ID+"/players", slot); w.Code != http.StatusOK {
			t.Fatalf("AddTeamPlayer status = %d", w.Code)
		}
	}
	w = api.do(t, http.MethodGet, "/api/teams", nil)
	list := decodeBody[[]models.FantasyTeam](t, w)
	if len(list) != 1 || len(list[0].Players) != 1 {
		t.Errorf("unexpected teams: %+v", list)
	}
	if w := api.do(t, http.MethodDelete, "/api/teams/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete missing team: status = %d, want 404", w.Code)
	}

	for _, name := range []string{"TenZ", "Zekken"} {
		if w := api.do(t, http.MethodPost, "/api/roster/2283", map[string]string{"playerName": name, "teamName": "SEN"}); w.Code != http.StatusOK {
			t.Fatalf("add %s to roster: status = %d: %s", name, w.Code, w.Body.String())
		}
	}
	if w := api.do(t, http.MethodPost, "/api/roster/2283", map[string]string{"playerName": "Sacy", "teamName": "SEN"}); w.Code != http.StatusBadRequest {
		t.Errorf("third player from one team: status = %d, want 400", w.Code)
	}

	api.matches.matches = []models.EventMatch{{ID: "1", Status: models.MatchLive}}
	if w := api.do(t, http.MethodDelete, "/api/roster/2283", slot); w.Code != http.StatusConflict {
		t.Errorf("edit locked roster: status = %d, want 409", w.Code)
	}

	api.stats.points.MapPoints["TenZ|SEN"] = []float64{20}
	w = api.do(t, http.MethodGet, "/api/roster/2283?points=1", nil)
	roster := decodeBody[rosterResponse](t, w)
	if !roster.Locked || len(roster.Slots) != 2 || roster.Total == nil || *roster.Total != 20 {
		t.Errorf("unexpected roster: %+v", roster)
	}
}

func TestMyParticipant(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/drafts/room-1/me", nil)
	if got := decodeBody[map[string]int](t, w); got["participant"] != -1 {
		t.Errorf("unset participant = %d, want -1", got["participant"])
	}
	if w := api.do(t, http.MethodPut, "/api/drafts/room-1/me", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing participant: status = %d, want 400", w.Code)
	}
	api.do(t, http.MethodPut, "/api/drafts/room-1/me", map[string]int{"participant": 1})
	w = api.do(t, http.MethodGet, "/api/drafts/room-1/me", nil)
	if got := decodeBody[map[string]int](t, w); got["participant"] != 1 {
		t.Errorf("participant = %d, want 1", got["participant"])
	}
}

func TestEventsSSE(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?id=room-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	nextData := func() string {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("stream ended: %v", err)
			}
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	if got := nextData(); !strings.Contains(got, "connected") {
		t.Fatalf("first message = %q, want connected", got)
	}

	api.bus.Publish(pubsub.Changed(pubsub.TypeInsert, pubsub.TableDraftPicks, "room-2"))
	api.bus.Publish(pubsub.Changed(pubsub.TypeInsert, pubsub.TableDraftPicks, "room-1"))

	var e pubsub.Event
	if err := json.Unmarshal([]byte(nextData()), &e); err != nil {
		t.Fatal(err)
	}
	if e.ID != "room-1" || e.Table != pubsub.TableDraftPicks {
		t.Errorf("event = %+v, want room-1 pick", e)
	}
}

func TestEventsWebSocket(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello map[string]string
	if err := conn.ReadJSON(&hello); err != nil || hello["type"] != "connected" {
		t.Fatalf("hello = %v, %v", hello, err)
	}

	api.bus.Publish(pubsub.Changed(pubsub.TypeUpdate, pubsub.TableLeagues, "league-1"))

	var e pubsub.Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("ReadJSON() failed: %v", err)
	}
	if e.ID != "league-1" || e.Type != pubsub.TypeUpdate {
		t.Errorf("event = %+v", e)
	}
}

func TestHealth(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name       string
		health     *Health
		path       string
		wantStatus int
		wantField  string
	}{
		{"healthy", NewHealth().Critical("database", func(context.Context) error { return nil }), "/api/health", http.StatusOK, `"ok"`},
		{"optional down", NewHealth().Optional("clickhouse", func(context.Context) error { return down }), "/api/health", http.StatusOK, `"degraded"`},
		{"critical down", NewHealth().Critical("database", func(context.Context) error { return down }), "/api/health", http.StatusServiceUnavailable, `"unhealthy"`},
		{"not ready", NewHealth().Critical("database", func(context.Context) error { return down }), "/readyz", http.StatusServiceUnavailable, `"database_unavailable"`},
		{"ready", NewHealth().Optional("clickhouse", func(context.Context) error { return down }), "/readyz", http.StatusOK, `"ready"`},
		{"alive", NewHealth(), "/healthz", http.StatusOK, `"alive"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			tt.health.Register(mux)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantField) {
				t.Errorf("body %s does not contain %s", w.Body.String(), tt.wantField)
			}
		})
	}
}
