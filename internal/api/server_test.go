package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-iot/internal/devices"
	"github.com/nerrad567/gray-logic-iot/internal/history"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/migrations"
)

type testEnv struct {
	srv     *Server
	router  http.Handler
	light   iot.DeviceID
	speaker iot.DeviceID
	repo    history.Repository
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

// newTestEnv wires a service with a journal, a hub and two registered devices.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := testLogger()

	db, err := database.Open(ctx, config.DatabaseConfig{Path: t.TempDir() + "/test.db", BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := history.NewSQLiteRepository(db.DB)

	hub := NewHub(config.WebSocketConfig{}, log)
	svc := iot.NewService(iot.Options{
		Observer: iot.Observers{history.NewJournal(repo), hub},
	})

	light, err := svc.RegisterDevice(ctx, devices.NewHueLight())
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	speaker, err := svc.RegisterDevice(ctx, devices.NewSmartSpeaker(devices.WithName("Kitchen")))
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Site:    config.SiteConfig{ID: "site-test", Name: "Test House"},
		Logger:  log,
		Service: svc,
		History: repo,
		Hub:     hub,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{srv: srv, router: srv.buildRouter(), light: light, speaker: speaker, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Service: iot.NewService(iot.Options{})}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without service should fail")
	}
}

// ─── Health and Middleware ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" || resp["version"] != "test" || resp["devices"] != float64(2) {
		t.Errorf("health = %v", resp)
	}
	if resp["site_id"] != "site-test" || resp["site_name"] != "Test House" {
		t.Errorf("health site = %v/%v", resp["site_id"], resp["site_name"])
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/programs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	env := newTestEnv(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ─── Devices ───────────────────────────────────────────────────────

func TestListDevices(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 2},
		{"by type", "?type=hue_light", 1},
		{"by capability", "?capability=play_song", 1},
		{"shared capability", "?capability=switch_on", 2},
		{"no match", "?capability=flush", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/devices"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			resp := decode[struct {
				Devices []DeviceView `json:"devices"`
				Count   int          `json:"count"`
			}](t, w)
			if resp.Count != tt.want || len(resp.Devices) != tt.want {
				t.Errorf("count = %d, want %d", resp.Count, tt.want)
			}
		})
	}
}

func TestGetDevice(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/devices/"+string(env.speaker), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	v := decode[DeviceView](t, w)
	if v.Type != devices.TypeSmartSpeaker || v.Name != "Kitchen" || len(v.Capabilities) != 3 {
		t.Errorf("device = %+v", v)
	}

	w = env.do(t, http.MethodGet, "/api/v1/devices/dev-nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", w.Code)
	}
}

func TestDeviceStats(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/v1/devices/stats", ""))
	if resp["total_devices"] != float64(2) {
		t.Errorf("stats = %v", resp)
	}
	byCommand := resp["by_command"].(map[string]any)
	if byCommand["switch_on"] != float64(2) || byCommand["play_song"] != float64(1) {
		t.Errorf("by_command = %v", byCommand)
	}
}

func TestDispatch(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		device   string
		body     string
		wantCode int
		wantErr  string
	}{
		{"switch on", string(env.light), `{"kind":"switch_on"}`, http.StatusOK, ""},
		{"play song", string(env.speaker), `{"kind":"play_song","payload":"Song"}`, http.StatusOK, ""},
		{"unknown device", "dev-nope", `{"kind":"switch_on"}`, http.StatusNotFound, iot.KindUnknownDevice},
		{"unsupported", string(env.light), `{"kind":"flush"}`, http.StatusUnprocessableEntity, iot.KindUnsupportedCommand},
		{"song missing", string(env.speaker), `{"kind":"play_song"}`, http.StatusUnprocessableEntity, ErrCodeInvalidPayload},
		{"unexpected payload", string(env.light), `{"kind":"switch_on","payload":"bright"}`, http.StatusUnprocessableEntity, ErrCodeInvalidPayload},
		{"bad kind", string(env.light), `{"kind":"explode"}`, http.StatusBadRequest, ErrCodeValidation},
		{"bad json", string(env.light), `{`, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/devices/"+tt.device+"/commands", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr != "" {
				if e := decode[Error](t, w); e.Code != tt.wantErr {
					t.Errorf("code = %q, want %q", e.Code, tt.wantErr)
				}
			}
		})
	}
}

// ─── Programs and Executions ───────────────────────────────────────

func TestRunProgram_Success(t *testing.T) {
	env := newTestEnv(t)

	body := `{"steps":[
		{"target":"` + string(env.light) + `","kind":"switch_on"},
		{"target":"` + string(env.speaker) + `","kind":"play_song","payload":"Song"}
	]}`
	w := env.do(t, http.MethodPost, "/api/v1/programs", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}

	resp := decode[ProgramResponse](t, w)
	if !resp.OK || resp.Steps != 2 || resp.Completed != 2 || resp.ExecutionID == "" {
		t.Fatalf("response = %+v", resp)
	}

	w = env.do(t, http.MethodGet, "/api/v1/executions/"+resp.ExecutionID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get execution status = %d", w.Code)
	}
	got := decode[struct {
		Execution  history.Execution        `json:"execution"`
		Dispatches []history.DispatchRecord `json:"dispatches"`
	}](t, w)
	if got.Execution.Status != history.StatusSucceeded || len(got.Dispatches) != 2 {
		t.Errorf("execution = %+v, dispatches = %d", got.Execution, len(got.Dispatches))
	}
}

func TestRunProgram_StopsAtFailure(t *testing.T) {
	env := newTestEnv(t)

	body := `{"steps":[
		{"target":"` + string(env.light) + `","kind":"switch_on"},
		{"target":"` + string(env.light) + `","kind":"play_song","payload":"x"},
		{"target":"` + string(env.light) + `","kind":"switch_off"}
	]}`
	w := env.do(t, http.MethodPost, "/api/v1/programs", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}

	resp := decode[ProgramResponse](t, w)
	if resp.OK || resp.Completed != 1 || resp.FailedIndex == nil || *resp.FailedIndex != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.ErrorKind != iot.KindUnsupportedCommand {
		t.Errorf("error_kind = %q", resp.ErrorKind)
	}
}

func TestRunProgram_InvalidPayload(t *testing.T) {
	env := newTestEnv(t)

	body := `{"steps":[
		{"target":"` + string(env.light) + `","kind":"switch_on"},
		{"target":"` + string(env.speaker) + `","kind":"play_song"}
	]}`
	w := env.do(t, http.MethodPost, "/api/v1/programs", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (%s)", w.Code, w.Body.String())
	}

	resp := decode[ProgramResponse](t, w)
	if resp.OK || resp.FailedIndex == nil || *resp.FailedIndex != 1 || resp.ErrorKind != iot.KindDeviceExecution {
		t.Errorf("response = %+v", resp)
	}
}

func TestRunProgram_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"steps":`, http.StatusBadRequest},
		{"missing target", `{"steps":[{"kind":"switch_on"}]}`, http.StatusBadRequest},
		{"bad kind", `{"steps":[{"target":"dev-1","kind":"nope"}]}`, http.StatusBadRequest},
		{"empty program", `{"steps":[]}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, http.MethodPost, "/api/v1/programs", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestListExecutions(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/v1/programs", `{"steps":[{"target":"`+string(env.light)+`","kind":"switch_on"}]}`)
	env.do(t, http.MethodPost, "/api/v1/programs", `{"steps":[{"target":"dev-gone","kind":"switch_on"}]}`)

	tests := []struct {
		query    string
		wantCode int
		want     int
	}{
		{"", http.StatusOK, 2},
		{"?status=failed", http.StatusOK, 1},
		{"?limit=1", http.StatusOK, 1},
		{"?offset=2", http.StatusOK, 0},
		{"?status=bogus", http.StatusBadRequest, 0},
		{"?limit=-1", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/executions"+tt.query, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if resp := decode[map[string]any](t, w); resp["count"] != float64(tt.want) {
				t.Errorf("count = %v, want %d", resp["count"], tt.want)
			}
		})
	}

	if w := env.do(t, http.MethodGet, "/api/v1/executions/exe-missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing execution status = %d, want 404", w.Code)
	}
}

func TestExecutions_HistoryDisabled(t *testing.T) {
	srv, err := New(Deps{Logger: testLogger(), Service: iot.NewService(iot.Options{})})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	router := srv.buildRouter()

	for _, path := range []string{"/api/v1/executions", "/api/v1/executions/exe-1"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, w.Code)
		}
	}
}

// ─── Lifecycle and WebSocket ───────────────────────────────────────

func TestServer_StartClose(t *testing.T) {
	env := newTestEnv(t)

	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if env.srv.Addr() == "" {
		t.Fatal("Addr() empty after Start")
	}
	if err := env.srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	resp, err := http.Get("http://" + env.srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	first := newTestEnv(t)
	if err := first.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.srv.Close()

	_, portStr, err := net.SplitHostPort(first.srv.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi: %v", err)
	}

	second := newTestEnv(t)
	second.srv.cfg.Port = port
	if err := second.srv.Start(context.Background()); err == nil {
		second.srv.Close()
		t.Fatal("Start() on a bound port should fail")
	}
}

func TestWebSocket_ReceivesProgramEvents(t *testing.T) {
	env := newTestEnv(t)
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer env.srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+env.srv.Addr()+"/api/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck // test deadline

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{iot.EventProgramCompleted}}}
	if err := ws.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	var ack WSMessage
	if err := ws.ReadJSON(&ack); err != nil || ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Fatalf("subscribe ack = %+v, err = %v", ack, err)
	}

	env.do(t, http.MethodPost, "/api/v1/programs", `{"steps":[{"target":"`+string(env.light)+`","kind":"switch_on"}]}`)

	var ev WSMessage
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != WSTypeEvent || ev.EventType != iot.EventProgramCompleted {
		t.Errorf("event = %+v", ev)
	}
	payload, _ := ev.Payload.(map[string]any)
	if payload["ok"] != true || payload["completed"] != float64(1) {
		t.Errorf("payload = %v", payload)
	}
}

func TestHub_BroadcastOnlyToSubscribers(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, testLogger())

	subscribed := &WSClient{hub: hub, send: make(chan []byte, wsSendBufferSize), subscriptions: map[string]struct{}{iot.EventDispatchCompleted: {}}}
	other := &WSClient{hub: hub, send: make(chan []byte, wsSendBufferSize), subscriptions: map[string]struct{}{}}
	hub.Register(subscribed)
	hub.Register(other)

	hub.DispatchCompleted(context.Background(), iot.DispatchEvent{Message: iot.NewMessage("dev-1", iot.CommandSwitchOn)})

	select {
	case data := <-subscribed.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.EventType != iot.EventDispatchCompleted {
			t.Errorf("event_type = %q", msg.EventType)
		}
	default:
		t.Error("subscribed client received nothing")
	}
	if len(other.send) != 0 {
		t.Error("unsubscribed client received a broadcast")
	}

	hub.Unregister(other)
	hub.Unregister(other) // second unregister must not close twice
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

func TestWSClient_Subscriptions(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, nil)

	tests := []struct {
		name     string
		msg      WSMessage
		wantType string
		wantSubs []string
	}{
		{
			name:     "known channel",
			msg:      WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{iot.EventProgramStarted}}},
			wantType: WSTypeResponse,
			wantSubs: []string{iot.EventProgramStarted},
		},
		{
			name:     "unknown channel",
			msg:      WSMessage{Type: WSTypeSubscribe, ID: "2", Payload: WSSubscribePayload{Channels: []string{iot.EventProgramStarted, "device.exploded"}}},
			wantType: WSTypeError,
		},
		{
			name:     "no channels",
			msg:      WSMessage{Type: WSTypeSubscribe, ID: "3", Payload: WSSubscribePayload{}},
			wantType: WSTypeError,
		},
		{
			name:     "unknown type",
			msg:      WSMessage{Type: "shout", ID: "4"},
			wantType: WSTypeError,
		},
		{
			name:     "ping",
			msg:      WSMessage{Type: WSTypePing, ID: "5"},
			wantType: WSTypePong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &WSClient{hub: hub, send: make(chan []byte, 4), subscriptions: make(map[string]struct{})}
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			c.handleMessage(data)

			var reply WSMessage
			if err := json.Unmarshal(<-c.send, &reply); err != nil {
				t.Fatalf("reply: %v", err)
			}
			if reply.Type != tt.wantType || reply.ID != tt.msg.ID {
				t.Errorf("reply = %s/%s, want %s/%s", reply.Type, reply.ID, tt.wantType, tt.msg.ID)
			}
			if len(c.subscriptions) != len(tt.wantSubs) {
				t.Errorf("subscriptions = %v, want %v", c.subscriptions, tt.wantSubs)
			}
		})
	}
}

func TestWSClient_WildcardAndUnsubscribe(t *testing.T) {
	c := &WSClient{hub: NewHub(config.WebSocketConfig{}, nil), send: make(chan []byte, 4), subscriptions: make(map[string]struct{})}

	c.updateSubscriptions(WSMessage{Payload: WSSubscribePayload{Channels: []string{wsChannelAll}}}, true)
	<-c.send
	for _, ch := range []string{iot.EventDispatchCompleted, iot.EventProgramStarted, iot.EventProgramCompleted} {
		if !c.isSubscribed(ch) {
			t.Errorf("wildcard client not subscribed to %s", ch)
		}
	}

	c.updateSubscriptions(WSMessage{Payload: WSSubscribePayload{Channels: []string{wsChannelAll}}}, false)
	<-c.send
	if c.isSubscribed(iot.EventDispatchCompleted) {
		t.Error("client still subscribed after unsubscribing the wildcard")
	}
}
