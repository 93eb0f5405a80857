package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/ingest"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/records/storage"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/schemasource"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/health"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/telemetry/metrics"
)

const goblin = `Goblin
Small humanoid (goblinoid), neutral evil
Armor Class 15 (leather armor, shield)
Hit Points 7 (2d6)
Speed 30 ft.
STR DEX CON INT WIS CHA
8 (-1) 14 (+2) 10 (+0) 10 (+0) 8 (-1) 8 (-1)
Skills Stealth +6
Senses darkvision 60 ft., passive Perception 9
Languages Common, Goblin
Challenge 1/4 (50 XP)
Nimble Escape. The goblin can take the Disengage or Hide action as a bonus
action on each of its turns.
Actions
Scimitar. Melee Weapon Attack: +4 to hit, reach 5 ft., one target. Hit: 5 (1d6 + 2) slashing damage.
Shortbow. Ranged Weapon Attack: +4 to hit, range 80/320 ft., one target. Hit: 5 (1d6 + 2) piercing damage.
`

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *storage.MemoryStorage
	cfg     *config.Config
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.NewDefaultConfig()
	for _, m := range mutate {
		m(cfg)
	}
	reg := schemasource.NewRegistry(schemasource.BuiltinLoader{})
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	store := storage.NewMemoryStorage()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	checker := health.New(time.Second)
	checker.RegisterCheck("schema", true, reg.Check)

	srv, err := New(cfg, Dependencies{
		Ingest:  ingest.New(reg, ingest.WithStore(store), ingest.WithMetrics(collector), ingest.WithParserConfig(cfg.Parser)),
		Schemas: reg,
		Store:   store,
		Health:  checker,
		Metrics: collector,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.logger = discardLogger()

	return &testEnv{server: srv, handler: srv.Handler(), store: store, cfg: cfg}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) parse(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/parse", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func decodeParse(t *testing.T, w *httptest.ResponseRecorder) ParseResponse {
	t.Helper()
	var resp ParseResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode parse response: %v", err)
	}
	return resp
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(config.NewDefaultConfig(), Dependencies{}); err == nil {
		t.Error("New() without ingest should fail")
	}
}

func TestParse_JSON(t *testing.T) {
	env := newTestEnv(t)

	w := env.parse(t, map[string]any{"text": goblin, "source": "api-test"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request ID header")
	}

	resp := decodeParse(t, w)
	if resp.Status != records.StatusOK || resp.Name != "Goblin" {
		t.Errorf("response = %+v", resp)
	}
	if !resp.Stored {
		t.Error("Stored = false, want true with records enabled")
	}
	if resp.Result == nil {
		t.Fatal("missing result")
	}

	rec, err := env.store.Get(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Source != "api-test" {
		t.Errorf("Source = %q, want api-test", rec.Source)
	}
}

func TestParse_PlainText(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/parse", strings.NewReader(goblin))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	w := env.do(req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeParse(t, w)
	if resp.Name != "Goblin" {
		t.Errorf("Name = %q, want Goblin", resp.Name)
	}

	rec, err := env.store.Get(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Source != "http" {
		t.Errorf("Source = %q, want http", rec.Source)
	}
}

func TestParse_NoPersist(t *testing.T) {
	env := newTestEnv(t)

	w := env.parse(t, map[string]any{"text": goblin, "persist": false})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if decodeParse(t, w).Stored {
		t.Error("Stored = true with persist=false")
	}
	if n, _ := env.store.Count(context.Background(), &records.Query{}); n != 0 {
		t.Errorf("store has %d records, want 0", n)
	}
}

func TestParse_MissingContent(t *testing.T) {
	env := newTestEnv(t)

	w := env.parse(t, map[string]any{"text": "Goblin\nSmall humanoid (goblinoid), neutral evil"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	resp := decodeParse(t, w)
	if resp.Status != records.StatusMissingContent || resp.Code != codeParseFailed {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Missing) == 0 || resp.Error == "" {
		t.Errorf("missing = %v, error = %q", resp.Missing, resp.Error)
	}
	if resp.Result != nil {
		t.Error("failed parse should not carry a result")
	}
}

func TestParse_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		wantCode    string
	}{
		{name: "invalid JSON", body: "{", contentType: "application/json", wantStatus: http.StatusBadRequest, wantCode: codeInvalidRequest},
		{name: "empty text", body: `{"text":"  "}`, contentType: "application/json", wantStatus: http.StatusBadRequest, wantCode: codeInvalidRequest},
		{name: "empty body", body: "", contentType: "text/plain", wantStatus: http.StatusBadRequest, wantCode: codeInvalidRequest},
		{name: "too large", body: strings.Repeat("a", int(2*config.DefaultParserMaxInputBytes)+2048), contentType: "text/plain", wantStatus: http.StatusRequestEntityTooLarge, wantCode: codeTooLarge},
		{name: "over input limit", body: strings.Repeat("a\n", int(config.DefaultParserMaxInputBytes)/2+1), contentType: "text/plain", wantStatus: http.StatusRequestEntityTooLarge, wantCode: codeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/parse", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := env.do(req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp := decodeError(t, w); resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestParse_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/parse", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestRecords(t *testing.T) {
	env := newTestEnv(t)

	ok := decodeParse(t, env.parse(t, map[string]any{"text": goblin}))
	failed := decodeParse(t, env.parse(t, map[string]any{"text": "Goblin\nSmall humanoid (goblinoid), neutral evil"}))

	t.Run("get", func(t *testing.T) {
		w := env.do(httptest.NewRequest(http.MethodGet, "/v1/records/"+ok.ID, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var rec records.Record
		if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
			t.Fatal(err)
		}
		if rec.ID != ok.ID || rec.Status != records.StatusOK {
			t.Errorf("record = %+v", rec)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		w := env.do(httptest.NewRequest(http.MethodGet, "/v1/records/nope", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
		if resp := decodeError(t, w); resp.Error.Code != codeNotFound {
			t.Errorf("code = %q", resp.Error.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		w := env.do(httptest.NewRequest(http.MethodGet, "/v1/records", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var list RecordList
		if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
			t.Fatal(err)
		}
		if list.Total != 2 || len(list.Records) != 2 {
			t.Errorf("total = %d, records = %d, want 2", list.Total, len(list.Records))
		}
		if list.Limit != env.cfg.Records.Query.DefaultLimit {
			t.Errorf("Limit = %d, want default %d", list.Limit, env.cfg.Records.Query.DefaultLimit)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		w := env.do(httptest.NewRequest(http.MethodGet, "/v1/records?status=missing_content", nil))
		var list RecordList
		if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
			t.Fatal(err)
		}
		if list.Total != 1 || list.Records[0].ID != failed.ID {
			t.Errorf("list = %+v, want only %s", list, failed.ID)
		}
	})

	t.Run("invalid queries", func(t *testing.T) {
		for _, q := range []string{"limit=abc", "limit=-1", "status=bogus", "since=yesterday", "sort=sideways", "limit=1000000"} {
			w := env.do(httptest.NewRequest(http.MethodGet, "/v1/records?"+q, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: status = %d, want 400", q, w.Code)
			}
		}
	})
}

func TestRecordRoutes_NoStore(t *testing.T) {
	env := newTestEnv(t)
	env.server.deps.Store = nil
	handler := env.server.Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/records", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a store", w.Code)
	}
}

func TestSchema(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var info SchemaInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}

	snap := env.server.deps.Schemas.Current()
	if info.Version != snap.Version() || info.Source != snap.Source {
		t.Errorf("info = %+v", info)
	}
	if info.Root == "" || len(info.Fields) != snap.Schema.FieldCount() {
		t.Errorf("root = %q, fields = %d, want %d", info.Root, len(info.Fields), snap.Schema.FieldCount())
	}
	if info.Fields[0].Path != info.Root {
		t.Errorf("first field = %q, want root %q", info.Fields[0].Path, info.Root)
	}
}

func TestTelemetryRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.parse(t, map[string]any{"text": goblin})

	tests := []struct {
		path     string
		wantBody string
	}{
		{path: env.cfg.Telemetry.Health.LivenessPath, wantBody: `"status"`},
		{path: env.cfg.Telemetry.Health.ReadinessPath, wantBody: `"schema"`},
		{path: env.cfg.Telemetry.Metrics.Path, wantBody: "statblock_parse_total"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body does not contain %s:\n%s", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestServe_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/v1/schema"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !env.server.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if env.server.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}
