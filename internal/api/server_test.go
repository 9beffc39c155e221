package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/pagewright/internal/config"
	"github.com/dgallion1/pagewright/internal/oracle"
	"github.com/dgallion1/pagewright/internal/pipeline"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []oracle.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req oracle.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	out := g.replies[0]
	g.replies = g.replies[1:]
	return out, nil
}

type testEnv struct {
	srv   *Server
	gen   *scriptedGenerator
	stats *oracle.LLMStats
}

func newTestEnv(t *testing.T, cfg config.Config, limiter RateLimiter, replies ...string) testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "glm-4.5-air"
	}
	if cfg.OracleTimeout == 0 {
		cfg.OracleTimeout = time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.StatsWindow == 0 {
		cfg.StatsWindow = time.Hour
	}
	gen := &scriptedGenerator{replies: replies}
	stats := oracle.NewLLMStats(cfg.StatsWindow)
	router := oracle.NewRouter()
	router.Register(config.ProviderTogether, gen)
	svc := pipeline.NewService(oracle.Instrument(router, stats, log), cfg, log)
	return testEnv{
		srv:   NewServer(svc, router, stats, limiter, log, cfg),
		gen:   gen,
		stats: stats,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not json: %v: %s", err, w.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	w := do(t, env.srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decode(t, w)["status"] != "ok" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestBuildEndpoint(t *testing.T) {
	raw := "Here you go:\n```html\n<!DOCTYPE html><html><head><style>h1{color:red}</style></head><body><h1>Hi</h1></body></html>\n```"
	env := newTestEnv(t, config.Config{}, nil, raw)

	w := do(t, env.srv, http.MethodPost, "/api/build", `{"prompt":"a greeting","container_id":"c1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["ok"] != true {
		t.Fatalf("expected ok, got %v", body["ok"])
	}
	if body["html"] != "<h1>Hi</h1>" {
		t.Fatalf("unexpected html %v", body["html"])
	}
	if body["css"] != "#c1 h1{color:red}" {
		t.Fatalf("unexpected css %v", body["css"])
	}
	if body["container_id"] != "c1" {
		t.Fatalf("unexpected container id %v", body["container_id"])
	}
	if len(env.gen.calls) != 1 || env.gen.calls[0].Model != "zai-org/GLM-4.5-Air-FP8" {
		t.Fatalf("unexpected oracle calls %+v", env.gen.calls)
	}
	if snap := env.stats.Snapshot(); snap.Count != 1 {
		t.Fatalf("expected one recorded call, got %d", snap.Count)
	}
}

func TestBuildEndpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		replies []string
		status  int
		code    string
	}{
		{"bad json", `{"prompt":`, nil, http.StatusBadRequest, ""},
		{"missing prompt", `{"prompt":"  "}`, nil, http.StatusBadRequest, "invalid_request"},
		{"unknown model", `{"prompt":"x","model":"nope"}`, nil, http.StatusBadRequest, "invalid_request"},
		{"bad container", `{"prompt":"x","container_id":"1 bad"}`, nil, http.StatusBadRequest, "invalid_request"},
		{"no provider", `{"prompt":"x","model":"gemini-2.5-flash-lite"}`, nil, http.StatusServiceUnavailable, "provider_unavailable"},
		{"unusable output", `{"prompt":"x"}`, []string{"I cannot help with that."}, http.StatusBadGateway, "unusable_output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, config.Config{}, nil, tt.replies...)
			w := do(t, env.srv, http.MethodPost, "/api/build", tt.body)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			body := decode(t, w)
			if body["ok"] != false {
				t.Fatalf("expected ok=false, got %v", body["ok"])
			}
			if tt.code != "" && body["code"] != tt.code {
				t.Fatalf("expected code %q, got %v", tt.code, body["code"])
			}
		})
	}
}

func TestPatchEndpoint(t *testing.T) {
	reply := "<<<<<<< SEARCH\n<p>old</p>\n=======\n<p>new</p>\n>>>>>>> REPLACE"
	env := newTestEnv(t, config.Config{}, nil, reply)

	body := `{"prompt":"update","html":"<main><p>old</p></main>","css":"","js":"","container_id":"c1"}`
	w := do(t, env.srv, http.MethodPut, "/api/patch", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if out["html"] != "<main><p>new</p></main>" {
		t.Fatalf("unexpected html %v", out["html"])
	}
	if out["applied"] != float64(1) {
		t.Fatalf("expected one applied block, got %v", out["applied"])
	}
}

func TestRewriteElementEndpoint(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil, "```html\n<p class=\"x\">fresh</p>\n```")

	body := `{"prompt":"reword","html":"<main><p class=\"x\">stale</p><p>keep</p></main>","container_id":"c1","selector":"p.x"}`
	w := do(t, env.srv, http.MethodPut, "/api/rewrite-element", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if out["html"] != `<main><p class="x">fresh</p><p>keep</p></main>` {
		t.Fatalf("unexpected html %v", out["html"])
	}
}

func TestRewriteElementTargetErrors(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		status   int
		code     string
	}{
		{"not found", "section", http.StatusNotFound, "target_not_found"},
		{"ambiguous", "p", http.StatusConflict, "target_ambiguous"},
		{"invalid selector", "p[", http.StatusBadRequest, "invalid_target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, config.Config{}, nil)
			req := map[string]string{
				"prompt":   "x",
				"html":     "<main><p>a</p><p>b</p></main>",
				"selector": tt.selector,
			}
			b, _ := json.Marshal(req)
			w := do(t, env.srv, http.MethodPut, "/api/rewrite-element", string(b))
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if code := decode(t, w)["code"]; code != tt.code {
				t.Fatalf("expected code %q, got %v", tt.code, code)
			}
			if len(env.gen.calls) != 0 {
				t.Fatalf("oracle should not be called, got %d calls", len(env.gen.calls))
			}
		})
	}
}

func TestReconcileEndpoint(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	raw := "Output:\n<!DOCTYPE html><html><body><div>x</div><script>go()</script></body></html>\nThanks"
	b, _ := json.Marshal(map[string]string{"raw": raw, "container_id": "pw"})

	w := do(t, env.srv, http.MethodPost, "/api/reconcile", string(b))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if out["html"] != "<div>x</div>" || out["js"] != "go()" {
		t.Fatalf("unexpected page %v", out)
	}
	if len(env.gen.calls) != 0 {
		t.Fatalf("reconcile must not call the oracle")
	}
}

func TestModelsEndpoint(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	w := do(t, env.srv, http.MethodGet, "/api/models", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out struct {
		Default string `json:"default"`
		Models  []struct {
			Key       string `json:"key"`
			Provider  string `json:"provider"`
			Available bool   `json:"available"`
		} `json:"models"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Default != "glm-4.5-air" {
		t.Fatalf("unexpected default %q", out.Default)
	}
	if len(out.Models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(out.Models))
	}
	for _, m := range out.Models {
		want := m.Provider == string(config.ProviderTogether)
		if m.Available != want {
			t.Fatalf("model %s: expected available=%v", m.Key, want)
		}
	}
}

func TestLLMStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	env.stats.Record("m", 40, false)
	w := do(t, env.srv, http.MethodGet, "/api/stats/llm", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := decode(t, w)
	stats, ok := out["stats"].(map[string]any)
	if !ok || stats["count"] != float64(1) {
		t.Fatalf("unexpected stats %v", out)
	}
}

func TestAuthRequiredWhenKeySet(t *testing.T) {
	env := newTestEnv(t, config.Config{PagewrightAPIKey: "secret"}, nil)
	body := `{"raw":"<!DOCTYPE html><div>x</div>"}`

	if w := do(t, env.srv, http.MethodPost, "/api/reconcile", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}
	if w := do(t, env.srv, http.MethodPost, "/api/reconcile", body, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", w.Code)
	}
	if w := do(t, env.srv, http.MethodPost, "/api/reconcile", body, "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, env.srv, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", w.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t, config.Config{MaxBodyBytes: 64}, nil)
	body := `{"prompt":"` + strings.Repeat("x", 200) + `"}`
	w := do(t, env.srv, http.MethodPost, "/api/build", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestRateLimitedEndpoints(t *testing.T) {
	limiter := NewIPRateLimiter(0, 1)
	env := newTestEnv(t, config.Config{}, limiter, "<!DOCTYPE html><div>one</div>")

	if w := do(t, env.srv, http.MethodPost, "/api/build", `{"prompt":"x"}`); w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, env.srv, http.MethodPost, "/api/build", `{"prompt":"x"}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", w.Code)
	}
	// Reconcile does not call the oracle and is not throttled.
	if w := do(t, env.srv, http.MethodPost, "/api/reconcile", `{"raw":"<!DOCTYPE html><div>x</div>"}`); w.Code != http.StatusOK {
		t.Fatalf("reconcile should not be limited, got %d", w.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&oracle.RetryableError{StatusCode: 503, Message: "busy"}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got, _ := errorStatus(tt.err); got != tt.status {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
