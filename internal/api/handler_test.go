package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omniflow/omniflow/internal/action"
	"github.com/omniflow/omniflow/internal/api"
	"github.com/omniflow/omniflow/internal/catalogue"
	"github.com/omniflow/omniflow/internal/config"
	"github.com/omniflow/omniflow/internal/diag"
	"github.com/omniflow/omniflow/internal/dispatch"
	"github.com/omniflow/omniflow/internal/resolve"
	"github.com/omniflow/omniflow/internal/rule"
)

const rulesYAML = `version: v1
engine:
  event_workers: 2
  queue_depth: 16
  event_timeout_ms: 2000
rules:
  - name: Thank SMS senders
    enabled: true
    trigger: SMS Received
    actions:
      - action: SMS Send
        params:
          PhoneNumber: "<PhoneNo>"
          Message: "Thanks!"
`

func newTestServer(t *testing.T) (http.Handler, string, func()) {
	t.Helper()

	cat, err := catalogue.Build(&config.CatalogueFile{
		Version: "v1",
		DataTypes: []config.DataTypeDef{
			{Name: "Text", Tag: "text"},
			{Name: "Phone Number", Tag: "phonenumber"},
		},
		Apps: []config.AppDef{{
			Name:    "SMS",
			Enabled: true,
			Events: []config.EventDef{{
				Name: "SMS Received",
				Attributes: []config.AttributeDef{
					{Name: "PhoneNo", Type: "Phone Number"},
					{Name: "MessageText", Type: "Text"},
				},
			}},
			Actions: []config.ActionKindDef{{
				Name: "SMS Send",
				Parameters: []config.AttributeDef{
					{Name: "PhoneNumber", Type: "Phone Number"},
					{Name: "Message", Type: "Text"},
				},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("Build catalogue: %v", err)
	}

	rulesPath := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(rulesPath, []byte(rulesYAML), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	loader, err := config.NewLoader(rulesPath)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	store := rule.NewMemStore()
	if _, err := rule.Apply(loader.Rules(), cat, store); err != nil {
		t.Fatalf("Apply rules: %v", err)
	}

	reg := action.NewRegistry()
	reg.Register("SMS Send", action.Plain("SMS Send"))
	res := resolve.New(cat, store, reg, &diag.Collector{})

	ctx, cancel := context.WithCancel(context.Background())
	disp := dispatch.New(ctx, cat, store, res, nil, nil, loader.Rules().Engine)

	h := api.New(disp, loader, cat, store)
	return h, rulesPath, func() {
		cancel()
		res.Close()
	}
}

func TestIngestEvent(t *testing.T) {
	h, _, stop := newTestServer(t)
	defer stop()

	body := `{"kind":"SMS Received","attributes":{"PhoneNo":"555-1234","MessageText":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var res dispatch.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.EventID == "" {
		t.Error("expected a generated event id")
	}
	if len(res.RulesMatched) != 1 || res.RulesMatched[0] != "Thank SMS senders" {
		t.Errorf("RulesMatched = %v", res.RulesMatched)
	}
	if len(res.Invocations) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(res.Invocations))
	}
	if v, _ := res.Invocations[0].Param("PhoneNumber"); v != "555-1234" {
		t.Errorf("PhoneNumber = %q", v)
	}
}

func TestIngestEvent_BadRequests(t *testing.T) {
	h, _, stop := newTestServer(t)
	defer stop()

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing kind", `{"attributes":{"PhoneNo":"x"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestIngestBatch(t *testing.T) {
	h, _, stop := newTestServer(t)
	defer stop()

	body := `[{"kind":"SMS Received","attributes":{"PhoneNo":"1"}},{"kind":"SMS Received","attributes":{"PhoneNo":"2"}}]`
	req := httptest.NewRequest(http.MethodPost, "/v1/events/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var out struct {
		JobID  string `json:"job_id"`
		Total  int    `json:"total"`
		Queued int    `json:"queued"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 2 || out.Queued != 2 {
		t.Errorf("total=%d queued=%d, want 2/2", out.Total, out.Queued)
	}
	if out.JobID == "" {
		t.Error("expected a job id")
	}
}

func TestIngestBatch_Empty(t *testing.T) {
	h, _, stop := newTestServer(t)
	defer stop()

	req := httptest.NewRequest(http.MethodPost, "/v1/events/batch", strings.NewReader(`[]`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListRules(t *testing.T) {
	h, _, stop := newTestServer(t)
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/v1/rules", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Version string       `json:"version"`
		Rules   []*rule.Rule `json:"rules"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Version != "v1" {
		t.Errorf("version = %q", out.Version)
	}
	if len(out.Rules) != 1 || out.Rules[0].Name != "Thank SMS senders" {
		t.Errorf("rules = %v", out.Rules)
	}
}

func TestReloadRules(t *testing.T) {
	h, rulesPath, stop := newTestServer(t)
	defer stop()

	updated := strings.Replace(rulesYAML, "Thank SMS senders", "Renamed rule", 1)
	if err := os.WriteFile(rulesPath, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite rules file: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/rules/reload", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/rules", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out struct {
		Rules []*rule.Rule `json:"rules"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Rules) != 1 || out.Rules[0].Name != "Renamed rule" {
		t.Errorf("rules after reload = %v", out.Rules)
	}
}

func TestReloadRules_CompileFailure(t *testing.T) {
	h, rulesPath, stop := newTestServer(t)
	defer stop()

	bad := strings.Replace(rulesYAML, "SMS Send", "No Such Action", 1)
	if err := os.WriteFile(rulesPath, []byte(bad), 0o644); err != nil {
		t.Fatalf("rewrite rules file: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/rules/reload", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestShowCatalogue(t *testing.T) {
	h, _, stop := newTestServer(t)
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/v1/catalogue", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Apps []struct {
			Name   string `json:"name"`
			Events []struct {
				Name       string `json:"name"`
				Attributes []struct {
					Name string `json:"name"`
				} `json:"attributes"`
			} `json:"events"`
			Actions []struct {
				Name       string `json:"name"`
				Parameters []struct {
					Name string `json:"name"`
				} `json:"parameters"`
			} `json:"actions"`
		} `json:"apps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Apps) != 1 || out.Apps[0].Name != "SMS" {
		t.Fatalf("apps = %+v", out.Apps)
	}
	app := out.Apps[0]
	if len(app.Events) != 1 || len(app.Events[0].Attributes) != 2 {
		t.Errorf("events = %+v", app.Events)
	}
	if len(app.Actions) != 1 || len(app.Actions[0].Parameters) != 2 {
		t.Errorf("actions = %+v", app.Actions)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	h, _, stop := newTestServer(t)
	defer stop()

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
