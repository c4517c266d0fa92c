package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omniflow/omniflow/internal/catalogue"
	"github.com/omniflow/omniflow/internal/config"
	"github.com/omniflow/omniflow/internal/dispatch"
	"github.com/omniflow/omniflow/internal/event"
	"github.com/omniflow/omniflow/internal/metrics"
	"github.com/omniflow/omniflow/internal/rule"
)

const maxBatchSize = 100

// Handler holds all HTTP handler dependencies.
type Handler struct {
	disp   *dispatch.Dispatcher
	loader *config.Loader
	cat    *catalogue.Catalogue
	store  rule.Store
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(disp *dispatch.Dispatcher, loader *config.Loader, cat *catalogue.Catalogue, store rule.Store) http.Handler {
	h := &Handler{disp: disp, loader: loader, cat: cat, store: store, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/events", h.ingestEvent)
	h.mux.HandleFunc("POST /v1/events/batch", h.ingestBatch)
	h.mux.HandleFunc("GET /v1/rules", h.listRules)
	h.mux.HandleFunc("POST /v1/rules/reload", h.reloadRules)
	h.mux.HandleFunc("GET /v1/catalogue", h.showCatalogue)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/events: synchronous single-event ingestion.
func (h *Handler) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.Instance
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if ev.Kind == "" {
		writeError(w, http.StatusBadRequest, "event kind is required")
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.ReceivedAt = time.Now()

	res, err := h.disp.ProcessSync(r.Context(), &ev)
	if err != nil {
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/events/batch: async batch ingestion (up to 100 events).
func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	var events []*event.Instance
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one event")
		return
	}
	if len(events) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(events), maxBatchSize))
		return
	}

	now := time.Now()
	jobID := uuid.New().String()
	queued := 0
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		ev.ReceivedAt = now
		if h.disp.ProcessAsync(ev) {
			queued++
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   jobID,
		"total":    len(events),
		"queued":   queued,
		"rejected": len(events) - queued,
	})
}

// GET /v1/rules: list stored rules.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.Rules()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": h.loader.Rules().Version,
		"rules":   rules,
	})
}

// POST /v1/rules/reload: re-read the rules file and swap the rule set.
func (h *Handler) reloadRules(w http.ResponseWriter, r *http.Request) {
	rf, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	n, err := rule.Apply(rf, h.cat, h.store)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":    true,
		"rules_count": n,
	})
}

// GET /v1/catalogue: the registered vocabulary, for rule-authoring UIs.
func (h *Handler) showCatalogue(w http.ResponseWriter, r *http.Request) {
	type eventView struct {
		*catalogue.Event
		Attributes []*catalogue.EventAttribute `json:"attributes"`
	}
	type actionView struct {
		*catalogue.Action
		Parameters []*catalogue.ActionParameter `json:"parameters"`
	}
	type appView struct {
		*catalogue.App
		Events  []eventView  `json:"events"`
		Actions []actionView `json:"actions"`
	}

	apps := make(map[int64]*appView, len(h.cat.Apps()))
	for id, a := range h.cat.Apps() {
		apps[id] = &appView{App: a}
	}
	for _, ev := range h.cat.Events() {
		attrs, _ := h.cat.EventAttributes(ev.ID)
		apps[ev.AppID].Events = append(apps[ev.AppID].Events, eventView{Event: ev, Attributes: attrs})
	}
	for _, ac := range h.cat.Actions() {
		params, _ := h.cat.ActionParameters(ac.ID)
		apps[ac.AppID].Actions = append(apps[ac.AppID].Actions, actionView{Action: ac, Parameters: params})
	}

	out := make([]*appView, 0, len(apps))
	for _, av := range apps {
		sort.Slice(av.Events, func(i, j int) bool { return av.Events[i].ID < av.Events[j].ID })
		sort.Slice(av.Actions, func(i, j int) bool { return av.Actions[i].ID < av.Actions[j].ID })
		out = append(out, av)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"apps": out})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if event queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.disp.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
	})
}
