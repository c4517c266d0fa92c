// Package dispatch connects the external collaborators around the
// resolution core: event detection feeds events in, matching rules are
// resolved, and the resulting invocations are handed to an executor.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/omniflow/omniflow/internal/action"
	"github.com/omniflow/omniflow/internal/catalogue"
	"github.com/omniflow/omniflow/internal/config"
	"github.com/omniflow/omniflow/internal/event"
	"github.com/omniflow/omniflow/internal/metrics"
	"github.com/omniflow/omniflow/internal/resolve"
	"github.com/omniflow/omniflow/internal/rule"
)

// Executor runs resolved invocations. Concrete implementations (send the
// SMS, place the call) live outside this module.
type Executor interface {
	Execute(ctx context.Context, inv *action.Invocation) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, inv *action.Invocation) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, inv *action.Invocation) error {
	return f(ctx, inv)
}

// LogExecutor is the default Executor: it records what would have run.
func LogExecutor() Executor {
	return ExecutorFunc(func(_ context.Context, inv *action.Invocation) error {
		slog.Info("action dispatched", "action", inv.Action, "params", len(inv.Params))
		return nil
	})
}

// ConditionEvaluator decides whether a rule's stored conditions hold for an
// event. Evaluation is an external concern; the default matches everything.
type ConditionEvaluator interface {
	Matches(r *rule.Rule, conds []*rule.Condition, ev *event.Instance) (bool, error)
}

type matchAll struct{}

func (matchAll) Matches(*rule.Rule, []*rule.Condition, *event.Instance) (bool, error) {
	return true, nil
}

// MatchAll returns the default ConditionEvaluator.
func MatchAll() ConditionEvaluator { return matchAll{} }

// Result is the outcome of processing a single event.
type Result struct {
	EventID      string               `json:"event_id"`
	DurationMs   int64                `json:"duration_ms"`
	RulesMatched []string             `json:"rules_matched"`
	Invocations  []*action.Invocation `json:"invocations"`
	Error        string               `json:"error,omitempty"`
}

type work struct {
	ev      *event.Instance
	resultC chan *Result
}

// Dispatcher pushes events through rule matching, resolution and execution
// on a bounded worker pool.
type Dispatcher struct {
	cat      *catalogue.Catalogue
	store    rule.Store
	resolver *resolve.Resolver
	exec     Executor
	cond     ConditionEvaluator
	pool     *workerPool[*work]
	conf     config.EngineConf
}

// New creates a Dispatcher and starts its worker pool. exec and cond may be
// nil; the log executor and match-all evaluator are used.
func New(ctx context.Context, cat *catalogue.Catalogue, store rule.Store, res *resolve.Resolver,
	exec Executor, cond ConditionEvaluator, conf config.EngineConf) *Dispatcher {
	if exec == nil {
		exec = LogExecutor()
	}
	if cond == nil {
		cond = MatchAll()
	}
	d := &Dispatcher{
		cat:      cat,
		store:    store,
		resolver: res,
		exec:     exec,
		cond:     cond,
		conf:     conf,
	}
	d.pool = newWorkerPool(ctx, conf.EventWorkers, conf.QueueDepth, func(ctx context.Context, w *work) {
		res := d.processEvent(ctx, w.ev)
		if w.resultC != nil {
			w.resultC <- res
		}
	})
	return d
}

// ProcessSync processes an event and waits for the result.
func (d *Dispatcher) ProcessSync(ctx context.Context, ev *event.Instance) (*Result, error) {
	resultC := make(chan *Result, 1)
	if !d.pool.Submit(&work{ev: ev, resultC: resultC}) {
		metrics.EventsDropped.Inc()
		return nil, fmt.Errorf("event queue full (capacity %d)", d.conf.QueueDepth)
	}
	metrics.EventsEnqueued.Inc()

	timeout := time.Duration(d.conf.EventTimeoutMs) * time.Millisecond
	select {
	case res := <-resultC:
		return res, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("event processing timeout after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessAsync enqueues an event for background processing. Returns false if
// the queue is full.
func (d *Dispatcher) ProcessAsync(ev *event.Instance) bool {
	if !d.pool.Submit(&work{ev: ev}) {
		metrics.EventsDropped.Inc()
		return false
	}
	metrics.EventsEnqueued.Inc()
	return true
}

// QueueUtilization returns queue used / capacity (0–1).
func (d *Dispatcher) QueueUtilization() float64 {
	if d.pool.QueueCap() == 0 {
		return 0
	}
	return float64(d.pool.QueueLen()) / float64(d.pool.QueueCap())
}

func (d *Dispatcher) processEvent(ctx context.Context, ev *event.Instance) *Result {
	start := time.Now()
	result := &Result{EventID: ev.ID}

	kind, err := d.cat.EventByName(ev.Kind)
	if err != nil {
		result.Error = fmt.Sprintf("unknown event kind %q", ev.Kind)
		result.DurationMs = time.Since(start).Milliseconds()
		metrics.EventsProcessed.Inc()
		return result
	}

	rules, err := d.store.EnabledRulesForTrigger(kind.ID)
	if err != nil {
		result.Error = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		metrics.EventsProcessed.Inc()
		return result
	}

	for _, r := range rules {
		conds, err := d.store.Conditions(r.ID)
		if err != nil {
			result.Error = err.Error()
			break
		}
		ok, err := d.cond.Matches(r, conds, ev)
		if err != nil {
			slog.Warn("condition evaluation failed, skipping rule", "rule", r.Name, "err", err)
			continue
		}
		if !ok {
			continue
		}

		invocations, err := d.resolver.ResolveActions(r.ID, ev)
		if err != nil {
			slog.Warn("rule resolution failed", "rule", r.Name, "err", err)
			continue
		}
		result.RulesMatched = append(result.RulesMatched, r.Name)
		metrics.RulesMatched.WithLabelValues(r.Name).Inc()

		for _, inv := range invocations {
			if err := d.exec.Execute(ctx, inv); err != nil {
				slog.Warn("action execution failed", "action", inv.Action, "err", err)
			}
			result.Invocations = append(result.Invocations, inv)
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	metrics.EventsProcessed.Inc()
	return result
}

// Shutdown drains the worker pool gracefully.
func (d *Dispatcher) Shutdown() {
	d.pool.Drain()
}
