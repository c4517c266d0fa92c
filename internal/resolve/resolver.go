// Package resolve implements the rule resolution core: given a triggered
// event instance and a rule id, it produces the ordered, fully-parameterized
// action invocations for that rule. It reads the catalogue and rule store
// and writes nothing.
package resolve

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/omniflow/omniflow/internal/action"
	"github.com/omniflow/omniflow/internal/catalogue"
	"github.com/omniflow/omniflow/internal/diag"
	"github.com/omniflow/omniflow/internal/event"
	"github.com/omniflow/omniflow/internal/metrics"
	"github.com/omniflow/omniflow/internal/rule"
)

var (
	// ErrClosed is returned by every operation after Close. Use after close
	// is a programming error in the caller, not a data condition.
	ErrClosed = errors.New("resolver: closed")

	// ErrRuleDisabled is returned when the referenced rule exists but is
	// switched off. Distinct from rule.ErrRuleNotFound.
	ErrRuleDisabled = errors.New("resolver: rule disabled")
)

// Resolver turns (rule id, event instance) into action invocations.
// Safe for concurrent use: all state it touches is read-only except the
// closed flag.
type Resolver struct {
	cat    *catalogue.Catalogue
	store  rule.Store
	reg    *action.Registry
	sink   diag.Sink
	closed atomic.Bool
}

// New builds a Resolver over an immutable catalogue, a rule store, and an
// action constructor registry. A nil sink falls back to slog.
func New(cat *catalogue.Catalogue, store rule.Store, reg *action.Registry, sink diag.Sink) *Resolver {
	if sink == nil {
		sink = diag.Logger{}
	}
	return &Resolver{cat: cat, store: store, reg: reg, sink: sink}
}

// ResolveActions returns the invocations for the rule's actions in ascending
// execution order.
//
// Failures intrinsic to a single rule action or parameter are contained:
// the action or parameter is dropped, a diagnostic is emitted, and the rest
// of the rule still resolves. Failures intrinsic to the call itself (an
// unknown rule id, a disabled rule, a closed resolver, a failing store)
// propagate to the caller. A rule with zero actions yields an empty, non-nil
// slice and no error.
func (r *Resolver) ResolveActions(ruleID int64, ev *event.Instance) ([]*action.Invocation, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()

	rl, err := r.store.Rule(ruleID)
	if err != nil {
		return nil, err
	}
	if !rl.Enabled {
		return nil, fmt.Errorf("%w: %q (id %d)", ErrRuleDisabled, rl.Name, ruleID)
	}

	ras, err := r.store.RuleActions(ruleID)
	if err != nil {
		return nil, err
	}
	invocations := make([]*action.Invocation, 0, len(ras))
	if len(ras) == 0 {
		return invocations, nil
	}

	// Execution order is a property of the rule, not of whatever order the
	// storage layer happens to return rows in.
	sort.SliceStable(ras, func(i, j int) bool {
		return ras[i].ExecutionOrder < ras[j].ExecutionOrder
	})

	// One full scan of declared parameter names, reused for every action.
	paramNames := r.cat.ActionParameterNames()

	for _, ra := range ras {
		inv, err := r.resolveRuleAction(ra, ev, paramNames)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			invocations = append(invocations, inv)
		}
	}

	metrics.ResolutionDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	return invocations, nil
}

// resolveRuleAction builds one invocation. A nil, nil return means the rule
// action was dropped (already reported); a non-nil error is fatal to the
// whole call.
func (r *Resolver) resolveRuleAction(ra *rule.RuleAction, ev *event.Instance, paramNames map[int64]string) (*action.Invocation, error) {
	act, err := r.cat.ActionByID(ra.ActionID)
	if err != nil {
		r.sink.Warn(diag.Record{
			Category: diag.CategoryMissingAction,
			Message:  fmt.Sprintf("rule action %d: registered action %d is gone", ra.ID, ra.ActionID),
			Err:      err,
		})
		metrics.ActionsResolved.WithLabelValues("unknown", "dropped").Inc()
		return nil, nil
	}

	bindings, err := r.store.RuleActionParameters(ra.ID)
	if err != nil {
		return nil, err
	}

	params := make(map[string]string, len(bindings))
	for _, b := range bindings {
		var value string
		switch p := rule.ParseParam(b.RawData); p.Kind {
		case rule.AttributeRef:
			v, ok := ev.Attribute(p.Attribute)
			if !ok {
				r.sink.Warn(diag.Record{
					Category: diag.CategoryMissingAttribute,
					Message: fmt.Sprintf("action %q: attribute %q is not carried by event %q",
						act.Name, p.Attribute, ev.Kind),
				})
				metrics.ParametersDropped.WithLabelValues(diag.CategoryMissingAttribute).Inc()
				continue
			}
			value = v
		default:
			value = p.Value
		}

		name, ok := paramNames[b.ParameterID]
		if !ok {
			// A dangling binding means lost user data; drop it but say so.
			r.sink.Warn(diag.Record{
				Category: diag.CategoryDanglingParameter,
				Message: fmt.Sprintf("action %q: parameter binding %d references unknown declaration %d",
					act.Name, b.ID, b.ParameterID),
			})
			metrics.ParametersDropped.WithLabelValues(diag.CategoryDanglingParameter).Inc()
			continue
		}
		params[name] = value
	}

	inv, err := r.reg.New(act.Name, params)
	if err != nil {
		r.sink.Warn(diag.Record{
			Category: diag.CategoryUnknownAction,
			Message:  fmt.Sprintf("action %q cannot be constructed", act.Name),
			Err:      err,
		})
		metrics.ActionsResolved.WithLabelValues(act.Name, "dropped").Inc()
		return nil, nil
	}
	metrics.ActionsResolved.WithLabelValues(act.Name, "resolved").Inc()
	return inv, nil
}

// Close marks the resolver unusable. Every subsequent call fails fast with
// ErrClosed instead of touching storage. Closing twice is harmless.
func (r *Resolver) Close() {
	r.closed.Store(true)
}
