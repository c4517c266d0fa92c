package rule

import (
	"fmt"

	"github.com/omniflow/omniflow/internal/catalogue"
	"github.com/omniflow/omniflow/internal/config"
)

// Compile resolves rule definitions against the capability catalogue,
// turning every name into a catalogue id. All reference errors surface here,
// at load time: unknown trigger events, unknown actions and filters,
// attribute references that the trigger event does not declare, and
// incomplete parameter coverage (every declared parameter of a bound action
// must be supplied exactly once).
func Compile(defs []config.RuleDef, cat *catalogue.Catalogue) ([]*Definition, error) {
	out := make([]*Definition, 0, len(defs))
	for _, rd := range defs {
		d, err := compileRule(rd, cat)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rd.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Apply validates a rules file, compiles it against the catalogue, and
// installs the result as the store's complete rule set. Used for both the
// initial seed and hot reload.
func Apply(rf *config.RulesFile, cat *catalogue.Catalogue, store Store) (int, error) {
	if err := config.ValidateRules(rf); err != nil {
		return 0, err
	}
	defs, err := Compile(rf.Rules, cat)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceAll(defs); err != nil {
		return 0, err
	}
	return len(defs), nil
}

func compileRule(rd config.RuleDef, cat *catalogue.Catalogue) (*Definition, error) {
	trigger, err := cat.EventByName(rd.Trigger)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	attrs, err := cat.EventAttributes(trigger.ID)
	if err != nil {
		return nil, err
	}
	attrByName := make(map[string]*catalogue.EventAttribute, len(attrs))
	for _, a := range attrs {
		attrByName[a.Name] = a
	}

	d := &Definition{
		Name:           rd.Name,
		Enabled:        rd.Enabled,
		TriggerEventID: trigger.ID,
	}

	for _, cd := range rd.Conditions {
		attr, ok := attrByName[cd.Attribute]
		if !ok {
			return nil, fmt.Errorf("condition: event %q has no attribute %q", trigger.Name, cd.Attribute)
		}
		filters, err := cat.FiltersFor(attr.DataTypeID)
		if err != nil {
			return nil, err
		}
		var filter *catalogue.DataFilter
		for _, f := range filters {
			if f.Name == cd.Filter {
				filter = f
				break
			}
		}
		if filter == nil {
			return nil, fmt.Errorf("condition: filter %q is not valid for attribute %q", cd.Filter, cd.Attribute)
		}
		d.Conditions = append(d.Conditions, ConditionBinding{
			AttributeID: attr.ID,
			FilterID:    filter.ID,
			Value:       cd.Value,
		})
	}

	for i, ad := range rd.Actions {
		act, err := cat.ActionByName(ad.Action)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		declared, err := cat.ActionParameters(act.ID)
		if err != nil {
			return nil, err
		}

		binding := ActionBinding{ActionID: act.ID}
		bound := make(map[string]bool, len(ad.Params))
		for _, p := range declared {
			raw, ok := ad.Params[p.Name]
			if !ok {
				return nil, fmt.Errorf("actions[%d] %q: parameter %q is not bound", i, act.Name, p.Name)
			}
			bound[p.Name] = true
			if pv := ParseParam(raw); pv.Kind == AttributeRef {
				if _, ok := attrByName[pv.Attribute]; !ok {
					return nil, fmt.Errorf("actions[%d] %q: parameter %q references %q, which event %q does not declare",
						i, act.Name, p.Name, pv.Attribute, trigger.Name)
				}
			}
			binding.Params = append(binding.Params, ParamBinding{ParameterID: p.ID, RawData: raw})
		}
		for name := range ad.Params {
			if !bound[name] {
				return nil, fmt.Errorf("actions[%d] %q: unknown parameter %q", i, act.Name, name)
			}
		}
		d.Actions = append(d.Actions, binding)
	}

	return d, nil
}
