package config

import (
	"fmt"
	"strings"
)

// ValidateCatalogue checks the seed vocabulary for structural problems:
// missing names, duplicate names within a scope, attributes without types.
// Cross-reference resolution (a filter comparing against an unknown type,
// an attribute of an unknown type) happens when the catalogue is built.
func ValidateCatalogue(cf *CatalogueFile) error {
	if cf.Version == "" {
		return fmt.Errorf("catalogue: version is required")
	}
	var errs []string

	typeNames := make(map[string]bool)
	for i, dt := range cf.DataTypes {
		if dt.Name == "" {
			errs = append(errs, fmt.Sprintf("datatypes[%d]: name is required", i))
			continue
		}
		if typeNames[dt.Name] {
			errs = append(errs, fmt.Sprintf("duplicate data type %q", dt.Name))
		}
		typeNames[dt.Name] = true
		for j, f := range dt.Filters {
			if f.Name == "" {
				errs = append(errs, fmt.Sprintf("datatype %s: filters[%d]: name is required", dt.Name, j))
			}
		}
	}

	appNames := make(map[string]bool)
	for i, app := range cf.Apps {
		if app.Name == "" {
			errs = append(errs, fmt.Sprintf("apps[%d]: name is required", i))
			continue
		}
		if appNames[app.Name] {
			errs = append(errs, fmt.Sprintf("duplicate app %q", app.Name))
		}
		appNames[app.Name] = true
		for _, ev := range app.Events {
			if ev.Name == "" {
				errs = append(errs, fmt.Sprintf("app %s: event name is required", app.Name))
				continue
			}
			validateTypedNames(ev.Attributes, fmt.Sprintf("event %s attribute", ev.Name), &errs)
		}
		for _, ac := range app.Actions {
			if ac.Name == "" {
				errs = append(errs, fmt.Sprintf("app %s: action name is required", app.Name))
				continue
			}
			validateTypedNames(ac.Parameters, fmt.Sprintf("action %s parameter", ac.Name), &errs)
		}
	}

	return joinErrs("catalogue", errs)
}

// ValidateRules checks the rules file for structural problems. Name
// resolution against the catalogue (unknown triggers, unknown actions,
// parameter coverage) is done by rule.Compile, where the catalogue is in
// hand. A bad reference there is still a load-time error, not a runtime one.
func ValidateRules(rf *RulesFile) error {
	if rf.Version == "" {
		return fmt.Errorf("rules: version is required")
	}
	var errs []string

	names := make(map[string]bool)
	for i, r := range rf.Rules {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("rules[%d]: name is required", i))
			continue
		}
		if names[r.Name] {
			errs = append(errs, fmt.Sprintf("duplicate rule %q", r.Name))
		}
		names[r.Name] = true
		if r.Trigger == "" {
			errs = append(errs, fmt.Sprintf("rule %s: trigger is required", r.Name))
		}
		for j, a := range r.Actions {
			if a.Action == "" {
				errs = append(errs, fmt.Sprintf("rule %s: actions[%d]: action is required", r.Name, j))
			}
		}
		for j, c := range r.Conditions {
			if c.Attribute == "" || c.Filter == "" {
				errs = append(errs, fmt.Sprintf("rule %s: conditions[%d]: attribute and filter are required", r.Name, j))
			}
		}
	}

	return joinErrs("rules", errs)
}

func validateTypedNames(defs []AttributeDef, scope string, errs *[]string) {
	seen := make(map[string]bool)
	for _, d := range defs {
		if d.Name == "" {
			*errs = append(*errs, fmt.Sprintf("%s: name is required", scope))
			continue
		}
		if seen[d.Name] {
			*errs = append(*errs, fmt.Sprintf("%s: duplicate %q", scope, d.Name))
		}
		seen[d.Name] = true
		if d.Type == "" {
			*errs = append(*errs, fmt.Sprintf("%s %q: type is required", scope, d.Name))
		}
	}
}

func joinErrs(scope string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s validation errors:\n  - %s", scope, strings.Join(errs, "\n  - "))
}
