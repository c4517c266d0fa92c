package rule

import (
	"errors"
	"testing"
)

func sampleDefinition() *Definition {
	return &Definition{
		Name:           "sample",
		Enabled:        true,
		TriggerEventID: 7,
		Conditions: []ConditionBinding{
			{AttributeID: 70, FilterID: 80, Value: "555"},
		},
		Actions: []ActionBinding{
			{ActionID: 100, Params: []ParamBinding{{ParameterID: 200, RawData: "<PhoneNo>"}}},
			{ActionID: 101, Params: []ParamBinding{{ParameterID: 201, RawData: "hello"}}},
		},
	}
}

func TestMemStore_SaveAndFetch(t *testing.T) {
	s := NewMemStore()
	id, err := s.SaveRule(sampleDefinition())
	if err != nil {
		t.Fatalf("SaveRule: %v", err)
	}

	r, err := s.Rule(id)
	if err != nil {
		t.Fatalf("Rule: %v", err)
	}
	if r.Name != "sample" || !r.Enabled || r.TriggerEventID != 7 {
		t.Errorf("unexpected rule: %+v", r)
	}

	ras, err := s.RuleActions(id)
	if err != nil {
		t.Fatalf("RuleActions: %v", err)
	}
	if len(ras) != 2 {
		t.Fatalf("expected 2 rule actions, got %d", len(ras))
	}
	for i, ra := range ras {
		if ra.ExecutionOrder != i {
			t.Errorf("actions[%d].ExecutionOrder = %d", i, ra.ExecutionOrder)
		}
	}

	params, err := s.RuleActionParameters(ras[0].ID)
	if err != nil || len(params) != 1 || params[0].RawData != "<PhoneNo>" {
		t.Errorf("RuleActionParameters = %v, %v", params, err)
	}

	conds, err := s.Conditions(id)
	if err != nil || len(conds) != 1 || conds[0].Value != "555" {
		t.Errorf("Conditions = %v, %v", conds, err)
	}
}

func TestMemStore_EnabledRulesForTrigger(t *testing.T) {
	s := NewMemStore()
	if _, err := s.SaveRule(sampleDefinition()); err != nil {
		t.Fatal(err)
	}
	disabled := sampleDefinition()
	disabled.Name = "off"
	disabled.Enabled = false
	if _, err := s.SaveRule(disabled); err != nil {
		t.Fatal(err)
	}

	rules, err := s.EnabledRulesForTrigger(7)
	if err != nil {
		t.Fatalf("EnabledRulesForTrigger: %v", err)
	}
	if len(rules) != 1 || rules[0].Name != "sample" {
		t.Errorf("expected only the enabled rule, got %v", rules)
	}
	if rules, _ := s.EnabledRulesForTrigger(8); len(rules) != 0 {
		t.Errorf("expected no rules for trigger 8, got %v", rules)
	}
}

func TestMemStore_NotFound(t *testing.T) {
	s := NewMemStore()
	if _, err := s.Rule(1); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Rule: expected ErrRuleNotFound, got %v", err)
	}
	if _, err := s.RuleAction(1); !errors.Is(err, ErrRuleActionNotFound) {
		t.Errorf("RuleAction: expected ErrRuleActionNotFound, got %v", err)
	}
	if err := s.DeleteRule(1); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("DeleteRule: expected ErrRuleNotFound, got %v", err)
	}
}

func TestMemStore_DeleteCascades(t *testing.T) {
	s := NewMemStore()
	id, _ := s.SaveRule(sampleDefinition())
	ras, _ := s.RuleActions(id)

	if err := s.DeleteRule(id); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if _, err := s.Rule(id); !errors.Is(err, ErrRuleNotFound) {
		t.Error("rule should be gone")
	}
	if _, err := s.RuleAction(ras[0].ID); !errors.Is(err, ErrRuleActionNotFound) {
		t.Error("rule actions should be gone")
	}
	if rules, _ := s.EnabledRulesForTrigger(7); len(rules) != 0 {
		t.Error("trigger index should be gone")
	}
}

func TestMemStore_ReplaceAll(t *testing.T) {
	s := NewMemStore()
	oldID, _ := s.SaveRule(sampleDefinition())

	repl := sampleDefinition()
	repl.Name = "replacement"
	if err := s.ReplaceAll([]*Definition{repl}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	rules, _ := s.Rules()
	if len(rules) != 1 || rules[0].Name != "replacement" {
		t.Errorf("expected only the replacement rule, got %v", rules)
	}
	if _, err := s.Rule(oldID); !errors.Is(err, ErrRuleNotFound) {
		t.Error("pre-replace rule should not survive")
	}
}

func TestMemStore_Closed(t *testing.T) {
	s := NewMemStore()
	id, _ := s.SaveRule(sampleDefinition())
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.Rule(id); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Rule after close: got %v", err)
	}
	if _, err := s.SaveRule(sampleDefinition()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("SaveRule after close: got %v", err)
	}
	if err := s.ReplaceAll(nil); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("ReplaceAll after close: got %v", err)
	}
}
