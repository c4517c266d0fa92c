package rule

import "errors"

var (
	// ErrRuleNotFound distinguishes a missing rule from a rule with zero
	// actions; the former is fatal to a resolution call, the latter is not.
	ErrRuleNotFound = errors.New("rule: not found")

	// ErrRuleActionNotFound is returned for unknown rule-action ids.
	ErrRuleActionNotFound = errors.New("rule action: not found")

	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("rule store: closed")
)

// Definition is a compiled rule ready for storage: every name in the source
// definition has been resolved to a catalogue id.
type Definition struct {
	Name           string
	Enabled        bool
	TriggerEventID int64
	Conditions     []ConditionBinding
	Actions        []ActionBinding // slice order is execution order
}

// ConditionBinding is one compiled condition.
type ConditionBinding struct {
	AttributeID int64
	FilterID    int64
	Value       string
}

// ActionBinding is one compiled rule action with its parameter bindings.
type ActionBinding struct {
	ActionID int64
	Params   []ParamBinding
}

// ParamBinding supplies raw data for one declared parameter slot.
type ParamBinding struct {
	ParameterID int64
	RawData     string
}

// Store holds user-authored rules. The resolution core only reads; writes
// come from the rule-authoring collaborator and the hot-reload path.
type Store interface {
	// Rule returns a rule by id; ErrRuleNotFound if absent.
	Rule(id int64) (*Rule, error)
	// Rules returns every stored rule.
	Rules() ([]*Rule, error)
	// EnabledRulesForTrigger returns the enabled rules triggered by the
	// given registered event id.
	EnabledRulesForTrigger(eventID int64) ([]*Rule, error)
	// RuleAction returns a rule action by id; ErrRuleActionNotFound if absent.
	RuleAction(id int64) (*RuleAction, error)
	// RuleActions returns a rule's actions in ascending execution order.
	RuleActions(ruleID int64) ([]*RuleAction, error)
	// RuleActionParameters returns every parameter binding of a rule action.
	RuleActionParameters(ruleActionID int64) ([]*RuleActionParameter, error)
	// Conditions returns a rule's stored (unevaluated) conditions.
	Conditions(ruleID int64) ([]*Condition, error)

	// SaveRule persists a compiled definition and returns the new rule id.
	SaveRule(def *Definition) (int64, error)
	// DeleteRule removes a rule and its actions, parameters and conditions.
	DeleteRule(id int64) error
	// ReplaceAll atomically swaps the entire rule set (hot reload).
	ReplaceAll(defs []*Definition) error

	// Close releases the store. Every operation afterwards fails with
	// ErrStoreClosed.
	Close() error
}
