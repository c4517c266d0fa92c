package rule

// Rule is a user-authored automation rule: when the trigger event kind
// occurs (and the conditions hold, evaluated externally), run the bound
// actions in order.
type Rule struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	TriggerEventID int64  `json:"trigger_event_id"`
}

// Condition binds a data filter to one attribute of the rule's trigger
// event. The resolution core stores and serves these but never evaluates
// them.
type Condition struct {
	ID          int64  `json:"id"`
	RuleID      int64  `json:"rule_id"`
	AttributeID int64  `json:"attribute_id"`
	FilterID    int64  `json:"filter_id"`
	Value       string `json:"value"`
}

// RuleAction binds one action invocation to a rule. A rule's actions run in
// ascending ExecutionOrder.
type RuleAction struct {
	ID             int64 `json:"id"`
	RuleID         int64 `json:"rule_id"`
	ActionID       int64 `json:"action_id"`
	ExecutionOrder int   `json:"execution_order"`
}

// RuleActionParameter supplies the raw data for one declared parameter slot
// of a rule action. RawData is either a literal or "<AttributeName>".
type RuleActionParameter struct {
	ID           int64  `json:"id"`
	RuleActionID int64  `json:"rule_action_id"`
	ParameterID  int64  `json:"parameter_id"` // registered action parameter
	RawData      string `json:"raw_data"`
}
