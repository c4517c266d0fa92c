package config

// CatalogueFile is the seed vocabulary: data types with their filters, and
// apps with their registered events and actions. It is loaded once at
// startup and never reloaded; the catalogue is write-once data.
type CatalogueFile struct {
	Version   string        `yaml:"version"`
	DataTypes []DataTypeDef `yaml:"datatypes"`
	Apps      []AppDef      `yaml:"apps"`
}

// DataTypeDef declares a data type and the comparison filters valid for it.
type DataTypeDef struct {
	Name    string      `yaml:"name"`
	Tag     string      `yaml:"tag"`
	Filters []FilterDef `yaml:"filters"`
}

// FilterDef declares a filter. ComparesWith defaults to the owning type
// (text equals text); set it when the comparison operand differs
// (date isDayOfWeek dayofweek).
type FilterDef struct {
	Name         string `yaml:"name"`
	ComparesWith string `yaml:"compares_with,omitempty"`
}

// AppDef declares a registered application with its events and actions.
type AppDef struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Enabled     bool            `yaml:"enabled"`
	Events      []EventDef      `yaml:"events"`
	Actions     []ActionKindDef `yaml:"actions"`
}

// EventDef declares an event kind and its typed attributes.
type EventDef struct {
	Name       string         `yaml:"name"`
	Attributes []AttributeDef `yaml:"attributes"`
}

// AttributeDef declares one typed attribute or parameter slot.
type AttributeDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// ActionKindDef declares an action kind and its typed parameter slots.
type ActionKindDef struct {
	Name       string         `yaml:"name"`
	Parameters []AttributeDef `yaml:"parameters"`
}

// RulesFile is the top-level structure of the user-authored rules file.
// Unlike the catalogue it is hot-reloadable.
type RulesFile struct {
	Version string     `yaml:"version"`
	Engine  EngineConf `yaml:"engine"`
	Rules   []RuleDef  `yaml:"rules"`
}

// EngineConf holds tunable dispatcher settings.
type EngineConf struct {
	EventWorkers   int `yaml:"event_workers"`
	QueueDepth     int `yaml:"queue_depth"`
	EventTimeoutMs int `yaml:"event_timeout_ms"`
}

// RuleDef is one user-authored rule: a trigger event kind, optional
// attribute conditions, and an ordered list of action bindings.
type RuleDef struct {
	Name       string          `yaml:"name"`
	Enabled    bool            `yaml:"enabled"`
	Trigger    string          `yaml:"trigger"` // registered event name
	Conditions []ConditionDef  `yaml:"conditions"`
	Actions    []RuleActionDef `yaml:"actions"`
}

// ConditionDef binds a filter to a trigger attribute. The core stores these
// but never evaluates them; condition evaluation is an external collaborator.
type ConditionDef struct {
	Attribute string `yaml:"attribute"`
	Filter    string `yaml:"filter"`
	Value     string `yaml:"value"`
}

// RuleActionDef binds one action invocation to a rule. Slice position is the
// execution order. Params maps declared parameter names to raw data: either
// a literal, or "<AttributeName>" to pull the value off the triggering event.
type RuleActionDef struct {
	Action string            `yaml:"action"`
	Params map[string]string `yaml:"params"`
}
