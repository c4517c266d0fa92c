package catalogue

// DataType is an entry in the type registry (text, phone number, date, …).
// Immutable after seeding.
type DataType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Tag is the canonical type tag the detection and UI collaborators
	// dispatch on (e.g. "text", "phonenumber", "area").
	Tag string `json:"tag"`
}

// DataFilter declares a comparison valid between a value of AppliesToID and
// a value of ComparesWithID. The two may differ, e.g. date/isDayOfWeek/dayofweek.
type DataFilter struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	AppliesToID    int64  `json:"applies_to_id"`
	ComparesWithID int64  `json:"compares_with_id"`
}

// App is a registered application: a source of events and/or sink of actions.
type App struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Event is a registered event kind belonging to an app.
type Event struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	AppID int64  `json:"app_id"`
}

// EventAttribute declares that instances of EventID carry an attribute
// Name of type DataTypeID.
type EventAttribute struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	EventID    int64  `json:"event_id"`
	DataTypeID int64  `json:"data_type_id"`
}

// Action is a registered action kind belonging to an app.
type Action struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	AppID int64  `json:"app_id"`
}

// ActionParameter declares a required parameter slot of an action kind.
type ActionParameter struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ActionID   int64  `json:"action_id"`
	DataTypeID int64  `json:"data_type_id"`
}
