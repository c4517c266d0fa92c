package catalogue

import (
	"errors"
	"fmt"

	"github.com/omniflow/omniflow/internal/config"
)

// ErrNotFound is wrapped by every failed catalogue lookup.
var ErrNotFound = errors.New("catalogue: not found")

// Catalogue is the seeded type registry plus capability catalogue.
// It is immutable once Build returns, so concurrent readers need no locking.
type Catalogue struct {
	dataTypes       map[int64]*DataType
	dataTypesByName map[string]*DataType
	filters         map[int64]*DataFilter
	filtersByType   map[int64][]*DataFilter

	apps       map[int64]*App
	appsByName map[string]*App

	events       map[int64]*Event
	eventsByName map[string]*Event
	attrs        map[int64][]*EventAttribute // event id → declared order

	actions       map[int64]*Action
	actionsByName map[string]*Action
	params        map[int64][]*ActionParameter // action id → declared order
	paramsByID    map[int64]*ActionParameter
}

// Build constructs a Catalogue from a loaded vocabulary file, assigning
// surrogate ids in declaration order. All cross-references are checked here;
// a dangling reference is a seed-file error, not a runtime condition.
func Build(cfg *config.CatalogueFile) (*Catalogue, error) {
	c := &Catalogue{
		dataTypes:       make(map[int64]*DataType),
		dataTypesByName: make(map[string]*DataType),
		filters:         make(map[int64]*DataFilter),
		filtersByType:   make(map[int64][]*DataFilter),
		apps:            make(map[int64]*App),
		appsByName:      make(map[string]*App),
		events:          make(map[int64]*Event),
		eventsByName:    make(map[string]*Event),
		attrs:           make(map[int64][]*EventAttribute),
		actions:         make(map[int64]*Action),
		actionsByName:   make(map[string]*Action),
		params:          make(map[int64][]*ActionParameter),
		paramsByID:      make(map[int64]*ActionParameter),
	}

	var nextID int64
	newID := func() int64 { nextID++; return nextID }

	for _, dt := range cfg.DataTypes {
		if _, dup := c.dataTypesByName[dt.Name]; dup {
			return nil, fmt.Errorf("catalogue: duplicate data type %q", dt.Name)
		}
		t := &DataType{ID: newID(), Name: dt.Name, Tag: dt.Tag}
		c.dataTypes[t.ID] = t
		c.dataTypesByName[t.Name] = t
	}
	// Filters are declared under their applies-to type and may compare
	// against any type, so they resolve in a second pass.
	for _, dt := range cfg.DataTypes {
		applies := c.dataTypesByName[dt.Name]
		for _, fd := range dt.Filters {
			comparesWith := applies
			if fd.ComparesWith != "" {
				cw, ok := c.dataTypesByName[fd.ComparesWith]
				if !ok {
					return nil, fmt.Errorf("catalogue: filter %q on %q compares with unknown type %q",
						fd.Name, dt.Name, fd.ComparesWith)
				}
				comparesWith = cw
			}
			f := &DataFilter{
				ID:             newID(),
				Name:           fd.Name,
				AppliesToID:    applies.ID,
				ComparesWithID: comparesWith.ID,
			}
			c.filters[f.ID] = f
			c.filtersByType[applies.ID] = append(c.filtersByType[applies.ID], f)
		}
	}

	for _, ad := range cfg.Apps {
		if _, dup := c.appsByName[ad.Name]; dup {
			return nil, fmt.Errorf("catalogue: duplicate app %q", ad.Name)
		}
		app := &App{ID: newID(), Name: ad.Name, Description: ad.Description, Enabled: ad.Enabled}
		c.apps[app.ID] = app
		c.appsByName[app.Name] = app

		for _, ed := range ad.Events {
			if _, dup := c.eventsByName[ed.Name]; dup {
				return nil, fmt.Errorf("catalogue: duplicate event %q", ed.Name)
			}
			ev := &Event{ID: newID(), Name: ed.Name, AppID: app.ID}
			c.events[ev.ID] = ev
			c.eventsByName[ev.Name] = ev
			seen := make(map[string]bool)
			for _, at := range ed.Attributes {
				if seen[at.Name] {
					return nil, fmt.Errorf("catalogue: event %q: duplicate attribute %q", ed.Name, at.Name)
				}
				seen[at.Name] = true
				dt, ok := c.dataTypesByName[at.Type]
				if !ok {
					return nil, fmt.Errorf("catalogue: event %q: attribute %q has unknown type %q",
						ed.Name, at.Name, at.Type)
				}
				c.attrs[ev.ID] = append(c.attrs[ev.ID], &EventAttribute{
					ID: newID(), Name: at.Name, EventID: ev.ID, DataTypeID: dt.ID,
				})
			}
		}

		for _, acd := range ad.Actions {
			if _, dup := c.actionsByName[acd.Name]; dup {
				return nil, fmt.Errorf("catalogue: duplicate action %q", acd.Name)
			}
			ac := &Action{ID: newID(), Name: acd.Name, AppID: app.ID}
			c.actions[ac.ID] = ac
			c.actionsByName[ac.Name] = ac
			seen := make(map[string]bool)
			for _, pd := range acd.Parameters {
				if seen[pd.Name] {
					return nil, fmt.Errorf("catalogue: action %q: duplicate parameter %q", acd.Name, pd.Name)
				}
				seen[pd.Name] = true
				dt, ok := c.dataTypesByName[pd.Type]
				if !ok {
					return nil, fmt.Errorf("catalogue: action %q: parameter %q has unknown type %q",
						acd.Name, pd.Name, pd.Type)
				}
				p := &ActionParameter{ID: newID(), Name: pd.Name, ActionID: ac.ID, DataTypeID: dt.ID}
				c.params[ac.ID] = append(c.params[ac.ID], p)
				c.paramsByID[p.ID] = p
			}
		}
	}

	return c, nil
}

// DataTypeByID returns the data type with the given id.
func (c *Catalogue) DataTypeByID(id int64) (*DataType, error) {
	if t, ok := c.dataTypes[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: data type id %d", ErrNotFound, id)
}

// DataTypeByName returns the data type with the given name.
func (c *Catalogue) DataTypeByName(name string) (*DataType, error) {
	if t, ok := c.dataTypesByName[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: data type %q", ErrNotFound, name)
}

// FiltersFor returns the filters valid against a value of the given data
// type, in declaration order. Unknown ids yield an error, not an empty set.
func (c *Catalogue) FiltersFor(dataTypeID int64) ([]*DataFilter, error) {
	if _, ok := c.dataTypes[dataTypeID]; !ok {
		return nil, fmt.Errorf("%w: data type id %d", ErrNotFound, dataTypeID)
	}
	return c.filtersByType[dataTypeID], nil
}

// AppByName returns the registered app with the given name.
func (c *Catalogue) AppByName(name string) (*App, error) {
	if a, ok := c.appsByName[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: app %q", ErrNotFound, name)
}

// Apps returns every registered app keyed by id. The map is shared; callers
// must not mutate it.
func (c *Catalogue) Apps() map[int64]*App { return c.apps }

// EventByID returns the registered event kind with the given id.
func (c *Catalogue) EventByID(id int64) (*Event, error) {
	if e, ok := c.events[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: event id %d", ErrNotFound, id)
}

// EventByName returns the registered event kind with the given name.
func (c *Catalogue) EventByName(name string) (*Event, error) {
	if e, ok := c.eventsByName[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: event %q", ErrNotFound, name)
}

// Events returns every registered event keyed by id. The map is shared;
// callers must not mutate it.
func (c *Catalogue) Events() map[int64]*Event { return c.events }

// EventAttributes returns an event's declared attributes in declaration order.
func (c *Catalogue) EventAttributes(eventID int64) ([]*EventAttribute, error) {
	if _, ok := c.events[eventID]; !ok {
		return nil, fmt.Errorf("%w: event id %d", ErrNotFound, eventID)
	}
	return c.attrs[eventID], nil
}

// ActionByID returns the registered action kind with the given id.
func (c *Catalogue) ActionByID(id int64) (*Action, error) {
	if a, ok := c.actions[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: action id %d", ErrNotFound, id)
}

// ActionByName returns the registered action kind with the given name.
func (c *Catalogue) ActionByName(name string) (*Action, error) {
	if a, ok := c.actionsByName[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: action %q", ErrNotFound, name)
}

// Actions returns every registered action keyed by id. The map is shared;
// callers must not mutate it.
func (c *Catalogue) Actions() map[int64]*Action { return c.actions }

// ActionParameters returns an action's declared parameters in declaration order.
func (c *Catalogue) ActionParameters(actionID int64) ([]*ActionParameter, error) {
	if _, ok := c.actions[actionID]; !ok {
		return nil, fmt.Errorf("%w: action id %d", ErrNotFound, actionID)
	}
	return c.params[actionID], nil
}

// ActionParameterByID returns a single declared parameter slot.
func (c *Catalogue) ActionParameterByID(id int64) (*ActionParameter, error) {
	if p, ok := c.paramsByID[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: action parameter id %d", ErrNotFound, id)
}

// ActionParameterNames returns id→name for every registered action parameter.
// This is the full scan the resolution core uses for name resolution; the
// returned map is a fresh copy.
func (c *Catalogue) ActionParameterNames() map[int64]string {
	out := make(map[int64]string, len(c.paramsByID))
	for id, p := range c.paramsByID {
		out[id] = p.Name
	}
	return out
}
