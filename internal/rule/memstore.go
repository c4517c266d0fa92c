package rule

import (
	"sort"
	"sync"
)

// MemStore is an in-memory Store guarded by a RWMutex. It backs tests and
// deployments that hold rules purely in the hot-reloaded rules file.
type MemStore struct {
	mu     sync.RWMutex
	closed bool
	nextID int64

	rules      map[int64]*Rule
	actions    map[int64]*RuleAction
	byRule     map[int64][]int64 // rule id → rule action ids
	params     map[int64][]*RuleActionParameter
	conditions map[int64][]*Condition
	byTrigger  map[int64][]int64 // trigger event id → rule ids
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	s := &MemStore{}
	s.reset()
	return s
}

func (s *MemStore) reset() {
	s.rules = make(map[int64]*Rule)
	s.actions = make(map[int64]*RuleAction)
	s.byRule = make(map[int64][]int64)
	s.params = make(map[int64][]*RuleActionParameter)
	s.conditions = make(map[int64][]*Condition)
	s.byTrigger = make(map[int64][]int64)
}

func (s *MemStore) newID() int64 {
	s.nextID++
	return s.nextID
}

// Rule implements Store.
func (s *MemStore) Rule(id int64) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	r, ok := s.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return r, nil
}

// Rules implements Store.
func (s *MemStore) Rules() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// EnabledRulesForTrigger implements Store.
func (s *MemStore) EnabledRulesForTrigger(eventID int64) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	var out []*Rule
	for _, id := range s.byTrigger[eventID] {
		if r := s.rules[id]; r != nil && r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

// RuleAction implements Store.
func (s *MemStore) RuleAction(id int64) (*RuleAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	ra, ok := s.actions[id]
	if !ok {
		return nil, ErrRuleActionNotFound
	}
	return ra, nil
}

// RuleActions implements Store.
func (s *MemStore) RuleActions(ruleID int64) ([]*RuleAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	ids := s.byRule[ruleID]
	out := make([]*RuleAction, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.actions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionOrder < out[j].ExecutionOrder })
	return out, nil
}

// RuleActionParameters implements Store.
func (s *MemStore) RuleActionParameters(ruleActionID int64) ([]*RuleActionParameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.params[ruleActionID], nil
}

// Conditions implements Store.
func (s *MemStore) Conditions(ruleID int64) ([]*Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.conditions[ruleID], nil
}

// SaveRule implements Store.
func (s *MemStore) SaveRule(def *Definition) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return s.save(def), nil
}

func (s *MemStore) save(def *Definition) int64 {
	r := &Rule{
		ID:             s.newID(),
		Name:           def.Name,
		Enabled:        def.Enabled,
		TriggerEventID: def.TriggerEventID,
	}
	s.rules[r.ID] = r
	s.byTrigger[r.TriggerEventID] = append(s.byTrigger[r.TriggerEventID], r.ID)

	for _, cb := range def.Conditions {
		s.conditions[r.ID] = append(s.conditions[r.ID], &Condition{
			ID:          s.newID(),
			RuleID:      r.ID,
			AttributeID: cb.AttributeID,
			FilterID:    cb.FilterID,
			Value:       cb.Value,
		})
	}

	for order, ab := range def.Actions {
		ra := &RuleAction{
			ID:             s.newID(),
			RuleID:         r.ID,
			ActionID:       ab.ActionID,
			ExecutionOrder: order,
		}
		s.actions[ra.ID] = ra
		s.byRule[r.ID] = append(s.byRule[r.ID], ra.ID)
		for _, pb := range ab.Params {
			s.params[ra.ID] = append(s.params[ra.ID], &RuleActionParameter{
				ID:           s.newID(),
				RuleActionID: ra.ID,
				ParameterID:  pb.ParameterID,
				RawData:      pb.RawData,
			})
		}
	}
	return r.ID
}

// DeleteRule implements Store.
func (s *MemStore) DeleteRule(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	r, ok := s.rules[id]
	if !ok {
		return ErrRuleNotFound
	}
	for _, raID := range s.byRule[id] {
		delete(s.actions, raID)
		delete(s.params, raID)
	}
	delete(s.byRule, id)
	delete(s.conditions, id)
	delete(s.rules, id)

	ids := s.byTrigger[r.TriggerEventID]
	for i, rid := range ids {
		if rid == id {
			s.byTrigger[r.TriggerEventID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// ReplaceAll implements Store.
func (s *MemStore) ReplaceAll(defs []*Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.reset()
	for _, def := range defs {
		s.save(def)
	}
	return nil
}

// Close implements Store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
