package rule

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is a durable Store backed by an embedded SQLite database.
// WAL mode allows concurrent readers during rule authoring.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

// OpenSQLite creates or opens the rule database at path and applies the
// schema. Safe to call repeatedly on the same file.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open rule db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect rule db: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY on the authoring path.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply rule schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) guard() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Rule implements Store.
func (s *SQLiteStore) Rule(id int64) (*Rule, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var r Rule
	err := s.db.QueryRow(
		`SELECT id, name, enabled, trigger_event_id FROM rules WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Enabled, &r.TriggerEventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch rule %d: %w", id, err)
	}
	return &r, nil
}

// Rules implements Store.
func (s *SQLiteStore) Rules() ([]*Rule, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.queryRules(`SELECT id, name, enabled, trigger_event_id FROM rules ORDER BY id`)
}

// EnabledRulesForTrigger implements Store.
func (s *SQLiteStore) EnabledRulesForTrigger(eventID int64) ([]*Rule, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.queryRules(
		`SELECT id, name, enabled, trigger_event_id FROM rules
		 WHERE trigger_event_id = ? AND enabled = 1 ORDER BY id`, eventID)
}

func (s *SQLiteStore) queryRules(query string, args ...any) ([]*Rule, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()
	var out []*Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.Name, &r.Enabled, &r.TriggerEventID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// RuleAction implements Store.
func (s *SQLiteStore) RuleAction(id int64) (*RuleAction, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	var ra RuleAction
	err := s.db.QueryRow(
		`SELECT id, rule_id, action_id, execution_order FROM rule_actions WHERE id = ?`, id,
	).Scan(&ra.ID, &ra.RuleID, &ra.ActionID, &ra.ExecutionOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleActionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch rule action %d: %w", id, err)
	}
	return &ra, nil
}

// RuleActions implements Store.
func (s *SQLiteStore) RuleActions(ruleID int64) ([]*RuleAction, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, rule_id, action_id, execution_order FROM rule_actions
		 WHERE rule_id = ? ORDER BY execution_order`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("query rule actions: %w", err)
	}
	defer rows.Close()
	var out []*RuleAction
	for rows.Next() {
		var ra RuleAction
		if err := rows.Scan(&ra.ID, &ra.RuleID, &ra.ActionID, &ra.ExecutionOrder); err != nil {
			return nil, fmt.Errorf("scan rule action: %w", err)
		}
		out = append(out, &ra)
	}
	return out, rows.Err()
}

// RuleActionParameters implements Store. One query returns every
// (parameter id, raw data) pair for the rule action; no row-at-a-time
// cursor joins.
func (s *SQLiteStore) RuleActionParameters(ruleActionID int64) ([]*RuleActionParameter, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, rule_action_id, parameter_id, raw_data FROM rule_action_params
		 WHERE rule_action_id = ? ORDER BY id`, ruleActionID)
	if err != nil {
		return nil, fmt.Errorf("query rule action params: %w", err)
	}
	defer rows.Close()
	var out []*RuleActionParameter
	for rows.Next() {
		var p RuleActionParameter
		if err := rows.Scan(&p.ID, &p.RuleActionID, &p.ParameterID, &p.RawData); err != nil {
			return nil, fmt.Errorf("scan rule action param: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Conditions implements Store.
func (s *SQLiteStore) Conditions(ruleID int64) ([]*Condition, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, rule_id, attribute_id, filter_id, value FROM rule_conditions
		 WHERE rule_id = ? ORDER BY id`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("query rule conditions: %w", err)
	}
	defer rows.Close()
	var out []*Condition
	for rows.Next() {
		var c Condition
		if err := rows.Scan(&c.ID, &c.RuleID, &c.AttributeID, &c.FilterID, &c.Value); err != nil {
			return nil, fmt.Errorf("scan rule condition: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// SaveRule implements Store.
func (s *SQLiteStore) SaveRule(def *Definition) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save rule: %w", err)
	}
	id, err := insertRule(tx, def)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save rule: %w", err)
	}
	return id, nil
}

func insertRule(tx *sql.Tx, def *Definition) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO rules (name, enabled, trigger_event_id) VALUES (?, ?, ?)`,
		def.Name, def.Enabled, def.TriggerEventID)
	if err != nil {
		return 0, fmt.Errorf("insert rule %q: %w", def.Name, err)
	}
	ruleID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, cb := range def.Conditions {
		if _, err := tx.Exec(
			`INSERT INTO rule_conditions (rule_id, attribute_id, filter_id, value) VALUES (?, ?, ?, ?)`,
			ruleID, cb.AttributeID, cb.FilterID, cb.Value); err != nil {
			return 0, fmt.Errorf("insert condition for rule %q: %w", def.Name, err)
		}
	}

	for order, ab := range def.Actions {
		res, err := tx.Exec(
			`INSERT INTO rule_actions (rule_id, action_id, execution_order) VALUES (?, ?, ?)`,
			ruleID, ab.ActionID, order)
		if err != nil {
			return 0, fmt.Errorf("insert action for rule %q: %w", def.Name, err)
		}
		raID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		for _, pb := range ab.Params {
			if _, err := tx.Exec(
				`INSERT INTO rule_action_params (rule_action_id, parameter_id, raw_data) VALUES (?, ?, ?)`,
				raID, pb.ParameterID, pb.RawData); err != nil {
				return 0, fmt.Errorf("insert param for rule %q: %w", def.Name, err)
			}
		}
	}
	return ruleID, nil
}

// DeleteRule implements Store. Cascades to actions, parameters, conditions.
func (s *SQLiteStore) DeleteRule(id int64) error {
	if err := s.guard(); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// ReplaceAll implements Store: one transaction drops every rule and inserts
// the new set.
func (s *SQLiteStore) ReplaceAll(defs []*Definition) error {
	if err := s.guard(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace rules: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rules`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear rules: %w", err)
	}
	for _, def := range defs {
		if _, err := insertRule(tx, def); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace rules: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
