// Package diag routes structured warnings about partial resolution
// failures to whoever wants them: a log, a test collector, or both.
package diag

import (
	"log/slog"
	"sync"
)

// Categories of partial failure the resolution core reports.
const (
	CategoryMissingAction     = "missing_action"     // rule action's registered action is gone
	CategoryMissingAttribute  = "missing_attribute"  // event lacks a referenced attribute
	CategoryDanglingParameter = "dangling_parameter" // parameter binding references a gone declaration
	CategoryUnknownAction     = "unknown_action"     // no constructor for the action name
)

// Record is one structured warning.
type Record struct {
	Category string
	Message  string
	Err      error
}

// Sink accepts warning records. Implementations must be safe for use from
// concurrent resolutions.
type Sink interface {
	Warn(rec Record)
}

// Logger is a Sink that writes records through slog.
type Logger struct {
	L *slog.Logger
}

// Warn implements Sink.
func (l Logger) Warn(rec Record) {
	logger := l.L
	if logger == nil {
		logger = slog.Default()
	}
	if rec.Err != nil {
		logger.Warn(rec.Message, "category", rec.Category, "err", rec.Err)
		return
	}
	logger.Warn(rec.Message, "category", rec.Category)
}

// Collector is a Sink that captures records in memory, for tests.
type Collector struct {
	mu   sync.Mutex
	recs []Record
}

// Warn implements Sink.
func (c *Collector) Warn(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
}

// Records returns a copy of everything collected so far.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.recs))
	copy(out, c.recs)
	return out
}

// ByCategory returns collected records matching the category.
func (c *Collector) ByCategory(category string) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Record
	for _, r := range c.recs {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}
