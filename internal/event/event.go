package event

import "time"

// Instance is a concrete triggered event raised by a detection collaborator.
// It is runtime-only: consumed during rule processing, never persisted.
type Instance struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"` // registered event name, e.g. "SMS Received"
	OccurredAt time.Time         `json:"occurred_at"`
	ReceivedAt time.Time         `json:"-"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute returns the value carried for the named attribute.
// The detection collaborator is responsible for typing and validation;
// values arrive here already stringified.
func (in *Instance) Attribute(name string) (string, bool) {
	v, ok := in.Attributes[name]
	return v, ok
}
