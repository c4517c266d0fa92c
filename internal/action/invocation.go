package action

// Invocation is a fully-parameterized action ready for an execution
// collaborator to dispatch. Runtime-only; never persisted.
type Invocation struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params"`
}

// Param returns a resolved parameter value. A parameter dropped during
// resolution (missing event attribute, dangling declaration mapping) is
// absent, not empty.
func (inv *Invocation) Param(name string) (string, bool) {
	v, ok := inv.Params[name]
	return v, ok
}
