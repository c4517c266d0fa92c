package action

// Action kind names in the default seed vocabulary. The vocabulary itself is
// data (configs/catalogue.yaml); these constants exist so the built-in
// constructors and tests can refer to the default kinds without typos.
const (
	SendSMS     = "SMS Send"
	PhoneCall   = "Phone Call"
	SendGmail   = "Gmail Send"
	DisplayNote = "Display Note"
)

// Plain returns a permissive constructor: it copies the resolved parameter
// map into an Invocation as-is. Parameters dropped during resolution stay
// absent; whether the downstream executor can cope with a gap is its call,
// not the constructor's.
func Plain(name string) Factory {
	return func(params map[string]string) (*Invocation, error) {
		out := make(map[string]string, len(params))
		for k, v := range params {
			out[k] = v
		}
		return &Invocation{Action: name, Params: out}, nil
	}
}

// RegisterDefaults registers constructors for every action kind in the
// default seed vocabulary.
func RegisterDefaults(r *Registry) {
	for _, name := range []string{SendSMS, PhoneCall, SendGmail, DisplayNote} {
		r.Register(name, Plain(name))
	}
}
