package rule

import "strings"

// ParamKind discriminates the two forms RawData can take.
type ParamKind int

const (
	// Literal raw data is used verbatim as the parameter value.
	Literal ParamKind = iota
	// AttributeRef raw data names an attribute of the triggering event
	// whose value supplies the parameter.
	AttributeRef
)

// Param is the parsed form of a RuleActionParameter's RawData.
type Param struct {
	Kind      ParamKind
	Value     string // literal value when Kind == Literal
	Attribute string // attribute name when Kind == AttributeRef
}

// ParseParam classifies raw data. The reference form is "<Name>" with a
// non-empty name; everything else, including "<>", is a literal.
func ParseParam(raw string) Param {
	if len(raw) > 2 && strings.HasPrefix(raw, "<") && strings.HasSuffix(raw, ">") {
		return Param{Kind: AttributeRef, Attribute: raw[1 : len(raw)-1]}
	}
	return Param{Kind: Literal, Value: raw}
}
