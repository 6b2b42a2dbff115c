package sim

import (
	"strconv"
	"strings"
)

// DeclareSpec declares a node from the compact "R:name:value[:units]" form,
// where R is P (Parameter), V (Variable) or S (State), e.g.
// "P:material_base_rate:0.0001:1/hour".
func (s *Scope) DeclareSpec(spec string, opts ...NodeOption) (*Node, error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 3 {
		return nil, constructionErr(CodeInvalidValue, s.Path(), "node spec %q: want R:name:value[:units]", spec)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return nil, constructionErr(CodeInvalidValue, s.Path(), "node spec %q: %v", spec, err)
	}
	if len(parts) == 4 && parts[3] != "" {
		opts = append([]NodeOption{WithUnits(parts[3])}, opts...)
	}
	name := strings.TrimSpace(parts[1])
	switch strings.ToUpper(strings.TrimSpace(parts[0])) {
	case "P":
		return s.DeclareParameter(name, value, opts...)
	case "V":
		return s.DeclareVariable(name, value, opts...)
	case "S":
		return s.DeclareState(name, value, opts...)
	}
	return nil, constructionErr(CodeInvalidValue, s.Path(), "node spec %q: unknown role %q", spec, parts[0])
}
