package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cdcm-sim/cdcm/sim"
)

// renderTree writes the scope hierarchy of s, one element per line, in
// declaration order.
func renderTree(w io.Writer, s *sim.Scope) error {
	return renderScope(w, s, 0)
}

func renderScope(w io.Writer, s *sim.Scope, depth int) error {
	line := strings.Repeat("  ", depth) + s.Name()
	if d := s.Description(); d != "" {
		line += "  # " + d
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range s.Children() {
		switch x := c.(type) {
		case *sim.Scope:
			if err := renderScope(w, x, depth+1); err != nil {
				return err
			}
		case *sim.Node:
			if _, err := fmt.Fprintln(w, strings.Repeat("  ", depth+1)+describeNode(x)); err != nil {
				return err
			}
		}
	}
	return nil
}

func describeNode(n *sim.Node) string {
	var b strings.Builder
	b.WriteString(roleTag(n.Role()))
	b.WriteString(" ")
	b.WriteString(n.Name())
	b.WriteString(" = ")
	b.WriteString(formatValue(n.Value()))
	if u := n.Units(); u != "" {
		b.WriteString(" " + u)
	}
	if f := n.Producer(); f != nil {
		b.WriteString(" <- " + f.Name() + "(" + bindingNames(f.Bindings()) + ")")
	}
	if t := n.Writer(); t != nil {
		b.WriteString(" <~ " + t.Name() + "(" + bindingNames(t.Bindings()) + ")")
	}
	if n.IsTracked() {
		b.WriteString(" [tracked]")
	}
	return b.String()
}

func roleTag(r sim.Role) string {
	switch r {
	case sim.RoleParameter:
		return "P"
	case sim.RoleState:
		return "S"
	default:
		return "V"
	}
}

func bindingNames(bs []sim.Binding) string {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name
	}
	return strings.Join(names, ", ")
}

func formatValue(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
