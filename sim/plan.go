package sim

import (
	"sort"
	"strings"
)

// plan is the evaluation schedule of a finalized scope tree.
//
// Functions are ordered so that every Function runs after the Functions
// producing its inputs. Edges into States are never ordering edges: a State is
// always read at its current (pre-step) value, which is what makes mutually
// referencing assemblies legal. Transitions run after all Functions in
// declaration order; they only write pending values, so their order is free.
type plan struct {
	functions   []*Function
	transitions []*Transition
	states      []*Node
}

func compile(root *Scope) (*plan, error) {
	var fns []*Function
	var trs []*Transition
	root.WalkScopes(func(s *Scope) {
		fns = append(fns, s.functions...)
		trs = append(trs, s.transitions...)
	})
	sort.Slice(fns, func(i, j int) bool { return fns[i].seq < fns[j].seq })
	sort.Slice(trs, func(i, j int) bool { return trs[i].seq < trs[j].seq })

	members := make(map[*Function]bool, len(fns))
	for _, f := range fns {
		members[f] = true
	}

	// Three-colour DFS: temporary marks the recursion stack, permanent the
	// nodes already emitted.
	ordered := make([]*Function, 0, len(fns))
	permanent := make(map[*Function]bool, len(fns))
	temporary := make(map[*Function]bool)
	var stack []*Function

	var visit func(f *Function) error
	visit = func(f *Function) error {
		if permanent[f] {
			return nil
		}
		if temporary[f] {
			return cycleError(stack, f)
		}
		temporary[f] = true
		stack = append(stack, f)
		for _, b := range f.bindings {
			dep := b.Node.producer
			if dep == nil || !members[dep] {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		temporary[f] = false
		permanent[f] = true
		ordered = append(ordered, f)
		return nil
	}
	for _, f := range fns {
		if err := visit(f); err != nil {
			return nil, err
		}
	}

	p := &plan{functions: ordered, transitions: trs}
	root.Walk(func(n *Node) {
		if n.role == RoleState {
			p.states = append(p.states, n)
		}
	})
	return p, nil
}

func cycleError(stack []*Function, closing *Function) error {
	start := 0
	for i, f := range stack {
		if f == closing {
			start = i
			break
		}
	}
	paths := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		paths = append(paths, f.output.Path())
	}
	paths = append(paths, closing.output.Path())
	return constructionErr(CodeCycle, closing.output.Path(), "functions depend on each other within one pass: %s", strings.Join(paths, " <- "))
}
