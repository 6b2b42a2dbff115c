package sim

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Element is anything addressable inside a Scope: a *Node or a child *Scope.
type Element interface {
	Name() string
	Path() string
	element()
}

// Scope is a hierarchical, named container of nodes and sub-scopes (a "System"
// in the domain models). Names are unique within a scope and insertion order is
// preserved so that walks and exports are deterministic.
type Scope struct {
	name        string
	description string
	parent      *Scope
	order       []Element
	members     map[string]Element
	functions   []*Function
	transitions []*Transition
	finalized   bool
}

// NewScope creates a detached root scope. Most callers use Build instead,
// which also registers the scope under the active construction scope.
func NewScope(name string) *Scope {
	return &Scope{name: name, members: make(map[string]Element)}
}

func (s *Scope) element() {}

// Name returns the local name of the scope.
func (s *Scope) Name() string { return s.name }

// Path returns the dotted path from the root scope.
func (s *Scope) Path() string {
	if s.parent == nil {
		return s.name
	}
	return s.parent.Path() + "." + s.name
}

func (s *Scope) Parent() *Scope { return s.parent }
func (s *Scope) Description() string { return s.description }
func (s *Scope) IsFinalized() bool { return s.finalized }

// SetDescription attaches a human-readable description.
func (s *Scope) SetDescription(d string) { s.description = d }

// Root walks up to the top-level scope.
func (s *Scope) Root() *Scope {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Children returns nodes and sub-scopes in insertion order.
func (s *Scope) Children() []Element {
	out := make([]Element, len(s.order))
	copy(out, s.order)
	return out
}

// Nodes returns the direct child nodes in insertion order.
func (s *Scope) Nodes() []*Node {
	var out []*Node
	for _, e := range s.order {
		if n, ok := e.(*Node); ok {
			out = append(out, n)
		}
	}
	return out
}

// Scopes returns the direct child scopes in insertion order.
func (s *Scope) Scopes() []*Scope {
	var out []*Scope
	for _, e := range s.order {
		if c, ok := e.(*Scope); ok {
			out = append(out, c)
		}
	}
	return out
}

// Functions returns the Functions declared against nodes of this scope.
func (s *Scope) Functions() []*Function { return append([]*Function(nil), s.functions...) }

// Transitions returns the Transitions declared against States of this scope.
func (s *Scope) Transitions() []*Transition { return append([]*Transition(nil), s.transitions...) }

// Walk visits every node of the subtree, depth first, in insertion order.
func (s *Scope) Walk(fn func(*Node)) {
	for _, e := range s.order {
		switch x := e.(type) {
		case *Node:
			fn(x)
		case *Scope:
			x.Walk(fn)
		}
	}
}

// WalkScopes visits s and every descendant scope, parents first.
func (s *Scope) WalkScopes(fn func(*Scope)) {
	fn(s)
	for _, c := range s.Scopes() {
		c.WalkScopes(fn)
	}
}

// Lookup resolves a dotted path relative to s ("battery.hardware.health").
func (s *Scope) Lookup(path string) (Element, error) {
	if path == "" {
		return nil, constructionErr(CodeLookup, s.Path(), "empty path")
	}
	cur := s
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		e, ok := cur.members[seg]
		if !ok {
			return nil, constructionErr(CodeLookup, s.Path(), "segment %q of %q not found in %s", seg, path, cur.Path())
		}
		if i == len(segments)-1 {
			return e, nil
		}
		next, ok := e.(*Scope)
		if !ok {
			return nil, constructionErr(CodeLookup, s.Path(), "segment %q of %q is a node, not a scope", seg, path)
		}
		cur = next
	}
	return nil, constructionErr(CodeLookup, s.Path(), "unresolved path %q", path)
}

// Node resolves a dotted path that must end at a Node.
func (s *Scope) Node(path string) (*Node, error) {
	e, err := s.Lookup(path)
	if err != nil {
		return nil, err
	}
	n, ok := e.(*Node)
	if !ok {
		return nil, constructionErr(CodeLookup, s.Path(), "%q is a scope, not a node", path)
	}
	return n, nil
}

// Sub resolves a dotted path that must end at a Scope.
func (s *Scope) Sub(path string) (*Scope, error) {
	e, err := s.Lookup(path)
	if err != nil {
		return nil, err
	}
	c, ok := e.(*Scope)
	if !ok {
		return nil, constructionErr(CodeLookup, s.Path(), "%q is a node, not a scope", path)
	}
	return c, nil
}

// Functionality returns the conventional "functionality" node of the scope.
func (s *Scope) Functionality() (*Node, bool) {
	n, ok := s.members[FunctionalityName].(*Node)
	return n, ok
}

// FunctionalityName is the conventional name of a scope's capability signal.
const FunctionalityName = "functionality"

// DeclareVariable adds a mutable node.
func (s *Scope) DeclareVariable(name string, value any, opts ...NodeOption) (*Node, error) {
	return s.declare(RoleVariable, name, value, opts)
}

// DeclareParameter adds a write-once node.
func (s *Scope) DeclareParameter(name string, value any, opts ...NodeOption) (*Node, error) {
	return s.declare(RoleParameter, name, value, opts)
}

// DeclareState adds a node with memory, written only through a Transition.
func (s *Scope) DeclareState(name string, value any, opts ...NodeOption) (*Node, error) {
	return s.declare(RoleState, name, value, opts)
}

func (s *Scope) declare(role Role, name string, value any, opts []NodeOption) (*Node, error) {
	if err := s.checkName(name); err != nil {
		return nil, err
	}
	n := &Node{name: name, scope: s, role: role}
	for _, opt := range opts {
		opt(n)
	}
	v, err := conform(n.kind, value)
	if err != nil {
		return nil, constructionErr(CodeType, s.Path()+"."+name, "initial value: %v", err)
	}
	n.value = v
	s.add(n)
	return n, nil
}

func (s *Scope) checkName(name string) error {
	if s.finalized {
		return constructionErr(CodeFinalized, s.Path(), "cannot declare %q", name)
	}
	if name == "" || strings.Contains(name, ".") {
		return constructionErr(CodeInvalidValue, s.Path(), "invalid local name %q", name)
	}
	if _, exists := s.members[name]; exists {
		return constructionErr(CodeDuplicateName, s.Path()+"."+name, "name already declared in %s", s.Path())
	}
	return nil
}

func (s *Scope) add(e Element) {
	s.members[e.Name()] = e
	s.order = append(s.order, e)
}

// Finalize closes the scope and its subtree to further declarations. Idempotent.
func (s *Scope) Finalize() {
	s.WalkScopes(func(c *Scope) {
		if !c.finalized {
			c.finalized = true
			logrus.Tracef("scope %s finalized", c.Path())
		}
	})
}
