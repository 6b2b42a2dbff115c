package sim

import (
	"fmt"
	"math"
)

// Role distinguishes how a Node may be written.
type Role int

const (
	// RoleVariable nodes are mutable between steps (by events, drivers or a Function).
	RoleVariable Role = iota
	// RoleParameter nodes are write-once at construction.
	RoleParameter
	// RoleState nodes change only when the Simulator commits a pending value.
	RoleState
)

func (r Role) String() string {
	switch r {
	case RoleVariable:
		return "Variable"
	case RoleParameter:
		return "Parameter"
	case RoleState:
		return "State"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Node is a named, typed value owned by exactly one Scope.
type Node struct {
	name        string
	scope       *Scope
	role        Role
	kind        Kind
	description string
	units       string
	track       bool

	value      any
	pending    any
	hasPending bool

	producer    *Function   // Function writing this Variable, if any
	transition  *Transition // Transition writing this State, if any
	clockDriven bool        // State advanced by the Simulator itself
}

// NodeOption customizes a node at declaration time.
type NodeOption func(*Node)

// WithDescription attaches a human-readable description.
func WithDescription(d string) NodeOption { return func(n *Node) { n.description = d } }

// WithUnits attaches a unit label (e.g. "hours", "1/hour").
func WithUnits(u string) NodeOption { return func(n *Node) { n.units = u } }

// Tracked marks the node for history retention by an external recorder.
func Tracked() NodeOption { return func(n *Node) { n.track = true } }

// Boolean stores the node as 0/1.
func Boolean() NodeOption { return func(n *Node) { n.kind = KindBoolean } }

// Opaque stores the node value as-is, without numeric conversion.
func Opaque() NodeOption { return func(n *Node) { n.kind = KindOpaque } }

func (n *Node) element() {}

// Name returns the local name of the node within its scope.
func (n *Node) Name() string { return n.name }

// Path returns the dotted path from the root scope, e.g. "habitat.battery.charge".
func (n *Node) Path() string {
	if n.scope == nil {
		return n.name
	}
	return n.scope.Path() + "." + n.name
}

// Scope returns the owning scope.
func (n *Node) Scope() *Scope { return n.scope }

func (n *Node) Role() Role { return n.role }
func (n *Node) Kind() Kind { return n.kind }
func (n *Node) Description() string { return n.description }
func (n *Node) Units() string { return n.units }
func (n *Node) IsTracked() bool { return n.track }
func (n *Node) Producer() *Function { return n.producer }
func (n *Node) Writer() *Transition { return n.transition }
func (n *Node) IsClockDriven() bool { return n.clockDriven }
func (n *Node) IsDerived() bool { return n.producer != nil }
func (n *Node) HasPending() bool { return n.hasPending }
func (n *Node) PendingValue() any { return n.pending }

// Value returns the current value.
func (n *Node) Value() any { return n.value }

// Float returns the current value as a float64. Opaque non-numeric values yield NaN.
func (n *Node) Float() float64 {
	f, ok := toFloat(n.value)
	if !ok {
		return math.NaN()
	}
	return f
}

// Set assigns the current value of a Variable. Parameters and States are
// read-only outside of construction and commit respectively, and a Function
// output is owned by its Function.
func (n *Node) Set(v any) error {
	if n.role != RoleVariable {
		return constructionErr(CodeReadOnly, n.Path(), "cannot assign a %s", n.role)
	}
	if n.producer != nil {
		return constructionErr(CodeWriterConflict, n.Path(), "output of %s cannot be assigned", n.producer.name)
	}
	cv, err := conform(n.kind, v)
	if err != nil {
		return fmt.Errorf("setting %s: %w", n.Path(), err)
	}
	n.value = cv
	return nil
}

func (n *Node) String() string {
	if n.units != "" {
		return fmt.Sprintf("%s %s = %v %s", n.role, n.Path(), n.value, n.units)
	}
	return fmt.Sprintf("%s %s = %v", n.role, n.Path(), n.value)
}
