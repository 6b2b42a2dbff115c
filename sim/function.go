package sim

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// declSeq orders Functions and Transitions by declaration for deterministic plans.
var declSeq atomic.Uint64

// Binding ties a combinator parameter name to a source Node. Bindings are
// resolved once at construction; the combinator reads them by name.
type Binding struct {
	Name string
	Node *Node
	Path string // resolved against the output's scope when Node is nil
}

// Input binds name to node.
func Input(name string, node *Node) Binding { return Binding{Name: name, Node: node} }

// InputPath binds name to the node at a dotted path relative to the output's scope.
func InputPath(name, path string) Binding { return Binding{Name: name, Path: path} }

// Combinator computes a value from the current values of its bound inputs.
type Combinator func(in *Inputs) (any, error)

// FloatFunc adapts a positional float combinator. Inputs are passed in binding order.
func FloatFunc(f func(xs ...float64) float64) Combinator {
	return func(in *Inputs) (any, error) {
		xs := in.Floats()
		if err := in.Err(); err != nil {
			return nil, err
		}
		return f(xs...), nil
	}
}

// Inputs is the read-only view a combinator gets of its bound inputs.
// Accessors record the first misuse (unknown name, non-numeric value) and the
// engine reports it through Err as an EvaluationError.
type Inputs struct {
	names   []string
	values  []any
	index   map[string]int
	self    any
	hasSelf bool
	err     error
}

func newInputs(bindings []Binding) *Inputs {
	in := &Inputs{
		names:  make([]string, len(bindings)),
		values: make([]any, len(bindings)),
		index:  make(map[string]int, len(bindings)),
	}
	for i, b := range bindings {
		in.names[i] = b.Name
		in.values[i] = b.Node.value
		in.index[b.Name] = i
	}
	return in
}

func (in *Inputs) fail(err error) {
	if in.err == nil {
		in.err = err
	}
}

// Len returns the number of bound inputs.
func (in *Inputs) Len() int { return len(in.values) }

// Names returns the parameter names in binding order.
func (in *Inputs) Names() []string { return append([]string(nil), in.names...) }

// Has reports whether name is bound.
func (in *Inputs) Has(name string) bool {
	_, ok := in.index[name]
	return ok
}

// Value returns the raw current value bound to name.
func (in *Inputs) Value(name string) any {
	i, ok := in.index[name]
	if !ok {
		in.fail(fmt.Errorf("no input bound to %q", name))
		return nil
	}
	return in.values[i]
}

// Float returns the value bound to name as a float64.
func (in *Inputs) Float(name string) float64 {
	v := in.Value(name)
	if v == nil {
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		in.fail(fmt.Errorf("input %q holds %T, not a number", name, v))
	}
	return f
}

// Bool returns true when the value bound to name is non-zero.
func (in *Inputs) Bool(name string) bool { return in.Float(name) != 0 }

// At returns the raw value of the i-th binding.
func (in *Inputs) At(i int) any {
	if i < 0 || i >= len(in.values) {
		in.fail(fmt.Errorf("input index %d out of range [0,%d)", i, len(in.values)))
		return nil
	}
	return in.values[i]
}

// Floats returns every input as a float64, in binding order.
func (in *Inputs) Floats() []float64 {
	out := make([]float64, len(in.values))
	for i, v := range in.values {
		f, ok := toFloat(v)
		if !ok {
			in.fail(fmt.Errorf("input %q holds %T, not a number", in.names[i], v))
		}
		out[i] = f
	}
	return out
}

// Self returns the current value of the State a Transition writes.
func (in *Inputs) Self() float64 {
	if !in.hasSelf {
		in.fail(errors.New("Self is only available to transitions"))
		return 0
	}
	f, ok := toFloat(in.self)
	if !ok {
		in.fail(fmt.Errorf("target state holds %T, not a number", in.self))
	}
	return f
}

// SelfValue returns the raw current value of the State a Transition writes.
func (in *Inputs) SelfValue() any { return in.self }

// Err returns the first accessor misuse, if any.
func (in *Inputs) Err() error { return in.err }

// DeclOption configures DeclareFunction and DeclareTransition.
type DeclOption func(*declConfig)

type declConfig struct {
	name   string
	expect []string
}

// Named overrides the default computation name.
func Named(name string) DeclOption { return func(c *declConfig) { c.name = name } }

// Expect requires the bindings to be exactly the given parameter names
// (in any order); a mismatch is an arity ConstructionError.
func Expect(names ...string) DeclOption { return func(c *declConfig) { c.expect = names } }

// Function is a derived node: a pure computation over bound inputs whose result
// becomes the output Variable's current value during Forward.
type Function struct {
	name     string
	output   *Node
	bindings []Binding
	f        Combinator
	seq      uint64
}

func (f *Function) Name() string { return f.name }
func (f *Function) Output() *Node { return f.output }
func (f *Function) Bindings() []Binding { return append([]Binding(nil), f.bindings...) }

// DeclareFunction binds combinator f to output and the given inputs.
func DeclareFunction(output *Node, f Combinator, inputs []Binding, opts ...DeclOption) (*Function, error) {
	if output == nil {
		return nil, constructionErr(CodeArity, "", "nil function output")
	}
	path := output.Path()
	if output.role != RoleVariable {
		return nil, constructionErr(CodeType, path, "function output must be a Variable, got %s (use DeclareTransition for States)", output.role)
	}
	if output.producer != nil {
		return nil, constructionErr(CodeWriterConflict, path, "already produced by %s", output.producer.name)
	}
	cfg, bindings, err := prepare(output, f, inputs, opts)
	if err != nil {
		return nil, err
	}
	for _, b := range bindings {
		if b.Node == output {
			return nil, constructionErr(CodeCycle, path, "function reads its own output through %q", b.Name)
		}
	}
	fn := &Function{
		name:     nameOr(cfg.name, output.name+"_function"),
		output:   output,
		bindings: bindings,
		f:        f,
		seq:      declSeq.Add(1),
	}
	output.producer = fn
	output.scope.functions = append(output.scope.functions, fn)
	return fn, nil
}

func (f *Function) eval() error {
	in := newInputs(f.bindings)
	v, err := call(f.f, in)
	if err == nil {
		v, err = conform(f.output.kind, v)
	}
	if err != nil {
		return &EvaluationError{Path: f.output.Path(), Kind: "function", Err: err}
	}
	f.output.value = v
	return nil
}

// Transition computes the next value of exactly one State from current values.
type Transition struct {
	name     string
	target   *Node
	bindings []Binding
	f        Combinator
	seq      uint64
}

func (t *Transition) Name() string { return t.name }
func (t *Transition) Target() *Node { return t.target }
func (t *Transition) Bindings() []Binding { return append([]Binding(nil), t.bindings...) }

// DeclareTransition binds combinator f as the single writer of target. The
// combinator sees the target's current value through Inputs.Self and its
// return value becomes the pending next value.
func DeclareTransition(target *Node, f Combinator, inputs []Binding, opts ...DeclOption) (*Transition, error) {
	if target == nil {
		return nil, constructionErr(CodeArity, "", "nil transition target")
	}
	path := target.Path()
	if target.role != RoleState {
		return nil, constructionErr(CodeType, path, "transition target must be a State, got %s", target.role)
	}
	if target.clockDriven {
		return nil, constructionErr(CodeWriterConflict, path, "state is advanced by the simulator clock")
	}
	if target.transition != nil {
		return nil, constructionErr(CodeWriterConflict, path, "already written by %s", target.transition.name)
	}
	cfg, bindings, err := prepare(target, f, inputs, opts)
	if err != nil {
		return nil, err
	}
	t := &Transition{
		name:     nameOr(cfg.name, target.name+"_transition"),
		target:   target,
		bindings: bindings,
		f:        f,
		seq:      declSeq.Add(1),
	}
	target.transition = t
	target.scope.transitions = append(target.scope.transitions, t)
	return t, nil
}

func (t *Transition) eval() error {
	in := newInputs(t.bindings)
	in.self, in.hasSelf = t.target.value, true
	v, err := call(t.f, in)
	if err == nil {
		v, err = conform(t.target.kind, v)
	}
	if err != nil {
		return &EvaluationError{Path: t.target.Path(), Kind: "transition", Err: err}
	}
	t.target.pending, t.target.hasPending = v, true
	return nil
}

// prepare validates the writer's scope and resolves the binding list.
func prepare(target *Node, f Combinator, inputs []Binding, opts []DeclOption) (declConfig, []Binding, error) {
	var cfg declConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	path := target.Path()
	if f == nil {
		return cfg, nil, constructionErr(CodeArity, path, "nil combinator")
	}
	if target.scope == nil || target.scope.finalized {
		return cfg, nil, constructionErr(CodeFinalized, path, "cannot attach a writer to a node of a finalized scope")
	}
	seen := make(map[string]bool, len(inputs))
	bindings := make([]Binding, len(inputs))
	for i, b := range inputs {
		if b.Name == "" {
			return cfg, nil, constructionErr(CodeArity, path, "binding %d has no parameter name", i)
		}
		if seen[b.Name] {
			return cfg, nil, constructionErr(CodeArity, path, "parameter %q bound twice", b.Name)
		}
		seen[b.Name] = true
		if b.Node == nil {
			if b.Path == "" {
				return cfg, nil, constructionErr(CodeArity, path, "parameter %q bound to nothing", b.Name)
			}
			n, err := target.scope.Node(b.Path)
			if err != nil {
				return cfg, nil, err
			}
			b.Node = n
		}
		bindings[i] = b
	}
	if cfg.expect != nil {
		if len(cfg.expect) != len(bindings) {
			return cfg, nil, constructionErr(CodeArity, path, "expected %d inputs %v, got %d", len(cfg.expect), cfg.expect, len(bindings))
		}
		for _, name := range cfg.expect {
			if !seen[name] {
				return cfg, nil, constructionErr(CodeArity, path, "missing input %q", name)
			}
		}
	}
	return cfg, bindings, nil
}

// call runs a combinator, turning panics and accessor misuse into errors.
func call(f Combinator, in *Inputs) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("combinator panicked: %v", r)
		}
	}()
	v, err = f(in)
	if err != nil {
		return nil, err
	}
	if in.err != nil {
		return nil, in.err
	}
	return v, nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
