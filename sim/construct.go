package sim

import (
	"fmt"
	"sync"
)

// construction holds the process-wide stack of scopes whose construction block
// is currently running. It exists only while Build calls are on the call stack.
// Graphs must be built from one goroutine at a time.
var construction struct {
	mu    sync.Mutex
	stack []*Scope
}

// Active returns the innermost scope under construction, or nil.
func Active() *Scope {
	construction.mu.Lock()
	defer construction.mu.Unlock()
	if len(construction.stack) == 0 {
		return nil
	}
	return construction.stack[len(construction.stack)-1]
}

func push(s *Scope) {
	construction.mu.Lock()
	construction.stack = append(construction.stack, s)
	construction.mu.Unlock()
}

func pop(s *Scope) {
	construction.mu.Lock()
	defer construction.mu.Unlock()
	n := len(construction.stack)
	if n == 0 || construction.stack[n-1] != s {
		panic(fmt.Sprintf("construction stack corrupted: expected %s on top", s.Path()))
	}
	construction.stack = construction.stack[:n-1]
}

// Build creates a scope named name under the active construction scope (or a
// new root when none is active), makes it active while fn runs, then restores
// the previous active scope and finalizes the new one, on every exit path.
func Build(name string, fn func(s *Scope) error) (*Scope, error) {
	if parent := Active(); parent != nil {
		return parent.Build(name, fn)
	}
	s := NewScope(name)
	if err := s.construct(fn); err != nil {
		return nil, err
	}
	return s, nil
}

// Build creates a child scope of s and runs fn with it active.
func (s *Scope) Build(name string, fn func(c *Scope) error) (*Scope, error) {
	if err := s.checkName(name); err != nil {
		return nil, err
	}
	c := NewScope(name)
	c.parent = s
	s.add(c)
	if err := c.construct(fn); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Scope) construct(fn func(*Scope) error) error {
	push(s)
	defer func() {
		pop(s)
		s.Finalize()
	}()
	if fn == nil {
		return nil
	}
	if err := fn(s); err != nil {
		return fmt.Errorf("building %s: %w", s.Path(), err)
	}
	return nil
}
