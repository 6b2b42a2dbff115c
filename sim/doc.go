// Package sim provides the dataflow/event simulation engine for CDCM assemblies.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - node.go, scope.go, construct.go: the graph (Variables, Parameters, States
//     owned by hierarchical scopes) and scoped construction via Build
//   - function.go: Functions (derived nodes) and Transitions (State writers)
//   - plan.go: evaluation order of a finalized scope tree
//   - simulator.go, event.go, clock.go: the two-phase stepper and the calendar
//
// # Stepping protocol
//
// Each step is Forward followed by Transition. Forward dispatches due calendar
// events, evaluates every Function in dependency order (outputs become visible
// immediately) and every Transition (results are held as pending values).
// Transition commits all pending State values at once and advances the clock.
// Because a State is only ever read at its current value, assemblies that
// reference each other's States (pooled coolant, feedback loops) are
// well-defined and order-independent.
//
// # Error taxonomy
//
//   - ConstructionError: graph-build mistakes, returned synchronously
//   - EvaluationError: a combinator failed; the step is aborted with no commit
//   - EventError: a calendar callback failed; logged, retained, never fatal
//   - ScheduleError: an event was scheduled in the past; recoverable
//
// Higher-order mechanisms (health aging, functionality composition) live in
// sim/mechanism; history recording and persistence in sim/trace and sim/store.
package sim
