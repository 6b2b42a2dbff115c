package sim

import "container/heap"

// EventFunc is a calendar callback. It runs synchronously at the start of a
// Forward pass and may mutate Variables or schedule further events.
type EventFunc func(s *Simulator) error

// Event is a one-shot schedule entry.
type Event struct {
	At     float64   // due time in simulated time units
	Name   string    // callback identity used in logs and EventErrors
	Scope  *Scope    // scope the callback acts on; defaults to the simulator root
	Action EventFunc // the callback
	seq    uint64
}

// eventQueue implements heap.Interface ordered by due time, then insertion
// order, so that ties fire FIFO and recurring chains stay deterministic.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []*Event

func (eq eventQueue) Len() int { return len(eq) }
func (eq eventQueue) Less(i, j int) bool {
	if eq[i].At != eq[j].At {
		return eq[i].At < eq[j].At
	}
	return eq[i].seq < eq[j].seq
}
func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(*Event))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*eq = old[0 : n-1]
	return item
}

// Calendar is the time-ordered schedule of one-shot callbacks.
type Calendar struct {
	queue   eventQueue
	nextSeq uint64
}

// NewCalendar creates an empty calendar.
func NewCalendar() *Calendar {
	c := &Calendar{queue: make(eventQueue, 0)}
	heap.Init(&c.queue)
	return c
}

// Schedule inserts e. Callers validate the due time.
func (c *Calendar) Schedule(e *Event) {
	e.seq = c.nextSeq
	c.nextSeq++
	heap.Push(&c.queue, e)
}

// Peek returns the next event without removing it.
func (c *Calendar) Peek() *Event {
	if len(c.queue) == 0 {
		return nil
	}
	return c.queue[0]
}

// PopNext removes and returns the next event.
func (c *Calendar) PopNext() *Event {
	if len(c.queue) == 0 {
		return nil
	}
	return heap.Pop(&c.queue).(*Event)
}

// Len returns the number of pending events.
func (c *Calendar) Len() int { return len(c.queue) }

// requeue puts back events that were popped but not fired, keeping their seq.
func (c *Calendar) requeue(events []*Event) {
	for _, e := range events {
		heap.Push(&c.queue, e)
	}
}

// watermark returns the sequence number the next inserted event will get.
func (c *Calendar) watermark() uint64 { return c.nextSeq }
