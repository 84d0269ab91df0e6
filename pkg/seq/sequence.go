package seq

// TimedEvent pairs an absolute time in seconds with the event due at
// that time. The Event pointer is a non-owning reference into the
// sequence that produced it.
type TimedEvent struct {
	Time  float64
	Event *Event
}

// Sequence is a forward-only cursor over timed events.
//
// Implementations must yield events in non-decreasing time order; the
// player relies on this but does not enforce it. The only way back is
// Rewind, which resets the cursor to time zero.
type Sequence interface {
	Rewind()

	// Peek reports the next event without consuming it.
	Peek() (TimedEvent, bool)

	// Next reports the next event and consumes it.
	Next() (TimedEvent, bool)
}

// List is a slice-backed Sequence.
type List struct {
	events []TimedEvent
	pos    int
}

// NewList wraps a pre-timed event slice in a Sequence. The slice must
// already be sorted by time and is not copied.
func NewList(events []TimedEvent) *List {
	return &List{events: events}
}

// Rewind resets the cursor to the first event.
func (l *List) Rewind() {
	l.pos = 0
}

// Peek implements Sequence.
func (l *List) Peek() (TimedEvent, bool) {
	if l.pos >= len(l.events) {
		return TimedEvent{}, false
	}
	return l.events[l.pos], true
}

// Next implements Sequence.
func (l *List) Next() (TimedEvent, bool) {
	ev, ok := l.Peek()
	if ok {
		l.pos++
	}
	return ev, ok
}

// Len returns the total number of events.
func (l *List) Len() int {
	return len(l.events)
}

// Duration returns the time of the last event in seconds, or 0 for an
// empty sequence.
func (l *List) Duration() float64 {
	if len(l.events) == 0 {
		return 0
	}
	return l.events[len(l.events)-1].Time
}
