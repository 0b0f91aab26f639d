// Implements the EventQueue, which holds every event that is not yet due.
// Events are kept in due-time order; equal times keep submission order.

package sim

import (
	"fmt"
	"iter"
	"strings"
)

// EventQueue is an insertion-ordered list of future events.
// Most events are scheduled at or after the latest time already queued, so
// Insert appends in O(1) in the common case and only scans otherwise.
type EventQueue struct {
	events  []*Event
	maxTime float64
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{maxTime: -1}
}

// Insert places ev after every queued event whose time is <= ev.Time().
func (q *EventQueue) Insert(ev *Event) {
	if ev == nil {
		panic("EventQueue.Insert: ev must not be nil")
	}
	if ev.time >= q.maxTime {
		q.events = append(q.events, ev)
		q.maxTime = ev.time
		return
	}
	for i, queued := range q.events {
		if queued.time > ev.time {
			q.events = append(q.events, nil)
			copy(q.events[i+1:], q.events[i:])
			q.events[i] = ev
			return
		}
	}
	q.events = append(q.events, ev)
}

// All returns a lazy, non-consuming iterator over the queue in time order.
// Each call starts from the front again. The queue must not be modified while
// the sequence is being ranged over.
func (q *EventQueue) All() iter.Seq[*Event] {
	return func(yield func(*Event) bool) {
		for _, ev := range q.events {
			if !yield(ev) {
				return
			}
		}
	}
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Clear drops every queued event.
func (q *EventQueue) Clear() {
	q.events = nil
	q.maxTime = -1
}

// Peek returns the earliest event without removing it, or nil if empty.
func (q *EventQueue) Peek() *Event {
	if len(q.events) == 0 {
		return nil
	}
	return q.events[0]
}

// PopFront removes and returns the earliest event, or nil if empty.
func (q *EventQueue) PopFront() *Event {
	if len(q.events) == 0 {
		return nil
	}
	ev := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	if len(q.events) == 0 {
		q.maxTime = -1
	}
	return ev
}

// RemoveFirst removes and returns the earliest event matching pred, or nil.
func (q *EventQueue) RemoveFirst(pred func(*Event) bool) *Event {
	for i, ev := range q.events {
		if pred(ev) {
			q.events = append(q.events[:i], q.events[i+1:]...)
			q.resetMaxTime()
			return ev
		}
	}
	return nil
}

// RemoveAll removes every event matching pred and returns how many were removed.
func (q *EventQueue) RemoveAll(pred func(*Event) bool) int {
	kept := q.events[:0]
	removed := 0
	for _, ev := range q.events {
		if pred(ev) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	for i := len(kept); i < len(q.events); i++ {
		q.events[i] = nil
	}
	q.events = kept
	if removed > 0 {
		q.resetMaxTime()
	}
	return removed
}

func (q *EventQueue) resetMaxTime() {
	if len(q.events) == 0 {
		q.maxTime = -1
		return
	}
	q.maxTime = q.events[len(q.events)-1].time
}

func (q *EventQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, ev := range q.events {
		sb.WriteString(fmt.Sprint(ev))
		if i < len(q.events)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
