package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(q *EventQueue) (times []float64, labels []string) {
	for ev := range q.All() {
		times = append(times, ev.Time())
		if s, ok := ev.Data().(string); ok {
			labels = append(labels, s)
		}
	}
	return times, labels
}

func TestEventQueue_Insert_OrdersByTimeKeepingFIFOForTies(t *testing.T) {
	// GIVEN events inserted at times [5, 3, 3, 7]
	q := NewEventQueue()
	q.Insert(NewEvent(5, TagCloudletSubmit, 0, 1, "a"))
	q.Insert(NewEvent(3, TagCloudletSubmit, 0, 1, "b"))
	q.Insert(NewEvent(3, TagCloudletSubmit, 0, 1, "c"))
	q.Insert(NewEvent(7, TagCloudletSubmit, 0, 1, "d"))

	// WHEN iterating
	times, labels := collect(q)

	// THEN times are [3, 3, 5, 7] and the two 3s keep submission order
	assert.Equal(t, []float64{3, 3, 5, 7}, times)
	assert.Equal(t, []string{"b", "c", "a", "d"}, labels)
}

func TestEventQueue_Insert_EqualToTailAppends(t *testing.T) {
	q := NewEventQueue()
	for i, label := range []string{"x", "y", "z"} {
		q.Insert(NewEvent(2, TagVMCreate, i, 0, label))
	}
	_, labels := collect(q)
	assert.Equal(t, []string{"x", "y", "z"}, labels)
}

func TestEventQueue_Insert_EarlierTimeGoesAfterEqualTimes(t *testing.T) {
	// GIVEN [1, 4, 4, 9]
	q := NewEventQueue()
	q.Insert(NewEvent(1, TagVMCreate, 0, 0, "p"))
	q.Insert(NewEvent(4, TagVMCreate, 0, 0, "q"))
	q.Insert(NewEvent(4, TagVMCreate, 0, 0, "r"))
	q.Insert(NewEvent(9, TagVMCreate, 0, 0, "s"))

	// WHEN a new time-4 event arrives after the tail moved to 9
	q.Insert(NewEvent(4, TagVMCreate, 0, 0, "new"))

	// THEN it lands behind the existing 4s, before 9
	_, labels := collect(q)
	assert.Equal(t, []string{"p", "q", "r", "new", "s"}, labels)
}

func TestEventQueue_All_IsRestartableAndNonConsuming(t *testing.T) {
	q := NewEventQueue()
	q.Insert(NewEvent(1, TagVMCreate, 0, 0, nil))
	q.Insert(NewEvent(2, TagVMCreate, 0, 0, nil))

	first, _ := collect(q)
	second, _ := collect(q)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, q.Len())
}

func TestEventQueue_All_StopsEarly(t *testing.T) {
	q := NewEventQueue()
	for i := 0; i < 5; i++ {
		q.Insert(NewEvent(float64(i), TagVMCreate, 0, 0, nil))
	}
	seen := 0
	for range q.All() {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestEventQueue_PopFront_ReturnsEarliest(t *testing.T) {
	q := NewEventQueue()
	assert.Nil(t, q.PopFront())
	assert.Nil(t, q.Peek())

	q.Insert(NewEvent(8, TagVMCreate, 0, 0, "late"))
	q.Insert(NewEvent(2, TagVMCreate, 0, 0, "early"))

	require.Equal(t, "early", q.Peek().Data())
	assert.Equal(t, "early", q.PopFront().Data())
	assert.Equal(t, "late", q.PopFront().Data())
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_RemoveFirst_RemovesOnlyFirstMatch(t *testing.T) {
	q := NewEventQueue()
	q.Insert(NewEvent(1, TagVMDatacenterEvent, 0, 0, "a"))
	q.Insert(NewEvent(2, TagVMDatacenterEvent, 0, 0, "b"))
	q.Insert(NewEvent(3, TagCloudletReturn, 0, 0, "c"))

	removed := q.RemoveFirst(func(ev *Event) bool { return ev.Tag() == TagVMDatacenterEvent })

	require.NotNil(t, removed)
	assert.Equal(t, "a", removed.Data())
	_, labels := collect(q)
	assert.Equal(t, []string{"b", "c"}, labels)

	assert.Nil(t, q.RemoveFirst(func(ev *Event) bool { return ev.Tag() == TagVMMigrate }))
}

func TestEventQueue_RemoveAll_KeepsOrderAndTail(t *testing.T) {
	// GIVEN a queue whose tail is removed
	q := NewEventQueue()
	q.Insert(NewEvent(1, TagCloudletSubmit, 0, 0, "a"))
	q.Insert(NewEvent(2, TagVMDestroy, 0, 0, "b"))
	q.Insert(NewEvent(3, TagCloudletSubmit, 0, 0, "c"))
	q.Insert(NewEvent(10, TagVMDestroy, 0, 0, "d"))

	n := q.RemoveAll(func(ev *Event) bool { return ev.Tag() == TagVMDestroy })
	assert.Equal(t, 2, n)

	// WHEN inserting at a time between the survivors and the removed tail
	q.Insert(NewEvent(5, TagCloudletSubmit, 0, 0, "e"))
	q.Insert(NewEvent(4, TagCloudletSubmit, 0, 0, "f"))

	// THEN order is still by time
	times, labels := collect(q)
	assert.Equal(t, []float64{1, 3, 4, 5}, times)
	assert.Equal(t, []string{"a", "c", "f", "e"}, labels)
}

func TestEventQueue_Clear(t *testing.T) {
	q := NewEventQueue()
	q.Insert(NewEvent(4, TagVMCreate, 0, 0, "a"))
	q.Clear()
	assert.Equal(t, 0, q.Len())

	q.Insert(NewEvent(1, TagVMCreate, 0, 0, "b"))
	times, _ := collect(q)
	assert.Equal(t, []float64{1}, times)
}

func TestEventQueue_Insert_NilPanics(t *testing.T) {
	assert.Panics(t, func() { NewEventQueue().Insert(nil) })
}
