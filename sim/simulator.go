// sim/simulator.go
package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Simulator is the core object that holds simulation time, the entity
// registry and the event loop. It is single-threaded: exactly one entity
// handler runs at a time, and events due at the same time are dispatched in
// the order they were sent.
type Simulator struct {
	clock       float64
	terminateAt float64
	// future holds every event that has been sent but not dispatched yet
	future    *EventQueue
	entities  []*entityRecord
	byName    map[string]int
	resources []int

	nextSerial int64
	dispatched int64
	running    bool
	hasRun     bool
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithTerminateAt stops the run once the next event is due after t.
func WithTerminateAt(t float64) Option {
	return func(s *Simulator) {
		s.terminateAt = t
	}
}

// NewSimulator creates an idle simulator with the clock at 0.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		terminateAt: math.Inf(1),
		future:      NewEventQueue(),
		byName:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds an entity and returns its id. Names must be unique.
// Entities registered while the run is in progress are started immediately.
func (s *Simulator) Register(name string, e Entity) (int, error) {
	if e == nil {
		return -1, fmt.Errorf("entity %q is nil", name)
	}
	if name == "" {
		return -1, fmt.Errorf("entity name cannot be empty")
	}
	if _, exists := s.byName[name]; exists {
		return -1, fmt.Errorf("entity %q already registered", name)
	}
	rec := &entityRecord{
		id:     len(s.entities),
		name:   name,
		state:  StateCreated,
		entity: e,
	}
	s.entities = append(s.entities, rec)
	s.byName[name] = rec.id
	if s.running {
		s.start(rec)
	}
	return rec.id, nil
}

// RegisterResource lists an entity in the resource registry that brokers
// query during discovery.
func (s *Simulator) RegisterResource(id int) error {
	if s.lookup(id) == nil {
		return fmt.Errorf("cannot register resource: unknown entity %d", id)
	}
	for _, r := range s.resources {
		if r == id {
			return nil
		}
	}
	s.resources = append(s.resources, id)
	return nil
}

// ResourceIDs returns the registered resource ids in registration order.
func (s *Simulator) ResourceIDs() []int {
	ids := make([]int, len(s.resources))
	copy(ids, s.resources)
	return ids
}

// Clock returns the current simulated time.
func (s *Simulator) Clock() float64 {
	return s.clock
}

// EntityName resolves an id, returning "" if unknown.
func (s *Simulator) EntityName(id int) string {
	if rec := s.lookup(id); rec != nil {
		return rec.name
	}
	return ""
}

// EntityID resolves a name.
func (s *Simulator) EntityID(name string) (int, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// State returns the lifecycle state of an entity.
func (s *Simulator) State(id int) EntityState {
	if rec := s.lookup(id); rec != nil {
		return rec.state
	}
	return StateFinished
}

// Pending returns the number of events not dispatched yet.
func (s *Simulator) Pending() int {
	return s.future.Len()
}

// Dispatched returns the number of events handed to entity handlers so far.
func (s *Simulator) Dispatched() int64 {
	return s.dispatched
}

// Send queues an event from src to dst, due delay time units from now.
// A delay of 0 is dispatched at the current clock, after every event already
// queued for that time.
func (s *Simulator) Send(src, dst int, delay float64, tag Tag, data any) {
	if delay < 0 || math.IsNaN(delay) {
		panic(fmt.Sprintf("Send: invalid delay %v for %s from %d to %d", delay, tag, src, dst))
	}
	s.nextSerial++
	s.future.Insert(&Event{
		time:   s.clock + delay,
		tag:    tag,
		src:    src,
		dst:    dst,
		data:   data,
		serial: s.nextSerial,
	})
}

// Cancel removes the earliest queued event sent by src that matches pred.
// Only an entity's own events can be cancelled.
func (s *Simulator) Cancel(src int, pred func(*Event) bool) *Event {
	return s.future.RemoveFirst(func(ev *Event) bool {
		return ev.src == src && pred(ev)
	})
}

// CancelAll removes every queued event sent by src that matches pred.
func (s *Simulator) CancelAll(src int, pred func(*Event) bool) int {
	return s.future.RemoveAll(func(ev *Event) bool {
		return ev.src == src && pred(ev)
	})
}

// Run starts every entity, then dispatches events in time order until the
// queue is drained or the termination time is passed. Entities still running
// at that point are shut down. Returns the final clock.
// Panics if called more than once.
func (s *Simulator) Run() float64 {
	if s.hasRun {
		panic("Simulator.Run() called more than once")
	}
	s.hasRun = true
	s.running = true
	logrus.Infof("Starting simulation with %d entities", len(s.entities))

	// index loop: Start may register more entities
	for i := 0; i < len(s.entities); i++ {
		if s.entities[i].state == StateCreated {
			s.start(s.entities[i])
		}
	}

	for s.future.Len() > 0 {
		next := s.future.Peek()
		if next.time > s.terminateAt {
			logrus.Infof("[t=%.4f] Termination time %.4f reached with %d events pending",
				s.clock, s.terminateAt, s.future.Len())
			break
		}
		if next.time < s.clock {
			panic(fmt.Sprintf("Clock went backwards: %v < %v", next.time, s.clock))
		}
		s.clock = next.time
		// everything due now, including zero-delay events sent while dispatching
		for s.future.Len() > 0 && s.future.Peek().time == s.clock {
			s.dispatch(s.future.PopFront())
		}
	}

	s.running = false
	for _, rec := range s.entities {
		if rec.state == StateRunning {
			s.shutdown(rec)
		}
	}
	logrus.Infof("[t=%.4f] Simulation ended after %d events", s.clock, s.dispatched)
	return s.clock
}

func (s *Simulator) dispatch(ev *Event) {
	rec := s.lookup(ev.dst)
	if rec == nil {
		logrus.Warnf("[t=%.4f] Dropping %v: unknown destination", s.clock, ev)
		return
	}
	if rec.state != StateRunning {
		logrus.Debugf("[t=%.4f] Dropping %v: %s is %s", s.clock, ev, rec.name, rec.state)
		return
	}
	s.dispatched++
	logrus.Debugf("[t=%.4f] Executing %v on %s", s.clock, ev, rec.name)
	if ev.tag == TagEndOfSimulation {
		s.shutdown(rec)
		return
	}
	rec.entity.Handle(ev)
}

func (s *Simulator) start(rec *entityRecord) {
	rec.state = StateRunning
	logrus.Infof("%s is starting...", rec.name)
	rec.entity.Start()
}

func (s *Simulator) shutdown(rec *entityRecord) {
	rec.state = StateFinished
	logrus.Infof("%s is shutting down...", rec.name)
	rec.entity.Shutdown()
}

func (s *Simulator) lookup(id int) *entityRecord {
	if id < 0 || id >= len(s.entities) {
		return nil
	}
	return s.entities[id]
}
