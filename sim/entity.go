package sim

// EntityState is the lifecycle state of a registered entity.
type EntityState int

const (
	StateCreated EntityState = iota
	StateRunning
	StateFinished
)

func (s EntityState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Entity is a participant of the simulation. The Simulator owns its lifecycle:
// Start is called once when the run begins (or on registration during a run),
// Handle once per event addressed to it, and Shutdown once when it receives
// TagEndOfSimulation or the run ends.
//
// Handlers never block. Work that must happen later is expressed by sending
// an event to self with a delay.
type Entity interface {
	Start()
	Handle(ev *Event)
	Shutdown()
}

type entityRecord struct {
	id     int
	name   string
	state  EntityState
	entity Entity
}
