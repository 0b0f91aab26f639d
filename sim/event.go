package sim

import "fmt"

// Tag identifies the type of an event. Values follow the CloudSim numbering so
// externally implemented entities can interoperate on the same vocabulary.
type Tag int

const (
	// TagEndOfSimulation shuts the destination entity down.
	TagEndOfSimulation Tag = -1

	// TagResourceCharacteristics carries a characteristics request (payload: the
	// requester id) towards a datacenter and its reply back to the requester.
	TagResourceCharacteristics Tag = 6
	// TagResourceCharacteristicsRequest is the broker's self-event that starts discovery.
	TagResourceCharacteristicsRequest Tag = 15

	TagCloudletReturn Tag = 20
	TagCloudletSubmit Tag = 21

	// TagVMCreate requests a VM without expecting an acknowledgement.
	TagVMCreate Tag = 32
	// TagVMCreateAck requests a VM and is also the tag of the acknowledgement
	// (payload: []int{datacenterID, vmID, True|False}).
	TagVMCreateAck  Tag = 33
	TagVMDestroy    Tag = 34
	TagVMDestroyAck Tag = 35
	TagVMMigrate    Tag = 36

	// TagVMDatacenterEvent is a datacenter's internal processing tick.
	TagVMDatacenterEvent Tag = 41
)

// Flag values used inside integer payloads.
const (
	False = 0
	True  = 1
)

var tagNames = map[Tag]string{
	TagEndOfSimulation:                "END_OF_SIMULATION",
	TagResourceCharacteristics:        "RESOURCE_CHARACTERISTICS",
	TagResourceCharacteristicsRequest: "RESOURCE_CHARACTERISTICS_REQUEST",
	TagCloudletReturn:                 "CLOUDLET_RETURN",
	TagCloudletSubmit:                 "CLOUDLET_SUBMIT",
	TagVMCreate:                       "VM_CREATE",
	TagVMCreateAck:                    "VM_CREATE_ACK",
	TagVMDestroy:                      "VM_DESTROY",
	TagVMDestroyAck:                   "VM_DESTROY_ACK",
	TagVMMigrate:                      "VM_MIGRATE",
	TagVMDatacenterEvent:              "VM_DATACENTER_EVENT",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TAG(%d)", int(t))
}

// Event is a message between two entities, due at a point in simulated time.
// Fields are unexported so an event cannot change once it has been queued.
type Event struct {
	time   float64 // due time
	tag    Tag
	src    int
	dst    int
	data   any
	serial int64 // submission order, for logging and tests
}

// NewEvent builds a standalone event. The kernel builds its own through Send;
// this constructor exists for queue users outside the dispatch loop.
func NewEvent(time float64, tag Tag, src, dst int, data any) *Event {
	return &Event{time: time, tag: tag, src: src, dst: dst, data: data}
}

// Time returns the due time of the event.
func (e *Event) Time() float64 { return e.time }

// Tag returns the event type.
func (e *Event) Tag() Tag { return e.tag }

// Source returns the id of the sending entity.
func (e *Event) Source() int { return e.src }

// Destination returns the id of the receiving entity.
func (e *Event) Destination() int { return e.dst }

// Data returns the payload. Payload shapes are fixed per tag, see the Tag constants.
func (e *Event) Data() any { return e.data }

// Serial returns the kernel-assigned submission number (0 for NewEvent events).
func (e *Event) Serial() int64 { return e.serial }

func (e *Event) String() string {
	return fmt.Sprintf("Event{t=%.4f %s %d->%d #%d}", e.time, e.tag, e.src, e.dst, e.serial)
}
