package resource

import (
	"fmt"
	"math"
)

// MinTimeBetweenEvents is the smallest gap a scheduler will ask to be woken
// up after.
const MinTimeBetweenEvents = 0.01

// finishedEpsilon is the remaining length, in MI, below which a cloudlet is done.
const finishedEpsilon = 1e-6

// CloudletScheduler runs cloudlets on the MIPS shares granted to one VM.
type CloudletScheduler interface {
	// Submit starts executing cl at now.
	Submit(cl *Cloudlet, now float64)
	// UpdateProcessing advances every running cloudlet to now using shares,
	// and returns the absolute time of the next completion, or 0 if nothing
	// is running.
	UpdateProcessing(now float64, shares []float64) float64
	// TakeFinished returns cloudlets finished since the last call.
	TakeFinished() []*Cloudlet
	Running() int
	// BusyPEs is the number of virtual PEs in use at now, weighted by each
	// cloudlet's utilization.
	BusyPEs(now float64) float64
	// FailAll marks every running cloudlet failed at now; they are returned by
	// the next TakeFinished.
	FailAll(now float64)
}

// ValidCloudletSchedulers is the set of recognized cloudlet scheduler names.
var ValidCloudletSchedulers = map[string]bool{"": true, "time-shared": true}

// IsValidCloudletScheduler reports whether name is a recognized cloudlet scheduler.
func IsValidCloudletScheduler(name string) bool {
	return ValidCloudletSchedulers[name]
}

// NewCloudletScheduler creates a cloudlet scheduler by name. An empty string
// selects "time-shared". Panics on unrecognized names.
func NewCloudletScheduler(name string) CloudletScheduler {
	if !IsValidCloudletScheduler(name) {
		panic(fmt.Sprintf("unknown cloudlet scheduler %q", name))
	}
	switch name {
	case "", "time-shared":
		return NewTimeSharedScheduler()
	default:
		panic(fmt.Sprintf("unhandled cloudlet scheduler %q", name))
	}
}

// TimeSharedScheduler runs every submitted cloudlet at once, splitting the
// VM's capacity evenly across the PEs they ask for.
type TimeSharedScheduler struct {
	running      []*Cloudlet
	finished     []*Cloudlet
	previousTime float64
}

// NewTimeSharedScheduler creates an idle scheduler.
func NewTimeSharedScheduler() *TimeSharedScheduler {
	return &TimeSharedScheduler{}
}

func (s *TimeSharedScheduler) Submit(cl *Cloudlet, now float64) {
	if len(s.running) == 0 {
		s.previousTime = now
	}
	cl.status = CloudletInExec
	cl.startTime = now
	cl.remaining = cl.length
	s.running = append(s.running, cl)
}

func (s *TimeSharedScheduler) UpdateProcessing(now float64, shares []float64) float64 {
	dt := now - s.previousTime
	s.previousTime = now
	if len(s.running) == 0 {
		return 0
	}

	capacity := s.capacity(shares)
	still := s.running[:0]
	for _, cl := range s.running {
		if dt > 0 {
			cl.remaining -= capacity * float64(cl.numPEs) * cl.cpuModel.Utilization(now) * dt
		}
		if cl.remaining < finishedEpsilon {
			cl.remaining = 0
			cl.status = CloudletSuccess
			cl.finishTime = now
			s.finished = append(s.finished, cl)
			continue
		}
		still = append(still, cl)
	}
	clear(s.running[len(still):])
	s.running = still
	if len(s.running) == 0 {
		return 0
	}

	// capacity changes as soon as the set of running cloudlets does
	capacity = s.capacity(shares)
	next := math.Inf(1)
	for _, cl := range s.running {
		rate := capacity * float64(cl.numPEs) * cl.cpuModel.Utilization(now)
		if rate <= 0 {
			continue
		}
		at := now + cl.remaining/rate
		if at-now < MinTimeBetweenEvents {
			at = now + MinTimeBetweenEvents
		}
		next = min(next, at)
	}
	if math.IsInf(next, 1) {
		return 0
	}
	return next
}

// capacity is the MIPS each requested PE gets.
func (s *TimeSharedScheduler) capacity(shares []float64) float64 {
	total := 0.0
	for _, m := range shares {
		total += m
	}
	pesInUse := 0
	for _, cl := range s.running {
		pesInUse += cl.numPEs
	}
	div := max(pesInUse, len(shares))
	if div == 0 {
		return 0
	}
	return total / float64(div)
}

func (s *TimeSharedScheduler) TakeFinished() []*Cloudlet {
	out := s.finished
	s.finished = nil
	return out
}

func (s *TimeSharedScheduler) Running() int { return len(s.running) }

func (s *TimeSharedScheduler) BusyPEs(now float64) float64 {
	busy := 0.0
	for _, cl := range s.running {
		busy += float64(cl.numPEs) * cl.cpuModel.Utilization(now)
	}
	return busy
}

func (s *TimeSharedScheduler) FailAll(now float64) {
	for _, cl := range s.running {
		cl.Fail(now)
		s.finished = append(s.finished, cl)
	}
	s.running = nil
}
