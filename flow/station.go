// Package flow provides the stations of a flow network: entities are created
// by a Generator, claim capacity at a Seize, spend time in a Delay, give the
// capacity back at a Release and leave through a Sink.
package flow

import (
	"strconv"
	"sync/atomic"

	"github.com/sarchlab/flowsim/sim"
)

// Entity is an opaque handle to a payload that travels through a flow
// network. Stations pass it along and never look behind it.
type Entity uint64

func (e Entity) String() string {
	return "Entity-" + strconv.FormatUint(uint64(e), 10)
}

// EntitySource hands out unique entity handles. Stations that create
// entities in one model should share a source.
type EntitySource struct {
	last atomic.Uint64
}

// NewEntitySource creates a source whose first handle is 1.
func NewEntitySource() *EntitySource {
	return &EntitySource{}
}

// Next returns a new entity handle.
func (s *EntitySource) Next() Entity {
	return Entity(s.last.Add(1))
}

// A Station is a node in a flow network with a single outgoing link.
type Station interface {
	sim.Hookable

	Name() string

	// SetDestination links the station to the next station in the flow.
	SetDestination(next Station)

	// Destination returns the next station, or nil if the station is the end
	// of the flow.
	Destination() Station

	// Receive accepts an entity from an upstream station.
	Receive(entity Entity)
}

// StationBase implements the linking part of a Station.
type StationBase struct {
	*sim.HookableBase

	name        string
	destination Station
}

// NewStationBase creates a StationBase.
func NewStationBase(name string) *StationBase {
	return &StationBase{
		HookableBase: sim.NewHookableBase(),
		name:         name,
	}
}

// Name returns the name of the station.
func (s *StationBase) Name() string {
	return s.name
}

// SetDestination links the station to the next station.
func (s *StationBase) SetDestination(next Station) {
	s.destination = next
}

// Destination returns the next station.
func (s *StationBase) Destination() Station {
	return s.destination
}

// ReleaseEntity forwards the entity to the destination. Entities released by
// a station without a destination leave the flow.
func (s *StationBase) ReleaseEntity(entity Entity) {
	if s.destination == nil {
		return
	}

	s.destination.Receive(entity)
}

// Connect links the stations in the given order and returns the first one.
func Connect(stations ...Station) Station {
	for i := 0; i+1 < len(stations); i++ {
		stations[i].SetDestination(stations[i+1])
	}

	if len(stations) == 0 {
		return nil
	}

	return stations[0]
}
