package flow

import (
	"fmt"
	"math"

	"github.com/sarchlab/flowsim/resource"
	"github.com/sirupsen/logrus"
)

// Release is a station that gives capacity back to a resource and forwards
// the entity.
type Release struct {
	*StationBase

	resource CapacityReleaser
	amount   float64
}

// NewRelease creates a Release that returns amount units to r for every
// entity. The amount must be positive.
func NewRelease(name string, r CapacityReleaser, amount float64) *Release {
	if r == nil {
		panic("flow: resource is not set")
	}

	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		panic(fmt.Errorf("%w: release amount %v", resource.ErrCapacity, amount))
	}

	return &Release{
		StationBase: NewStationBase(name),
		resource:    r,
		amount:      amount,
	}
}

// Amount returns the capacity released for each entity.
func (r *Release) Amount() float64 {
	return r.amount
}

// Receive releases the capacity and forwards the entity. The entity is
// forwarded even if the resource rejects the release.
func (r *Release) Receive(entity Entity) {
	err := r.resource.ReleaseCapacity(r.amount)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"station": r.Name(),
			"entity":  entity.String(),
		}).Warnf("release failed: %v", err)
	}

	r.ReleaseEntity(entity)
}

var _ Station = (*Release)(nil)
