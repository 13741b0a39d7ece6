package phydes

// mobility.go holds the minimal mobility abstraction the channel layer
// needs: an identity for cache keying, a position for geometry, and a
// velocity for Doppler.  Richer movement models live outside this
// module and only need to satisfy the interface.

import "fmt"

// Mobility identifies a simulated node's kinematic state.  IDs must be
// unique across all mobilities participating in one channel model; the
// channel cache keys on them.
type Mobility interface {
	MobilityID() int

	// Position at virtual time t (seconds)
	Position(t float64) Vec3

	// Velocity in m/s
	Velocity() Vec3
}

// ConstantPositionMobility is a node that never moves
type ConstantPositionMobility struct {
	id  int
	pos Vec3
}

// CreateConstantPositionMobility is a constructor
func CreateConstantPositionMobility(id int, pos Vec3) *ConstantPositionMobility {
	return &ConstantPositionMobility{id: id, pos: pos}
}

func (cpm *ConstantPositionMobility) MobilityID() int         { return cpm.id }
func (cpm *ConstantPositionMobility) Position(t float64) Vec3 { return cpm.pos }
func (cpm *ConstantPositionMobility) Velocity() Vec3          { return Vec3{} }

// SetPosition relocates the node
func (cpm *ConstantPositionMobility) SetPosition(pos Vec3) {
	cpm.pos = pos
}

// ConstantVelocityMobility extrapolates a straight-line trajectory from
// a reference position and time
type ConstantVelocityMobility struct {
	id      int
	refPos  Vec3
	refTime float64
	vel     Vec3
}

// CreateConstantVelocityMobility is a constructor.  refTime is the
// virtual time (seconds) at which the node is at refPos.
func CreateConstantVelocityMobility(id int, refPos Vec3, refTime float64, vel Vec3) *ConstantVelocityMobility {
	if refTime < 0.0 {
		panic(fmt.Sprintf("negative mobility reference time %f", refTime))
	}
	return &ConstantVelocityMobility{id: id, refPos: refPos, refTime: refTime, vel: vel}
}

func (cvm *ConstantVelocityMobility) MobilityID() int { return cvm.id }

func (cvm *ConstantVelocityMobility) Position(t float64) Vec3 {
	return cvm.refPos.Add(cvm.vel.Scale(t - cvm.refTime))
}

func (cvm *ConstantVelocityMobility) Velocity() Vec3 { return cvm.vel }
