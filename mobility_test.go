package phydes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantPositionMobility(t *testing.T) {
	mob := CreateConstantPositionMobility(7, Vec3{X: 1.0, Y: 2.0, Z: 3.0})
	assert.Equal(t, 7, mob.MobilityID())
	assert.Equal(t, Vec3{X: 1.0, Y: 2.0, Z: 3.0}, mob.Position(0.0))
	assert.Equal(t, mob.Position(0.0), mob.Position(1000.0))
	assert.Equal(t, Vec3{}, mob.Velocity())
}

func TestConstantVelocityMobility(t *testing.T) {
	mob := CreateConstantVelocityMobility(8, Vec3{X: 10.0}, 2.0, Vec3{X: 1.0, Y: -2.0})
	assert.Equal(t, 8, mob.MobilityID())

	// at the reference instant the node sits at the reference position
	assert.Equal(t, Vec3{X: 10.0}, mob.Position(2.0))

	p := mob.Position(5.0)
	assert.InDelta(t, 13.0, p.X, 1e-12)
	assert.InDelta(t, -6.0, p.Y, 1e-12)
	assert.Equal(t, Vec3{X: 1.0, Y: -2.0}, mob.Velocity())
}

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{X: 1.0, Y: 2.0, Z: 2.0}
	b := Vec3{X: 4.0, Y: 6.0, Z: 2.0}

	assert.Equal(t, Vec3{X: 5.0, Y: 8.0, Z: 4.0}, a.Add(b))
	assert.Equal(t, Vec3{X: 3.0, Y: 4.0, Z: 0.0}, b.Sub(a))
	assert.Equal(t, Vec3{X: 2.0, Y: 4.0, Z: 4.0}, a.Scale(2.0))
	assert.InDelta(t, 3.0, a.Norm(), 1e-12)
	assert.InDelta(t, 5.0, b.Sub(a).Norm(), 1e-12)
	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-12)
	assert.InDelta(t, 1.0*4.0+2.0*6.0+2.0*2.0, a.Dot(b), 1e-12)
}

func TestRotationPreservesNorm(t *testing.T) {
	rot := bearingDowntiltRotation(0.7, -0.3)
	v := Vec3{X: 1.0, Y: 2.0, Z: 3.0}
	assert.InDelta(t, v.Norm(), rot.apply(v).Norm(), 1e-12)

	// zero bearing and downtilt is the identity
	ident := bearingDowntiltRotation(0.0, 0.0)
	assert.Equal(t, v, ident.apply(v))
}

func TestUnitVectorRoundTrip(t *testing.T) {
	a := CreateAngles(0.4, 1.1)
	u := a.UnitVector()
	assert.InDelta(t, 1.0, u.Norm(), 1e-12)

	back := AnglesFromVector(Vec3{}, u)
	assert.InDelta(t, a.Azimuth, back.Azimuth, 1e-12)
	assert.InDelta(t, a.Inclination, back.Inclination, 1e-12)
	assert.False(t, math.IsNaN(back.Azimuth))
}
