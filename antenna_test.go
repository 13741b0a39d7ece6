package phydes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsotropicGainIsDirectionIndependent(t *testing.T) {
	iso := CreateIsotropicAntenna(3.0)

	dirs := []Angles{
		CreateAngles(0.0, math.Pi/2.0),
		CreateAngles(1.1, 0.3),
		CreateAngles(-2.7, 2.9),
		CreateAngles(3.0, 1.5),
		CreateAngles(-0.4, 0.0),
	}
	for _, d := range dirs {
		assert.Equal(t, 3.0, iso.GetGainDb(d))
	}
}

func TestThreeGppParabolicPattern(t *testing.T) {
	tga := DefaultThreeGppAntenna()

	// boresight: no attenuation, full element gain
	assert.InDelta(t, 8.0, tga.GetGainDb(CreateAngles(0.0, math.Pi/2.0)), 1e-9)

	// one horizontal beamwidth off boresight: 12 dB of horizontal
	// attenuation
	assert.InDelta(t, 8.0-12.0, tga.GetGainDb(CreateAngles(degToRad(65.0), math.Pi/2.0)), 1e-9)

	// one vertical beamwidth off boresight: 12 dB of vertical
	// attenuation
	assert.InDelta(t, 8.0-12.0, tga.GetGainDb(CreateAngles(0.0, degToRad(90.0+65.0))), 1e-9)

	// far off in both planes: total attenuation clips at A_max
	assert.InDelta(t, 8.0-30.0, tga.GetGainDb(CreateAngles(math.Pi, math.Pi)), 1e-9)
}

func TestThreeGppAntennaRejectsBadBeamwidth(t *testing.T) {
	assert.Panics(t, func() { CreateThreeGppAntenna(0.0, 65.0, 30.0, 30.0, 8.0) })
	assert.Panics(t, func() { CreateThreeGppAntenna(65.0, -1.0, 30.0, 30.0, 8.0) })
}

func TestCircularApertureBoresightAndMinGain(t *testing.T) {
	caa := CreateCircularApertureAntenna(0.5, 2.0e9, 30.0, -30.0)

	// boresight
	assert.InDelta(t, 30.0, caa.GetGainDb(CreateAngles(0.0, math.Pi/2.0)), 0.1)

	// 90 degrees from boresight (straight up)
	assert.InDelta(t, -30.0, caa.GetGainDb(CreateAngles(0.0, 0.0)), 0.1)

	// behind the aperture
	assert.InDelta(t, -30.0, caa.GetGainDb(CreateAngles(math.Pi, math.Pi/2.0)), 0.1)
}

func TestCircularApertureNearBoresightIsStable(t *testing.T) {
	caa := CreateCircularApertureAntenna(0.5, 2.0e9, 30.0, -30.0)

	// an off-boresight angle small enough that x = k*R*sin(theta)
	// underflows the direct quotient; the limiting value J1(x)/x -> 0.5
	// keeps the gain finite and at the peak
	g := caa.GetGainDb(CreateAngles(1e-12, math.Pi/2.0))
	require.False(t, math.IsNaN(g))
	require.False(t, math.IsInf(g, 0))
	assert.InDelta(t, 30.0, g, 1e-6)
}

func TestCircularApertureGainBounded(t *testing.T) {
	caa := CreateCircularApertureAntenna(0.5, 2.0e9, 30.0, -30.0)
	for incl := 0.05; incl < math.Pi; incl += 0.1 {
		for az := -3.1; az < math.Pi; az += 0.25 {
			g := caa.GetGainDb(CreateAngles(az, incl))
			assert.GreaterOrEqual(t, g, -30.0)
			assert.LessOrEqual(t, g, 30.0)
		}
	}
}

func TestCircularApertureRejectsBadConfig(t *testing.T) {
	assert.Panics(t, func() { CreateCircularApertureAntenna(0.0, 2.0e9, 30.0, -30.0) })
	assert.Panics(t, func() { CreateCircularApertureAntenna(0.5, 0.0, 30.0, -30.0) })
}

func TestWrapAzimuth(t *testing.T) {
	assert.InDelta(t, 0.0, wrapAzimuth(2.0*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, wrapAzimuth(-math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2.0, wrapAzimuth(3.0*math.Pi/2.0), 1e-12)
}

func TestAnglesFromVector(t *testing.T) {
	a := AnglesFromVector(Vec3{}, Vec3{X: 1.0})
	assert.InDelta(t, 0.0, a.Azimuth, 1e-12)
	assert.InDelta(t, math.Pi/2.0, a.Inclination, 1e-12)

	b := AnglesFromVector(Vec3{}, Vec3{Z: 5.0})
	assert.InDelta(t, 0.0, b.Inclination, 1e-12)

	assert.Panics(t, func() { AnglesFromVector(Vec3{X: 1.0}, Vec3{X: 1.0}) })
}
