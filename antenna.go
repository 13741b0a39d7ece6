package phydes

// antenna.go holds the antenna element models.  Each model is a pure
// mapping from a direction to a gain in dB; directionality comes from
// the array layer, which rotates directions into the element's local
// frame before asking for gain.

import (
	"fmt"
	"math"
)

// AntennaModel computes the radiation gain of a single antenna element
// in a given direction, expressed in dB relative to isotropic.
type AntennaModel interface {
	GetGainDb(a Angles) float64
}

// IsotropicAntenna radiates the same configured gain in all directions
type IsotropicAntenna struct {
	gainDb float64
}

// CreateIsotropicAntenna is a constructor
func CreateIsotropicAntenna(gainDb float64) *IsotropicAntenna {
	return &IsotropicAntenna{gainDb: gainDb}
}

// GetGainDb returns the configured gain, independent of direction
func (iso *IsotropicAntenna) GetGainDb(a Angles) float64 {
	return iso.gainDb
}

// ThreeGppAntenna implements the parabolic element pattern of 3GPP TR
// 38.901 Table 7.3-1: independent vertical and horizontal attenuation
// terms, each clipped at a configured maximum, subtracted from a peak
// element gain.
type ThreeGppAntenna struct {
	verticalBeamwidthDeg   float64
	horizontalBeamwidthDeg float64
	maxAttenuationDb       float64 // A_max, clip for both the horizontal term and the total
	sideLobeLimitDb        float64 // SLA_V, clip for the vertical term
	maxGainDb              float64 // G_E,max, peak element gain
}

// CreateThreeGppAntenna is a constructor.  Beamwidths are in degrees
// and must be positive.
func CreateThreeGppAntenna(vBeamwidthDeg, hBeamwidthDeg, aMaxDb, slaVDb, geMaxDb float64) *ThreeGppAntenna {
	if vBeamwidthDeg <= 0.0 || hBeamwidthDeg <= 0.0 {
		panic(fmt.Sprintf("non-positive beamwidth (%f,%f) in ThreeGppAntenna", vBeamwidthDeg, hBeamwidthDeg))
	}
	return &ThreeGppAntenna{
		verticalBeamwidthDeg:   vBeamwidthDeg,
		horizontalBeamwidthDeg: hBeamwidthDeg,
		maxAttenuationDb:       aMaxDb,
		sideLobeLimitDb:        slaVDb,
		maxGainDb:              geMaxDb,
	}
}

// DefaultThreeGppAntenna returns the element of Table 7.3-1: 65 degree
// beamwidths, 30 dB clips, 8 dB peak gain.
func DefaultThreeGppAntenna() *ThreeGppAntenna {
	return CreateThreeGppAntenna(65.0, 65.0, 30.0, 30.0, 8.0)
}

// GetGainDb evaluates the clipped-parabolic pattern.  The formula is
// defined over the whole direction domain, so there are no special
// cases here.
func (tga *ThreeGppAntenna) GetGainDb(a Angles) float64 {
	thetaDeg := radToDeg(a.Inclination)
	phiDeg := radToDeg(a.Azimuth)

	vertGainDb := -math.Min(tga.sideLobeLimitDb,
		12.0*math.Pow((thetaDeg-90.0)/tga.verticalBeamwidthDeg, 2.0))
	horizGainDb := -math.Min(tga.maxAttenuationDb,
		12.0*math.Pow(phiDeg/tga.horizontalBeamwidthDeg, 2.0))

	return tga.maxGainDb - math.Min(tga.maxAttenuationDb, -(vertGainDb+horizGainDb))
}

// CircularApertureAntenna models a uniformly illuminated circular
// aperture (e.g. a parabolic reflector) through the Airy pattern
// 4*(J1(x)/x)^2, where J1 is the first-order Bessel function of the
// first kind and x = k*R*sin(theta) for off-boresight angle theta.
type CircularApertureAntenna struct {
	apertureRadiusM float64
	operatingFreqHz float64
	maxGainDb       float64
	minGainDb       float64

	// boresight direction of the aperture
	orientation Angles
}

// CreateCircularApertureAntenna is a constructor.  Radius and frequency
// must be positive.  The default orientation points the boresight along
// the +x axis (azimuth 0, inclination pi/2).
func CreateCircularApertureAntenna(radiusM, freqHz, maxGainDb, minGainDb float64) *CircularApertureAntenna {
	if radiusM <= 0.0 {
		panic(fmt.Sprintf("non-positive aperture radius %f", radiusM))
	}
	if freqHz <= 0.0 {
		panic(fmt.Sprintf("non-positive operating frequency %f", freqHz))
	}
	return &CircularApertureAntenna{
		apertureRadiusM: radiusM,
		operatingFreqHz: freqHz,
		maxGainDb:       maxGainDb,
		minGainDb:       minGainDb,
		orientation:     Angles{Azimuth: 0.0, Inclination: math.Pi / 2.0},
	}
}

// SetOrientation points the aperture boresight in the given direction
func (caa *CircularApertureAntenna) SetOrientation(a Angles) {
	caa.orientation = a
}

// GetGainDb computes the aperture gain toward direction a.  The pattern
// has no defined behavior behind the aperture plane, so any direction
// at or beyond 90 degrees from boresight is clamped to the minimum
// gain, a documented approximation.
func (caa *CircularApertureAntenna) GetGainDb(a Angles) float64 {
	// angle between boresight and the incoming ray from the dot
	// product of the two unit vectors
	cosTheta := caa.orientation.UnitVector().Dot(a.UnitVector())

	// finite precision can push the dot product epsilon outside [-1,1]
	cosTheta = math.Max(-1.0, math.Min(1.0, cosTheta))
	theta := math.Acos(cosTheta)

	if theta == 0.0 {
		return caa.maxGainDb
	}
	if theta >= math.Pi/2.0 {
		return caa.minGainDb
	}

	k := 2.0 * math.Pi * caa.operatingFreqHz / speedOfLight
	x := k * caa.apertureRadiusM * math.Sin(theta)

	// J1(x)/x has the finite limit 0.5 as x -> 0; take the limiting
	// value rather than dividing by a denormal
	var j1OverX float64
	if math.Abs(x) < 1e-9 {
		j1OverX = 0.5
	} else {
		j1OverX = math.J1(x) / x
	}

	gainDb := 10.0*math.Log10(4.0*j1OverX*j1OverX) + caa.maxGainDb
	return math.Max(gainDb, caa.minGainDb)
}

// speedOfLight in m/s
const speedOfLight = 299792458.0
