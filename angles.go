package phydes

// angles.go defines the spherical direction descriptor used throughout
// the antenna, array, and channel models.

import (
	"fmt"
	"math"
)

// Angles is an immutable spherical direction: azimuth measured in the
// x-y plane from the x axis, inclination measured down from the z axis
// (so inclination pi/2 lies in the horizontal plane).
type Angles struct {
	// Azimuth in radians, normalized into (-pi, pi]
	Azimuth float64

	// Inclination in radians, in [0, pi]
	Inclination float64
}

// CreateAngles is a constructor.  The azimuth is wrapped into (-pi, pi];
// an inclination outside [0, pi] is a caller error and panics.
func CreateAngles(azimuth, inclination float64) Angles {
	if inclination < 0.0 || inclination > math.Pi {
		panic(fmt.Sprintf("inclination %f outside of [0,pi]", inclination))
	}
	return Angles{Azimuth: wrapAzimuth(azimuth), Inclination: inclination}
}

// AnglesFromVector returns the direction of the vector from 'from' to
// 'to'.  The zero-length vector has no direction and panics.
func AnglesFromVector(from, to Vec3) Angles {
	d := to.Sub(from)
	r := d.Norm()
	if r == 0.0 {
		panic("direction requested between coincident points")
	}
	return Angles{
		Azimuth:     wrapAzimuth(math.Atan2(d.Y, d.X)),
		Inclination: math.Acos(d.Z / r),
	}
}

// UnitVector returns the cartesian unit vector pointing along the
// direction.
func (a Angles) UnitVector() Vec3 {
	si := math.Sin(a.Inclination)
	return Vec3{
		X: si * math.Cos(a.Azimuth),
		Y: si * math.Sin(a.Azimuth),
		Z: math.Cos(a.Inclination),
	}
}

// wrapAzimuth folds an arbitrary angle into (-pi, pi]
func wrapAzimuth(az float64) float64 {
	az = math.Mod(az, 2.0*math.Pi)
	if az <= -math.Pi {
		az += 2.0 * math.Pi
	} else if az > math.Pi {
		az -= 2.0 * math.Pi
	}
	return az
}

// degToRad and radToDeg convert between the radian convention used by
// Angles and the degree convention of the 3GPP element pattern formulas
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
