package phydes

// geom.go holds the small amount of 3D vector and rotation machinery
// needed by the antenna and phased array models.  Directions are
// exchanged between global and array-local coordinate frames through
// the bearing/downtilt rotation defined here.

import "math"

// Vec3 is a point or direction in 3D cartesian space.  Units depend on
// context: meters for mobility positions, wavelengths for antenna
// element locations.
type Vec3 struct {
	X, Y, Z float64
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Scale returns v multiplied by scalar s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// rotMatrix is a 3x3 rotation matrix stored row-major.
type rotMatrix [3][3]float64

// apply multiplies the matrix against a vector.
func (r rotMatrix) apply(v Vec3) Vec3 {
	return Vec3{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// transpose returns the transpose, which for a rotation matrix is its
// inverse.
func (r rotMatrix) transpose() rotMatrix {
	var t rotMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = r[j][i]
		}
	}
	return t
}

// bearingDowntiltRotation builds the local-to-global rotation for an
// array whose boresight is turned by 'bearing' radians about the z axis
// and tipped down by 'downtilt' radians about the resulting y axis.
// This is the alpha/beta composition of TR 38.901 section 7.1 with the
// third (slant) angle fixed at zero.
func bearingDowntiltRotation(bearing, downtilt float64) rotMatrix {
	ca, sa := math.Cos(bearing), math.Sin(bearing)
	cb, sb := math.Cos(downtilt), math.Sin(downtilt)

	// Rz(bearing) * Ry(downtilt)
	return rotMatrix{
		{ca * cb, -sa, ca * sb},
		{sa * cb, ca, sa * sb},
		{-sb, 0, cb},
	}
}
