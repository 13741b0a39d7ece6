package phydes

// phasedarray.go holds the phased antenna array models.  An array
// composes many copies of an antenna element at computed spatial
// positions, and produces the per-element complex vectors (steering,
// beamforming) that the channel and spectrum models contract against.

import (
	"fmt"
	"math"
	"math/cmplx"
)

// PhasedArrayModel is the capability shared by all antenna array
// geometries: per-element positions, the element field pattern in the
// global frame, and per-element complex weight vectors.
type PhasedArrayModel interface {
	// NumElems returns the number of antenna elements
	NumElems() int

	// ElementLocation returns the position of element idx in
	// wavelength-normalized units, in the global frame
	ElementLocation(idx int) Vec3

	// ElementFieldPattern returns the horizontal (phi) and vertical
	// (theta) polarization field components of one element toward
	// direction a, in the global frame
	ElementFieldPattern(a Angles) (fieldPhi, fieldTheta float64)

	// SteeringVector returns the phase-only per-element response of a
	// plane wave arriving from direction a
	SteeringVector(a Angles) []complex128

	// GetBeamformingVector returns a copy of the currently set weight
	// vector
	GetBeamformingVector() []complex128

	// SetBeamformingVector installs a copy of the given weight vector
	SetBeamformingVector(w []complex128)

	// BeamformingGeneration counts SetBeamformingVector calls, letting
	// downstream caches detect weight changes cheaply
	BeamformingGeneration() uint64
}

// UniformPlanarArray is a rows x columns rectangular grid of identical
// antenna elements with uniform spacing, rotated by a bearing angle
// about vertical and a downtilt angle below horizontal.
type UniformPlanarArray struct {
	numRows    int
	numColumns int

	// element spacings in wavelengths
	rowSpacing    float64
	columnSpacing float64

	// orientation, radians
	bearing  float64
	downtilt float64

	// the element replicated across the grid
	antenna AntennaModel

	// local-to-global rotation derived from bearing/downtilt; rebuilt
	// whenever the orientation changes
	rot rotMatrix

	// currently installed weight vector.  bfDirty is set when a
	// geometry change invalidates the vector's dimension or phasing.
	bfVector []complex128
	bfDirty  bool
	bfGen    uint64
}

// CreateUniformPlanarArray is a constructor.  Row and column counts
// must be positive and spacings (in wavelengths) must be positive.
func CreateUniformPlanarArray(numRows, numColumns int, rowSpacing, columnSpacing float64,
	bearing, downtilt float64, antenna AntennaModel) *UniformPlanarArray {

	if numRows < 1 || numColumns < 1 {
		panic(fmt.Sprintf("non-positive array dimension %dx%d", numRows, numColumns))
	}
	if rowSpacing <= 0.0 || columnSpacing <= 0.0 {
		panic(fmt.Sprintf("non-positive element spacing (%f,%f)", rowSpacing, columnSpacing))
	}
	if antenna == nil {
		panic("UniformPlanarArray requires an antenna element model")
	}

	upa := new(UniformPlanarArray)
	upa.numRows = numRows
	upa.numColumns = numColumns
	upa.rowSpacing = rowSpacing
	upa.columnSpacing = columnSpacing
	upa.bearing = bearing
	upa.downtilt = downtilt
	upa.antenna = antenna
	upa.rot = bearingDowntiltRotation(bearing, downtilt)
	upa.bfDirty = true
	return upa
}

// NumElems returns the element count of the grid
func (upa *UniformPlanarArray) NumElems() int {
	return upa.numRows * upa.numColumns
}

// SetNumRows changes the grid height and invalidates the beamforming vector
func (upa *UniformPlanarArray) SetNumRows(rows int) {
	if rows < 1 {
		panic(fmt.Sprintf("non-positive row count %d", rows))
	}
	upa.numRows = rows
	upa.invalidateBeamforming()
}

// SetNumColumns changes the grid width and invalidates the beamforming vector
func (upa *UniformPlanarArray) SetNumColumns(cols int) {
	if cols < 1 {
		panic(fmt.Sprintf("non-positive column count %d", cols))
	}
	upa.numColumns = cols
	upa.invalidateBeamforming()
}

// SetRowSpacing changes the vertical element spacing (wavelengths) and
// invalidates the beamforming vector
func (upa *UniformPlanarArray) SetRowSpacing(spacing float64) {
	if spacing <= 0.0 {
		panic(fmt.Sprintf("non-positive row spacing %f", spacing))
	}
	upa.rowSpacing = spacing
	upa.invalidateBeamforming()
}

// SetColumnSpacing changes the horizontal element spacing (wavelengths)
// and invalidates the beamforming vector
func (upa *UniformPlanarArray) SetColumnSpacing(spacing float64) {
	if spacing <= 0.0 {
		panic(fmt.Sprintf("non-positive column spacing %f", spacing))
	}
	upa.columnSpacing = spacing
	upa.invalidateBeamforming()
}

func (upa *UniformPlanarArray) invalidateBeamforming() {
	upa.bfVector = nil
	upa.bfDirty = true
}

// ElementLocation decomposes a row-major element index into its grid
// coordinates and returns the element position, in wavelengths, in the
// global frame.
func (upa *UniformPlanarArray) ElementLocation(idx int) Vec3 {
	if idx < 0 || idx >= upa.NumElems() {
		panic(fmt.Sprintf("element index %d outside %dx%d array", idx, upa.numRows, upa.numColumns))
	}

	row := idx / upa.numColumns
	col := idx % upa.numColumns

	// the unrotated grid lies in the local y-z plane, boresight +x
	local := Vec3{
		X: 0.0,
		Y: float64(col) * upa.columnSpacing,
		Z: float64(row) * upa.rowSpacing,
	}
	return upa.rot.apply(local)
}

// ElementFieldPattern rotates the global direction into the array's
// local frame, evaluates the element gain there, and projects the
// resulting field magnitude back into global polarization components
// through the polarization rotation angle psi.  Element patterns are
// defined locally but element contributions are summed globally, which
// is why the two-step rotate-then-project is required.
func (upa *UniformPlanarArray) ElementFieldPattern(a Angles) (float64, float64) {
	// global direction into the local frame
	localDir := upa.rot.transpose().apply(a.UnitVector())
	localAngles := Angles{
		Azimuth:     wrapAzimuth(math.Atan2(localDir.Y, localDir.X)),
		Inclination: math.Acos(math.Max(-1.0, math.Min(1.0, localDir.Z))),
	}

	// field magnitude of the vertically polarized element
	amp := math.Pow(10.0, upa.antenna.GetGainDb(localAngles)/20.0)

	// polarization rotation between the local and global theta/phi
	// bases, TR 38.901 eq. 7.1-15 with zero slant
	sinTheta := math.Sin(a.Inclination)
	cosTheta := math.Cos(a.Inclination)
	dAz := a.Azimuth - upa.bearing
	re := math.Cos(upa.downtilt)*sinTheta + math.Sin(upa.downtilt)*cosTheta*math.Cos(dAz)
	im := math.Sin(upa.downtilt) * math.Sin(dAz)
	psi := math.Atan2(im, re)

	fieldTheta := amp * math.Cos(psi)
	fieldPhi := amp * math.Sin(psi)
	return fieldPhi, fieldTheta
}

// SteeringVector returns one phase-only complex entry per element, the
// relative phase a plane wave from direction a accumulates at that
// element's position.  Positions are in wavelengths so the phase is
// just 2*pi times the projection onto the propagation direction.
func (upa *UniformPlanarArray) SteeringVector(a Angles) []complex128 {
	dir := a.UnitVector()
	sv := make([]complex128, upa.NumElems())
	for idx := range sv {
		phase := 2.0 * math.Pi * upa.ElementLocation(idx).Dot(dir)
		sv[idx] = cmplx.Exp(complex(0.0, phase))
	}
	return sv
}

// GenerateBeamformingVector installs the default weight vector for
// direction a: the conjugated steering vector, normalized to unit
// power, so the array focuses toward a.
func (upa *UniformPlanarArray) GenerateBeamformingVector(a Angles) {
	sv := upa.SteeringVector(a)
	norm := math.Sqrt(float64(len(sv)))
	w := make([]complex128, len(sv))
	for idx, v := range sv {
		w[idx] = cmplx.Conj(v) / complex(norm, 0.0)
	}
	upa.SetBeamformingVector(w)
}

// SetBeamformingVector installs an explicit weight vector.  Its length
// must match the element count of the current geometry.  The vector is
// copied: every weight change must pass through here so the generation
// counter stays truthful for downstream caches.
func (upa *UniformPlanarArray) SetBeamformingVector(w []complex128) {
	if len(w) != upa.NumElems() {
		panic(fmt.Sprintf("beamforming vector length %d does not match %d elements",
			len(w), upa.NumElems()))
	}
	upa.bfVector = make([]complex128, len(w))
	copy(upa.bfVector, w)
	upa.bfDirty = false
	upa.bfGen += 1
}

// GetBeamformingVector returns a copy of the installed weight vector.
// Serving a vector that geometry changes have invalidated would
// silently corrupt downstream products, so a dirty vector is a caller
// error.
func (upa *UniformPlanarArray) GetBeamformingVector() []complex128 {
	if upa.bfDirty {
		panic("beamforming vector invalid after geometry change; regenerate it first")
	}
	w := make([]complex128, len(upa.bfVector))
	copy(w, upa.bfVector)
	return w
}

// BeamformingGeneration reports how many times the weight vector has
// been replaced
func (upa *UniformPlanarArray) BeamformingGeneration() uint64 {
	return upa.bfGen
}
