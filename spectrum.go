package phydes

// spectrum.go holds the spectrum signal model, which turns a transmit
// power spectral density into a receive one by contracting the channel
// matrix with the two arrays' beamforming vectors (the long-term
// component) and applying per-cluster delay and Doppler phasing per
// frequency bin.

import (
	"fmt"
	"math"
	"math/cmplx"
)

// SpectrumValues is a power spectral density sampled at a set of
// frequency bins.  Bins are center frequencies in Hz, Values are W/Hz.
type SpectrumValues struct {
	Bins   []float64
	Values []float64
}

// CreateSpectrumValues is a constructor; the two slices must agree in
// length
func CreateSpectrumValues(bins, values []float64) *SpectrumValues {
	if len(bins) != len(values) {
		panic(fmt.Sprintf("spectrum with %d bins but %d values", len(bins), len(values)))
	}
	return &SpectrumValues{Bins: bins, Values: values}
}

// FlatSpectrum builds a PSD with numBins bins of width binWidth
// centered on centerFreq, each carrying the same density
func FlatSpectrum(centerFreqHz, binWidthHz float64, numBins int, density float64) *SpectrumValues {
	bins := make([]float64, numBins)
	values := make([]float64, numBins)
	span := float64(numBins-1) / 2.0
	for i := range bins {
		bins[i] = centerFreqHz + (float64(i)-span)*binWidthHz
		values[i] = density
	}
	return &SpectrumValues{Bins: bins, Values: values}
}

// TotalPower integrates the PSD assuming uniform bin width
func (sv *SpectrumValues) TotalPower(binWidthHz float64) float64 {
	total := 0.0
	for _, v := range sv.Values {
		total += v * binWidthHz
	}
	return total
}

// ltKey identifies a long-term cache slot: the node pair plus which
// side is receiving, since the two orientations contract different
// matrix views
type ltKey struct {
	pair pairKey
	rxID int
}

// longTermEntry caches the per-cluster contraction along with the
// identities that validate it: the channel matrix instance and the
// beamforming generation counters of both arrays.  Any of the three
// changing invalidates the entry.
type longTermEntry struct {
	matrix   *ChannelMatrix
	txGen    uint64
	rxGen    uint64
	longTerm []complex128
}

// SpectrumSignalModel computes receive power spectral densities from
// transmit ones through the stochastic channel
type SpectrumSignalModel struct {
	channelModel *StochasticChannelModel
	ltCache      map[ltKey]*longTermEntry
	metrics      *SimCollector
}

// CreateSpectrumSignalModel is a constructor
func CreateSpectrumSignalModel(channelModel *StochasticChannelModel) *SpectrumSignalModel {
	if channelModel == nil {
		panic("spectrum model requires a channel model")
	}
	ssm := new(SpectrumSignalModel)
	ssm.channelModel = channelModel
	ssm.ltCache = make(map[ltKey]*longTermEntry)
	return ssm
}

// SetCollector attaches Prometheus instrumentation
func (ssm *SpectrumSignalModel) SetCollector(sc *SimCollector) {
	ssm.metrics = sc
}

// CalcRxPowerSpectralDensity computes the received PSD for the tx->rx
// link.  The long-term per-cluster component is reused only while the
// channel matrix instance (pointer identity) and both beamforming
// generation counters are unchanged; otherwise it is recomputed.
func (ssm *SpectrumSignalModel) CalcRxPowerSpectralDensity(evtMgr *EventManager,
	txPsd *SpectrumValues, txMob, rxMob Mobility,
	txArray, rxArray PhasedArrayModel) *SpectrumValues {

	cm := ssm.channelModel.GetChannel(evtMgr, txMob, rxMob, txArray, rxArray)
	wTx := txArray.GetBeamformingVector()
	wRx := rxArray.GetBeamformingVector()

	rows, cols := cm.H[0].Dims()
	if rows != len(wRx) || cols != len(wTx) {
		panic(fmt.Sprintf("channel matrix %dx%d does not match rx/tx beamforming lengths %d/%d",
			rows, cols, len(wRx), len(wTx)))
	}

	key := ltKey{pair: makePairKey(txMob, rxMob), rxID: rxMob.MobilityID()}
	entry, present := ssm.ltCache[key]
	if !present || entry.matrix != cm ||
		entry.txGen != txArray.BeamformingGeneration() ||
		entry.rxGen != rxArray.BeamformingGeneration() {

		entry = &longTermEntry{
			matrix:   cm,
			txGen:    txArray.BeamformingGeneration(),
			rxGen:    rxArray.BeamformingGeneration(),
			longTerm: calcLongTerm(cm, wRx, wTx),
		}
		ssm.ltCache[key] = entry
		if ssm.metrics != nil {
			ssm.metrics.IncLongTermRecompute()
		}
	}

	// time evolution since the matrix was generated
	deltaT := evtMgr.Now().Seconds() - cm.Generated

	rxPsd := &SpectrumValues{
		Bins:   txPsd.Bins,
		Values: make([]float64, len(txPsd.Values)),
	}
	for i, freq := range txPsd.Bins {
		resp := complex(0.0, 0.0)
		for n := 0; n < cm.NumClusters; n++ {
			phase := cm.DopplerRate[n]*deltaT - 2.0*math.Pi*freq*cm.Delays[n]
			resp += entry.longTerm[n] * cmplx.Exp(complex(0.0, phase))
		}
		gain := real(resp)*real(resp) + imag(resp)*imag(resp)
		rxPsd.Values[i] = txPsd.Values[i] * gain
	}
	return rxPsd
}

// calcLongTerm contracts each cluster's matrix with the two weight
// vectors.  The contraction is bilinear (no conjugation), which paired
// with the transposed reverse-orientation matrix view makes the two
// directions of one physical channel produce the same long-term gain.
func calcLongTerm(cm *ChannelMatrix, wRx, wTx []complex128) []complex128 {
	longTerm := make([]complex128, cm.NumClusters)
	for n := 0; n < cm.NumClusters; n++ {
		acc := complex(0.0, 0.0)
		for u := range wRx {
			rowSum := complex(0.0, 0.0)
			for s := range wTx {
				rowSum += cm.H[n].At(u, s) * wTx[s]
			}
			acc += wRx[u] * rowSum
		}
		longTerm[n] = acc
	}
	return longTerm
}
