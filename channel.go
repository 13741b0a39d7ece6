package phydes

// channel.go holds the stochastic multipath channel engine: scenario
// parameter tables, per-pair random stream assignment, channel matrix
// generation by the cluster/ray sum, and the update-period cache whose
// pointer identity downstream caches rely on.

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/iti/rngstream"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// scenarioParams is one row of the statistical parameter tables,
// patterned on TR 38.901 Table 7.5-6.  Delay spread is log10(seconds),
// angular spreads are log10(degrees).
type scenarioParams struct {
	numClusters    int
	raysPerCluster int

	delaySpreadMu    float64
	delaySpreadSigma float64
	delayScaling     float64 // r_tau

	asdMu, asdSigma float64 // azimuth spread of departure
	asaMu, asaSigma float64 // azimuth spread of arrival
	zsaMu, zsaSigma float64 // zenith spread of arrival
	zsdMu, zsdSigma float64 // zenith spread of departure

	clusterShadowingStd float64 // per-cluster shadowing zeta, dB
	xprMu, xprSigma     float64 // cross-polarization ratio, dB

	// intra-cluster ray spreads, degrees
	cASD, cASA, cZSA float64
}

// scenarioTable maps scenario name and condition to its parameter row.
// Values are representative mid-band entries of Table 7.5-6; the
// frequency-dependent terms are evaluated at 6 GHz.
var scenarioTable = map[string]map[ChannelCondition]scenarioParams{
	"RMa": {
		CondLOS: {numClusters: 11, raysPerCluster: 20, delaySpreadMu: -7.49, delaySpreadSigma: 0.55,
			delayScaling: 3.8, asdMu: 0.90, asdSigma: 0.38, asaMu: 1.52, asaSigma: 0.24,
			zsaMu: 0.47, zsaSigma: 0.40, zsdMu: 0.30, zsdSigma: 0.40,
			clusterShadowingStd: 3.0, xprMu: 12.0, xprSigma: 4.0, cASD: 2.0, cASA: 3.0, cZSA: 3.0},
		CondNLOS: {numClusters: 10, raysPerCluster: 20, delaySpreadMu: -7.43, delaySpreadSigma: 0.48,
			delayScaling: 1.7, asdMu: 0.95, asdSigma: 0.45, asaMu: 1.52, asaSigma: 0.13,
			zsaMu: 0.58, zsaSigma: 0.37, zsdMu: 0.40, zsdSigma: 0.40,
			clusterShadowingStd: 3.0, xprMu: 7.0, xprSigma: 3.0, cASD: 2.0, cASA: 3.0, cZSA: 3.0},
	},
	"UMa": {
		CondLOS: {numClusters: 12, raysPerCluster: 20, delaySpreadMu: -6.96, delaySpreadSigma: 0.66,
			delayScaling: 2.5, asdMu: 1.06, asdSigma: 0.28, asaMu: 1.81, asaSigma: 0.20,
			zsaMu: 0.95, zsaSigma: 0.16, zsdMu: 0.75, zsdSigma: 0.40,
			clusterShadowingStd: 3.0, xprMu: 8.0, xprSigma: 4.0, cASD: 5.0, cASA: 11.0, cZSA: 7.0},
		CondNLOS: {numClusters: 20, raysPerCluster: 20, delaySpreadMu: -6.28, delaySpreadSigma: 0.39,
			delayScaling: 2.3, asdMu: 1.50, asdSigma: 0.28, asaMu: 2.08, asaSigma: 0.11,
			zsaMu: 1.26, zsaSigma: 0.16, zsdMu: 0.90, zsdSigma: 0.49,
			clusterShadowingStd: 3.0, xprMu: 7.0, xprSigma: 3.0, cASD: 2.0, cASA: 15.0, cZSA: 7.0},
	},
	"UMi-StreetCanyon": {
		CondLOS: {numClusters: 12, raysPerCluster: 20, delaySpreadMu: -7.14, delaySpreadSigma: 0.38,
			delayScaling: 3.0, asdMu: 1.21, asdSigma: 0.41, asaMu: 1.73, asaSigma: 0.28,
			zsaMu: 0.73, zsaSigma: 0.34, zsdMu: 0.50, zsdSigma: 0.35,
			clusterShadowingStd: 3.0, xprMu: 9.0, xprSigma: 3.0, cASD: 3.0, cASA: 17.0, cZSA: 7.0},
		CondNLOS: {numClusters: 19, raysPerCluster: 20, delaySpreadMu: -6.89, delaySpreadSigma: 0.54,
			delayScaling: 2.1, asdMu: 1.41, asdSigma: 0.17, asaMu: 1.84, asaSigma: 0.15,
			zsaMu: 0.88, zsaSigma: 0.16, zsdMu: 0.60, zsdSigma: 0.35,
			clusterShadowingStd: 3.0, xprMu: 8.0, xprSigma: 3.0, cASD: 10.0, cASA: 22.0, cZSA: 7.0},
	},
	"InH-OfficeMixed": {
		CondLOS: {numClusters: 15, raysPerCluster: 20, delaySpreadMu: -7.70, delaySpreadSigma: 0.18,
			delayScaling: 3.6, asdMu: 1.60, asdSigma: 0.18, asaMu: 1.62, asaSigma: 0.22,
			zsaMu: 1.22, zsaSigma: 0.23, zsdMu: 1.02, zsdSigma: 0.41,
			clusterShadowingStd: 6.0, xprMu: 11.0, xprSigma: 4.0, cASD: 5.0, cASA: 8.0, cZSA: 9.0},
		CondNLOS: {numClusters: 19, raysPerCluster: 20, delaySpreadMu: -7.41, delaySpreadSigma: 0.14,
			delayScaling: 3.0, asdMu: 1.62, asdSigma: 0.25, asaMu: 1.77, asaSigma: 0.16,
			zsaMu: 1.26, zsaSigma: 0.67, zsdMu: 1.08, zsdSigma: 0.36,
			clusterShadowingStd: 3.0, xprMu: 10.0, xprSigma: 4.0, cASD: 5.0, cASA: 11.0, cZSA: 9.0},
	},
}

// knownScenario reports whether a scenario name has a parameter table
func knownScenario(scenario string) bool {
	_, present := scenarioTable[scenario]
	return present
}

// rayOffsets are the 20 fixed intra-cluster ray offset multipliers of
// Table 7.5-3, applied symmetrically around the cluster angle
var rayOffsets = [20]float64{
	0.0447, -0.0447, 0.1413, -0.1413, 0.2492, -0.2492, 0.3715, -0.3715,
	0.5129, -0.5129, 0.6797, -0.6797, 0.8844, -0.8844, 1.1481, -1.1481,
	1.5195, -1.5195, 2.1551, -2.1551,
}

// ChannelMatrix is the generated multipath channel between two arrays,
// indexed (rx element, tx element, cluster).  Instances are immutable
// once generated: the cache replaces a stale entry with a fresh
// instance instead of mutating, so any holder of an old pointer is
// unaffected and pointer comparison detects change.
type ChannelMatrix struct {
	// per-cluster complex gain matrices, numRxElems x numTxElems
	H []*mat.CDense

	NumClusters int
	Generated   float64 // virtual time of generation, seconds
	Condition   ChannelCondition

	// cluster delays (seconds) and per-cluster Doppler rates (rad/s),
	// shared with the reverse-orientation view of the same draw
	Delays      []float64
	DopplerRate []float64

	// cluster angles as seen from this orientation's rx and tx sides
	ClusterAoa, ClusterZoa []float64
	ClusterAod, ClusterZod []float64

	// reverse is the transposed view of the same physical channel,
	// created in the same generation step
	reverse *ChannelMatrix
}

// FrobeniusNormSq returns the squared Frobenius norm summed over all
// clusters
func (cm *ChannelMatrix) FrobeniusNormSq() float64 {
	total := 0.0
	for _, h := range cm.H {
		rows, cols := h.Dims()
		for u := 0; u < rows; u++ {
			for s := 0; s < cols; s++ {
				v := h.At(u, s)
				total += real(v)*real(v) + imag(v)*imag(v)
			}
		}
	}
	return total
}

// chanEntry is one cache slot: the matrix draw for a node pair, viewed
// from both orientations
type chanEntry struct {
	generated float64
	cond      ChannelCondition

	// loRx holds the view whose rx side is the pair's lower mobility id
	loRx *ChannelMatrix
	hiRx *ChannelMatrix
}

// StochasticChannelModel generates and caches channel matrices per
// unordered node pair, regenerating an entry only when the update
// period elapses or the channel condition flips.
type StochasticChannelModel struct {
	scenario      string
	carrierFreqHz float64
	updatePeriod  float64
	condModel     ChannelConditionModel

	cache map[pairKey]*chanEntry
	rngs  map[pairKey]*rngstream.RngStream

	traceMgr *TraceManager
	metrics  *SimCollector

	hits, misses int64
}

// CreateStochasticChannelModel is a constructor.  The scenario name
// must appear in the parameter tables and the update period must be
// positive; violations are fatal configuration errors, never silently
// defaulted.
func CreateStochasticChannelModel(scenario string, carrierFreqHz, updatePeriod float64,
	condModel ChannelConditionModel) *StochasticChannelModel {

	if !knownScenario(scenario) {
		panic(fmt.Sprintf("unrecognized scenario %q in channel model", scenario))
	}
	if carrierFreqHz <= 0.0 {
		panic(fmt.Sprintf("non-positive carrier frequency %f", carrierFreqHz))
	}
	if updatePeriod <= 0.0 {
		panic(fmt.Sprintf("non-positive channel update period %f", updatePeriod))
	}
	if condModel == nil {
		panic("channel model requires a channel condition model")
	}

	scm := new(StochasticChannelModel)
	scm.scenario = scenario
	scm.carrierFreqHz = carrierFreqHz
	scm.updatePeriod = updatePeriod
	scm.condModel = condModel
	scm.cache = make(map[pairKey]*chanEntry)
	scm.rngs = make(map[pairKey]*rngstream.RngStream)
	return scm
}

// SetTraceManager attaches a trace manager recording generation and
// cache activity
func (scm *StochasticChannelModel) SetTraceManager(tm *TraceManager) {
	scm.traceMgr = tm
}

// SetCollector attaches Prometheus instrumentation
func (scm *StochasticChannelModel) SetCollector(sc *SimCollector) {
	scm.metrics = sc
}

// pairRng returns the dedicated random stream for a pair, creating it
// on first use.  One named stream per unordered pair is the stream
// assignment policy: draws for one pair never perturb another pair's
// sequence, so adding a node leaves existing pairs reproducible.
func (scm *StochasticChannelModel) pairRng(key pairKey) *rngstream.RngStream {
	rng, present := scm.rngs[key]
	if !present {
		rng = rngstream.New(fmt.Sprintf("chan:%d:%d", key.lo, key.hi))
		scm.rngs[key] = rng
	}
	return rng
}

// GetChannel returns the channel matrix between the tx and rx nodes,
// indexed (rx element, tx element, cluster).  Within one update period
// the identical instance is returned for a given orientation; after
// the period elapses (>= comparison against the stored generation
// time) or on a condition flip the entry is regenerated whole.
func (scm *StochasticChannelModel) GetChannel(evtMgr *EventManager, txMob, rxMob Mobility,
	txArray, rxArray PhasedArrayModel) *ChannelMatrix {

	now := evtMgr.Now().Seconds()
	key := makePairKey(txMob, rxMob)
	cond := scm.condModel.GetCondition(evtMgr, txMob, rxMob)

	entry, present := scm.cache[key]
	fresh := present && now-entry.generated < scm.updatePeriod && entry.cond == cond
	if !fresh {
		entry = scm.generate(evtMgr, key, cond, txMob, rxMob, txArray, rxArray)
		scm.cache[key] = entry
		scm.misses += 1
		if scm.metrics != nil {
			scm.metrics.IncChannelRegen()
		}
		if scm.traceMgr != nil && scm.traceMgr.Active() {
			AddChanTrace(scm.traceMgr, evtMgr.Now(), key.lo, key.hi, cond.String(),
				len(entry.loRx.H), "gen")
		}
	} else {
		scm.hits += 1
		if scm.traceMgr != nil && scm.traceMgr.Active() {
			AddChanTrace(scm.traceMgr, evtMgr.Now(), key.lo, key.hi, cond.String(),
				len(entry.loRx.H), "hit")
		}
	}
	if scm.metrics != nil {
		scm.metrics.SetChannelHitRatio(float64(scm.hits) / float64(scm.hits+scm.misses))
	}

	if rxMob.MobilityID() == key.lo {
		return entry.loRx
	}
	return entry.hiRx
}

// gaussian draws a standard normal variate from the stream by the
// Box-Muller transform.  RandU01 never returns exactly 0 so the log is
// safe.
func gaussian(rng *rngstream.RngStream) float64 {
	u1 := rng.RandU01()
	u2 := rng.RandU01()
	return math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
}

// generate draws a fresh channel realization for the pair.  The draw is
// made once, viewed from the canonical orientation (rx side = lower
// mobility id), and the opposite orientation is its transpose, so
// reciprocity holds by construction.
func (scm *StochasticChannelModel) generate(evtMgr *EventManager, key pairKey,
	cond ChannelCondition, txMob, rxMob Mobility,
	txArray, rxArray PhasedArrayModel) *chanEntry {

	now := evtMgr.Now().Seconds()
	params := scenarioTable[scm.scenario][cond]
	rng := scm.pairRng(key)
	lambda := speedOfLight / scm.carrierFreqHz

	// orient the draw canonically: lo side receives
	loMob, hiMob := rxMob, txMob
	loArray, hiArray := rxArray, txArray
	if txMob.MobilityID() == key.lo {
		loMob, hiMob = txMob, rxMob
		loArray, hiArray = txArray, rxArray
	}

	loPos := loMob.Position(now)
	hiPos := hiMob.Position(now)
	losAoa := AnglesFromVector(loPos, hiPos) // arrival at lo comes from hi's direction
	losAod := AnglesFromVector(hiPos, loPos)

	nClusters := params.numClusters
	nRays := params.raysPerCluster

	// large-scale draws: delay spread and angular spreads, log-normal
	ds := math.Pow(10.0, params.delaySpreadMu+params.delaySpreadSigma*gaussian(rng))
	asa := math.Pow(10.0, params.asaMu+params.asaSigma*gaussian(rng))
	asd := math.Pow(10.0, params.asdMu+params.asdSigma*gaussian(rng))
	zsa := math.Pow(10.0, params.zsaMu+params.zsaSigma*gaussian(rng))
	zsd := math.Pow(10.0, params.zsdMu+params.zsdSigma*gaussian(rng))

	// cluster delays: exponential proportionality, sorted, zero-based
	delays := make([]float64, nClusters)
	for n := range delays {
		delays[n] = -params.delayScaling * ds * math.Log(rng.RandU01())
	}
	sortAndZeroBase(delays)

	// cluster powers: exponential delay profile with per-cluster
	// shadowing, normalized to unit sum
	powers := make([]float64, nClusters)
	powerSum := 0.0
	for n := range powers {
		shadow := params.clusterShadowingStd * gaussian(rng)
		powers[n] = math.Exp(-delays[n]*(params.delayScaling-1.0)/(params.delayScaling*ds)) *
			math.Pow(10.0, -shadow/10.0)
		powerSum += powers[n]
	}
	for n := range powers {
		powers[n] /= powerSum
	}

	// cluster angles scattered around the LOS direction by the drawn
	// angular spreads
	aoa := make([]float64, nClusters)
	aod := make([]float64, nClusters)
	zoa := make([]float64, nClusters)
	zod := make([]float64, nClusters)
	for n := 0; n < nClusters; n++ {
		aoa[n] = wrapAzimuth(losAoa.Azimuth + degToRad(asa)*gaussian(rng))
		aod[n] = wrapAzimuth(losAod.Azimuth + degToRad(asd)*gaussian(rng))
		zoa[n] = clampInclination(losAoa.Inclination + degToRad(zsa)*gaussian(rng))
		zod[n] = clampInclination(losAod.Inclination + degToRad(zsd)*gaussian(rng))
	}

	numLo := loArray.NumElems()
	numHi := hiArray.NumElems()
	loVel := loMob.Velocity()
	hiVel := hiMob.Velocity()

	hMats := make([]*mat.CDense, nClusters)
	dopplerRate := make([]float64, nClusters)

	for n := 0; n < nClusters; n++ {
		h := mat.NewCDense(numLo, numHi, nil)
		scaling := complex(math.Sqrt(powers[n]/float64(nRays)), 0.0)

		// per-cluster Doppler rate from the central cluster angles;
		// symmetric in the two endpoints so both orientations share it
		arrDir := Angles{Azimuth: aoa[n], Inclination: zoa[n]}.UnitVector()
		depDir := Angles{Azimuth: aod[n], Inclination: zod[n]}.UnitVector()
		dopplerRate[n] = 2.0 * math.Pi * (arrDir.Dot(loVel) + depDir.Dot(hiVel)) / lambda

		for m := 0; m < nRays; m++ {
			rayAoa := wrapAzimuth(aoa[n] + degToRad(params.cASA*rayOffsets[m]))
			rayAod := wrapAzimuth(aod[n] + degToRad(params.cASD*rayOffsets[m]))
			rayZoa := clampInclination(zoa[n] + degToRad(params.cZSA*rayOffsets[m]))
			rayZod := clampInclination(zod[n] + degToRad(params.cZSA*rayOffsets[m]))

			arrAngles := Angles{Azimuth: rayAoa, Inclination: rayZoa}
			depAngles := Angles{Azimuth: rayAod, Inclination: rayZod}

			// random coupling phases and cross-polarization power ratio
			phiTT := 2.0*math.Pi*rng.RandU01() - math.Pi
			phiTP := 2.0*math.Pi*rng.RandU01() - math.Pi
			phiPT := 2.0*math.Pi*rng.RandU01() - math.Pi
			phiPP := 2.0*math.Pi*rng.RandU01() - math.Pi
			xpr := math.Pow(10.0, (params.xprMu+params.xprSigma*gaussian(rng))/10.0)
			invSqrtXpr := complex(math.Sqrt(1.0/xpr), 0.0)

			rxPhi, rxTheta := loArray.ElementFieldPattern(arrAngles)
			txPhi, txTheta := hiArray.ElementFieldPattern(depAngles)

			// polarization coupling term of the ray-sum formula
			polTerm := complex(rxTheta*txTheta, 0.0)*cmplx.Exp(complex(0.0, phiTT)) +
				complex(rxTheta*txPhi, 0.0)*invSqrtXpr*cmplx.Exp(complex(0.0, phiTP)) +
				complex(rxPhi*txTheta, 0.0)*invSqrtXpr*cmplx.Exp(complex(0.0, phiPT)) +
				complex(rxPhi*txPhi, 0.0)*cmplx.Exp(complex(0.0, phiPP))

			// Doppler phase at the generation instant
			rayArrDir := arrAngles.UnitVector()
			rayDepDir := depAngles.UnitVector()
			rayDoppler := 2.0 * math.Pi * (rayArrDir.Dot(loVel) + rayDepDir.Dot(hiVel)) / lambda
			rayTerm := polTerm * cmplx.Exp(complex(0.0, rayDoppler*now))

			// array phase responses at the two ends
			loSteering := loArray.SteeringVector(arrAngles)
			hiSteering := hiArray.SteeringVector(depAngles)
			for u := 0; u < numLo; u++ {
				for s := 0; s < numHi; s++ {
					h.Set(u, s, h.At(u, s)+scaling*rayTerm*loSteering[u]*hiSteering[s])
				}
			}
		}
		hMats[n] = h
	}

	loRx := &ChannelMatrix{
		H:           hMats,
		NumClusters: nClusters,
		Generated:   now,
		Condition:   cond,
		Delays:      delays,
		DopplerRate: dopplerRate,
		ClusterAoa:  aoa,
		ClusterZoa:  zoa,
		ClusterAod:  aod,
		ClusterZod:  zod,
	}

	// transposed view for the opposite orientation, sharing the
	// delay/Doppler draw.  Together with the bilinear long-term
	// contraction in the spectrum model this makes the two directions
	// of the same physical channel produce identical long-term gains.
	hiMats := make([]*mat.CDense, nClusters)
	for n := 0; n < nClusters; n++ {
		ht := mat.NewCDense(numHi, numLo, nil)
		for u := 0; u < numLo; u++ {
			for s := 0; s < numHi; s++ {
				ht.Set(s, u, hMats[n].At(u, s))
			}
		}
		hiMats[n] = ht
	}
	hiRx := &ChannelMatrix{
		H:           hiMats,
		NumClusters: nClusters,
		Generated:   now,
		Condition:   cond,
		Delays:      delays,
		DopplerRate: dopplerRate,
		ClusterAoa:  aod,
		ClusterZoa:  zod,
		ClusterAod:  aoa,
		ClusterZod:  zoa,
	}
	loRx.reverse = hiRx
	hiRx.reverse = loRx

	log.WithFields(log.Fields{
		"pair":     fmt.Sprintf("%d:%d", key.lo, key.hi),
		"cond":     cond.String(),
		"clusters": nClusters,
		"time":     now,
	}).Debug("generated channel matrix")

	return &chanEntry{generated: now, cond: cond, loRx: loRx, hiRx: hiRx}
}

// sortAndZeroBase sorts cluster delays ascending and shifts the whole
// draw by its minimum, so the first cluster arrives at delay zero and
// the gaps between clusters are preserved
func sortAndZeroBase(delays []float64) {
	sort.Float64s(delays)
	minDelay := delays[0]
	for n := range delays {
		delays[n] -= minDelay
	}
}

// clampInclination limits an inclination draw to the valid [0, pi]
// range
func clampInclination(incl float64) float64 {
	if incl < 0.0 {
		return 0.0
	}
	if incl > math.Pi {
		return math.Pi
	}
	return incl
}
