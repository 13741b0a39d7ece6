package phydes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExperimentCfg() *ExperimentCfg {
	return &ExperimentCfg{
		Name: "two-node-link",
		Scenario: ScenarioCfg{
			Scenario:       "UMa",
			CarrierFreqHz:  3.5e9,
			UpdatePeriod:   0.010,
			ConditionModel: "NeverLos",
		},
		Arrays: []ArrayCfg{
			{
				Name: "bs-panel", NumRows: 2, NumColumns: 2,
				RowSpacing: 0.5, ColumnSpacing: 0.5,
				Antenna: AntennaCfg{
					Type:          "ThreeGpp",
					VBeamwidthDeg: 65.0, HBeamwidthDeg: 65.0,
					AMaxDb: 30.0, SlaVDb: 30.0, GeMaxDb: 8.0,
				},
			},
			{
				Name: "ue-panel", NumRows: 1, NumColumns: 2,
				RowSpacing: 0.5, ColumnSpacing: 0.5,
				Antenna: AntennaCfg{Type: "Isotropic"},
			},
		},
		Nodes: []NodeCfg{
			{Name: "bs-0", ID: 1, Position: [3]float64{0.0, 0.0, 25.0}, Array: "bs-panel"},
			{Name: "ue-0", ID: 2, Position: [3]float64{80.0, 20.0, 1.5},
				Velocity: [3]float64{1.0, 0.0, 0.0}, Array: "ue-panel"},
		},
	}
}

func TestExperimentCfgFileRoundTrip(t *testing.T) {
	cfg := sampleExperimentCfg()
	require.NoError(t, cfg.Validate())

	for _, name := range []string{"exp.yaml", "exp.json"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, cfg.WriteToFile(path))

		back, err := ReadExperimentCfg(path, yamlExt(path), []byte{})
		require.NoError(t, err, name)
		assert.Equal(t, cfg, back, name)
	}
}

func TestExperimentCfgReadFromDict(t *testing.T) {
	cfg := sampleExperimentCfg()
	path := filepath.Join(t.TempDir(), "exp.yaml")
	require.NoError(t, cfg.WriteToFile(path))

	dict, err := os.ReadFile(path)
	require.NoError(t, err)

	// the file name is ignored when the bytes are supplied directly
	back, rerr := ReadExperimentCfg("no-such-file.yaml", true, dict)
	require.NoError(t, rerr)
	assert.Equal(t, cfg.Name, back.Name)
	assert.Len(t, back.Nodes, 2)
}

func TestExperimentCfgValidation(t *testing.T) {
	breakers := map[string]func(*ExperimentCfg){
		"unknown scenario":       func(c *ExperimentCfg) { c.Scenario.Scenario = "Suburban" },
		"bad carrier":            func(c *ExperimentCfg) { c.Scenario.CarrierFreqHz = 0.0 },
		"bad update period":      func(c *ExperimentCfg) { c.Scenario.UpdatePeriod = -1.0 },
		"unknown condition":      func(c *ExperimentCfg) { c.Scenario.ConditionModel = "Random" },
		"duplicate array name":   func(c *ExperimentCfg) { c.Arrays[1].Name = c.Arrays[0].Name },
		"bad array dimension":    func(c *ExperimentCfg) { c.Arrays[0].NumRows = 0 },
		"bad array spacing":      func(c *ExperimentCfg) { c.Arrays[0].RowSpacing = 0.0 },
		"unknown antenna type":   func(c *ExperimentCfg) { c.Arrays[0].Antenna.Type = "Horn" },
		"duplicate node id":      func(c *ExperimentCfg) { c.Nodes[1].ID = c.Nodes[0].ID },
		"dangling array name":    func(c *ExperimentCfg) { c.Nodes[1].Array = "missing-panel" },
	}

	for label, breaker := range breakers {
		cfg := sampleExperimentCfg()
		breaker(cfg)
		assert.Error(t, cfg.Validate(), label)
	}
}

func TestReadExperimentCfgMissingFile(t *testing.T) {
	_, err := ReadExperimentCfg(filepath.Join(t.TempDir(), "absent.yaml"), true, []byte{})
	assert.Error(t, err)
}

func TestFactoriesRejectUnknownTypes(t *testing.T) {
	af := CreateAntennaFactory()
	_, err := af.Build(AntennaCfg{Type: "Horn"})
	assert.Error(t, err)

	cf := CreateConditionFactory()
	_, err = cf.Build(ScenarioCfg{ConditionModel: "Random"})
	assert.Error(t, err)
}

func TestFactoryRegistrationExtends(t *testing.T) {
	af := CreateAntennaFactory()
	af.Register("Horn", func(cfg AntennaCfg) AntennaModel {
		return CreateIsotropicAntenna(cfg.GainDb)
	})
	am, err := af.Build(AntennaCfg{Type: "Horn", GainDb: 3.0})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, am.GetGainDb(CreateAngles(0.0, 0.0)), 1e-12)
}

func TestBuildExperimentAssemblesNodes(t *testing.T) {
	cfg := sampleExperimentCfg()
	require.NoError(t, cfg.Validate())

	tm := CreateTraceManager(cfg.Name, true)
	exp, err := BuildExperiment(cfg, tm, CreateAntennaFactory(), CreateConditionFactory())
	require.NoError(t, err)

	require.Len(t, exp.Nodes, 2)
	assert.Equal(t, "bs-0", exp.Nodes[1].Name)
	assert.Equal(t, 4, exp.Nodes[1].Array.NumElems())
	assert.Equal(t, 2, exp.Nodes[2].Array.NumElems())

	// the moving node got velocity-aware kinematics
	_, isCV := exp.Nodes[2].Mobility.(*ConstantVelocityMobility)
	assert.True(t, isCV)
	_, isCP := exp.Nodes[1].Mobility.(*ConstantPositionMobility)
	assert.True(t, isCP)

	require.NoError(t, exp.PointArrays(1, 2))
	assert.Len(t, exp.Nodes[1].Array.GetBeamformingVector(), 4)
	assert.Len(t, exp.Nodes[2].Array.GetBeamformingVector(), 2)

	// the built experiment runs end to end
	txPsd := FlatSpectrum(cfg.Scenario.CarrierFreqHz, 180e3, 6, 1e-9)
	var rxPsd *SpectrumValues
	at(exp.EvtMgr, 0.001, func() {
		rxPsd = exp.SignalModel.CalcRxPowerSpectralDensity(exp.EvtMgr, txPsd,
			exp.Nodes[1].Mobility, exp.Nodes[2].Mobility,
			exp.Nodes[1].Array, exp.Nodes[2].Array)
	})
	exp.EvtMgr.RunAll()
	require.Len(t, rxPsd.Values, 6)
}

func TestBuildExperimentErrorPaths(t *testing.T) {
	_, err := BuildExperiment(nil, nil, CreateAntennaFactory(), CreateConditionFactory())
	assert.Error(t, err)

	cfg := sampleExperimentCfg()
	exp, berr := BuildExperiment(cfg, nil, CreateAntennaFactory(), CreateConditionFactory())
	require.NoError(t, berr)
	assert.Error(t, exp.PointArrays(1, 99))
}

func TestPointArraysRejectsCoincidentNodes(t *testing.T) {
	cfg := sampleExperimentCfg()
	cfg.Nodes[1].Position = cfg.Nodes[0].Position
	cfg.Nodes[1].Velocity = [3]float64{}

	exp, err := BuildExperiment(cfg, nil, CreateAntennaFactory(), CreateConditionFactory())
	require.NoError(t, err)
	assert.Error(t, exp.PointArrays(1, 2))
}
