package phydes

// factory.go holds the explicit model registries and the build phase
// that turns a validated experiment description into connected
// run-time objects.  Model types are looked up by configuration name
// through registries passed in by the caller, never through implicit
// static registration.

import (
	"github.com/pkg/errors"
)

// AntennaCtor builds an antenna element model from its description
type AntennaCtor func(cfg AntennaCfg) AntennaModel

// AntennaFactory maps antenna type names to constructors
type AntennaFactory struct {
	ctors map[string]AntennaCtor
}

// CreateAntennaFactory returns a factory with the built-in antenna
// types pre-registered
func CreateAntennaFactory() *AntennaFactory {
	af := &AntennaFactory{ctors: make(map[string]AntennaCtor)}
	af.Register("Isotropic", func(cfg AntennaCfg) AntennaModel {
		return CreateIsotropicAntenna(cfg.GainDb)
	})
	af.Register("ThreeGpp", func(cfg AntennaCfg) AntennaModel {
		return CreateThreeGppAntenna(cfg.VBeamwidthDeg, cfg.HBeamwidthDeg,
			cfg.AMaxDb, cfg.SlaVDb, cfg.GeMaxDb)
	})
	af.Register("CircularAperture", func(cfg AntennaCfg) AntennaModel {
		return CreateCircularApertureAntenna(cfg.RadiusM, cfg.FreqHz,
			cfg.MaxGainDb, cfg.MinGainDb)
	})
	return af
}

// Register adds or replaces a constructor under the given type name
func (af *AntennaFactory) Register(typeName string, ctor AntennaCtor) {
	af.ctors[typeName] = ctor
}

// Build constructs the antenna model the description names
func (af *AntennaFactory) Build(cfg AntennaCfg) (AntennaModel, error) {
	ctor, present := af.ctors[cfg.Type]
	if !present {
		return nil, errors.Errorf("no antenna constructor registered for type %q", cfg.Type)
	}
	return ctor(cfg), nil
}

// ConditionCtor builds a channel condition model from the scenario
// description
type ConditionCtor func(cfg ScenarioCfg) ChannelConditionModel

// ConditionFactory maps condition model names to constructors
type ConditionFactory struct {
	ctors map[string]ConditionCtor
}

// CreateConditionFactory returns a factory with the built-in condition
// models pre-registered
func CreateConditionFactory() *ConditionFactory {
	cf := &ConditionFactory{ctors: make(map[string]ConditionCtor)}
	cf.Register("ThreeGpp", func(cfg ScenarioCfg) ChannelConditionModel {
		period := cfg.CondUpdatePeriod
		if period <= 0.0 {
			period = cfg.UpdatePeriod
		}
		return CreateThreeGppConditionModel(cfg.Scenario, period)
	})
	cf.Register("AlwaysLos", func(cfg ScenarioCfg) ChannelConditionModel {
		return &AlwaysLosConditionModel{}
	})
	cf.Register("NeverLos", func(cfg ScenarioCfg) ChannelConditionModel {
		return &NeverLosConditionModel{}
	})
	return cf
}

// Register adds or replaces a constructor under the given model name
func (cf *ConditionFactory) Register(name string, ctor ConditionCtor) {
	cf.ctors[name] = ctor
}

// Build constructs the condition model the description names
func (cf *ConditionFactory) Build(cfg ScenarioCfg) (ChannelConditionModel, error) {
	ctor, present := cf.ctors[cfg.ConditionModel]
	if !present {
		return nil, errors.Errorf("no condition model registered for name %q", cfg.ConditionModel)
	}
	return ctor(cfg), nil
}

// Node is one assembled simulated node: its kinematic state and the
// array it carries
type Node struct {
	Name     string
	Mobility Mobility
	Array    *UniformPlanarArray
}

// Experiment is the assembled run-time form of an experiment
// description
type Experiment struct {
	Name         string
	EvtMgr       *EventManager
	ChannelModel *StochasticChannelModel
	SignalModel  *SpectrumSignalModel
	Nodes        map[int]*Node
	TraceMgr     *TraceManager
}

// BuildExperiment assembles the run-time objects an experiment
// description calls for.  The description is assumed validated; the
// factories supply the model constructors.
func BuildExperiment(cfg *ExperimentCfg, tm *TraceManager,
	af *AntennaFactory, cf *ConditionFactory) (*Experiment, error) {

	if cfg == nil {
		return nil, errors.New("nil experiment description")
	}

	arrayCfgByName := make(map[string]ArrayCfg)
	for _, ac := range cfg.Arrays {
		arrayCfgByName[ac.Name] = ac
	}

	condModel, err := cf.Build(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	chanModel := CreateStochasticChannelModel(cfg.Scenario.Scenario,
		cfg.Scenario.CarrierFreqHz, cfg.Scenario.UpdatePeriod, condModel)
	signalModel := CreateSpectrumSignalModel(chanModel)
	evtMgr := CreateEventManager()

	if tm != nil {
		evtMgr.SetTraceManager(tm)
		chanModel.SetTraceManager(tm)
	}

	nodes := make(map[int]*Node)
	for _, nc := range cfg.Nodes {
		ac := arrayCfgByName[nc.Array]

		antenna, aerr := af.Build(ac.Antenna)
		if aerr != nil {
			return nil, errors.Wrapf(aerr, "building antenna for node %q", nc.Name)
		}

		// every node gets its own array instance so beamforming state
		// is never shared between nodes
		array := CreateUniformPlanarArray(ac.NumRows, ac.NumColumns,
			ac.RowSpacing, ac.ColumnSpacing,
			degToRad(ac.BearingDeg), degToRad(ac.DowntiltDeg), antenna)

		pos := Vec3{X: nc.Position[0], Y: nc.Position[1], Z: nc.Position[2]}
		vel := Vec3{X: nc.Velocity[0], Y: nc.Velocity[1], Z: nc.Velocity[2]}

		var mob Mobility
		if vel.Norm() > 0.0 {
			mob = CreateConstantVelocityMobility(nc.ID, pos, 0.0, vel)
		} else {
			mob = CreateConstantPositionMobility(nc.ID, pos)
		}

		nodes[nc.ID] = &Node{Name: nc.Name, Mobility: mob, Array: array}
		if tm != nil {
			tm.AddName(nc.ID, nc.Name, "node")
		}
	}

	return &Experiment{
		Name:         cfg.Name,
		EvtMgr:       evtMgr,
		ChannelModel: chanModel,
		SignalModel:  signalModel,
		Nodes:        nodes,
		TraceMgr:     tm,
	}, nil
}

// PointArrays aims both nodes' beamforming vectors at each other along
// the line between their current positions, the usual starting state
// of a link experiment
func (exp *Experiment) PointArrays(aID, bID int) error {
	a, aPresent := exp.Nodes[aID]
	b, bPresent := exp.Nodes[bID]
	if !aPresent || !bPresent {
		return errors.Errorf("unknown node pair (%d,%d)", aID, bID)
	}

	now := exp.EvtMgr.Now().Seconds()
	aPos := a.Mobility.Position(now)
	bPos := b.Mobility.Position(now)
	if aPos.DistanceTo(bPos) == 0.0 {
		return errors.Errorf("nodes %d and %d are coincident", aID, bID)
	}

	a.Array.GenerateBeamformingVector(AnglesFromVector(aPos, bPos))
	b.Array.GenerateBeamformingVector(AnglesFromVector(bPos, aPos))
	return nil
}
