package phydes

// desc-scenario.go holds the serializable descriptions of an
// experiment: the propagation scenario, the antenna arrays, and the
// nodes that carry them.  The structs marshal to yaml or json, chosen
// by file extension, and are validated before the build phase turns
// them into run-time objects.

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// AntennaCfg describes one antenna element model.  Type selects the
// constructor; the remaining fields are read by the constructor that
// needs them.
type AntennaCfg struct {
	Type string `json:"type" yaml:"type"`

	// Isotropic
	GainDb float64 `json:"gaindb" yaml:"gaindb"`

	// ThreeGpp
	VBeamwidthDeg float64 `json:"vbeamwidthdeg" yaml:"vbeamwidthdeg"`
	HBeamwidthDeg float64 `json:"hbeamwidthdeg" yaml:"hbeamwidthdeg"`
	AMaxDb        float64 `json:"amaxdb" yaml:"amaxdb"`
	SlaVDb        float64 `json:"slavdb" yaml:"slavdb"`
	GeMaxDb       float64 `json:"gemaxdb" yaml:"gemaxdb"`

	// CircularAperture
	RadiusM   float64 `json:"radiusm" yaml:"radiusm"`
	FreqHz    float64 `json:"freqhz" yaml:"freqhz"`
	MaxGainDb float64 `json:"maxgaindb" yaml:"maxgaindb"`
	MinGainDb float64 `json:"mingaindb" yaml:"mingaindb"`
}

// ArrayCfg describes a uniform planar array configuration, referenced
// by name from the nodes that carry one
type ArrayCfg struct {
	Name          string  `json:"name" yaml:"name"`
	NumRows       int     `json:"numrows" yaml:"numrows"`
	NumColumns    int     `json:"numcolumns" yaml:"numcolumns"`
	RowSpacing    float64 `json:"rowspacing" yaml:"rowspacing"`       // wavelengths
	ColumnSpacing float64 `json:"columnspacing" yaml:"columnspacing"` // wavelengths
	BearingDeg    float64 `json:"bearingdeg" yaml:"bearingdeg"`
	DowntiltDeg   float64 `json:"downtiltdeg" yaml:"downtiltdeg"`

	Antenna AntennaCfg `json:"antenna" yaml:"antenna"`
}

// NodeCfg describes one simulated node: identity, kinematics, and the
// name of the array configuration it carries
type NodeCfg struct {
	Name     string     `json:"name" yaml:"name"`
	ID       int        `json:"id" yaml:"id"`
	Position [3]float64 `json:"position" yaml:"position"` // meters
	Velocity [3]float64 `json:"velocity" yaml:"velocity"` // m/s
	Array    string     `json:"array" yaml:"array"`
}

// ScenarioCfg describes the propagation environment
type ScenarioCfg struct {
	Scenario         string  `json:"scenario" yaml:"scenario"`
	CarrierFreqHz    float64 `json:"carrierfreqhz" yaml:"carrierfreqhz"`
	UpdatePeriod     float64 `json:"updateperiod" yaml:"updateperiod"`         // seconds
	ConditionModel   string  `json:"conditionmodel" yaml:"conditionmodel"`     // "ThreeGpp", "AlwaysLos", "NeverLos"
	CondUpdatePeriod float64 `json:"condupdateperiod" yaml:"condupdateperiod"` // seconds
}

// ExperimentCfg is the top-level description read from file
type ExperimentCfg struct {
	Name     string      `json:"name" yaml:"name"`
	Scenario ScenarioCfg `json:"scenario" yaml:"scenario"`
	Arrays   []ArrayCfg  `json:"arrays" yaml:"arrays"`
	Nodes    []NodeCfg   `json:"nodes" yaml:"nodes"`
}

// antennaTypes and conditionModelTypes are the configuration names the
// built-in factories understand
var antennaTypes = []string{"Isotropic", "ThreeGpp", "CircularAperture"}
var conditionModelTypes = []string{"ThreeGpp", "AlwaysLos", "NeverLos"}

// Validate checks the description for the configuration errors the
// build phase would otherwise hit half-way through assembly.  Nothing
// is defaulted silently.
func (cfg *ExperimentCfg) Validate() error {
	if !knownScenario(cfg.Scenario.Scenario) {
		return errors.Errorf("unrecognized scenario %q", cfg.Scenario.Scenario)
	}
	if cfg.Scenario.CarrierFreqHz <= 0.0 {
		return errors.Errorf("non-positive carrier frequency %f", cfg.Scenario.CarrierFreqHz)
	}
	if cfg.Scenario.UpdatePeriod <= 0.0 {
		return errors.Errorf("non-positive channel update period %f", cfg.Scenario.UpdatePeriod)
	}
	if !slices.Contains(conditionModelTypes, cfg.Scenario.ConditionModel) {
		return errors.Errorf("unrecognized condition model %q", cfg.Scenario.ConditionModel)
	}

	arrayNames := []string{}
	for _, ac := range cfg.Arrays {
		if slices.Contains(arrayNames, ac.Name) {
			return errors.Errorf("duplicated array name %q", ac.Name)
		}
		arrayNames = append(arrayNames, ac.Name)

		if ac.NumRows < 1 || ac.NumColumns < 1 {
			return errors.Errorf("array %q has non-positive dimension %dx%d",
				ac.Name, ac.NumRows, ac.NumColumns)
		}
		if ac.RowSpacing <= 0.0 || ac.ColumnSpacing <= 0.0 {
			return errors.Errorf("array %q has non-positive spacing (%f,%f)",
				ac.Name, ac.RowSpacing, ac.ColumnSpacing)
		}
		if !slices.Contains(antennaTypes, ac.Antenna.Type) {
			return errors.Errorf("array %q names unrecognized antenna type %q",
				ac.Name, ac.Antenna.Type)
		}
	}

	nodeIDs := []int{}
	for _, nc := range cfg.Nodes {
		if slices.Contains(nodeIDs, nc.ID) {
			return errors.Errorf("duplicated node id %d", nc.ID)
		}
		nodeIDs = append(nodeIDs, nc.ID)

		if !slices.Contains(arrayNames, nc.Array) {
			return errors.Errorf("node %q references unknown array %q", nc.Name, nc.Array)
		}
	}
	return nil
}

// WriteToFile stores the description to the named file, serialized as
// yaml or json depending on the extension
func (cfg *ExperimentCfg) WriteToFile(filename string) error {
	useYAML := yamlExt(filename)

	var bytes []byte
	var merr error

	if useYAML {
		bytes, merr = yaml.Marshal(*cfg)
	} else {
		bytes, merr = json.MarshalIndent(*cfg, "", "\t")
	}
	if merr != nil {
		return errors.Wrapf(merr, "marshaling experiment %q", cfg.Name)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		return cerr
	}
	defer f.Close()

	_, werr := f.WriteString(string(bytes[:]))
	return werr
}

// ReadExperimentCfg deserializes an experiment description.  The dict
// argument carries raw bytes to use instead of reading the file, a
// convenience for callers that already hold the serialized form.
func ReadExperimentCfg(filename string, useYAML bool, dict []byte) (*ExperimentCfg, error) {
	var err error

	// read from the file only if the byte slice is empty
	if len(dict) == 0 {
		fileInfo, err := os.Stat(filename)
		if os.IsNotExist(err) || fileInfo.IsDir() {
			return nil, fmt.Errorf("experiment file %s does not exist or cannot be read", filename)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := ExperimentCfg{}

	// extension of input file name indicates whether we are
	// deserializing json or yaml
	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, err
	}

	if verr := example.Validate(); verr != nil {
		return nil, errors.Wrapf(verr, "experiment %q fails validation", example.Name)
	}
	return &example, nil
}

// yamlExt reports whether the file name carries a yaml extension
func yamlExt(filename string) bool {
	for _, ext := range []string{".yaml", ".YAML", ".yml"} {
		if len(filename) >= len(ext) && filename[len(filename)-len(ext):] == ext {
			return true
		}
	}
	return false
}
