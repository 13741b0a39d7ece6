package phydes

// trace.go gathers a record of a simulation run: which events were
// dispatched and what the channel pipeline did, keyed by object ids
// that a name dictionary makes readable after the run.

import (
	"encoding/json"
	"os"
	"path"
	"strconv"

	"github.com/iti/evt/vrtime"
	"gopkg.in/yaml.v3"
)

type TraceRecordType int

const (
	EvtType TraceRecordType = iota
	ChanType
)

var trtToStr map[TraceRecordType]string = map[TraceRecordType]string{
	EvtType: "event", ChanType: "channel"}

type TraceInst struct {
	TraceTime string
	TraceType string
	TraceStr  string
}

// NameType is an entry in the dictionary created for a trace that maps
// object id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// TraceManager gathers information about a simulation model and an
// execution of that model
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, keyed by origin id
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the
// experiment and a flag indicating whether the trace manager is
// active.  By testing this flag we can inhibit the activity of
// gathering a trace when we don't want it, while embedding calls to
// its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the trace manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddTrace creates a record of the trace using its calling arguments,
// and stores it
func (tm *TraceManager) AddTrace(vrt vrtime.Time, originID int, trace TraceInst) {
	if !tm.InUse {
		return
	}

	_, present := tm.Traces[originID]
	if !present {
		tm.Traces[originID] = make([]TraceInst, 0)
	}
	tm.Traces[originID] = append(tm.Traces[originID], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary
// for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if tm.InUse {
		_, present := tm.NameByID[id]
		if present {
			panic("duplicated id in AddName")
		}
		tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	}
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension
// of this name.
func (tm *TraceManager) WriteToFile(filename string) bool {
	if !tm.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tm)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tm, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()
	return true
}

// EvtTrace records one event dispatch, saved for post-run analysis
type EvtTrace struct {
	Time  float64 // time in float64
	Ticks int64   // ticks variable of time
	Seq   int64   // insertion sequence of the event
	Op    string  // "exec"
}

func (et *EvtTrace) TraceType() TraceRecordType {
	return EvtType
}

func (et *EvtTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*et)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// AddEvtTrace creates a record of an event dispatch and stores it
func AddEvtTrace(tm *TraceManager, vrt vrtime.Time, seq int64, op string) {
	et := new(EvtTrace)
	et.Time = vrt.Seconds()
	et.Ticks = vrt.Ticks()
	et.Seq = seq
	et.Op = op

	traceTime := strconv.FormatFloat(vrt.Seconds(), 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: trtToStr[EvtType], TraceStr: et.Serialize()}
	tm.AddTrace(vrt, 0, trcInst)
}

// ChanTrace records channel cache activity for a node pair
type ChanTrace struct {
	Time     float64
	LoID     int    // lower mobility id of the pair
	HiID     int    // higher mobility id of the pair
	Cond     string // "LOS" or "NLOS"
	Clusters int
	Op       string // "gen" or "hit"
}

func (ct *ChanTrace) TraceType() TraceRecordType {
	return ChanType
}

func (ct *ChanTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*ct)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// AddChanTrace creates a record of channel cache activity and stores it
func AddChanTrace(tm *TraceManager, vrt vrtime.Time, loID, hiID int, cond string,
	clusters int, op string) {

	ct := new(ChanTrace)
	ct.Time = vrt.Seconds()
	ct.LoID = loID
	ct.HiID = hiID
	ct.Cond = cond
	ct.Clusters = clusters
	ct.Op = op

	traceTime := strconv.FormatFloat(vrt.Seconds(), 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: trtToStr[ChanType], TraceStr: ct.Serialize()}
	tm.AddTrace(vrt, loID, trcInst)
}
