package phydes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTraceManagerRecordsEventDispatch(t *testing.T) {
	tm := CreateTraceManager("trace-run", true)
	evtMgr := CreateEventManager()
	evtMgr.SetTraceManager(tm)

	at(evtMgr, 1.0, func() {})
	at(evtMgr, 2.0, func() {})
	evtMgr.RunAll()

	// event traces land under origin id 0
	require.Len(t, tm.Traces[0], 2)
	assert.Equal(t, "event", tm.Traces[0][0].TraceType)

	var et EvtTrace
	require.NoError(t, yaml.Unmarshal([]byte(tm.Traces[0][0].TraceStr), &et))
	assert.InDelta(t, 1.0, et.Time, 1e-9)
	assert.Equal(t, "exec", et.Op)
}

func TestTraceManagerRecordsChannelActivity(t *testing.T) {
	tm := CreateTraceManager("chan-run", true)
	lf := makeLinkFixture(2, 2, 1, 2, 0.100)
	lf.chanModel.SetTraceManager(tm)

	at(lf.evtMgr, 0.001, func() { lf.getAB() })
	at(lf.evtMgr, 0.002, func() { lf.getAB() })
	lf.evtMgr.RunAll()

	// channel traces land under the lower mobility id of the pair
	require.Len(t, tm.Traces[1], 2)

	var gen, hit ChanTrace
	require.NoError(t, yaml.Unmarshal([]byte(tm.Traces[1][0].TraceStr), &gen))
	require.NoError(t, yaml.Unmarshal([]byte(tm.Traces[1][1].TraceStr), &hit))
	assert.Equal(t, "gen", gen.Op)
	assert.Equal(t, "hit", hit.Op)
	assert.Equal(t, "NLOS", gen.Cond)
	assert.Equal(t, gen.Clusters, hit.Clusters)
}

func TestTraceManagerInactiveRecordsNothing(t *testing.T) {
	tm := CreateTraceManager("silent-run", false)
	evtMgr := CreateEventManager()
	evtMgr.SetTraceManager(tm)

	at(evtMgr, 1.0, func() {})
	evtMgr.RunAll()

	assert.Empty(t, tm.Traces)
	assert.False(t, tm.WriteToFile(filepath.Join(t.TempDir(), "out.yaml")))
}

func TestTraceManagerNameDictionary(t *testing.T) {
	tm := CreateTraceManager("names", true)
	tm.AddName(1, "bs-0", "node")
	tm.AddName(2, "ue-0", "node")
	assert.Panics(t, func() { tm.AddName(1, "again", "node") })

	path := filepath.Join(t.TempDir(), "trace.yaml")
	require.True(t, tm.WriteToFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	back := TraceManager{}
	require.NoError(t, yaml.Unmarshal(raw, &back))
	assert.Equal(t, "bs-0", back.NameByID[1].Name)
	assert.Equal(t, "node", back.NameByID[2].Type)
}

func TestSimCollectorTracksEngineAndChannel(t *testing.T) {
	reg := prometheus.NewRegistry()
	sc, err := CreateSimCollector(reg)
	require.NoError(t, err)

	lf := makeLinkFixture(2, 2, 2, 2, 0.100)
	lf.evtMgr.SetCollector(sc)
	lf.chanModel.SetCollector(sc)

	at(lf.evtMgr, 0.001, func() { lf.getAB() })
	at(lf.evtMgr, 0.002, func() { lf.getAB() })
	at(lf.evtMgr, 0.150, func() { lf.getAB() })
	lf.evtMgr.RunAll()

	assert.Equal(t, 3.0, testutil.ToFloat64(sc.EventsExecuted))
	assert.Equal(t, 2.0, testutil.ToFloat64(sc.ChannelRegens))
	assert.Equal(t, 0.0, testutil.ToFloat64(sc.EventQueueDepth))
	// one hit out of three lookups
	assert.InDelta(t, 1.0/3.0, testutil.ToFloat64(sc.ChannelHitRatio), 1e-9)
}

func TestSimCollectorSurvivesDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := CreateSimCollector(reg)
	require.NoError(t, err)

	second, err := CreateSimCollector(reg)
	require.NoError(t, err)

	first.IncChannelRegen()
	// both collectors share the registered series
	assert.Equal(t, 1.0, testutil.ToFloat64(second.ChannelRegens))
}

func TestSimCollectorNilReceiverHooks(t *testing.T) {
	var sc *SimCollector
	assert.NotPanics(t, func() {
		sc.IncEventsExecuted()
		sc.SetQueueDepth(3)
		sc.IncChannelRegen()
		sc.SetChannelHitRatio(0.5)
		sc.IncLongTermRecompute()
	})
}
