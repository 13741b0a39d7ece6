package phydes

// metrics.go exposes Prometheus instrumentation for the event engine
// and the channel pipeline.  Attaching a collector is optional; all
// hooks tolerate a nil receiver so uninstrumented runs pay nothing.

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// SimCollector holds the simulation-level Prometheus metrics
type SimCollector struct {
	EventsExecuted     prometheus.Counter
	EventQueueDepth    prometheus.Gauge
	ChannelRegens      prometheus.Counter
	ChannelHitRatio    prometheus.Gauge
	LongTermRecomputes prometheus.Counter
}

// CreateSimCollector registers the simulation metrics against the
// provided registerer.  A nil registerer uses the default registry.
func CreateSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	executed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_events_executed_total",
		Help: "Cumulative number of events dispatched by the event manager.",
	})
	executed, err := registerCounter(reg, executed, "sim_events_executed_total")
	if err != nil {
		return nil, err
	}

	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_event_queue_depth",
		Help: "Number of entries currently in the event queue, cancelled included.",
	})
	depth, err = registerGauge(reg, depth, "sim_event_queue_depth")
	if err != nil {
		return nil, err
	}

	regens := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_channel_regenerations_total",
		Help: "Cumulative number of channel matrix generations.",
	})
	regens, err = registerCounter(reg, regens, "sim_channel_regenerations_total")
	if err != nil {
		return nil, err
	}

	hitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_channel_cache_hit_ratio",
		Help: "Hit ratio of the channel matrix cache.",
	})
	hitRatio, err = registerGauge(reg, hitRatio, "sim_channel_cache_hit_ratio")
	if err != nil {
		return nil, err
	}

	ltRecomputes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_long_term_recomputes_total",
		Help: "Cumulative number of long-term component recomputations in the spectrum model.",
	})
	ltRecomputes, err = registerCounter(reg, ltRecomputes, "sim_long_term_recomputes_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		EventsExecuted:     executed,
		EventQueueDepth:    depth,
		ChannelRegens:      regens,
		ChannelHitRatio:    hitRatio,
		LongTermRecomputes: ltRecomputes,
	}, nil
}

// IncEventsExecuted counts one dispatched event
func (sc *SimCollector) IncEventsExecuted() {
	if sc == nil || sc.EventsExecuted == nil {
		return
	}
	sc.EventsExecuted.Inc()
}

// SetQueueDepth updates the queue depth gauge
func (sc *SimCollector) SetQueueDepth(depth int) {
	if sc == nil || sc.EventQueueDepth == nil {
		return
	}
	sc.EventQueueDepth.Set(float64(depth))
}

// IncChannelRegen counts one channel matrix generation
func (sc *SimCollector) IncChannelRegen() {
	if sc == nil || sc.ChannelRegens == nil {
		return
	}
	sc.ChannelRegens.Inc()
}

// SetChannelHitRatio updates the cache hit ratio gauge
func (sc *SimCollector) SetChannelHitRatio(ratio float64) {
	if sc == nil || sc.ChannelHitRatio == nil {
		return
	}
	if ratio < 0.0 {
		ratio = 0.0
	}
	if ratio > 1.0 {
		ratio = 1.0
	}
	sc.ChannelHitRatio.Set(ratio)
}

// IncLongTermRecompute counts one long-term component recomputation
func (sc *SimCollector) IncLongTermRecompute() {
	if sc == nil || sc.LongTermRecomputes == nil {
		return
	}
	sc.LongTermRecomputes.Inc()
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
