// Package metrics instruments the watering loop with Prometheus counters
// and gauges on a private registry, exposed through the web /metrics
// endpoint. All methods are nil-safe so the daemon can run without metrics.
package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/grower/internal/watering"
)

// stateIndex is the value exported by the state gauge for each machine state.
var stateIndex = map[string]float64{
	watering.StateIdle:     0,
	watering.StateInitGPIO: 1,
	watering.StateTurnOn:   2,
	watering.StateTurnOff:  3,
	watering.StateWaiting:  4,
}

// Recorder holds the grower metrics.
type Recorder struct {
	registry *prom.Registry

	ticks           prom.Counter
	pulses          prom.Counter
	cyclesStarted   prom.Counter
	cyclesCompleted prom.Counter
	writeFailures   prom.Counter
	modeMismatches  prom.Counter
	reloads         *prom.CounterVec
	state           prom.Gauge
	scheduleEntries prom.Gauge
}

// New constructs and registers the grower metrics on a fresh private registry.
func New() *Recorder {
	reg := prom.NewRegistry()
	r := &Recorder{registry: reg}

	r.ticks = prom.NewCounter(prom.CounterOpts{
		Namespace: "grower",
		Name:      "ticks_total",
		Help:      "Watering loop iterations",
	})
	r.pulses = prom.NewCounter(prom.CounterOpts{
		Namespace: "grower",
		Name:      "pulses_total",
		Help:      "Completed valve pulses",
	})
	r.cyclesStarted = prom.NewCounter(prom.CounterOpts{
		Namespace: "grower",
		Name:      "cycles_started_total",
		Help:      "Watering cycles started",
	})
	r.cyclesCompleted = prom.NewCounter(prom.CounterOpts{
		Namespace: "grower",
		Name:      "cycles_completed_total",
		Help:      "Watering cycles completed (machine returned to Idle)",
	})
	r.writeFailures = prom.NewCounter(prom.CounterOpts{
		Namespace: "grower",
		Name:      "gpio_write_failures_total",
		Help:      "GPIO configure/write failures",
	})
	r.modeMismatches = prom.NewCounter(prom.CounterOpts{
		Namespace: "grower",
		Name:      "gpio_mode_mismatches_total",
		Help:      "Ticks refused because the schedule and controller pin-numbering modes differ",
	})
	r.reloads = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "grower",
		Name:      "schedule_reloads_total",
		Help:      "Schedule reload attempts by outcome",
	}, []string{"outcome"})
	r.state = prom.NewGauge(prom.GaugeOpts{
		Namespace: "grower",
		Name:      "state",
		Help:      "Current machine state (0=Idle 1=InitGPIO 2=TurnOn 3=TurnOff 4=Waiting)",
	})
	r.scheduleEntries = prom.NewGauge(prom.GaugeOpts{
		Namespace: "grower",
		Name:      "schedule_entries",
		Help:      "Entries in the loaded schedule",
	})

	reg.MustRegister(r.ticks, r.pulses, r.cyclesStarted, r.cyclesCompleted,
		r.writeFailures, r.modeMismatches, r.reloads, r.state, r.scheduleEntries)
	return r
}

// Registry exposes the private registry for the /metrics handler.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Observe folds one tick result into the metrics.
func (r *Recorder) Observe(res watering.Result) {
	if r == nil {
		return
	}
	r.ticks.Inc()
	if res.Pulse {
		r.pulses.Inc()
	}
	if res.CycleStarted {
		r.cyclesStarted.Inc()
	}
	if res.CycleCompleted {
		r.cyclesCompleted.Inc()
	}
	if res.GPIOErr != nil {
		r.writeFailures.Inc()
	}
	if res.ModeMismatch {
		r.modeMismatches.Inc()
	}
	if res.ReloadApplied {
		r.reloads.WithLabelValues("applied").Inc()
	}
	if res.ReloadErr != nil {
		r.reloads.WithLabelValues("failed").Inc()
	}
	if idx, ok := stateIndex[res.State]; ok {
		r.state.Set(idx)
	}
}

// SetScheduleEntries records the size of the loaded schedule.
func (r *Recorder) SetScheduleEntries(n int) {
	if r == nil {
		return
	}
	r.scheduleEntries.Set(float64(n))
}
