package debug

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts correlation activity. A nil *Metrics is valid and
// records nothing, and one Metrics may be shared by many engines.
type Metrics struct {
	events      *prometheus.CounterVec
	stale       prometheus.Counter
	overflows   prometheus.Counter
	highlights  *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	records     prometheus.Gauge
}

func newDebugCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turtletrace",
			Subsystem: "debug",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newDebugCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "turtletrace",
		Subsystem: "debug",
		Name:      name,
		Help:      help,
	})
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		events:      newDebugCounterVec("events_total", "Runtime events applied, by kind.", []string{"kind"}),
		stale:       newDebugCounter("stale_events_total", "Events dropped because their id predates the session."),
		overflows:   newDebugCounter("resolve_overflows_total", "Resolve events beyond the appear or expected count."),
		highlights:  newDebugCounterVec("highlights_total", "Editor mark changes, by action.", []string{"action"}),
		resolutions: newDebugCounterVec("line_resolutions_total", "Source line lookups, by outcome.", []string{"outcome"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "turtletrace",
			Subsystem: "debug",
			Name:      "live_records",
			Help:      "Debug records not yet collected.",
		}),
	}
}

// Collectors returns every collector.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.events, m.stale, m.overflows, m.highlights, m.resolutions, m.records}
}

// Register registers every collector with reg. Collectors that are
// already registered are ignored.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *Metrics) event(kind EventKind) {
	if m != nil {
		m.events.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) staleEvent() {
	if m != nil {
		m.stale.Inc()
	}
}

func (m *Metrics) overflow() {
	if m != nil {
		m.overflows.Inc()
	}
}

func (m *Metrics) highlight(action string) {
	if m != nil {
		m.highlights.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) resolution(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.resolutions.WithLabelValues("resolved").Inc()
	} else {
		m.resolutions.WithLabelValues("unresolved").Inc()
	}
}

func (m *Metrics) recordsAdded(n int) {
	if m != nil && n != 0 {
		m.records.Add(float64(n))
	}
}
