package causal

import (
	"github.com/drpcorg/causal/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// Stats is a point-in-time snapshot of a coordinator.
type Stats struct {
	Processes int
	Events    map[clock.ProcessID]int
	Blocked   map[clock.ProcessID]int // reorder buffers only
}

// StatsSource is implemented by all three coordinators.
type StatsSource interface {
	Stats() Stats
}

// Collector exports coordinator state to Prometheus.
type Collector struct {
	src StatsSource

	processes *prometheus.Desc
	events    *prometheus.Desc
	blocked   *prometheus.Desc
}

func NewCollector(src StatsSource) *Collector {
	return &Collector{
		src: src,

		processes: prometheus.NewDesc(
			"causal_processes",
			"Number of registered processes",
			nil, nil,
		),
		events: prometheus.NewDesc(
			"causal_history_events_total",
			"Events appended to a process history",
			[]string{"process"}, nil,
		),
		blocked: prometheus.NewDesc(
			"causal_blocked_messages",
			"Messages held in a reorder buffer behind a sequence gap",
			[]string{"process"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.processes
	ch <- c.events
	ch <- c.blocked
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.processes, prometheus.GaugeValue, float64(st.Processes))
	for id, n := range st.Events {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(n), string(id))
	}
	for id, n := range st.Blocked {
		ch <- prometheus.MustNewConstMetric(c.blocked, prometheus.GaugeValue, float64(n), string(id))
	}
}

var _ prometheus.Collector = (*Collector)(nil)
