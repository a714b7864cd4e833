// Package metrics exports processor and server activity to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
)

const namespace = "ldx"

// Collector implements processor.Observer and carries the server gauges.
type Collector struct {
	commands     *prometheus.CounterVec // By kind
	responses    *prometheus.CounterVec // By kind and outcome (success/failure)
	ingestErrors prometheus.Counter
	passes       *prometheus.CounterVec // By result (completed/stalled)
	passDuration prometheus.Histogram
	quads        prometheus.Counter
	resources    prometheus.Gauge

	clients  prometheus.Gauge
	rejected *prometheus.CounterVec // By reason (invalid_frame/rate_limited)
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "commands_total",
			Help:      "Commands received by the processor",
		}, []string{"kind"}),

		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "responses_total",
			Help:      "Responses emitted by the processor",
		}, []string{"kind", "outcome"}),

		ingestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Parser errors reported during ingestion",
		}),

		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "passes_total",
			Help:      "Ingestion passes by how they ended",
		}, []string{"result"}),

		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "pass_duration_seconds",
			Help:      "Time from INIT to end of stream",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),

		quads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "quads_total",
			Help:      "Quads applied to the index",
		}),

		resources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "resources",
			Help:      "Resources in the index after the last completed pass",
		}),

		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),

		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "rejected_frames_total",
			Help:      "Inbound frames answered with an error frame",
		}, []string{"reason"}),
	}

	for _, col := range []prometheus.Collector{
		c.commands, c.responses, c.ingestErrors, c.passes, c.passDuration,
		c.quads, c.resources, c.clients, c.rejected,
	} {
		if err := reg.Register(col); err != nil {
			return nil, errors.Wrap(err, "register metrics")
		}
	}
	return c, nil
}

func (c *Collector) CommandReceived(cmd ld.Command) {
	c.commands.WithLabelValues(cmd.Kind.String()).Inc()
}

func (c *Collector) ResponseEmitted(resp ld.Response) {
	outcome := "success"
	if !resp.Success {
		outcome = "failure"
	}
	c.responses.WithLabelValues(resp.Command.Kind.String(), outcome).Inc()
}

func (c *Collector) IngestError(ld.Command, error) {
	c.ingestErrors.Inc()
}

func (c *Collector) PassCompleted(_ ld.Command, stats ingest.Stats, elapsed time.Duration) {
	c.passes.WithLabelValues("completed").Inc()
	c.passDuration.Observe(elapsed.Seconds())
	c.quads.Add(float64(stats.Quads))
	c.resources.Set(float64(stats.Resources))
}

func (c *Collector) PassStalled(_ ld.Command, stats ingest.Stats) {
	c.passes.WithLabelValues("stalled").Inc()
	c.quads.Add(float64(stats.Quads))
}

func (c *Collector) ClientConnected()    { c.clients.Inc() }
func (c *Collector) ClientDisconnected() { c.clients.Dec() }

// FrameRejected counts an inbound frame answered with an error frame.
func (c *Collector) FrameRejected(reason string) {
	c.rejected.WithLabelValues(reason).Inc()
}
