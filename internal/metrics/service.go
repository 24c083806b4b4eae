package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

type Service struct {
	DeltasApplied      prometheus.Counter
	DeltasDropped      prometheus.Counter
	SequenceGaps       prometheus.Counter
	Resyncs            prometheus.Counter
	Reconnects         *prometheus.CounterVec
	SnapshotFetch      prometheus.Histogram
	SnapshotFailures   prometheus.Counter
	PublishFailures    prometheus.Counter
	CommandsApplied    prometheus.Counter
	CommandsRejected   prometheus.Counter
	SlowClientsDropped prometheus.Counter
	ActiveConnections  prometheus.Gauge
}

// NewService creates and registers the Prometheus collectors.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		DeltasApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_deltas_applied_total",
			Help: "Deltas folded into the local match state.",
		}),
		DeltasDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_deltas_dropped_total",
			Help: "Deltas discarded as redeliveries.",
		}),
		SequenceGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_sequence_gaps_total",
			Help: "Deltas that arrived ahead of the next expected sequence number.",
		}),
		Resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_resyncs_total",
			Help: "Snapshot pulls started to reseed the match state.",
		}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cricket_realtime_reconnects_total",
			Help: "Reconnect attempts per realtime channel.",
		}, []string{"channel"}),
		SnapshotFetch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cricket_snapshot_fetch_duration_seconds",
			Help:    "Duration of successful snapshot pulls.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_snapshot_failures_total",
			Help: "Snapshot pulls that gave up.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_publish_failures_total",
			Help: "Scoring commands that could not be handed to the submit channel.",
		}),
		CommandsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_relay_commands_applied_total",
			Help: "Scoring commands accepted by the relay.",
		}),
		CommandsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_relay_commands_rejected_total",
			Help: "Scoring commands the relay refused.",
		}),
		SlowClientsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricket_relay_slow_clients_dropped_total",
			Help: "Subscribers disconnected for falling behind.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cricket_relay_active_connections",
			Help: "Open STOMP sessions on the relay.",
		}),
	}

	reg.MustRegister(
		s.DeltasApplied,
		s.DeltasDropped,
		s.SequenceGaps,
		s.Resyncs,
		s.Reconnects,
		s.SnapshotFetch,
		s.SnapshotFailures,
		s.PublishFailures,
		s.CommandsApplied,
		s.CommandsRejected,
		s.SlowClientsDropped,
		s.ActiveConnections,
	)

	return s
}

func (s *Service) IncDeltasApplied() { s.DeltasApplied.Inc() }
func (s *Service) IncDeltasDropped() { s.DeltasDropped.Inc() }
func (s *Service) IncSequenceGaps() { s.SequenceGaps.Inc() }
func (s *Service) IncResyncs() { s.Resyncs.Inc() }
func (s *Service) IncSnapshotFailures() { s.SnapshotFailures.Inc() }
func (s *Service) IncPublishFailures() { s.PublishFailures.Inc() }

func (s *Service) IncReconnects(channel string) {
	s.Reconnects.WithLabelValues(channel).Inc()
}

func (s *Service) ObserveSnapshotFetch(seconds float64) {
	s.SnapshotFetch.Observe(seconds)
}

func (s *Service) IncCommandsApplied() { s.CommandsApplied.Inc() }
func (s *Service) IncCommandsRejected() { s.CommandsRejected.Inc() }
func (s *Service) IncSlowClientsDropped() { s.SlowClientsDropped.Inc() }

func (s *Service) SetActiveConnections(n int) {
	s.ActiveConnections.Set(float64(n))
}
