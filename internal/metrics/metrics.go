package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github/chapool/go-signer/internal/config"
	"github/chapool/go-signer/internal/queue"
)

const namespace = "signer"

// Service owns the prometheus registry of the signer and the collectors of the card queue
type Service struct {
	Registry *prometheus.Registry

	tasks    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	resets   prometheus.Counter
	rejected prometheus.Counter
	depth    prometheus.Gauge
}

var _ queue.Observer = (*Service)(nil)

// New creates the metrics service. Collectors are registered only when metrics are enabled,
// observing is always safe.
func New(cfg config.Server) (*Service, error) {
	s := &Service{
		Registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "tasks_total",
			Help:      "Number of finished card tasks by label and result.",
		}, []string{"label", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "task_duration_seconds",
			Help:      "Execution time of card tasks by label.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"label"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "resets_total",
			Help:      "Number of queue resets.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "rejected_tasks_total",
			Help:      "Number of waiting tasks rejected by queue resets.",
		}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of tasks waiting in the card queue at the last enqueue or reset.",
		}),
	}

	if !cfg.Metrics.Enabled {
		return s, nil
	}

	for _, c := range []prometheus.Collector{s.tasks, s.duration, s.resets, s.rejected, s.depth} {
		if err := s.Registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register collector")
		}
	}

	return s, nil
}

func (s *Service) TaskEnqueued(_ string, depth int) {
	s.depth.Set(float64(depth))
}

func (s *Service) TaskFinished(label string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}

	s.tasks.WithLabelValues(label, result).Inc()
	s.duration.WithLabelValues(label).Observe(duration.Seconds())
}

func (s *Service) QueueReset(rejected int) {
	s.resets.Inc()
	s.rejected.Add(float64(rejected))
	s.depth.Set(0)
}
