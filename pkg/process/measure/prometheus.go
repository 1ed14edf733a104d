package measure

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "process"

// PrometheusMeasure keeps the in-memory metrics of DefaultMeasure and mirrors every duration and failure
// into Prometheus collectors labelled by pipeline and step.
type PrometheusMeasure struct {
	*DefaultMeasure
	pipeline string
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewPrometheusMeasure registers its collectors on reg. A nil reg uses the default registerer.
func NewPrometheusMeasure(pipeline string, reg prometheus.Registerer) (*PrometheusMeasure, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	pm := &PrometheusMeasure{
		DefaultMeasure: NewDefaultMeasure(),
		pipeline:       pipeline,
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of a pipeline step.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"pipeline", "step"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Number of failed executions of a pipeline step.",
		}, []string{"pipeline", "step"}),
	}
	for _, collector := range []prometheus.Collector{pm.duration, pm.failures} {
		err := reg.Register(collector)
		if err != nil {
			return nil, errors.Wrap(err, "unable to register collector")
		}
	}

	return pm, nil
}

func (pm *PrometheusMeasure) AddMetric(name string) Metric {
	return &prometheusMetric{
		Metric:   pm.DefaultMeasure.AddMetric(name),
		duration: pm.duration.WithLabelValues(pm.pipeline, name),
		failures: pm.failures.WithLabelValues(pm.pipeline, name),
	}
}

func (pm *PrometheusMeasure) GetMetric(name string) Metric {
	mt := pm.DefaultMeasure.GetMetric(name)
	if mt == nil {
		return nil
	}

	return &prometheusMetric{
		Metric:   mt,
		duration: pm.duration.WithLabelValues(pm.pipeline, name),
		failures: pm.failures.WithLabelValues(pm.pipeline, name),
	}
}

type prometheusMetric struct {
	Metric
	duration prometheus.Observer
	failures prometheus.Counter
}

func (m *prometheusMetric) AddDuration(elapsed time.Duration) {
	m.Metric.AddDuration(elapsed)
	m.duration.Observe(elapsed.Seconds())
}

func (m *prometheusMetric) AddFailure() {
	m.Metric.AddFailure()
	m.failures.Inc()
}

var _ Measure = (*PrometheusMeasure)(nil)
