package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwalitptl/patient-directory/internal/model"
)

// Metrics holds all application metrics
type Metrics struct {
	// Directory metrics
	Patients      prometheus.Gauge
	Mutations     *prometheus.CounterVec
	LoadFailures  prometheus.Counter
	LoadDuration  prometheus.Histogram
	AvatarUploads prometheus.Counter

	// Event publishing metrics
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Patients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "patients",
			Help:      "Current number of patients held by the directory",
		}),
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "mutations_total",
			Help:      "Total number of applied patient mutations",
		}, []string{"operation"}),
		LoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "load_failures_total",
			Help:      "Total number of failed initial patient loads",
		}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "load_duration_seconds",
			Help:      "Time spent fetching patients from the remote API",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		AvatarUploads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "avatar",
			Name:      "uploads_total",
			Help:      "Total number of stored avatar previews",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of change events handed to the broker",
		}, []string{"type", "status"}),
	}
}

// PatientChanged implements the directory observer.
func (m *Metrics) PatientChanged(change model.ChangeType, _ model.Patient, total int) {
	m.Mutations.WithLabelValues(string(change)).Inc()
	m.Patients.Set(float64(total))
}

// PatientsLoaded implements the directory observer.
func (m *Metrics) PatientsLoaded(total int, took time.Duration, err error) {
	m.LoadDuration.Observe(took.Seconds())
	if err != nil {
		m.LoadFailures.Inc()
		return
	}
	m.Patients.Set(float64(total))
}
