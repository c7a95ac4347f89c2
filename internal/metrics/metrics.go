// Package metrics exposes Prometheus collectors for the HTTP surface, workout events, and workout generation.
package metrics

import (
	"time"

	"github.com/myrjola/liftcoach/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "liftcoach"

// NewRegistry creates a registry with the build info, Go runtime, and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct // defaults.
	)
	return reg
}

// Manager holds all application collectors.
type Manager struct {
	// http
	CounterRequests     *prometheus.CounterVec
	CounterPanics       prometheus.Counter
	GaugeInFlight       prometheus.Gauge
	HistRequestDuration *prometheus.HistogramVec

	// workouts
	CounterWorkoutsCompleted   prometheus.Counter
	CounterPersonalRecords     *prometheus.CounterVec
	CounterPRDetectionFailures prometheus.Counter

	// generation
	CounterGenerations       *prometheus.CounterVec
	CounterDroppedExercises  prometheus.Counter
	HistGenerationDuration   prometheus.Histogram
	CounterEmbeddedExercises prometheus.Counter
}

// NewManager registers the collectors with reg under subsystem.
func NewManager(subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of handled requests",
		}, []string{"method", "status"}),
		CounterPanics: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_panics_total",
			Help:      "The total number of recovered request panics",
		}),
		GaugeInFlight: factory.NewGauge(prometheus.GaugeOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_in_flight",
			Help:      "Current number of requests being served",
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Duration of requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"pattern"}),
		CounterWorkoutsCompleted: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workouts_completed_total",
			Help:      "The total number of completed workouts",
		}),
		CounterPersonalRecords: factory.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "personal_records_total",
			Help:      "The total number of personal records set",
		}, []string{"record_type"}),
		CounterPRDetectionFailures: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pr_detection_failures_total",
			Help:      "The total number of completed workouts whose personal record check failed",
		}),
		CounterGenerations: factory.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workout_generations_total",
			Help:      "The total number of workout generation attempts by outcome",
		}, []string{"outcome"}),
		CounterDroppedExercises: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "generated_exercises_dropped_total",
			Help:      "The total number of generated plan entries referencing exercises outside the candidate set",
		}),
		HistGenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workout_generation_duration_seconds",
			Help:      "Duration of successful workout generations in seconds",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		CounterEmbeddedExercises: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct // optional fields.
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "exercises_embedded_total",
			Help:      "The total number of catalog exercises embedded",
		}),
	}
}

// WorkoutCompleted counts a completed workout.
func (m *Manager) WorkoutCompleted() {
	m.CounterWorkoutsCompleted.Inc()
}

// PersonalRecordSet counts a new personal record.
func (m *Manager) PersonalRecordSet(recordType stats.RecordType) {
	m.CounterPersonalRecords.WithLabelValues(string(recordType)).Inc()
}

// PRDetectionFailed counts a failed personal record check.
func (m *Manager) PRDetectionFailed() {
	m.CounterPRDetectionFailures.Inc()
}

// GenerationSucceeded records a generated plan and the entries dropped from it.
func (m *Manager) GenerationSucceeded(duration time.Duration, dropped int) {
	m.CounterGenerations.WithLabelValues("success").Inc()
	m.HistGenerationDuration.Observe(duration.Seconds())
	m.CounterDroppedExercises.Add(float64(dropped))
}

// GenerationFailed counts a failed generation. Reason is a short fixed label such as "no_candidates".
func (m *Manager) GenerationFailed(reason string) {
	m.CounterGenerations.WithLabelValues(reason).Inc()
}

// ExercisesEmbedded counts backfilled catalog embeddings.
func (m *Manager) ExercisesEmbedded(n int) {
	m.CounterEmbeddedExercises.Add(float64(n))
}
