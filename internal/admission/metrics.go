package admission

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/qrcourses/backend/internal/models"
)

// Outcome labels for admission decisions.
const (
	OutcomeAdmitted       = "admitted"
	OutcomeQuotaExceeded  = "quota_exceeded"
	OutcomeCourseNotFound = "course_not_found"
	OutcomeInvalid        = "invalid"
	OutcomeError          = "error"
)

// Metrics records admission decisions. A nil *Metrics is a no-op.
type Metrics struct {
	decisions *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewMetrics creates admission collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursereg",
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Registration admission decisions by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coursereg",
			Subsystem: "admission",
			Name:      "duration_seconds",
			Help:      "Time spent deciding and persisting a registration, lock wait included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.duration)
	}
	return m
}

func (m *Metrics) observe(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome(err)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func outcome(err error) string {
	var verr *models.ValidationError
	switch {
	case err == nil:
		return OutcomeAdmitted
	case errors.Is(err, ErrQuotaExceeded):
		return OutcomeQuotaExceeded
	case errors.Is(err, models.ErrCourseNotFound):
		return OutcomeCourseNotFound
	case errors.As(err, &verr):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
