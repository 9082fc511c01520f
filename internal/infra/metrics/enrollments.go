package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(enrollmentsTotal)
}

var enrollmentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "enrollments_total",
		Help: "Enrollment mutations by action (granted/revoked).",
	},
	[]string{"action"},
)

func IncEnrollment(action string) {
	enrollmentsTotal.WithLabelValues(norm(action)).Inc()
}
