package metrics

import (
	"net/http"

	"medvault-server/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medvault",
		Name:      "repository_operations_total",
		Help:      "Repository operations by repository, operation and result code.",
	}, []string{"repository", "op", "result"})

	compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medvault",
		Name:      "compensations_total",
		Help:      "Compensating actions run after a failed two-step operation.",
	}, []string{"op", "result"})
)

// Observe counts one repository call. A nil err is recorded as "ok".
func Observe(repository, op string, err error) {
	operations.WithLabelValues(repository, op, result(err)).Inc()
}

// Compensation counts one cleanup attempt.
func Compensation(op string, err error) {
	compensations.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.CodeOf(err))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
