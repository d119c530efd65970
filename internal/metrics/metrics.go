// Package metrics exposes Prometheus collectors for ledger operations.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "ledgerd/internal/errors"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	groupOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "transaction_group",
			Name:      "operations_total",
			Help:      "Transaction group operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	migrationGroups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "migration",
			Name:      "groups_total",
			Help:      "Transaction groups processed by the entry migration",
		},
		[]string{"result"},
	)
)

// Outcome labels for ObserveOperation.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Outcome classifies err for metric labels.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch {
		case appErr.StatusCode == 409:
			return OutcomeConflict
		case appErr.StatusCode < 500:
			return OutcomeRejected
		}
	}
	return OutcomeError
}

// ObserveOperation counts one transaction group operation.
func ObserveOperation(operation string, err error) {
	groupOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// AddMigrated counts groups the entry migration handled with the given result.
func AddMigrated(result string, n int) {
	if n > 0 {
		migrationGroups.WithLabelValues(result).Add(float64(n))
	}
}

// ObserveRequest records one HTTP request.
func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
