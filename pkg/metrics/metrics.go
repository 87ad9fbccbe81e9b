// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keytypes.
//
// go-keytypes is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


// Package metrics provides Prometheus instrumentation for keychain and
// cryptographic operations.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all go-keytypes metrics
	Namespace = "keytypes"

	LabelOperation = "operation"
	LabelBackend   = "backend"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelKeyType   = "key_type"

	StatusSuccess = "success"
	StatusError   = "error"

	OpGenerate         = "generate"
	OpStore            = "store"
	OpRetrieve         = "retrieve"
	OpDelete           = "delete"
	OpList             = "list"
	OpStorePassword    = "store_password"
	OpRetrievePassword = "retrieve_password"
	OpDeletePassword   = "delete_password"
	OpSign             = "sign"
	OpVerify           = "verify"
	OpSeal             = "seal"
	OpOpen             = "open"
	OpAgree            = "agree"
)

var (
	// OperationsTotal counts operations by name, storage backend and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of keychain operations by type, backend, and status",
		},
		[]string{LabelOperation, LabelBackend, LabelStatus},
	)

	// OperationDuration tracks operation latency in seconds. Buckets cover
	// both in-process crypto and hardware round trips.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of keychain operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelOperation, LabelBackend},
	)

	// ErrorsTotal counts failures by operation and a short error class
	// such as "not_found" or "already_exists".
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, backend, and error type",
		},
		[]string{LabelOperation, LabelBackend, LabelErrorType},
	)

	// KeysGenerated counts generated keys by key type.
	KeysGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keys_generated_total",
			Help:      "Total number of generated keys by key type",
		},
		[]string{LabelKeyType},
	)

	// KeysTotal is the number of key records last listed in each backend.
	KeysTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "keys_total",
			Help:      "Total number of keys stored in each backend",
		},
		[]string{LabelBackend},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records an operation with its duration in seconds.
func RecordOperation(operation, backend, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, backend, status).Inc()
	OperationDuration.WithLabelValues(operation, backend).Observe(duration)
}

// RecordError records a failure of the given class.
func RecordError(operation, backend, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, backend, errorType).Inc()
}

// Observe records operation as started at start, with status and error
// class derived from err. classify may be nil.
//
//	start := time.Now()
//	err := doWork()
//	metrics.Observe(metrics.OpStore, "file", start, err, classify)
func Observe(operation, backend string, start time.Time, err error, classify func(error) string) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
		class := "internal"
		if classify != nil {
			class = classify(err)
		}
		RecordError(operation, backend, class)
	}
	RecordOperation(operation, backend, status, time.Since(start).Seconds())
}

// RecordKeyGenerated increments the generated key counter for keyType.
func RecordKeyGenerated(keyType string) {
	if !enabled.Load() {
		return
	}
	KeysGenerated.WithLabelValues(keyType).Inc()
}

// SetKeysTotal sets the stored key count for a backend.
func SetKeysTotal(backend string, count int) {
	if !enabled.Load() {
		return
	}
	KeysTotal.WithLabelValues(backend).Set(float64(count))
}

func Enable() {
	enabled.Store(true)
}

// Disable stops all recording. Useful in tests.
func Disable() {
	enabled.Store(false)
}

func IsEnabled() bool {
	return enabled.Load()
}
