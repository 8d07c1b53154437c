package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StorageOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voidview_storage_ops_total",
			Help: "Storage file operations by file, op and result",
		},
		[]string{"file", "op", "result"}, // users|entities|experiments , view|update|init , ok|error
	)

	StorageOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voidview_storage_op_duration_seconds",
			Help:    "Wall time of a full load/mutate/save cycle, lock wait included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"file", "op"},
	)

	StorageLockWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voidview_storage_lock_wait_seconds",
			Help:    "Time spent waiting for a file lock",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"file"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		StorageOpsTotal,
		StorageOpDuration,
		StorageLockWait,
	)
}
