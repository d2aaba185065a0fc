// Package metrics exposes Prometheus counters for account file operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "acctstore"

// Operation labels
const (
	OpCreate  = "create"
	OpLoad    = "load"
	OpRename  = "rename"
	OpPersist = "persist"
	OpDelete  = "delete"
)

// Metrics holds the counters updated by the account store
type Metrics struct {
	AccountsCreated  prometheus.Counter
	CollisionProbes  prometheus.Counter
	Renames          prometheus.Counter
	OperationsFailed *prometheus.CounterVec
}

// New creates the counters and registers them on reg. A nil reg leaves them
// unregistered, which is handy for tests and one-shot CLI runs.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AccountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_created_total",
			Help:      "Account files created.",
		}),
		CollisionProbes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_name_collisions_total",
			Help:      "Display name probes that found the name already taken.",
		}),
		Renames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renames_total",
			Help:      "Successful display name changes.",
		}),
		OperationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_failed_total",
			Help:      "Store operations that returned an error, by operation.",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.AccountsCreated, m.CollisionProbes, m.Renames, m.OperationsFailed)
	}
	return m
}

// Failed counts one failure of op
func (m *Metrics) Failed(op string) {
	m.OperationsFailed.WithLabelValues(op).Inc()
}
