package provisioning

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	provisioningRuns = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "staffgate_provisioning_runs_total",
			Help: "Number of account provisioning runs, by result.",
		},
		[]string{"result"},
	)

	moduleAssignments = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "staffgate_module_assignments_total",
			Help: "Number of module assignment attempts, by module and resulting ledger status.",
		},
		[]string{"module", "status"},
	)
)

func runLabel(r *Result) string {
	switch {
	case !r.Success:
		return "failed"
	case r.PartialFailure:
		return "partial_failure"
	default:
		return "success"
	}
}

// outcomeLabel is the ledger status of the attempt, or "rejected" when no ledger row was written.
func outcomeLabel(r *ModuleResult) string {
	if r.SyncStatus == "" {
		return "rejected"
	}

	return string(r.SyncStatus)
}

