package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupMutations counts structural mutations applied to the group forest by
	// operation (create|rename|update|reparent|delete|add_members|remove_member|move_member)
	// and result (success|error).
	GroupMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetgrid_group_mutations_total",
			Help: "Total number of target group mutations",
		},
		[]string{"operation", "result"},
	)

	// GroupCount tracks the number of groups currently held by the engine.
	GroupCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetgrid_groups",
			Help: "Number of target groups in the forest",
		},
	)

	// MembershipCount tracks the number of group/target membership pairs.
	MembershipCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetgrid_group_memberships",
			Help: "Number of group membership pairs",
		},
	)

	// ReconcilePrunes counts memberships removed by the catalog reconciler.
	ReconcilePrunes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetgrid_reconcile_pruned_memberships_total",
			Help: "Memberships pruned because their target left the catalog",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetgrid_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
