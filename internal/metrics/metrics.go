package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DonationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodsaver_donations_created_total",
		Help: "Total number of donations successfully listed.",
	})

	DonationsClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodsaver_donations_claimed_total",
		Help: "Total number of donations claimed by NGOs.",
	})

	PickupsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodsaver_pickups_confirmed_total",
		Help: "Total number of pickups confirmed by volunteers.",
	})

	DeliveriesConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodsaver_deliveries_confirmed_total",
		Help: "Total number of deliveries confirmed by volunteers.",
	})

	RewardPointsCreditedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodsaver_reward_points_credited_total",
		Help: "Total reward points credited to volunteers.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodsaver_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)
)
