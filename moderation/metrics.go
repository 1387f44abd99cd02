package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pointsAddedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_points_added_total",
	Help: "Total moderation points added (after clamping)",
})

var pendingBanCreatedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_point_bans_created_total",
	Help: "Number of pending point bans created",
})

var approvalCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_point_ban_approvals_total",
	Help: "Approval attempts on point bans, by result",
}, []string{"result"})

var declineCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_point_ban_declines_total",
	Help: "Decline attempts on point bans, by result",
}, []string{"result"})

var banExecutionErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_ban_execution_errors_total",
	Help: "Ban executions that failed after quorum was reached",
})

var periodRolloverCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_point_period_rollovers_total",
	Help: "Balances reset because a new monthly period started",
})
