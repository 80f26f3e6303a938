package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess       = "success"
	outcomeReplayed      = "replayed"
	outcomeBusinessError = "business_error"
	outcomeError         = "error"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_commands_total",
		Help: "Points commands processed, by command and outcome",
	}, []string{"command", "outcome"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "points_command_duration_seconds",
		Help:    "Points command latency including the database transaction",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	idempotentReplays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_idempotent_replays_total",
		Help: "Commands answered from a stored idempotency outcome",
	}, []string{"scope"})

	balanceCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "points_balance_cache_total",
		Help: "Balance cache lookups and rejected stale writes by result",
	}, []string{"result"})
)

func outcomeOf(err error, replayed bool) string {
	switch {
	case err == nil && replayed:
		return outcomeReplayed
	case err == nil:
		return outcomeSuccess
	case IsBusinessError(err):
		return outcomeBusinessError
	default:
		return outcomeError
	}
}
