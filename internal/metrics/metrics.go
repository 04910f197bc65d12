// Package metrics holds the Prometheus counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "userinfobot"

var (
	// Updates counts inbound updates by selected route
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_total",
		Help:      "Inbound updates by route.",
	}, []string{"route"})

	// BroadcastSends counts per-recipient broadcast attempts
	BroadcastSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_sends_total",
		Help:      "Broadcast send attempts by result.",
	}, []string{"result"})

	// Backups counts scheduler runs
	Backups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backups_total",
		Help:      "Backup runs by result.",
	}, []string{"result"})

	// BanActions counts ban state transitions
	BanActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ban_actions_total",
		Help:      "Ban state changes by action.",
	}, []string{"action"})

	// HandlerPanics counts recovered panics
	HandlerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_panics_total",
		Help:      "Panics recovered in update handlers.",
	})
)

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Ban action labels
const (
	BanActionBan       = "ban"
	BanActionUnban     = "unban"
	BanActionDefer     = "defer"
	BanActionAutoUnban = "auto_unban"
	BanActionAppeal    = "appeal"
)
