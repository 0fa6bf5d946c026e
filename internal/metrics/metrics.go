// Package metrics instruments the server with Prometheus counters and
// gauges, generalizing the teacher's ad-hoc `/stats` JSON handler
// (cmd/gameserver/main.go's handleStats) into real, scrape-based
// instrumentation. Grounded on
// iamvalenciia-kick-game-stream/fight-club-go's internal/api/observability.go
// use of promauto, trimmed to this server's own set of gauges/counters
// and without its pprof/debug-server concerns (no separate internal port
// here; /metrics is mounted on the main mux by internal/transport).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoomsActive is the number of rooms currently registered in the
	// repository, open or closed.
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modaltron_rooms_active",
		Help: "Number of rooms currently registered",
	})

	// SessionsActive is the number of live client connections.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modaltron_sessions_active",
		Help: "Number of currently connected sessions",
	})

	// AvatarsAlive is the number of avatars alive across all running
	// games at the last sample.
	AvatarsAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modaltron_avatars_alive",
		Help: "Number of avatars currently alive across all running games",
	})

	// TicksTotal counts every game tick processed, across every game.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modaltron_ticks_total",
		Help: "Total game ticks processed across all games",
	})

	// TickDuration observes how long one game tick takes to process.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "modaltron_tick_duration_seconds",
		Help:    "Time spent processing one game tick",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02},
	})

	// BonusesSpawnedTotal counts every bonus the bonus manager pops.
	BonusesSpawnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modaltron_bonuses_spawned_total",
		Help: "Total bonuses spawned by the bonus manager",
	})

	// CollisionsResolvedTotal counts every collision the spatial index
	// resolves into a die event.
	CollisionsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modaltron_collisions_resolved_total",
		Help: "Total collisions resolved into a death",
	})

	// WSConnectionsRejectedTotal is bounded-cardinality like the pack's
	// connection_rejected_total: reason is one of a small fixed set.
	WSConnectionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modaltron_ws_connections_rejected_total",
		Help: "WebSocket upgrade attempts rejected",
	}, []string{"reason"})
)

// RecordTick observes tick processing time and increments the tick counter.
func RecordTick(d time.Duration) {
	TicksTotal.Inc()
	TickDuration.Observe(d.Seconds())
}

// RecordCollision increments the resolved-collision counter.
func RecordCollision() { CollisionsResolvedTotal.Inc() }

// RecordBonusSpawn increments the bonus-spawn counter.
func RecordBonusSpawn() { BonusesSpawnedTotal.Inc() }

// RecordConnectionRejected increments the rejected-connection counter for
// the given reason ("origin", "upgrade_failed").
func RecordConnectionRejected(reason string) {
	WSConnectionsRejectedTotal.WithLabelValues(reason).Inc()
}
