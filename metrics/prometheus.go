// Package metrics exposes prometheus instrumentation for the pricing
// engine: operation timings, trade counters and the number of open markets.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	engineTime = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credence",
			Subsystem: "engine",
			Name:      "seconds_total",
			Help:      "Time spent in engine operations",
		},
		[]string{"engine", "fn"},
	)

	tradeCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credence",
			Subsystem: "market",
			Name:      "trades_total",
			Help:      "Number of realized trades",
		},
		[]string{"side", "direction"},
	)

	marketGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "credence",
			Subsystem: "market",
			Name:      "open_markets",
			Help:      "Number of open markets",
		},
	)
)

// EngineTimeCounterAdd records the time spent in an engine operation,
// measured from the given start time. Use with defer at the top of the
// operation.
func EngineTimeCounterAdd(start time.Time, engine, fn string) {
	engineTime.WithLabelValues(engine, fn).Add(time.Since(start).Seconds())
}

// TradeCounterInc counts one realized trade.
func TradeCounterInc(side string, isBuy bool) {
	direction := "sell"
	if isBuy {
		direction = "buy"
	}
	tradeCounter.WithLabelValues(side, direction).Inc()
}

// MarketGaugeInc counts one newly opened market.
func MarketGaugeInc() {
	marketGauge.Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
