package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(gatewayCallLatencyMs)
}

var gatewayCallLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "gateway_call_latency_ms",
		Help:    "Outbound gateway call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
	},
	[]string{"route", "success"},
)

func ObserveGatewayCall(route string, elapsed time.Duration, success bool) {
	gatewayCallLatencyMs.WithLabelValues(route, strconv.FormatBool(success)).
		Observe(float64(elapsed.Milliseconds()))
}
