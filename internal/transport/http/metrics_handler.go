package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus metrics endpoint. The otel meter
// provider writes to the default Prometheus registry via its exporter, so
// the stock promhttp handler serves everything.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
