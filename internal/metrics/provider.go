package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// SetupPrometheusProvider installs a Prometheus-backed MeterProvider as
// the process-wide otel.MeterProvider, so the package-level `meter` used
// by NewOTelMetrics's instruments reports through it, and returns an
// http.Handler serving the scrape endpoint plus a shutdown func for
// graceful exit. Go.mod's exporters/prometheus + sdk/metric requires
// exist for exactly this wiring (SPEC_FULL.md §2.3); cmd/eduosd calls
// this only when --metrics is passed.
func SetupPrometheusProvider() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return promhttp.Handler(), provider.Shutdown, nil
}
