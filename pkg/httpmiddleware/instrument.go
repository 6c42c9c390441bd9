package httpmiddleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument wraps the handler with OpenTelemetry HTTP tracing and
// metrics under the given operation name.
func Instrument(operation string, tracerProvider trace.TracerProvider, meterProvider metric.MeterProvider) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, operation,
			otelhttp.WithTracerProvider(tracerProvider),
			otelhttp.WithMeterProvider(meterProvider),
		)
	}
}
