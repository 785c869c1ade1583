package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/clinicqueue"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount         metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	AssignmentCount      metric.Int64Counter
	RoutingFailureCount  metric.Int64Counter
	EstimatedWait        metric.Int64Histogram
	NotificationFailures metric.Int64Counter
	NotificationsDropped metric.Int64Counter
	ConsultationsStarted metric.Int64Counter
}

// Setup initializes OpenTelemetry trace and metric export over OTLP/gRPC
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			meterProvider.Shutdown(ctx),
			tracerProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationName))
}

// NewMetrics creates the instruments on the given meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.RequestCount, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.RequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.AssignmentCount, err = meter.Int64Counter(
		"clinic.assignment.count",
		metric.WithDescription("Number of patients assigned to a doctor"),
	); err != nil {
		return nil, err
	}

	if m.RoutingFailureCount, err = meter.Int64Counter(
		"clinic.routing.failure.count",
		metric.WithDescription("Number of patients no doctor could take"),
	); err != nil {
		return nil, err
	}

	if m.EstimatedWait, err = meter.Int64Histogram(
		"clinic.assignment.estimated_wait",
		metric.WithDescription("Estimated wait reported at assignment time"),
		metric.WithUnit("min"),
	); err != nil {
		return nil, err
	}

	if m.NotificationFailures, err = meter.Int64Counter(
		"clinic.notification.failure.count",
		metric.WithDescription("Number of notifications that failed to deliver"),
	); err != nil {
		return nil, err
	}

	if m.NotificationsDropped, err = meter.Int64Counter(
		"clinic.notification.dropped.count",
		metric.WithDescription("Number of notifications dropped because the buffer was full"),
	); err != nil {
		return nil, err
	}

	if m.ConsultationsStarted, err = meter.Int64Counter(
		"clinic.consultation.started.count",
		metric.WithDescription("Number of patients called into consultation"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordAssignment records a successful assignment and the wait it was quoted
func RecordAssignment(ctx context.Context, metrics *Metrics, specialization string, estimatedWaitMinutes int) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("doctor.specialization", specialization))
	metrics.AssignmentCount.Add(ctx, 1, attrs)
	metrics.EstimatedWait.Record(ctx, int64(estimatedWaitMinutes), attrs)
}

// RecordRoutingFailure records a patient that could not be routed
func RecordRoutingFailure(ctx context.Context, metrics *Metrics, condition string) {
	if metrics == nil {
		return
	}
	metrics.RoutingFailureCount.Add(ctx, 1, metric.WithAttributes(attribute.String("patient.condition", condition)))
}

// RecordNotificationFailure records a failed delivery on a channel
func RecordNotificationFailure(ctx context.Context, metrics *Metrics, channel string) {
	if metrics == nil {
		return
	}
	metrics.NotificationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("notification.channel", channel)))
}

// RecordNotificationDropped records a notification discarded by a full buffer
func RecordNotificationDropped(ctx context.Context, metrics *Metrics) {
	if metrics == nil {
		return
	}
	metrics.NotificationsDropped.Add(ctx, 1)
}

// RecordConsultationStarted records a patient called in by a doctor
func RecordConsultationStarted(ctx context.Context, metrics *Metrics, doctorID string) {
	if metrics == nil {
		return
	}
	metrics.ConsultationsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("doctor.id", doctorID)))
}
