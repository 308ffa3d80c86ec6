package core

import (
	"time"

	"gymcore/internal/blob"
)

type serviceOptions struct {
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	photos  blob.Store
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:  ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger: noopLogger{},
	}
}

// ServiceOption customizes service construction.
type ServiceOption func(*serviceOptions)

// WithClock overrides the time source used for dates, stamps and metrics.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger installs a structured logger. The default discards everything.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder installs a per-operation metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) { o.metrics = rec }
}

// WithTracer installs a tracer that spans every service operation.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) { o.tracer = tracer }
}

// WithPhotoStore wires the blob backend that holds member photos.
func WithPhotoStore(store blob.Store) ServiceOption {
	return func(o *serviceOptions) { o.photos = store }
}
