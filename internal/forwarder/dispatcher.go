package forwarder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"basegraph.app/airbrake-proxy/common/logger"
	"basegraph.app/airbrake-proxy/internal/metrics"
	"basegraph.app/airbrake-proxy/internal/model"
	"basegraph.app/airbrake-proxy/internal/store"
)

const (
	backendAirbrake = "airbrake"
	backendSentry   = "sentry"
)

// Dispatcher starts the relays for accepted reports. Each backend gets its own
// goroutine and neither waits on, nor cancels, the other.
type Dispatcher struct {
	airbrake Forwarder
	sentry   Forwarder
	store    store.CorrelationStore
	metrics  metrics.Sink

	wg sync.WaitGroup
}

// NewDispatcher builds a dispatcher. sentry may be nil when no secondary
// backend is configured.
func NewDispatcher(airbrake Forwarder, sentry Forwarder, correlations store.CorrelationStore, sink metrics.Sink) *Dispatcher {
	return &Dispatcher{
		airbrake: airbrake,
		sentry:   sentry,
		store:    correlations,
		metrics:  sink,
	}
}

// Dispatch launches the relays for report and returns immediately. The relays
// are detached from ctx's cancellation, so a client hanging up does not stop them.
func (d *Dispatcher) Dispatch(ctx context.Context, report model.Report) {
	ctx = context.WithoutCancel(ctx)
	ctx = logger.WithLogFields(ctx, logger.LogFields{ReportID: logger.Ptr(report.ID)})

	d.run(ctx, backendAirbrake, func(ctx context.Context) model.Classification {
		// The pending record must land before the forwarder can write the final one.
		if err := d.store.Set(ctx, report.ID, store.PendingSentinel); err != nil {
			slog.ErrorContext(ctx, "failed to store pending correlation", "error", err)
			d.metrics.Increment(metrics.CorrelationStoreFail)
		}
		return d.airbrake.Forward(ctx, report)
	})

	if d.sentry != nil {
		d.run(ctx, backendSentry, func(ctx context.Context) model.Classification {
			return d.sentry.Forward(ctx, report)
		})
	}
}

func (d *Dispatcher) run(ctx context.Context, backend string, relay func(context.Context) model.Classification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := logger.WithLogFields(ctx, logger.LogFields{
			Backend:   logger.Ptr(backend),
			Component: "airbrake-proxy.forwarder." + backend,
		})
		sc := logger.StartLinkedSpan(ctx, "relay."+backend)
		defer sc.End()
		ctx = sc.Context()

		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "panic recovered in relay", "panic", r)
				sc.RecordError(fmt.Errorf("panic: %v", r))
			}
		}()

		classification := relay(ctx)
		sc.SetAttributes(attribute.String("relay.classification", string(classification)))
	}()
}

// Wait blocks until every dispatched relay has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight relays: %w", ctx.Err())
	}
}
