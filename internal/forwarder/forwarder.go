// Package forwarder relays accepted reports to the Airbrake and Sentry backends.
package forwarder

import (
	"context"
	"errors"
	"net"

	"basegraph.app/airbrake-proxy/internal/model"
)

// Forwarder relays one report to one backend and reports how it went.
// Forward never retries; a failed relay drops the report.
type Forwarder interface {
	Forward(ctx context.Context, report model.Report) model.Classification
}

// isTimeout reports whether err came from a deadline firing rather than from
// the connection itself failing.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
