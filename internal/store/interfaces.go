package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// PendingSentinel is stored for an identifier until Airbrake assigns a notice id.
const PendingSentinel = "null"

// CorrelationStore maps issued identifiers to Airbrake notice ids.
// Implementations only read and write single keys.
type CorrelationStore interface {
	// Get returns the stored value for id, or ErrNotFound.
	Get(ctx context.Context, id string) (string, error)
	// Set stores value for id, overwriting any previous value.
	Set(ctx context.Context, id, value string) error
}
