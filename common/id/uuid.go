package id

import "github.com/google/uuid"

// Length is the length of a canonical identifier (8-4-4-4-12 hex with dashes).
const Length = 36

// Generator issues correlation identifiers for accepted notices.
type Generator interface {
	New() string
}

type uuidGenerator struct{}

// NewGenerator returns a Generator backed by random (version 4) UUIDs.
func NewGenerator() Generator {
	return uuidGenerator{}
}

func (uuidGenerator) New() string {
	return uuid.NewString()
}

// Valid reports whether s is a canonical identifier.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
