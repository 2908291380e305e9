package id

import "github.com/google/uuid"

// Generator creates opaque IDs used to correlate log lines of one invocation.
type Generator interface {
	NewID() string
}

type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Static always returns the same ID. Useful in tests.
type Static string

func (s Static) NewID() string {
	return string(s)
}
