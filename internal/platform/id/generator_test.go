package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGenerator_ProducesDistinctUUIDs(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	first, second := gen.NewID(), gen.NewID()
	if first == second {
		t.Fatalf("expected distinct ids, got %s twice", first)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected uuid, got %q: %v", first, err)
	}
}
