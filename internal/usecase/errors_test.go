package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
		ok   bool
	}{
		{name: "nil", err: nil},
		{name: "unknown", err: fmt.Errorf("boom")},
		{name: "no matchups", err: fmt.Errorf("fetch week 3: %w", ErrNoMatchupsFound), want: "Ingen kamper funnet for uka.", ok: true},
		{name: "export wins over grid access", err: fmt.Errorf("%w: %w: write", ErrExport, ErrGridAccess), want: "Eksport til Sheets feilet.", ok: true},
		{name: "ppr snapshot", err: fmt.Errorf("%w: append", ErrPPRSnapshot), want: "Klarte ikke lagre PPR-snapshot.", ok: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Category(tc.err)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
