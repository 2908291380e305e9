package tipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantsFromRows_SkipsBlankIDs(t *testing.T) {
	t.Parallel()

	names := []string{"", "Kristoffer", "Ghost", "Arild", "Knut"}
	ids := []string{"Discord ID", "111", "  ", "222", "111"}

	got := ParticipantsFromRows(names, ids)
	require.Len(t, got, 2)
	assert.Equal(t, Participant{UserID: "111", DisplayName: "Kristoffer", Index: 1}, got[0])
	assert.Equal(t, Participant{UserID: "222", DisplayName: "Arild", Index: 3}, got[1])
	assert.Equal(t, 4, got[1].Column())
	assert.Equal(t, 4, RowWidth(got))

	for _, p := range got {
		assert.NotEmpty(t, p.UserID)
	}
}

func TestParticipantName_FallsBackToUserID(t *testing.T) {
	t.Parallel()

	got := ParticipantsFromRows([]string{"label"}, []string{"ids", "333"})
	require.Len(t, got, 1)
	assert.Equal(t, "333", got[0].Name())
}

func TestClassify(t *testing.T) {
	t.Parallel()

	valid := []string{"Patriots"}
	assert.Equal(t, Missing, Classify("", valid))
	assert.Equal(t, Correct, Classify("Patriots", valid))
	assert.Equal(t, Incorrect, Classify("Bills", valid))
	assert.Equal(t, Incorrect, Classify("Jets", valid), "non-competitor pick is just incorrect")
	assert.Equal(t, Correct, Classify("Draw", []string{"Draw"}))

	assert.Equal(t, ColorYellow, Missing.Background())
	assert.Equal(t, ColorGreen, Correct.Background())
	assert.Equal(t, ColorRed, Incorrect.Background())
	assert.NotEqual(t, Missing.Background(), Incorrect.Background())
}

func TestParseTotal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 12, ParseTotal(" 12 "))
	assert.Equal(t, 0, ParseTotal(""))
	assert.Equal(t, 0, ParseTotal("n/a"))
	assert.Equal(t, 0, ParseTotal("-3"))
}

func TestColumnLetter(t *testing.T) {
	t.Parallel()

	cases := map[int]string{1: "A", 2: "B", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for in, want := range cases {
		assert.Equal(t, want, ColumnLetter(in))
	}
	assert.Equal(t, "C7", A1(7, 3))
}
