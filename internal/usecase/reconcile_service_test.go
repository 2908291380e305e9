package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vestsk/tippebot/internal/domain/matchup"
	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/infrastructure/repository/memory"
	matchupmock "github.com/vestsk/tippebot/internal/mocks/domain/matchup"
)

var kickoff = time.Date(2025, 9, 7, 17, 0, 0, 0, time.UTC)

func weekOneResults() []matchup.Matchup {
	return []matchup.Matchup{
		finalMatchup("Buffalo Bills", "New England Patriots", 17, 24, kickoff),
		finalMatchup("New York Jets", "Miami Dolphins", 20, 20, kickoff.Add(3*time.Hour)),
	}
}

func newTestReconcile(t *testing.T, results []matchup.Matchup, grid *memory.Grid) (*ReconcileService, *matchupmock.Schedule) {
	t.Helper()
	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 1).Return(results, nil)
	return NewReconcileService(schedule, gridSource(grid), testRegistry, nil, testLogger()), schedule
}

func TestReconcileService_Reconcile_ScoresAndWritesTotals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	grid := newTippingGrid(
		[]string{"Bills@Patriots", "Patriots", "", "Bills"},
		[]string{"Jets@Dolphins", "Draw", "", ""},
	)
	service, _ := newTestReconcile(t, weekOneResults(), grid)

	result, err := service.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, result.WeeklyRow)
	assert.Equal(t, 6, result.SeasonRow)
	require.Len(t, result.Standings, 2)
	assert.Equal(t, Standing{Participant: testParticipants[0], Weekly: 2, Season: 2}, result.Standings[0])
	assert.Equal(t, Standing{Participant: testParticipants[1], Weekly: 0, Season: 0}, result.Standings[1])

	assert.Equal(t, "Ukespoeng", grid.Cell(5, 1))
	assert.Equal(t, "2", grid.Cell(5, 2))
	assert.Equal(t, "", grid.Cell(5, 3))
	assert.Equal(t, "0", grid.Cell(5, 4))
	assert.Equal(t, "Sesongpoeng", grid.Cell(6, 1))
	assert.Equal(t, "2", grid.Cell(6, 2))

	// Picks are graded, never rewritten.
	assert.Equal(t, "Patriots", grid.Cell(3, 2))
	assert.Equal(t, "Bills", grid.Cell(3, 4))

	cases := []struct {
		row, col int
		want     tipping.Color
	}{
		{3, 2, tipping.ColorGreen},
		{3, 4, tipping.ColorRed},
		{4, 2, tipping.ColorGreen},
		{4, 4, tipping.ColorYellow},
	}
	for _, tc := range cases {
		f, ok := grid.Format(tc.row, tc.col)
		require.True(t, ok, "format at %d,%d", tc.row, tc.col)
		assert.Equal(t, tc.want, f.Background, "background at %d,%d", tc.row, tc.col)
		assert.Equal(t, tipping.ColorBlack, f.Foreground)
	}
	_, styled := grid.Format(3, 3)
	assert.False(t, styled, "blank header column is not graded")
}

func TestReconcileService_Reconcile_SecondRunWritesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	grid := newTippingGrid(
		[]string{"Bills@Patriots", "Patriots", "", "Bills"},
		[]string{"Jets@Dolphins", "Draw", "", ""},
	)
	service, _ := newTestReconcile(t, weekOneResults(), grid)

	first, err := service.Reconcile(ctx, 1)
	require.NoError(t, err)
	writes := grid.CellWrites()
	assert.Positive(t, first.ValueWrites)

	second, err := service.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, second.ValueWrites)
	assert.Equal(t, writes, grid.CellWrites())
	assert.Equal(t, first.Standings, second.Standings)
	assert.Equal(t, first.WeeklyRow, second.WeeklyRow)
}

func TestReconcileService_Reconcile_AddsPreviousSeasonTotal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	grid := newTippingGrid(
		[]string{"Ravens@Bengals", "Ravens", "", "Bengals"},
		[]string{"Ukespoeng", "1", "", "0"},
		[]string{"Sesongpoeng", "7", "", "n/a"},
		[]string{},
		[]string{"Bills@Patriots", "Patriots", "", "Patriots"},
		[]string{"Jets@Dolphins", "Jets", "", "Draw"},
	)
	service, _ := newTestReconcile(t, weekOneResults(), grid)

	result, err := service.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, result.WeeklyRow)
	assert.Equal(t, 8, result.Standings[0].Season, "7 carried + 1 this week")
	assert.Equal(t, 2, result.Standings[1].Season, "non-numeric carry counts as 0")
	assert.Equal(t, "8", grid.Cell(10, 2))
	assert.Equal(t, "2", grid.Cell(10, 4))
}

func TestReconcileService_Reconcile_IgnoresOlderRematchRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	grid := newTippingGrid(
		[]string{"Bills@Patriots", "Bills", "", "Bills"},
		[]string{"Ukespoeng", "0", "", "0"},
		[]string{"Sesongpoeng", "0", "", "0"},
		[]string{},
		[]string{"Bills@Patriots", "Patriots", "", ""},
	)
	results := []matchup.Matchup{finalMatchup("Buffalo Bills", "New England Patriots", 17, 24, kickoff)}
	service, _ := newTestReconcile(t, results, grid)

	result, err := service.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, result.WeeklyRow)
	assert.Equal(t, 1, result.Standings[0].Weekly)
	_, styled := grid.Format(3, 2)
	assert.False(t, styled)
}

func TestReconcileService_Reconcile_SkipsUndecidedRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	grid := newTippingGrid(
		[]string{"Bills@Patriots", "Patriots", "", "Bills"},
		[]string{"Jets@Dolphins", "Jets", "", "Dolphins"},
	)
	results := []matchup.Matchup{
		finalMatchup("Buffalo Bills", "New England Patriots", 17, 24, kickoff),
		scheduledMatchup("New York Jets", "Miami Dolphins", kickoff.Add(24*time.Hour)),
	}
	service, _ := newTestReconcile(t, results, grid)

	result, err := service.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, result.WeeklyRow, "totals go below the whole block")
	assert.Equal(t, 1, result.Standings[0].Weekly)
	assert.Equal(t, 0, result.Standings[1].Weekly)

	f, ok := grid.Format(3, 2)
	require.True(t, ok)
	assert.Equal(t, tipping.ColorGreen, f.Background)
	for _, col := range []int{2, 4} {
		_, styled := grid.Format(4, col)
		assert.False(t, styled, "undecided row is not graded at column %d", col)
	}
	assert.Equal(t, "Jets@Dolphins", grid.Cell(4, 1))
	assert.Equal(t, "Jets", grid.Cell(4, 2))
	assert.Equal(t, "Dolphins", grid.Cell(4, 4))
	assert.Equal(t, "Ukespoeng", grid.Cell(5, 1))
}

func TestReconcileService_Reconcile_RefusesToOverwriteNextBlock(t *testing.T) {
	t.Parallel()

	grid := newTippingGrid(
		[]string{"Bills@Patriots", "Patriots", "", "Bills"},
		[]string{},
		[]string{"Ravens@Bengals", "Ravens", "", "Bengals"},
	)
	results := []matchup.Matchup{finalMatchup("Buffalo Bills", "New England Patriots", 17, 24, kickoff)}
	service, _ := newTestReconcile(t, results, grid)

	_, err := service.Reconcile(context.Background(), 1)
	if !errors.Is(err, ErrReconciliation) {
		t.Fatalf("expected ErrReconciliation, got %v", err)
	}
	assert.Zero(t, grid.CellWrites())
	assert.Equal(t, "Ravens@Bengals", grid.Cell(5, 1))
	assert.Equal(t, "Ravens", grid.Cell(5, 2))
	_, styled := grid.Format(3, 2)
	assert.False(t, styled)
}

func TestReconcileService_Reconcile_NoExportedRows(t *testing.T) {
	t.Parallel()

	grid := newTippingGrid([]string{"Ravens@Bengals", "Ravens"})
	service, _ := newTestReconcile(t, weekOneResults(), grid)

	_, err := service.Reconcile(context.Background(), 1)
	if !errors.Is(err, ErrReconciliation) {
		t.Fatalf("expected ErrReconciliation, got %v", err)
	}
}

func TestReconcileService_Reconcile_PropagatesFeedErrors(t *testing.T) {
	t.Parallel()

	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 4).Return(nil, ErrNoMatchupsFound)
	service := NewReconcileService(schedule, gridSource(newTippingGrid()), testRegistry, nil, testLogger())

	_, err := service.Reconcile(context.Background(), 4)
	if !errors.Is(err, ErrNoMatchupsFound) {
		t.Fatalf("expected ErrNoMatchupsFound, got %v", err)
	}
	if errors.Is(err, ErrUpstreamFetch) {
		t.Fatalf("no-matchups must stay distinct from upstream failures: %v", err)
	}
}

func TestFormatLeaderboard(t *testing.T) {
	t.Parallel()

	standings := []Standing{
		{Participant: testParticipants[0], Weekly: 1, Season: 9},
		{Participant: testParticipants[1], Weekly: 3, Season: 9},
		{Participant: tipping.Participant{UserID: "u3", Index: 4}, Weekly: 1, Season: 12},
	}

	want := "```Poeng for uke 5:\n" +
		"1. Knut       3\n" +
		"2. Arild      1\n" +
		"3. u3         1\n" +
		"\n" +
		"Sesongtotal:\n" +
		"1. u3         12\n" +
		"2. Knut       9\n" +
		"3. Arild      9\n" +
		"```"
	assert.Equal(t, want, FormatLeaderboard(5, standings))

	msgs := ReconcileMessages(ReconcileResult{Standings: standings})
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "Poeng for uke nåværende:")
	assert.Equal(t, "✅ Resultater for uke nåværende er oppdatert.", msgs[1])
}
