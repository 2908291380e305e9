package usecase

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/vestsk/tippebot/internal/domain/matchup"
	"github.com/vestsk/tippebot/internal/domain/team"
	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/infrastructure/repository/memory"
	"github.com/vestsk/tippebot/internal/platform/logging"
)

const testBotID = "bot-1"

var testRegistry = team.MustDefaultRegistry()

func testLogger() *logging.Logger {
	return logging.NewNop()
}

func oslo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		t.Fatalf("load Europe/Oslo: %v", err)
	}
	return loc
}

// newTippingGrid returns a sheet whose header names Arild (u1) in column B,
// a blank column C and Knut (u2) in column D, followed by rows.
func newTippingGrid(rows ...[]string) *memory.Grid {
	all := [][]string{
		{"", "Arild", "", "Knut"},
		{"", "u1", "", "u2"},
	}
	return memory.NewGrid("Vestsk Tipping", append(all, rows...))
}

func gridSource(g tipping.Grid) GridSource {
	return GridSourceFunc(func(context.Context) (tipping.Grid, error) { return g, nil })
}

func workbookSource(wb tipping.Workbook) WorkbookSource {
	return WorkbookSourceFunc(func(context.Context) (tipping.Workbook, error) { return wb, nil })
}

func intPtr(v int) *int {
	return &v
}

func finalMatchup(away, home string, awayScore, homeScore int, kickoff time.Time) matchup.Matchup {
	m := scheduledMatchup(away, home, kickoff)
	m.AwayScore = intPtr(awayScore)
	m.HomeScore = intPtr(homeScore)
	m.Status = matchup.StatusFinished
	return m
}

func scheduledMatchup(away, home string, kickoff time.Time) matchup.Matchup {
	return matchup.Matchup{
		Code:      testRegistry.MatchCode(away, home),
		HomeTeam:  home,
		AwayTeam:  away,
		HomeShort: testRegistry.ShortOf(home),
		AwayShort: testRegistry.ShortOf(away),
		KickoffAt: kickoff,
		Status:    matchup.StatusScheduled,
	}
}

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

type countingRecorder struct {
	mu         sync.Mutex
	gridWrites map[string]int
	messages   map[string]int
	loopErrors map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		gridWrites: map[string]int{},
		messages:   map[string]int{},
		loopErrors: map[string]int{},
	}
}

func (r *countingRecorder) GridWrites(op string, cells int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gridWrites[op] += cells
}

func (r *countingRecorder) MessageSent(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[kind]++
}

func (r *countingRecorder) LoopError(loop string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loopErrors[loop]++
}
