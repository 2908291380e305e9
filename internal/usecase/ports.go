package usecase

import (
	"context"

	"github.com/vestsk/tippebot/internal/domain/tipping"
)

// LeagueProvider reports the fantasy league's current scoring week.
type LeagueProvider interface {
	CurrentWeek(ctx context.Context) (int, error)
}

// GridSource opens the tipping worksheet. It is called once per operation so
// that header changes in the sheet are picked up without a restart.
type GridSource interface {
	OpenGrid(ctx context.Context) (tipping.Grid, error)
}

type GridSourceFunc func(ctx context.Context) (tipping.Grid, error)

func (f GridSourceFunc) OpenGrid(ctx context.Context) (tipping.Grid, error) {
	return f(ctx)
}

// WorkbookSource opens the PPR spreadsheet.
type WorkbookSource interface {
	OpenWorkbook(ctx context.Context) (tipping.Workbook, error)
}

type WorkbookSourceFunc func(ctx context.Context) (tipping.Workbook, error)

func (f WorkbookSourceFunc) OpenWorkbook(ctx context.Context) (tipping.Workbook, error) {
	return f(ctx)
}

// Recorder receives operational counters.
type Recorder interface {
	GridWrites(operation string, cells int)
	MessageSent(kind string)
	LoopError(loop string)
}

type noopRecorder struct{}

func (noopRecorder) GridWrites(string, int) {}
func (noopRecorder) MessageSent(string)     {}
func (noopRecorder) LoopError(string)       {}

func NewNoopRecorder() Recorder {
	return noopRecorder{}
}
