package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vestsk/tippebot/internal/domain/matchup"
	"github.com/vestsk/tippebot/internal/domain/team"
	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// Standing is one participant's totals after a reconciliation run.
type Standing struct {
	Participant tipping.Participant
	Weekly      int
	Season      int
}

type ReconcileResult struct {
	Week        int
	WeeklyRow   int
	SeasonRow   int
	Standings   []Standing
	ValueWrites int
	Formats     int
}

type ReconcileService struct {
	schedule matchup.Schedule
	grids    GridSource
	registry *team.Registry
	recorder Recorder
	logger   *logging.Logger
}

func NewReconcileService(
	schedule matchup.Schedule,
	grids GridSource,
	registry *team.Registry,
	recorder Recorder,
	logger *logging.Logger,
) *ReconcileService {
	if recorder == nil {
		recorder = NewNoopRecorder()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReconcileService{
		schedule: schedule,
		grids:    grids,
		registry: registry,
		recorder: recorder,
		logger:   logger,
	}
}

type matchedRow struct {
	row    int
	winner string
	cells  []string
}

// Reconcile grades the stored picks for week against final results and
// writes the weekly and season totals below the week's block. week 0 means
// the feed's current week.
func (s *ReconcileService) Reconcile(ctx context.Context, week int) (result ReconcileResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Reconcile", attribute.Int("week", week))
	defer func() { endSpan(span, err) }()

	matchups, err := s.schedule.FetchWeek(ctx, week)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("fetch results for week %d: %w", week, err)
	}
	outcomes := matchup.OutcomeMap(matchups)
	weekCodes := make(map[string]struct{}, len(matchups))
	for _, m := range matchups {
		weekCodes[m.Code] = struct{}{}
	}

	grid, err := s.grids.OpenGrid(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: %w: open grid: %w", ErrReconciliation, ErrGridAccess, err)
	}
	participants, err := readParticipants(ctx, grid)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: %w", ErrReconciliation, err)
	}
	all, err := grid.AllValues(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: %w: read grid: %w", ErrReconciliation, ErrGridAccess, err)
	}

	matched := matchRows(all, outcomes)
	if len(matched) == 0 {
		return ReconcileResult{}, fmt.Errorf("%w: no exported rows match week %d results", ErrReconciliation, week)
	}

	weekly := make([]int, len(participants))
	formats := make([]tipping.CellFormat, 0, len(matched)*len(participants))
	for _, m := range matched {
		valid := s.registry.ValidShorts(m.winner)
		for i, p := range participants {
			class := tipping.Classify(tipping.CellValue(m.cells, p.Index), valid)
			if class == tipping.Correct {
				weekly[i]++
			}
			formats = append(formats, tipping.CellFormat{
				Row:        m.row,
				Col:        p.Column(),
				Background: class.Background(),
				Foreground: tipping.ColorBlack,
			})
		}
	}

	weeklyRow := blockEnd(all, matched[len(matched)-1].row, weekCodes) + 1
	seasonRow := weeklyRow + 1
	for _, target := range []struct {
		row   int
		label string
	}{{weeklyRow, tipping.WeeklyLabel}, {seasonRow, tipping.SeasonLabel}} {
		if !totalsRowFree(all, target.row, target.label) {
			return ReconcileResult{}, fmt.Errorf("%w: row %d is not blank and not a %s row", ErrReconciliation, target.row, target.label)
		}
	}
	previous := previousSeasonRow(all, weeklyRow)

	current := func(row, col int) string {
		if row-1 >= len(all) {
			return ""
		}
		return tipping.CellValue(all[row-1], col-1)
	}
	updates := make([]tipping.CellUpdate, 0, 2*len(participants)+2)
	setCell := func(row, col int, value string) {
		if current(row, col) != value {
			updates = append(updates, tipping.CellUpdate{Row: row, Col: col, Value: value})
		}
	}

	setCell(weeklyRow, tipping.CodeColumn, tipping.WeeklyLabel)
	setCell(seasonRow, tipping.CodeColumn, tipping.SeasonLabel)
	standings := make([]Standing, len(participants))
	for i, p := range participants {
		season := weekly[i] + tipping.ParseTotal(tipping.CellValue(previous, p.Index))
		setCell(weeklyRow, p.Column(), strconv.Itoa(weekly[i]))
		setCell(seasonRow, p.Column(), strconv.Itoa(season))
		standings[i] = Standing{Participant: p, Weekly: weekly[i], Season: season}
	}

	if len(updates) > 0 {
		if err := grid.UpdateCells(ctx, updates); err != nil {
			return ReconcileResult{}, fmt.Errorf("%w: %w: write totals: %w", ErrReconciliation, ErrGridAccess, err)
		}
		s.recorder.GridWrites("reconcile", len(updates))
	}
	// Styles go out only after every value write has landed.
	if len(formats) > 0 {
		if err := grid.FormatCells(ctx, formats); err != nil {
			return ReconcileResult{}, fmt.Errorf("%w: %w: format cells: %w", ErrReconciliation, ErrGridAccess, err)
		}
	}

	s.logger.InfoContext(ctx, "reconciled week",
		"week", week,
		"matched_rows", len(matched),
		"weekly_row", weeklyRow,
		"value_writes", len(updates),
		"formats", len(formats),
	)
	return ReconcileResult{
		Week:        week,
		WeeklyRow:   weeklyRow,
		SeasonRow:   seasonRow,
		Standings:   standings,
		ValueWrites: len(updates),
		Formats:     len(formats),
	}, nil
}

// blockEnd walks down from row while the following rows still hold match
// codes of the week, so undecided games stay inside the block.
func blockEnd(all [][]string, row int, weekCodes map[string]struct{}) int {
	for row < len(all) {
		code := strings.TrimSpace(tipping.CellValue(all[row], 0))
		if _, ok := weekCodes[code]; !ok {
			break
		}
		row++
	}
	return row
}

// totalsRowFree reports whether row (1-based) is blank or already carries
// label.
func totalsRowFree(all [][]string, row int, label string) bool {
	if row-1 >= len(all) {
		return true
	}
	cells := all[row-1]
	if strings.TrimSpace(tipping.CellValue(cells, 0)) == label {
		return true
	}
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// previousSeasonRow returns the last season-total row strictly above
// weeklyRow, or nil when there is none.
func previousSeasonRow(all [][]string, weeklyRow int) []string {
	var found []string
	for i := 0; i < weeklyRow-1 && i < len(all); i++ {
		if strings.TrimSpace(tipping.CellValue(all[i], 0)) == tipping.SeasonLabel {
			found = all[i]
		}
	}
	return found
}

// matchRows picks the grid rows whose code has a result, in row order. A
// rematch from an earlier week shares its code, so only the bottom-most row per
// code (the newest export) is kept.
func matchRows(all [][]string, outcomes map[string]string) []matchedRow {
	latest := make(map[string]int, len(outcomes))
	for i := tipping.FirstMatchRow - 1; i < len(all); i++ {
		code := strings.TrimSpace(tipping.CellValue(all[i], 0))
		if _, ok := outcomes[code]; ok {
			latest[code] = i
		}
	}
	out := make([]matchedRow, 0, len(latest))
	for i := tipping.FirstMatchRow - 1; i < len(all); i++ {
		code := strings.TrimSpace(tipping.CellValue(all[i], 0))
		if idx, ok := latest[code]; ok && idx == i {
			out = append(out, matchedRow{row: i + 1, winner: outcomes[code], cells: all[i]})
		}
	}
	return out
}
