package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const ExportDoneMessage = "Kampdata eksportert til Sheets."

type ExportResult struct {
	Week     int
	StartRow int
	Rows     int
	// Rewritten is set when the newest block in the grid already held this
	// session and was refreshed in place instead of appended again.
	Rewritten bool
}

type ExportService struct {
	grids     GridSource
	collector *CollectorService
	recorder  Recorder
	logger    *logging.Logger
}

func NewExportService(grids GridSource, collector *CollectorService, recorder Recorder, logger *logging.Logger) *ExportService {
	if recorder == nil {
		recorder = NewNoopRecorder()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ExportService{
		grids:     grids,
		collector: collector,
		recorder:  recorder,
		logger:    logger,
	}
}

// Export appends the latest posting session in channelID to the grid, one
// row per matchup, leaving a blank row between it and the previous block.
// A session that is already the newest block is rewritten in place so a
// repeated export never duplicates a week. week only labels logs; the
// session is found from channel history.
func (s *ExportService) Export(ctx context.Context, channelID string, week int) (result ExportResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ExportService.Export",
		attribute.String("channel_id", channelID),
		attribute.Int("week", week),
	)
	defer func() { endSpan(span, err) }()

	grid, err := s.grids.OpenGrid(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("%w: open grid: %w", ErrGridAccess, err)
	}

	participants, err := readParticipants(ctx, grid)
	if err != nil {
		return ExportResult{}, err
	}

	collected, err := s.collector.CollectSession(ctx, channelID, participants)
	if err != nil {
		return ExportResult{}, err
	}

	width := tipping.RowWidth(participants)
	values := make([][]string, 0, len(collected))
	for _, row := range collected {
		cells := make([]string, width)
		cells[0] = row.Code
		for _, p := range participants {
			cells[p.Index] = row.Picks[p.UserID]
		}
		values = append(values, cells)
	}

	colA, err := grid.ColumnValues(ctx, tipping.CodeColumn)
	if err != nil {
		return ExportResult{}, fmt.Errorf("%w: %w: read column A: %w", ErrExport, ErrGridAccess, err)
	}
	startRow := max(len(colA)+2, tipping.FirstMatchRow)
	start, block := lastCodeBlock(colA)
	rewritten := sameCodes(block, collected)
	if rewritten {
		startRow = start
	}

	if err := grid.WriteRange(ctx, startRow, tipping.CodeColumn, values); err != nil {
		return ExportResult{}, fmt.Errorf("%w: write rows to %q: %w", ErrExport, grid.Title(), err)
	}
	s.recorder.GridWrites("export", len(values)*width)

	s.logger.InfoContext(ctx, "exported matchup picks",
		"week", week,
		"start_row", startRow,
		"rows", len(values),
		"participants", len(participants),
		"rewritten", rewritten,
	)
	return ExportResult{Week: week, StartRow: startRow, Rows: len(values), Rewritten: rewritten}, nil
}

// readParticipants re-reads both header rows.
func readParticipants(ctx context.Context, grid tipping.Grid) ([]tipping.Participant, error) {
	names, err := grid.RowValues(ctx, tipping.NameRow)
	if err != nil {
		return nil, fmt.Errorf("%w: read name row: %w", ErrGridAccess, err)
	}
	ids, err := grid.RowValues(ctx, tipping.UserIDRow)
	if err != nil {
		return nil, fmt.Errorf("%w: read user id row: %w", ErrGridAccess, err)
	}
	return tipping.ParticipantsFromRows(names, ids), nil
}

// lastCodeBlock returns the newest run of match codes in column A and its
// first row, skipping trailing blanks and total rows.
func lastCodeBlock(colA []string) (int, []string) {
	end := len(colA) - 1
	for end >= tipping.FirstMatchRow-1 && !isCodeCell(colA[end]) {
		end--
	}
	if end < tipping.FirstMatchRow-1 {
		return 0, nil
	}
	start := end
	for start-1 >= tipping.FirstMatchRow-1 && isCodeCell(colA[start-1]) {
		start--
	}
	return start + 1, colA[start : end+1]
}

func isCodeCell(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && value != tipping.WeeklyLabel && value != tipping.SeasonLabel
}

func sameCodes(column []string, rows []CollectedRow) bool {
	if len(column) == 0 || len(column) != len(rows) {
		return false
	}
	for i, row := range rows {
		if strings.TrimSpace(column[i]) != row.Code {
			return false
		}
	}
	return true
}
