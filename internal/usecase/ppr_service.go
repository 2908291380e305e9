package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/valyala/bytebufferpool"
	"github.com/vestsk/tippebot/internal/domain/ppr"
	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultPPRWorkers   = 4
	historySheetRows    = 1000
	historySheetColumns = 10
	pprValueIndex       = 1
)

type PPRConfig struct {
	Season    int
	Players   []string
	TeamNames map[string]string
	Workers   int
}

type PPRService struct {
	workbooks WorkbookSource
	cfg       PPRConfig
	recorder  Recorder
	logger    *logging.Logger
}

func NewPPRService(workbooks WorkbookSource, cfg PPRConfig, recorder Recorder, logger *logging.Logger) *PPRService {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultPPRWorkers
	}
	if recorder == nil {
		recorder = NewNoopRecorder()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PPRService{
		workbooks: workbooks,
		cfg:       cfg,
		recorder:  recorder,
		logger:    logger,
	}
}

// Run ranks the configured players by this season's PPR, sends the ranking
// through reply and then appends it to the history worksheet.
func (s *PPRService) Run(ctx context.Context, reply func(ctx context.Context, text string) error) (entries []ppr.Entry, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PPRService.Run", attribute.Int("season", s.cfg.Season))
	defer func() { endSpan(span, err) }()

	book, err := s.workbooks.OpenWorkbook(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: open workbook: %w", ErrPPRFetch, ErrGridAccess, err)
	}

	readings, err := s.readings(ctx, book)
	if err != nil {
		return nil, err
	}

	history, err := s.historySheet(ctx, book)
	if err != nil {
		return nil, err
	}
	rows, err := history.AllValues(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrPPRFetch, ppr.HistorySheet, err)
	}

	entries = ppr.Rank(readings, s.cfg.TeamNames, ppr.ParseHistory(rows))
	if err := reply(ctx, FormatPPR(entries)); err != nil {
		return entries, fmt.Errorf("%w: send ppr ranking: %w", ErrResponse, err)
	}
	s.recorder.MessageSent("ppr")

	if len(entries) == 0 {
		s.logger.WarnContext(ctx, "no ppr readings to snapshot", "season", s.cfg.Season)
		return entries, nil
	}
	colA, err := history.ColumnValues(ctx, 1)
	if err != nil {
		return entries, fmt.Errorf("%w: read history column: %w", ErrPPRSnapshot, err)
	}
	snapshot := ppr.SnapshotRows(entries)
	if err := history.WriteRange(ctx, len(colA)+1, 1, snapshot); err != nil {
		return entries, fmt.Errorf("%w: append snapshot: %w", ErrPPRSnapshot, err)
	}
	s.recorder.GridWrites("ppr_snapshot", len(snapshot)*3)

	s.logger.InfoContext(ctx, "ppr snapshot saved", "season", s.cfg.Season, "entries", len(entries))
	return entries, nil
}

// readings loads every configured player worksheet concurrently. Players
// without a worksheet are skipped; a worksheet without a parsable season row
// fails the whole run.
func (s *PPRService) readings(ctx context.Context, book tipping.Workbook) ([]ppr.Reading, error) {
	titles, err := book.WorksheetTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list worksheets: %w", ErrPPRFetch, err)
	}
	present := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		present[title] = struct{}{}
	}

	order := make(map[string]int, len(s.cfg.Players))
	p := pool.NewWithResults[ppr.Reading]().
		WithMaxGoroutines(s.cfg.Workers).
		WithContext(ctx).
		WithCancelOnError()
	for i, owner := range s.cfg.Players {
		if _, ok := present[owner]; !ok {
			s.logger.DebugContext(ctx, "ppr worksheet missing", "owner", owner)
			continue
		}
		order[owner] = i
		p.Go(func(ctx context.Context) (ppr.Reading, error) {
			return s.reading(ctx, book, owner)
		})
	}
	readings, err := p.Wait()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(readings, func(i, j int) bool { return order[readings[i].Owner] < order[readings[j].Owner] })
	s.logger.InfoContext(ctx, "fetched ppr readings", "season", s.cfg.Season, "players", len(readings))
	return readings, nil
}

func (s *PPRService) reading(ctx context.Context, book tipping.Workbook, owner string) (ppr.Reading, error) {
	sheet, err := book.Worksheet(ctx, owner)
	if err != nil {
		return ppr.Reading{}, fmt.Errorf("%w: open worksheet %q: %w", ErrPPRFetch, owner, err)
	}
	rows, err := sheet.AllValues(ctx)
	if err != nil {
		return ppr.Reading{}, fmt.Errorf("%w: read worksheet %q: %w", ErrPPRFetch, owner, err)
	}

	season := strconv.Itoa(s.cfg.Season)
	for i, row := range rows {
		if tipping.CellValue(row, 0) != season {
			continue
		}
		raw := strings.TrimSpace(tipping.CellValue(row, pprValueIndex))
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return ppr.Reading{}, fmt.Errorf("%w: %s season %s row %d: invalid ppr %q", ErrPPRFetch, owner, season, i+1, raw)
		}
		return ppr.Reading{Owner: owner, PPR: value}, nil
	}
	return ppr.Reading{}, fmt.Errorf("%w: %s has no row for season %s", ErrPPRFetch, owner, season)
}

func (s *PPRService) historySheet(ctx context.Context, book tipping.Workbook) (tipping.Grid, error) {
	titles, err := book.WorksheetTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list worksheets: %w", ErrPPRSnapshot, err)
	}
	for _, title := range titles {
		if title != ppr.HistorySheet {
			continue
		}
		sheet, err := book.Worksheet(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", ErrPPRFetch, title, err)
		}
		return sheet, nil
	}
	s.logger.InfoContext(ctx, "creating ppr history worksheet", "title", ppr.HistorySheet)
	sheet, err := book.AddWorksheet(ctx, ppr.HistorySheet, historySheetRows, historySheetColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrPPRSnapshot, ppr.HistorySheet, err)
	}
	return sheet, nil
}

// FormatPPR renders the ranking as a fixed-width text block.
func FormatPPR(entries []ppr.Entry) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("```text\n")
	for i, e := range entries {
		if i > 0 {
			_ = buf.WriteByte('\n')
		}
		_, _ = buf.WriteString(e.Line())
	}
	_, _ = buf.WriteString("\n```")
	return buf.String()
}
