package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/usecase"
	gsheets "google.golang.org/api/sheets/v4"
)

const formatFields = "userEnteredFormat.backgroundColor,userEnteredFormat.textFormat.foregroundColor"

// Workbook is one opened spreadsheet.
type Workbook struct {
	svc *Service
	id  string
}

func (w *Workbook) ID() string {
	return w.id
}

func (w *Workbook) properties(ctx context.Context) ([]*gsheets.SheetProperties, error) {
	ctx, cancel := w.svc.withTimeout(ctx)
	defer cancel()

	doc, err := w.svc.sheets.Spreadsheets.Get(w.id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, "read spreadsheet %s", w.id)
	}
	out := make([]*gsheets.SheetProperties, 0, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh.Properties != nil {
			out = append(out, sh.Properties)
		}
	}
	return out, nil
}

// Worksheet opens the sheet titled title, or the first sheet when title is
// empty.
func (w *Workbook) Worksheet(ctx context.Context, title string) (tipping.Grid, error) {
	props, err := w.properties(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		if title == "" || p.Title == title {
			return &Worksheet{svc: w.svc, spreadsheetID: w.id, sheetID: p.SheetId, title: p.Title}, nil
		}
	}
	return nil, fmt.Errorf("%w: %w: worksheet %q in %s", usecase.ErrGridAccess, usecase.ErrSheetNotFound, title, w.id)
}

func (w *Workbook) WorksheetTitles(ctx context.Context) ([]string, error) {
	props, err := w.properties(ctx)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(props))
	for _, p := range props {
		titles = append(titles, p.Title)
	}
	return titles, nil
}

func (w *Workbook) AddWorksheet(ctx context.Context, title string, rows, cols int) (tipping.Grid, error) {
	ctx, cancel := w.svc.withTimeout(ctx)
	defer cancel()

	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: []*gsheets.Request{{
		AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{
			Title:          title,
			GridProperties: &gsheets.GridProperties{RowCount: int64(rows), ColumnCount: int64(cols)},
		}},
	}}}
	resp, err := w.svc.sheets.Spreadsheets.BatchUpdate(w.id, req).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, "add worksheet %q", title)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return nil, fmt.Errorf("%w: add worksheet %q: empty reply", usecase.ErrGridAccess, title)
	}
	props := resp.Replies[0].AddSheet.Properties
	return &Worksheet{svc: w.svc, spreadsheetID: w.id, sheetID: props.SheetId, title: props.Title}, nil
}

// Worksheet implements tipping.Grid against one sheet tab. Every call
// carries the service timeout.
type Worksheet struct {
	svc           *Service
	spreadsheetID string
	sheetID       int64
	title         string
}

func (w *Worksheet) Title() string {
	return w.title
}

func (w *Worksheet) rangeOf(a1 string) string {
	quoted := "'" + strings.ReplaceAll(w.title, "'", "''") + "'"
	if a1 == "" {
		return quoted
	}
	return quoted + "!" + a1
}

func (w *Worksheet) get(ctx context.Context, a1, dimension string) ([][]string, error) {
	ctx, cancel := w.svc.withTimeout(ctx)
	defer cancel()

	rng := w.rangeOf(a1)
	vr, err := w.svc.sheets.Spreadsheets.Values.Get(w.spreadsheetID, rng).MajorDimension(dimension).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, "read %s", rng)
	}
	return toStrings(vr.Values), nil
}

func (w *Worksheet) RowValues(ctx context.Context, row int) ([]string, error) {
	rows, err := w.get(ctx, fmt.Sprintf("%d:%d", row, row), "ROWS")
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (w *Worksheet) ColumnValues(ctx context.Context, col int) ([]string, error) {
	letter := tipping.ColumnLetter(col)
	cols, err := w.get(ctx, letter+":"+letter, "COLUMNS")
	if err != nil || len(cols) == 0 {
		return nil, err
	}
	return cols[0], nil
}

func (w *Worksheet) AllValues(ctx context.Context) ([][]string, error) {
	return w.get(ctx, "", "ROWS")
}

func (w *Worksheet) UpdateCells(ctx context.Context, updates []tipping.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ctx, cancel := w.svc.withTimeout(ctx)
	defer cancel()

	data := make([]*gsheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &gsheets.ValueRange{
			Range:  w.rangeOf(tipping.A1(u.Row, u.Col)),
			Values: [][]any{{u.Value}},
		})
	}
	req := &gsheets.BatchUpdateValuesRequest{ValueInputOption: valueInputOption, Data: data}
	if _, err := w.svc.sheets.Spreadsheets.Values.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return wrapAPIError(err, "update %d cells in %s", len(updates), w.title)
	}
	return nil
}

func (w *Worksheet) WriteRange(ctx context.Context, topRow, leftCol int, values [][]string) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := w.svc.withTimeout(ctx)
	defer cancel()

	rows := make([][]any, 0, len(values))
	for _, row := range values {
		cells := make([]any, 0, len(row))
		for _, v := range row {
			cells = append(cells, v)
		}
		rows = append(rows, cells)
	}
	rng := w.rangeOf(tipping.A1(topRow, leftCol))
	_, err := w.svc.sheets.Spreadsheets.Values.Update(w.spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return wrapAPIError(err, "write %s", rng)
	}
	return nil
}

// FormatCells sends one batchUpdate with a repeatCell request per cell.
func (w *Worksheet) FormatCells(ctx context.Context, formats []tipping.CellFormat) error {
	if len(formats) == 0 {
		return nil
	}
	ctx, cancel := w.svc.withTimeout(ctx)
	defer cancel()

	requests := make([]*gsheets.Request, 0, len(formats))
	for _, f := range formats {
		requests = append(requests, &gsheets.Request{RepeatCell: &gsheets.RepeatCellRequest{
			Range: &gsheets.GridRange{
				SheetId:          w.sheetID,
				StartRowIndex:    int64(f.Row - 1),
				EndRowIndex:      int64(f.Row),
				StartColumnIndex: int64(f.Col - 1),
				EndColumnIndex:   int64(f.Col),
			},
			Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
				BackgroundColor: toColor(f.Background),
				TextFormat:      &gsheets.TextFormat{ForegroundColor: toColor(f.Foreground)},
			}},
			Fields: formatFields,
		}})
	}
	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := w.svc.sheets.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return wrapAPIError(err, "format %d cells in %s", len(formats), w.title)
	}
	return nil
}

func toColor(c tipping.Color) *gsheets.Color {
	return &gsheets.Color{Red: c.Red, Green: c.Green, Blue: c.Blue}
}

func toStrings(values [][]any) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			if v == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, fmt.Sprint(v))
		}
		out = append(out, cells)
	}
	return out
}
