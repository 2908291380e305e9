package tipping

import "context"

type CellUpdate struct {
	Row   int
	Col   int
	Value string
}

type CellFormat struct {
	Row        int
	Col        int
	Background Color
	Foreground Color
}

// Grid is one worksheet addressed with 1-based rows and columns. Reads return
// trailing-trimmed rows as the backend reports them.
type Grid interface {
	Title() string
	RowValues(ctx context.Context, row int) ([]string, error)
	ColumnValues(ctx context.Context, col int) ([]string, error)
	AllValues(ctx context.Context) ([][]string, error)
	UpdateCells(ctx context.Context, updates []CellUpdate) error
	WriteRange(ctx context.Context, topRow, leftCol int, values [][]string) error
	FormatCells(ctx context.Context, formats []CellFormat) error
}

// Workbook opens worksheets of one spreadsheet by title.
type Workbook interface {
	Worksheet(ctx context.Context, title string) (Grid, error)
	WorksheetTitles(ctx context.Context) ([]string, error)
	AddWorksheet(ctx context.Context, title string, rows, cols int) (Grid, error)
}
