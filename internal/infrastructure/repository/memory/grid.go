package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vestsk/tippebot/internal/domain/tipping"
)

// Grid is an in-process worksheet. Reads trim trailing empty cells and rows
// the way the spreadsheet API does.
type Grid struct {
	mu      sync.RWMutex
	title   string
	cells   [][]string
	formats map[cellKey]tipping.CellFormat

	cellWrites int
}

type cellKey struct {
	row int
	col int
}

func NewGrid(title string, rows [][]string) *Grid {
	return &Grid{
		title:   title,
		cells:   cloneRows(rows),
		formats: make(map[cellKey]tipping.CellFormat),
	}
}

func (g *Grid) Title() string {
	return g.title
}

func (g *Grid) RowValues(_ context.Context, row int) ([]string, error) {
	if row < 1 {
		return nil, fmt.Errorf("row %d out of range", row)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if row > len(g.cells) {
		return []string{}, nil
	}
	return trimRow(g.cells[row-1]), nil
}

func (g *Grid) ColumnValues(_ context.Context, col int) ([]string, error) {
	if col < 1 {
		return nil, fmt.Errorf("column %d out of range", col)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, len(g.cells))
	for i, row := range g.cells {
		out[i] = tipping.CellValue(row, col-1)
	}
	end := len(out)
	for end > 0 && out[end-1] == "" {
		end--
	}
	return out[:end], nil
}

func (g *Grid) AllValues(_ context.Context) ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([][]string, 0, len(g.cells))
	for _, row := range g.cells {
		out = append(out, trimRow(row))
	}
	end := len(out)
	for end > 0 && len(out[end-1]) == 0 {
		end--
	}
	return out[:end], nil
}

func (g *Grid) UpdateCells(_ context.Context, updates []tipping.CellUpdate) error {
	for _, u := range updates {
		if u.Row < 1 || u.Col < 1 {
			return fmt.Errorf("cell %d,%d out of range", u.Row, u.Col)
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, u := range updates {
		g.set(u.Row, u.Col, u.Value)
	}
	g.cellWrites += len(updates)
	return nil
}

func (g *Grid) WriteRange(_ context.Context, topRow, leftCol int, values [][]string) error {
	if topRow < 1 || leftCol < 1 {
		return fmt.Errorf("range origin %d,%d out of range", topRow, leftCol)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, row := range values {
		for j, value := range row {
			g.set(topRow+i, leftCol+j, value)
			g.cellWrites++
		}
	}
	return nil
}

func (g *Grid) FormatCells(_ context.Context, formats []tipping.CellFormat) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, f := range formats {
		g.formats[cellKey{row: f.Row, col: f.Col}] = f
	}
	return nil
}

// Cell returns the stored value at a 1-based position.
func (g *Grid) Cell(row, col int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if row < 1 || row > len(g.cells) {
		return ""
	}
	return tipping.CellValue(g.cells[row-1], col-1)
}

// Format returns the last format applied to a cell.
func (g *Grid) Format(row, col int) (tipping.CellFormat, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	f, ok := g.formats[cellKey{row: row, col: col}]
	return f, ok
}

// CellWrites counts every value written since creation.
func (g *Grid) CellWrites() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.cellWrites
}

// Rows returns a copy of the raw contents.
func (g *Grid) Rows() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return cloneRows(g.cells)
}

func (g *Grid) set(row, col int, value string) {
	for len(g.cells) < row {
		g.cells = append(g.cells, nil)
	}
	cells := g.cells[row-1]
	for len(cells) < col {
		cells = append(cells, "")
	}
	cells[col-1] = value
	g.cells[row-1] = cells
}

func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return append([]string{}, row[:end]...)
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
