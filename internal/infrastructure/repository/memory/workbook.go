package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"

	"github.com/vestsk/tippebot/internal/domain/tipping"
)

// Workbook holds in-process worksheets in creation order.
type Workbook struct {
	mu     sync.RWMutex
	order  []string
	sheets map[string]*Grid
}

func NewWorkbook(grids ...*Grid) *Workbook {
	wb := &Workbook{sheets: make(map[string]*Grid, len(grids))}
	for _, g := range grids {
		wb.order = append(wb.order, g.Title())
		wb.sheets[g.Title()] = g
	}
	return wb
}

func (w *Workbook) Worksheet(_ context.Context, title string) (tipping.Grid, error) {
	g, ok := w.Grid(title)
	if !ok {
		return nil, fmt.Errorf("worksheet %q not found", title)
	}
	return g, nil
}

// Grid returns the concrete worksheet for assertions.
func (w *Workbook) Grid(title string) (*Grid, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	g, ok := w.sheets[title]
	return g, ok
}

func (w *Workbook) WorksheetTitles(_ context.Context) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return append([]string(nil), w.order...), nil
}

func (w *Workbook) AddWorksheet(_ context.Context, title string, _, _ int) (tipping.Grid, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.sheets[title]; exists {
		return nil, fmt.Errorf("worksheet %q already exists", title)
	}
	g := NewGrid(title, nil)
	w.order = append(w.order, title)
	w.sheets[title] = g
	return g, nil
}

// LoadCSV builds a grid from a CSV export of a worksheet. Rows may have
// different lengths.
func LoadCSV(title string, r io.Reader) (*Grid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv for %q: %w", title, err)
	}
	return NewGrid(title, rows), nil
}

// WriteCSV dumps the grid so a dry run can be inspected.
func WriteCSV(g *Grid, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(g.Rows()); err != nil {
		return fmt.Errorf("write csv for %q: %w", g.Title(), err)
	}
	return nil
}
