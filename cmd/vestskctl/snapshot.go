package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vestsk/tippebot/internal/app"
	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/infrastructure/repository/memory"
	"github.com/vestsk/tippebot/internal/usecase"
)

const defaultGridTitle = "Tipping"

var errNoGrid = errors.New("--dry-run needs --grid for the tipping worksheet")

// snapshotSet holds the CSV-seeded worksheets of a dry run.
type snapshotSet struct {
	grid     *memory.Grid
	workbook *memory.Workbook
}

// loadSnapshots reads the tipping grid and any PPR worksheets given as
// title=path.
func loadSnapshots(gridTitle, gridPath string, workbookSpecs []string) (*snapshotSet, error) {
	set := &snapshotSet{}

	if gridPath != "" {
		if gridTitle == "" {
			gridTitle = defaultGridTitle
		}
		grid, err := readCSV(gridTitle, gridPath)
		if err != nil {
			return nil, err
		}
		set.grid = grid
	}

	grids := make([]*memory.Grid, 0, len(workbookSpecs))
	for _, arg := range workbookSpecs {
		title, path, ok := strings.Cut(arg, "=")
		title = strings.TrimSpace(title)
		if !ok || title == "" || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("workbook snapshot %q: want title=path", arg)
		}
		grid, err := readCSV(title, strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		grids = append(grids, grid)
	}
	set.workbook = memory.NewWorkbook(grids...)

	return set, nil
}

func readCSV(title, path string) (*memory.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return memory.LoadCSV(title, f)
}

func (s *snapshotSet) sources() app.Sources {
	return app.Sources{
		Grids: usecase.GridSourceFunc(func(context.Context) (tipping.Grid, error) {
			if s.grid == nil {
				return nil, errNoGrid
			}
			return s.grid, nil
		}),
		Workbooks: usecase.WorkbookSourceFunc(func(context.Context) (tipping.Workbook, error) {
			return s.workbook, nil
		}),
	}
}

// dump prints every worksheet that received writes.
func (s *snapshotSet) dump(w io.Writer) error {
	var grids []*memory.Grid
	if s.grid != nil {
		grids = append(grids, s.grid)
	}
	titles, err := s.workbook.WorksheetTitles(context.Background())
	if err != nil {
		return err
	}
	for _, title := range titles {
		if grid, ok := s.workbook.Grid(title); ok {
			grids = append(grids, grid)
		}
	}

	for _, grid := range grids {
		if grid.CellWrites() == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "== %s (%d cells written) ==\n", grid.Title(), grid.CellWrites()); err != nil {
			return err
		}
		if err := memory.WriteCSV(grid, w); err != nil {
			return err
		}
	}
	return nil
}
