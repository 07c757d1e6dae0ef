// Package sheet implements the tabular store on top of an xlsx workbook.
package sheet

import (
	"context"
	"fmt"
	"os"
	"sync"

	"formsheet/internal/errors"
	"formsheet/ports"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/semaphore"
)

// Presentation colors carried over from the original workbook theme.
const (
	headerFillColor = "#4ECDC4"
	headerFontColor = "#FFFFFF"
	zebraFillColor  = "#F7F7F7"
	columnWidth     = 22
)

// Store persists the grid in a single xlsx workbook on disk. The workbook
// stays open in memory and is saved after every mutation; the process-wide
// semaphore is the sole serialization mechanism for the append protocol.
type Store struct {
	path  string
	sheet string
	sem   *semaphore.Weighted

	mu        sync.Mutex // guards file handle for out-of-band readers
	file      *excelize.File
	publisher ports.ChangePublisher
}

// Open loads the workbook at path, creating it with an empty target sheet
// when missing.
func Open(path, sheetName string) (*Store, error) {
	s := &Store{
		path:  path,
		sheet: sheetName,
		sem:   semaphore.NewWeighted(1),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		file := excelize.NewFile()
		if sheetName != "Sheet1" {
			if _, err := file.NewSheet(sheetName); err != nil {
				return nil, errors.Wrap(err, "failed to create sheet")
			}
			if err := file.DeleteSheet("Sheet1"); err != nil {
				return nil, errors.Wrap(err, "failed to drop default sheet")
			}
		}
		if err := file.SaveAs(path); err != nil {
			return nil, errors.Wrapf(err, "failed to create workbook %s", path)
		}
		s.file = file
		return s, nil
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open workbook %s", path)
	}
	if idx, err := file.GetSheetIndex(sheetName); err != nil || idx < 0 {
		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, errors.Wrap(err, "failed to create sheet")
		}
		if err := file.Save(); err != nil {
			return nil, errors.Wrap(err, "failed to save workbook")
		}
	}
	s.file = file
	return s, nil
}

// SetPublisher wires the change-event publisher used after appends.
func (s *Store) SetPublisher(p ports.ChangePublisher) {
	s.publisher = p
}

// Close releases the underlying workbook handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *Store) AcquireExclusive(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return errors.LockTimeout("store lock not acquired within bound")
	}
	return nil
}

func (s *Store) Release() {
	s.sem.Release(1)
}

func (s *Store) LastRowIndex() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read rows")
	}
	return lastPopulated(rows), nil
}

func (s *Store) ReadSchema() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rows")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	for _, cell := range header {
		if cell != "" {
			return append([]string(nil), header...), nil
		}
	}
	return nil, nil
}

func (s *Store) ResetSchema(labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return errors.Wrap(err, "failed to read rows")
	}
	for range rows {
		if err := s.file.RemoveRow(s.sheet, 1); err != nil {
			return errors.Wrap(err, "failed to clear sheet")
		}
	}

	if err := s.writeHeaderLocked(labels); err != nil {
		return err
	}
	return s.save()
}

func (s *Store) WriteHeader(labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeHeaderLocked(labels); err != nil {
		return err
	}
	return s.save()
}

// writeHeaderLocked writes row 1 and applies the header presentation:
// bold white-on-teal, centered, wrapped, frozen first row, fixed widths.
func (s *Store) writeHeaderLocked(labels []string) error {
	cells := make([]interface{}, len(labels))
	for i, label := range labels {
		cells[i] = label
	}
	if err := s.file.SetSheetRow(s.sheet, "A1", &cells); err != nil {
		return errors.Wrap(err, "failed to write header row")
	}

	styleID, err := s.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: headerFontColor},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFillColor}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to build header style")
	}
	end, err := excelize.CoordinatesToCellName(len(labels), 1)
	if err != nil {
		return errors.Wrap(err, "failed to resolve header range")
	}
	if err := s.file.SetCellStyle(s.sheet, "A1", end, styleID); err != nil {
		return errors.Wrap(err, "failed to style header row")
	}

	if err := s.file.SetPanes(s.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errors.Wrap(err, "failed to freeze header row")
	}

	endCol, err := excelize.ColumnNumberToName(len(labels))
	if err != nil {
		return errors.Wrap(err, "failed to resolve last column")
	}
	if err := s.file.SetColWidth(s.sheet, "A", endCol, columnWidth); err != nil {
		return errors.Wrap(err, "failed to set column widths")
	}
	return nil
}

func (s *Store) AppendRow(cells []string) (int, error) {
	s.mu.Lock()
	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		s.mu.Unlock()
		return 0, errors.Wrap(err, "failed to read rows")
	}
	next := lastPopulated(rows) + 1

	values := make([]interface{}, len(cells))
	for i, cell := range cells {
		values[i] = cell
	}
	if err := s.file.SetSheetRow(s.sheet, fmt.Sprintf("A%d", next), &values); err != nil {
		s.mu.Unlock()
		return 0, errors.Wrap(err, "failed to write row")
	}
	if err := s.save(); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.RowAppended(next)
	}
	return next, nil
}

// FormatRow applies the data-row presentation: zebra fill on even rows,
// full borders, top alignment, wrapped text.
func (s *Store) FormatRow(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return errors.Wrap(err, "failed to read rows")
	}
	width := 1
	if index-1 < len(rows) && len(rows[index-1]) > width {
		width = len(rows[index-1])
	}
	if len(rows) > 0 && len(rows[0]) > width {
		width = len(rows[0])
	}

	style := &excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	}
	if index%2 == 0 {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{zebraFillColor}}
	}
	styleID, err := s.file.NewStyle(style)
	if err != nil {
		return errors.Wrap(err, "failed to build row style")
	}

	start := fmt.Sprintf("A%d", index)
	end, err := excelize.CoordinatesToCellName(width, index)
	if err != nil {
		return errors.Wrap(err, "failed to resolve row range")
	}
	if err := s.file.SetCellStyle(s.sheet, start, end, styleID); err != nil {
		return errors.Wrap(err, "failed to style row")
	}
	return s.save()
}

func (s *Store) Snapshot() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rows")
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (s *Store) save() error {
	if err := s.file.Save(); err != nil {
		return errors.Wrapf(err, "failed to save workbook %s", s.path)
	}
	return nil
}

// lastPopulated returns the 1-based index of the last row holding any
// non-empty cell. Trailing blank rows (a wiped header above data never
// counts as populated) are ignored.
func lastPopulated(rows [][]string) int {
	for i := len(rows) - 1; i >= 0; i-- {
		for _, cell := range rows[i] {
			if cell != "" {
				return i + 1
			}
		}
	}
	return 0
}
