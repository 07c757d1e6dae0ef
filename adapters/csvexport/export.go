// Package csvexport serializes the full grid to CSV. Every field is quoted
// and internal quote characters are doubled, so any standard CSV reader
// reproduces the original cell values exactly.
package csvexport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"formsheet/internal/errors"
	"formsheet/ports"
)

// Export writes the complete grid, header included, to w.
func Export(w io.Writer, store ports.TabularStore) error {
	snapshot, err := store.Snapshot()
	if err != nil {
		return errors.Wrap(err, "failed to snapshot store")
	}

	for _, row := range snapshot {
		quoted := make([]string, len(row))
		for i, cell := range row {
			quoted[i] = quote(cell)
		}
		if _, err := io.WriteString(w, strings.Join(quoted, ",")+"\n"); err != nil {
			return errors.Wrap(err, "failed to write csv row")
		}
	}
	return nil
}

// Filename returns the timestamped download name for an export.
func Filename(now time.Time) string {
	return fmt.Sprintf("Code_Arena_2025_%s.csv", now.Format("2006-01-02_150405"))
}

func quote(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
