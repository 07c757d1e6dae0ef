package ports

import (
	"context"
)

// TabularStore is the shared grid acting as the system of record.
// Rows and columns are 1-indexed; row 1 is reserved for the schema.
//
// All mutating calls must happen between AcquireExclusive and Release.
// Implementations back the grid with an xlsx workbook, PostgreSQL, or an
// in-memory fake for tests.
type TabularStore interface {
	// AcquireExclusive takes the store-wide lock, waiting at most until
	// ctx expires. The lock serializes the whole schema-check, read-last-row
	// and append sequence; a timeout is fatal for the caller's request.
	AcquireExclusive(ctx context.Context) error

	// Release returns the store-wide lock. Safe to call exactly once per
	// successful AcquireExclusive, on every exit path.
	Release()

	// LastRowIndex returns the index of the last populated row, 0 when the
	// store holds no rows at all.
	LastRowIndex() (int, error)

	// ReadSchema returns the labels in row 1, or an empty slice when the
	// store has no header.
	ReadSchema() ([]string, error)

	// ResetSchema destructively clears all content, writes labels as row 1
	// and applies header presentation formatting. Only called when the
	// store is truly empty.
	ResetSchema(labels []string) error

	// WriteHeader rewrites row 1 in place without touching data rows.
	// Used to repair a header deleted above existing submissions.
	WriteHeader(labels []string) error

	// AppendRow writes cells as the new last row and returns its 1-based
	// index.
	AppendRow(cells []string) (int, error)

	// FormatRow applies cosmetic presentation to a data row. Best-effort;
	// failures must not corrupt the grid.
	FormatRow(index int) error

	// Snapshot returns a copy of the full grid, header included.
	Snapshot() ([][]string, error)
}
