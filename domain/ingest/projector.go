package ingest

import (
	"time"

	"formsheet/internal/errors"
	"formsheet/models"
)

// timestampLayouts are tried in order when reformatting a raw timestamp for
// display. Anything unparseable passes through unchanged.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Project maps a record onto the active schema's column order. Every schema
// label yields exactly one cell: the mapped record value, or an empty string
// when the record has no value for it. The schema must be non-empty; the
// coordinator guarantees that before calling.
func Project(schema []string, record models.Record, loc *time.Location) (models.Row, error) {
	if len(schema) == 0 {
		return nil, errors.SchemaInvalid("schema is empty")
	}
	if loc == nil {
		loc = time.Local
	}

	row := make(models.Row, len(schema))
	for i, label := range schema {
		value := record[models.KeyForLabel(label)]
		if label == models.TimestampLabel && value != "" {
			value = formatTimestamp(value, loc)
		}
		row[i] = value
	}
	return row, nil
}

// formatTimestamp renders a raw timestamp in the fixed display pattern.
// The raw value survives untouched when it cannot be parsed.
func formatTimestamp(raw string, loc *time.Location) string {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.In(loc).Format(models.DisplayTimeFormat)
		}
	}
	return raw
}
