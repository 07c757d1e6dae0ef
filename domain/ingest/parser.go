package ingest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"formsheet/internal/errors"
	"formsheet/models"
)

// RawSubmission carries one inbound request in transport-neutral form so the
// coordinator stays independent of any HTTP framework.
type RawSubmission struct {
	ContentType string
	Body        []byte
	// Params holds query/form parameters used when no body is present.
	Params url.Values
}

const parseFailureMessage = "Impossible de parser les données du formulaire"

// Parse normalizes a raw submission into a Record. It either returns a fully
// populated mapping or fails with a PARSE_ERROR; there is no partial result.
// A missing timestamp is stamped with the current instant in RFC 3339 form.
func Parse(raw RawSubmission) (models.Record, error) {
	record := models.Record{}

	switch {
	case len(raw.Body) > 0 && strings.HasPrefix(raw.ContentType, "application/x-www-form-urlencoded"):
		values, err := url.ParseQuery(string(raw.Body))
		if err != nil {
			return nil, errors.ParseError(parseFailureMessage)
		}
		for key := range values {
			record[key] = values.Get(key)
		}

	case len(raw.Body) > 0 && strings.HasPrefix(raw.ContentType, "application/json"):
		var payload map[string]interface{}
		if err := json.Unmarshal(raw.Body, &payload); err != nil {
			return nil, errors.ParseError(parseFailureMessage)
		}
		for key, value := range payload {
			record[key] = stringify(value)
		}

	case len(raw.Body) == 0 && len(raw.Params) > 0:
		for key := range raw.Params {
			record[key] = raw.Params.Get(key)
		}
	}

	if record[models.TimestampKey] == "" {
		record[models.TimestampKey] = time.Now().UTC().Format(time.RFC3339)
	}

	return record, nil
}

// stringify coerces decoded JSON values to their cell representation.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		// Avoid scientific notation for whole numbers like phone prefixes.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
