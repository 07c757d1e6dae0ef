package models

import (
	"time"
)

// Record is the normalized key-value form of one incoming submission.
// Values are always strings; a timestamp key is guaranteed after parsing.
type Record map[string]string

// Row is an ordered sequence of cell values aligned to the active schema.
type Row []string

// TimestampKey is the record key carrying the submission instant.
const TimestampKey = "timestamp"

// TimestampLabel is the schema label whose cells get display formatting.
const TimestampLabel = "Timestamp"

// DisplayTimeFormat is the fixed pattern used for timestamp cells.
const DisplayTimeFormat = "02/01/2006 15:04:05"

// CanonicalSchema returns the column labels written when the store is
// initialized. Row 1 of the store always holds the active schema.
func CanonicalSchema() []string {
	return []string{
		"Timestamp",
		"Nom",
		"Prénom",
		"Email",
		"Téléphone",
		"Université",
		"Lien Facebook",
	}
}

// FieldMapping associates schema labels with internal record keys.
// Labels absent from the mapping fall back to the label itself, which
// lets manually added columns keep working.
var FieldMapping = map[string]string{
	"Timestamp":     "timestamp",
	"Nom":           "nom",
	"Prénom":        "prenom",
	"Email":         "email",
	"Téléphone":     "telephone",
	"Université":    "universite",
	"Lien Facebook": "facebookLink",
}

// KeyForLabel resolves the record key for a schema label.
func KeyForLabel(label string) string {
	if key, ok := FieldMapping[label]; ok {
		return key
	}
	return label
}

// Submission result variants carried in the wire response.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// SubmissionResult is the caller-visible outcome of one submission.
// Errors never carry internals; those are logged separately.
type SubmissionResult struct {
	Result    string `json:"result"`
	Row       int    `json:"row,omitempty"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SuccessResult builds the success outcome for a written row index.
func SuccessResult(row int) SubmissionResult {
	return SubmissionResult{
		Result:    ResultSuccess,
		Row:       row,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   "Candidature enregistrée avec succès",
	}
}

// ErrorResult builds the failure outcome with a user-facing message.
func ErrorResult(message string) SubmissionResult {
	return SubmissionResult{
		Result:    ResultError,
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
