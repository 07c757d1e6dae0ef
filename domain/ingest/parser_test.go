package ingest

import (
	"net/url"
	"testing"
	"time"

	"formsheet/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawSubmission
		wantErr  bool
		wantKeys map[string]string
	}{
		{
			name: "urlencoded body",
			raw: RawSubmission{
				ContentType: "application/x-www-form-urlencoded",
				Body:        []byte("nom=Dupont&prenom=Jean&email=jean.dupont%40example.com"),
			},
			wantKeys: map[string]string{
				"nom":    "Dupont",
				"prenom": "Jean",
				"email":  "jean.dupont@example.com",
			},
		},
		{
			name: "urlencoded with charset parameter",
			raw: RawSubmission{
				ContentType: "application/x-www-form-urlencoded; charset=utf-8",
				Body:        []byte("nom=Martin"),
			},
			wantKeys: map[string]string{"nom": "Martin"},
		},
		{
			name: "json body",
			raw: RawSubmission{
				ContentType: "application/json",
				Body:        []byte(`{"nom":"Dupont","universite":"ESPRIT","age":23}`),
			},
			wantKeys: map[string]string{
				"nom":        "Dupont",
				"universite": "ESPRIT",
				"age":        "23",
			},
		},
		{
			name: "malformed json fails",
			raw: RawSubmission{
				ContentType: "application/json",
				Body:        []byte(`{"nom":`),
			},
			wantErr: true,
		},
		{
			name: "no body falls back to params",
			raw: RawSubmission{
				Params: url.Values{"nom": {"Fallback"}},
			},
			wantKeys: map[string]string{"nom": "Fallback"},
		},
		{
			name:     "unrecognized body stays empty",
			raw:      RawSubmission{ContentType: "text/plain", Body: []byte("hello")},
			wantKeys: map[string]string{},
		},
		{
			name:     "empty request stays empty",
			raw:      RawSubmission{},
			wantKeys: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Parse(tt.raw)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected parse error, got record %v", record)
				}
				if errors.GetCode(err) != errors.CodeParseError {
					t.Errorf("Expected PARSE_ERROR code, got %s", errors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			for key, want := range tt.wantKeys {
				if record[key] != want {
					t.Errorf("record[%q] = %q, want %q", key, record[key], want)
				}
			}

			// A timestamp is always stamped when the payload carries none.
			ts := record["timestamp"]
			if ts == "" {
				t.Fatal("Expected a default timestamp")
			}
			if _, err := time.Parse(time.RFC3339, ts); err != nil {
				t.Errorf("Default timestamp %q is not RFC 3339: %v", ts, err)
			}
		})
	}
}

func TestParseKeepsSuppliedTimestamp(t *testing.T) {
	record, err := Parse(RawSubmission{
		ContentType: "application/json",
		Body:        []byte(`{"timestamp":"2025-03-01T09:00:00Z"}`),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if record["timestamp"] != "2025-03-01T09:00:00Z" {
		t.Errorf("Supplied timestamp was replaced: %q", record["timestamp"])
	}
}
