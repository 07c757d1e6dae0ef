package ingest

import (
	"log"

	"formsheet/internal/errors"
	"formsheet/models"
	"formsheet/ports"
)

// SchemaManager guarantees a well-formed header row before any append.
// All methods must run while the store-wide lock is held.
type SchemaManager struct {
	store ports.TabularStore
}

// NewSchemaManager creates a manager over the given store.
func NewSchemaManager(store ports.TabularStore) *SchemaManager {
	return &SchemaManager{store: store}
}

// Ensure returns the active schema, healing a missing header on the way.
// An existing non-empty header row is authoritative even when it differs
// from the canonical list, which allows schema evolution by manual edit.
// The heal is retried once after a read-back that still comes up empty;
// a second empty read-back is fatal.
func (m *SchemaManager) Ensure() ([]string, error) {
	schema, err := m.store.ReadSchema()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read schema")
	}

	if len(schema) == 0 {
		if err := m.heal(); err != nil {
			return nil, err
		}
		schema, err = m.store.ReadSchema()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read schema after heal")
		}
	}

	// A formatting/read race can surface an empty header once. Repeat the
	// heal a single time before giving up.
	if len(schema) == 0 {
		log.Printf("[SchemaManager] Header empty after heal, reinitializing once more")
		if err := m.heal(); err != nil {
			return nil, err
		}
		schema, err = m.store.ReadSchema()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read schema after heal")
		}
	}

	if len(schema) == 0 {
		return nil, errors.SchemaInvalid("schema is empty after heal attempt")
	}
	return schema, nil
}

// heal writes the canonical header. The destructive clear-and-rewrite only
// runs when the store holds no rows at all; a header deleted above existing
// submissions is repaired in place so no data row is ever lost.
func (m *SchemaManager) heal() error {
	lastRow, err := m.store.LastRowIndex()
	if err != nil {
		return errors.Wrap(err, "failed to read last row index")
	}

	labels := models.CanonicalSchema()
	if lastRow == 0 {
		log.Printf("[SchemaManager] Store empty, initializing %d-column header", len(labels))
		if err := m.store.ResetSchema(labels); err != nil {
			return errors.WithCode(errors.CodeSchemaInvalid, errors.Wrap(err, "schema reset failed"))
		}
		return nil
	}

	log.Printf("[SchemaManager] Header missing above %d existing row(s), rewriting row 1 in place", lastRow)
	if err := m.store.WriteHeader(labels); err != nil {
		return errors.WithCode(errors.CodeSchemaInvalid, errors.Wrap(err, "header rewrite failed"))
	}
	return nil
}
