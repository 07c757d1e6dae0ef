package ingest

import (
	"context"
	"log"
	"time"

	"formsheet/internal/errors"
	"formsheet/models"
	"formsheet/ports"

	"github.com/google/uuid"
)

const (
	lockTimeoutMessage   = "Le service est occupé, veuillez réessayer"
	genericErrorMessage  = "Une erreur est survenue lors de l'enregistrement"
	schemaInvalidMessage = "Le stockage des candidatures est indisponible"
)

// Coordinator serializes submissions against the shared store. Per request:
// acquire the exclusive lock with a bounded wait, ensure the schema, parse,
// project, append, format, release. The lock is released on every exit path
// and every failure is converted into a structured result rather than
// propagated.
type Coordinator struct {
	store       ports.TabularStore
	schema      *SchemaManager
	loc         *time.Location
	lockTimeout time.Duration
}

// NewCoordinator creates a coordinator over the given store. loc controls
// the display time zone of the Timestamp column; nil means server local.
func NewCoordinator(store ports.TabularStore, loc *time.Location, lockTimeout time.Duration) *Coordinator {
	if loc == nil {
		loc = time.Local
	}
	if lockTimeout <= 0 {
		lockTimeout = 30 * time.Second
	}
	return &Coordinator{
		store:       store,
		schema:      NewSchemaManager(store),
		loc:         loc,
		lockTimeout: lockTimeout,
	}
}

// HandleSubmission is the primary entry point. It never returns an error;
// outcomes are always a SubmissionResult suitable for the wire.
func (c *Coordinator) HandleSubmission(ctx context.Context, raw RawSubmission) models.SubmissionResult {
	requestID := uuid.NewString()[:8]

	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()

	if err := c.store.AcquireExclusive(lockCtx); err != nil {
		log.Printf("[Coordinator] %s lock not acquired within %s: %v", requestID, c.lockTimeout, err)
		return models.ErrorResult(lockTimeoutMessage)
	}
	defer c.store.Release()

	row, record, err := c.process(raw)
	if err != nil {
		log.Printf("[Coordinator] %s submission failed (%s): %v", requestID, errors.GetCode(err), err)
		return models.ErrorResult(userMessage(err))
	}

	logSubmission(requestID, row, record)
	return models.SuccessResult(row)
}

// process runs the locked read-modify-append sequence. The append position
// is derived inside AppendRow at write time, so a header the schema manager
// just healed is already accounted for.
func (c *Coordinator) process(raw RawSubmission) (int, models.Record, error) {
	schema, err := c.schema.Ensure()
	if err != nil {
		return 0, nil, err
	}

	record, err := Parse(raw)
	if err != nil {
		return 0, nil, err
	}

	row, err := Project(schema, record, c.loc)
	if err != nil {
		return 0, nil, err
	}

	index, err := c.store.AppendRow(row)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to append row")
	}

	// Cosmetic only. A formatting hiccup never fails a recorded submission.
	if err := c.store.FormatRow(index); err != nil {
		log.Printf("[Coordinator] Row %d formatting failed: %v", index, err)
	}

	return index, record, nil
}

// userMessage maps an internal error onto the caller-visible message.
// Internals and stack context stay in the logs.
func userMessage(err error) string {
	switch errors.GetCode(err) {
	case errors.CodeParseError:
		return err.Error()
	case errors.CodeSchemaInvalid:
		return schemaInvalidMessage
	default:
		return genericErrorMessage
	}
}

func logSubmission(requestID string, row int, record models.Record) {
	log.Printf("[Coordinator] %s row=%d nom=%q prenom=%q email=%q telephone=%q universite=%q facebook=%q",
		requestID, row,
		record["nom"], record["prenom"], record["email"],
		record["telephone"], record["universite"], record["facebookLink"])
}
