// Package pgstore implements the tabular store on PostgreSQL. Each grid row
// is one record in sheet_rows with its cells as a TEXT[]; row 1 is the
// schema. Exclusivity combines the in-process semaphore with a session
// advisory lock so multiple service instances sharing one database still
// serialize their appends.
package pgstore

import (
	"context"
	"database/sql"
	"log"
	"time"

	"formsheet/internal/errors"
	"formsheet/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// advisoryLockKey identifies the grid-wide lock inside PostgreSQL.
const advisoryLockKey = 0x666F726D // "form"

const createTable = `
CREATE TABLE IF NOT EXISTS sheet_rows (
	idx   INTEGER PRIMARY KEY,
	cells TEXT[] NOT NULL
)`

// Store is a PostgreSQL-backed TabularStore.
type Store struct {
	db        *sqlx.DB
	sem       chan struct{}
	publisher ports.ChangePublisher

	// lockConn is the connection holding the advisory lock. The lock is
	// session scoped, so the unlock must run on this exact connection; the
	// pooled handle would hand it to an arbitrary one.
	lockConn *sql.Conn
}

// Open connects to the database and prepares the grid table.
func Open(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if _, err := db.Exec(createTable); err != nil {
		return nil, errors.Wrap(err, "failed to create sheet_rows table")
	}
	return &Store{db: db, sem: make(chan struct{}, 1)}, nil
}

// SetPublisher wires the change-event publisher used after appends.
func (s *Store) SetPublisher(p ports.ChangePublisher) {
	s.publisher = p
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AcquireExclusive takes the in-process slot, pins a dedicated connection
// and polls it for the database advisory lock until ctx expires. The pinned
// connection is held until Release so the unlock runs in the same session.
func (s *Store) AcquireExclusive(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return errors.LockTimeout("store lock not acquired within bound")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		<-s.sem
		return errors.Wrap(err, "failed to pin lock connection")
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		var locked bool
		err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked)
		if err == nil && locked {
			s.lockConn = conn
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			conn.Close()
			<-s.sem
			return errors.LockTimeout("store lock not acquired within bound")
		}
	}
}

func (s *Store) Release() {
	conn := s.lockConn
	s.lockConn = nil
	if conn != nil {
		// pg_advisory_unlock returns false when the session does not hold
		// the key; that means the lock discipline was broken somewhere.
		var unlocked bool
		err := conn.QueryRowContext(context.Background(), "SELECT pg_advisory_unlock($1)", advisoryLockKey).Scan(&unlocked)
		if err != nil || !unlocked {
			log.Printf("[PgStore] Advisory unlock failed (unlocked=%v): %v", unlocked, err)
		}
		conn.Close()
	}
	<-s.sem
}

func (s *Store) LastRowIndex() (int, error) {
	var last int
	if err := s.db.Get(&last, "SELECT COALESCE(MAX(idx), 0) FROM sheet_rows"); err != nil {
		return 0, errors.Wrap(err, "failed to read last row index")
	}
	return last, nil
}

func (s *Store) ReadSchema() ([]string, error) {
	var cells pq.StringArray
	err := s.db.Get(&cells, "SELECT cells FROM sheet_rows WHERE idx = 1")
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read schema row")
	}
	for _, cell := range cells {
		if cell != "" {
			return []string(cells), nil
		}
	}
	return nil, nil
}

func (s *Store) ResetSchema(labels []string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "failed to begin schema reset")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sheet_rows"); err != nil {
		return errors.Wrap(err, "failed to clear grid")
	}
	if _, err := tx.Exec("INSERT INTO sheet_rows (idx, cells) VALUES (1, $1)", pq.Array(labels)); err != nil {
		return errors.Wrap(err, "failed to write schema row")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit schema reset")
	}
	return nil
}

func (s *Store) WriteHeader(labels []string) error {
	_, err := s.db.Exec(`
		INSERT INTO sheet_rows (idx, cells) VALUES (1, $1)
		ON CONFLICT (idx) DO UPDATE SET cells = EXCLUDED.cells`,
		pq.Array(labels))
	if err != nil {
		return errors.Wrap(err, "failed to rewrite header row")
	}
	return nil
}

func (s *Store) AppendRow(cells []string) (int, error) {
	var next int
	err := s.db.Get(&next,
		"INSERT INTO sheet_rows (idx, cells) SELECT COALESCE(MAX(idx), 0) + 1, $1 FROM sheet_rows RETURNING idx",
		pq.Array(cells))
	if err != nil {
		return 0, errors.Wrap(err, "failed to append row")
	}

	if s.publisher != nil {
		s.publisher.RowAppended(next)
	}
	return next, nil
}

// FormatRow is a no-op: the SQL backend carries no presentation state.
func (s *Store) FormatRow(index int) error {
	return nil
}

func (s *Store) Snapshot() ([][]string, error) {
	type gridRow struct {
		Idx   int            `db:"idx"`
		Cells pq.StringArray `db:"cells"`
	}
	var rows []gridRow
	if err := s.db.Select(&rows, "SELECT idx, cells FROM sheet_rows ORDER BY idx"); err != nil {
		return nil, errors.Wrap(err, "failed to read grid")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	max := rows[len(rows)-1].Idx
	out := make([][]string, max)
	for i := range out {
		out[i] = []string{}
	}
	for _, row := range rows {
		out[row.Idx-1] = append([]string(nil), row.Cells...)
	}
	return out, nil
}
