package pgstore

// These tests need a live PostgreSQL and are skipped unless TEST_DATABASE_URL
// is set, e.g. TEST_DATABASE_URL=postgres://localhost/formsheet_test?sslmode=disable

import (
	"context"
	"os"
	"testing"
	"time"

	"formsheet/internal/errors"
	"formsheet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.db.Exec("DROP TABLE IF EXISTS sheet_rows")
		store.Close()
	})
	return store
}

func TestSchemaAndAppendRoundTrip(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.ResetSchema(models.CanonicalSchema()))

	schema, err := store.ReadSchema()
	require.NoError(t, err)
	assert.Equal(t, models.CanonicalSchema(), schema)

	first, err := store.AppendRow([]string{"15/01/2025 10:30:00", "Dupont", "Jean", "", "", "", ""})
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	last, err := store.LastRowIndex()
	require.NoError(t, err)
	assert.Equal(t, 2, last)
}

// The advisory lock is session scoped; acquire and unlock must run on the
// same pinned connection or the key stays held by a random pooled session.
func TestRepeatedAcquireReleaseDoesNotStrandLock(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := store.AcquireExclusive(ctx)
		cancel()
		require.NoError(t, err, "acquire %d timed out, lock stranded by a previous release", i)
		store.Release()
	}
}

func TestAdvisoryLockSerializesInstances(t *testing.T) {
	first := openTestStore(t)
	second := openTestStore(t)

	require.NoError(t, first.AcquireExclusive(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	err := second.AcquireExclusive(ctx)
	cancel()
	require.Error(t, err, "two instances must never hold the lock at once")
	assert.Equal(t, errors.CodeLockTimeout, errors.GetCode(err))

	first.Release()

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, second.AcquireExclusive(ctx), "release must free the lock for other instances")
	second.Release()
}

func TestSnapshotFillsGaps(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.ResetSchema([]string{"Timestamp", "Nom"}))
	_, err := store.AppendRow([]string{"15/01/2025 10:30:00", "Dupont"})
	require.NoError(t, err)
	_, err = store.AppendRow([]string{"15/01/2025 10:31:00", "Martin"})
	require.NoError(t, err)

	_, err = store.db.Exec("DELETE FROM sheet_rows WHERE idx = 2")
	require.NoError(t, err)

	snapshot, err := store.Snapshot()
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	assert.Empty(t, snapshot[1], "a deleted row leaves an empty placeholder")
	assert.Equal(t, "Martin", snapshot[2][1])
}
