package sheet

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"formsheet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candidatures.xlsx")
	store, err := Open(path, "Réponses")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestOpenCreatesWorkbook(t *testing.T) {
	store, _ := openTempStore(t)

	last, err := store.LastRowIndex()
	require.NoError(t, err)
	assert.Equal(t, 0, last)

	schema, err := store.ReadSchema()
	require.NoError(t, err)
	assert.Empty(t, schema)
}

func TestResetSchemaWritesHeader(t *testing.T) {
	store, _ := openTempStore(t)

	require.NoError(t, store.ResetSchema(models.CanonicalSchema()))

	schema, err := store.ReadSchema()
	require.NoError(t, err)
	assert.Equal(t, models.CanonicalSchema(), schema)

	last, err := store.LastRowIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, last)
}

func TestAppendRowAssignsSequentialIndexes(t *testing.T) {
	store, _ := openTempStore(t)
	require.NoError(t, store.ResetSchema([]string{"Timestamp", "Nom"}))

	first, err := store.AppendRow([]string{"15/01/2025 10:30:00", "Dupont"})
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	second, err := store.AppendRow([]string{"15/01/2025 10:31:00", "Martin"})
	require.NoError(t, err)
	assert.Equal(t, 3, second)

	require.NoError(t, store.FormatRow(first))
	require.NoError(t, store.FormatRow(second))

	snapshot, err := store.Snapshot()
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	assert.Equal(t, "Martin", snapshot[2][1])
}

func TestWorkbookPersistsAcrossReopen(t *testing.T) {
	store, path := openTempStore(t)
	require.NoError(t, store.ResetSchema([]string{"Timestamp", "Nom"}))
	_, err := store.AppendRow([]string{"15/01/2025 10:30:00", "Dupont"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path, "Réponses")
	require.NoError(t, err)
	defer reopened.Close()

	last, err := reopened.LastRowIndex()
	require.NoError(t, err)
	assert.Equal(t, 2, last)

	schema, err := reopened.ReadSchema()
	require.NoError(t, err)
	assert.Equal(t, []string{"Timestamp", "Nom"}, schema)
}

func TestWriteHeaderPreservesDataRows(t *testing.T) {
	store, _ := openTempStore(t)
	require.NoError(t, store.ResetSchema([]string{"Timestamp", "Nom"}))
	_, err := store.AppendRow([]string{"15/01/2025 10:30:00", "Dupont"})
	require.NoError(t, err)

	require.NoError(t, store.WriteHeader([]string{"Timestamp", "Nom complet"}))

	snapshot, err := store.Snapshot()
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "Nom complet", snapshot[0][1])
	assert.Equal(t, "Dupont", snapshot[1][1])
}

func TestExclusiveLockBoundsWait(t *testing.T) {
	store, _ := openTempStore(t)
	require.NoError(t, store.AcquireExclusive(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := store.AcquireExclusive(ctx)
	require.Error(t, err)

	store.Release()
	require.NoError(t, store.AcquireExclusive(context.Background()))
	store.Release()
}
