package app

import (
	"testing"
	"time"

	"formsheet/internal/testkit"
	"formsheet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	store := testkit.NewMemStore()
	store.Seed([][]string{
		models.CanonicalSchema(),
		{"15/01/2025 09:00:00", "A", "", "", "", "ESPRIT", ""},
		{"15/01/2025 10:00:00", "B", "", "", "", "ESPRIT", ""},
		{"16/01/2025 09:00:00", "C", "", "", "", "INSAT", ""},
		{"16/01/2025 10:00:00", "D", "", "", "", "ESPRIT", ""},
		{"16/01/2025 11:00:00", "E", "", "", "", "", ""},
		{"17/01/2025 09:00:00", "F", "", "", "", "INSAT", ""},
	})

	summary, err := NewStatsService(store, time.UTC).Summarize()
	require.NoError(t, err)

	assert.Equal(t, 6, summary.TotalSubmissions)
	assert.Equal(t, 3, summary.Days)
	assert.InDelta(t, 2.0, summary.PerDayMean, 1e-9)
	assert.InDelta(t, 2.0, summary.PerDayMedian, 1e-9)
	// Daily counts 2, 3, 1: a slight downward trend.
	assert.InDelta(t, -0.5, summary.TrendSlope, 1e-9)
	assert.Equal(t, map[string]int{"ESPRIT": 3, "INSAT": 2}, summary.ByUniversity)
}

func TestSummarizeEmptyStore(t *testing.T) {
	summary, err := NewStatsService(testkit.NewMemStore(), time.UTC).Summarize()
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalSubmissions)
	assert.Equal(t, 0, summary.Days)
	assert.Zero(t, summary.PerDayMean)
	assert.Empty(t, summary.ByUniversity)
}

func TestSummarizeIgnoresUnparseableTimestamps(t *testing.T) {
	store := testkit.NewMemStore()
	store.Seed([][]string{
		models.CanonicalSchema(),
		{"pas une date", "A", "", "", "", "", ""},
		{"15/01/2025 09:00:00", "B", "", "", "", "", ""},
	})

	summary, err := NewStatsService(store, time.UTC).Summarize()
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalSubmissions)
	assert.Equal(t, 1, summary.Days)
}
