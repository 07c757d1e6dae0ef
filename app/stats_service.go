package app

import (
	"sort"
	"time"

	"formsheet/internal/errors"
	"formsheet/models"
	"formsheet/ports"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// SubmissionStats summarizes ingestion activity for the admin shell.
type SubmissionStats struct {
	TotalSubmissions int            `json:"total_submissions"`
	Days             int            `json:"days"`
	PerDayMean       float64        `json:"per_day_mean"`
	PerDayMedian     float64        `json:"per_day_median"`
	PerDayStdDev     float64        `json:"per_day_stddev"`
	TrendSlope       float64        `json:"trend_slope"`
	ByUniversity     map[string]int `json:"by_university"`
}

// StatsService computes submission statistics from a store snapshot.
// It reads outside the submission lock; a snapshot that is one row behind
// a concurrent append is acceptable for reporting.
type StatsService struct {
	store ports.TabularStore
	loc   *time.Location
}

// NewStatsService creates a service over the given store. loc must match
// the zone timestamps were written in.
func NewStatsService(store ports.TabularStore, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{store: store, loc: loc}
}

// Summarize computes daily submission counts with mean/median/stddev and a
// linear trend slope (submissions per day, per day).
func (s *StatsService) Summarize() (*SubmissionStats, error) {
	snapshot, err := s.store.Snapshot()
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot store")
	}

	result := &SubmissionStats{ByUniversity: map[string]int{}}
	if len(snapshot) < 2 {
		return result, nil
	}

	schema := snapshot[0]
	tsCol, uniCol := -1, -1
	for i, label := range schema {
		switch label {
		case models.TimestampLabel:
			tsCol = i
		case "Université":
			uniCol = i
		}
	}

	perDay := map[string]float64{}
	for _, row := range snapshot[1:] {
		result.TotalSubmissions++
		if uniCol >= 0 && uniCol < len(row) && row[uniCol] != "" {
			result.ByUniversity[row[uniCol]]++
		}
		if tsCol < 0 || tsCol >= len(row) {
			continue
		}
		ts, err := time.ParseInLocation(models.DisplayTimeFormat, row[tsCol], s.loc)
		if err != nil {
			continue
		}
		perDay[ts.Format("2006-01-02")]++
	}
	result.Days = len(perDay)
	if result.Days == 0 {
		return result, nil
	}

	days := make([]string, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Strings(days)

	xs := make([]float64, len(days))
	counts := make([]float64, len(days))
	for i, day := range days {
		xs[i] = float64(i)
		counts[i] = perDay[day]
	}

	if result.PerDayMean, err = stats.Mean(counts); err != nil {
		return nil, errors.Wrap(err, "failed to compute mean")
	}
	if result.PerDayMedian, err = stats.Median(counts); err != nil {
		return nil, errors.Wrap(err, "failed to compute median")
	}
	if result.PerDayStdDev, err = stats.StandardDeviation(counts); err != nil {
		return nil, errors.Wrap(err, "failed to compute stddev")
	}

	if len(days) >= 2 {
		_, slope := stat.LinearRegression(xs, counts, nil, false)
		result.TrendSlope = slope
	}
	return result, nil
}
