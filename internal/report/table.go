// Package report turns aggregated request times into the ranked URL table
// and renders it into an HTML report.
package report

import (
	"cmp"
	"errors"
	"slices"
	"strconv"

	"github.com/tinytelemetry/logreport/internal/aggregate"
	"github.com/tinytelemetry/logreport/internal/model"
)

var (
	// ErrEmptyState is returned when the state holds no valid requests.
	ErrEmptyState = errors.New("report: aggregation state has no valid requests")
	// ErrZeroTotalTime is returned when all request times sum to zero, which
	// leaves time percentages undefined.
	ErrZeroTotalTime = errors.New("report: total request time is zero")
	// ErrNegativeSize is returned for a negative row limit.
	ErrNegativeSize = errors.New("report: negative report size")
)

// precision is the number of fractional digits kept in every numeric field.
const precision = 3

// Build computes per-URL statistics from s and returns at most size rows,
// ordered by TimeSum descending and then by URL. s is not modified.
func Build(s *aggregate.State, size int) (model.Table, error) {
	switch {
	case size < 0:
		return nil, ErrNegativeSize
	case s == nil || s.TotalCount == 0:
		return nil, ErrEmptyState
	case s.TotalTime == 0:
		return nil, ErrZeroTotalTime
	}

	type row struct {
		stat model.URLStat
		sum  float64
	}
	rows := make([]row, 0, len(s.PerURL))
	for url, times := range s.PerURL {
		if len(times) == 0 {
			continue
		}
		sum, maxTime := sumMax(times)
		count := len(times)
		rows = append(rows, row{
			sum: sum,
			stat: model.URLStat{
				URL:                 url,
				Count:               count,
				TimeSum:             round(sum),
				TimeMax:             round(maxTime),
				TimeAvg:             round(sum / float64(count)),
				TimeMedian:          round(median(times)),
				TimePercentOfTotal:  round(100 * sum / s.TotalTime),
				CountPercentOfTotal: round(100 * float64(count) / float64(s.TotalCount)),
			},
		})
	}

	slices.SortStableFunc(rows, func(a, b row) int {
		if c := cmp.Compare(b.sum, a.sum); c != 0 {
			return c
		}
		return cmp.Compare(a.stat.URL, b.stat.URL)
	})

	n := min(size, len(rows))
	table := make(model.Table, n)
	for i := range n {
		table[i] = rows[i].stat
	}
	return table, nil
}

func sumMax(times []float64) (sum, maxTime float64) {
	maxTime = times[0]
	for _, v := range times {
		sum += v
		if v > maxTime {
			maxTime = v
		}
	}
	return sum, maxTime
}

// median sorts a copy of times; the stored list keeps its order.
func median(times []float64) float64 {
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// round rounds v to three decimals, half to even on the exact binary value.
func round(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	if err != nil {
		return v
	}
	return r
}
