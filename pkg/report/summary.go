// pkg/report/summary.go
package report

import (
	"github.com/montanaflynn/stats"

	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// ColumnSummary holds descriptive statistics of one numeric column. Nulls
// are not counted.
type ColumnSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// NumericSummary describes every numeric column that has at least one value
func NumericSummary(ds *model.Dataset) map[string]ColumnSummary {
	summaries := make(map[string]ColumnSummary)
	for _, col := range ds.Columns {
		if !col.Kind.IsNumber() {
			continue
		}

		data := make(stats.Float64Data, 0, ds.Len())
		for _, row := range ds.Rows {
			if f, ok := asFloat(row[col.Name]); ok {
				data = append(data, f)
			}
		}
		if len(data) == 0 {
			continue
		}

		summary := ColumnSummary{Count: len(data)}
		summary.Mean, _ = stats.Mean(data)
		summary.Median, _ = stats.Median(data)
		summary.Min, _ = stats.Min(data)
		summary.Max, _ = stats.Max(data)
		if len(data) > 1 {
			summary.StdDev, _ = stats.StandardDeviationSample(data)
		}

		summary.Mean = round2(summary.Mean)
		summary.Median = round2(summary.Median)
		summary.StdDev = round2(summary.StdDev)
		summaries[col.Name] = summary
	}
	return summaries
}
