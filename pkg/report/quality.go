// pkg/report/quality.go
package report

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// Quality holds data-quality percentages, rounded to two decimals
type Quality struct {
	Completeness       float64 `json:"completeness"`
	ImpactCoverage     float64 `json:"impact_coverage"`
	IndustryCoverage   float64 `json:"industry_coverage"`
	NumericConsistency float64 `json:"numeric_consistency"`
	UniqueAttackRatio  float64 `json:"unique_attack_ratio"`
	FinalDataAccuracy  float64 `json:"final_data_accuracy"`
}

// ComputeQuality derives the quality metrics of a dataset. A metric whose
// column is absent, or any metric of an empty dataset, is 0.
func ComputeQuality(ds *model.Dataset) Quality {
	q := Quality{
		Completeness:       completeness(ds),
		ImpactCoverage:     coverage(ds, model.ColImpact),
		IndustryCoverage:   coverage(ds, model.ColTargetIndustry),
		NumericConsistency: numericConsistency(ds),
		UniqueAttackRatio:  uniqueRatio(ds, model.ColAttackType),
	}

	final, _ := stats.Mean(stats.Float64Data{
		q.Completeness,
		q.ImpactCoverage,
		q.IndustryCoverage,
		q.NumericConsistency,
		q.UniqueAttackRatio,
	})

	q.Completeness = round2(q.Completeness)
	q.ImpactCoverage = round2(q.ImpactCoverage)
	q.IndustryCoverage = round2(q.IndustryCoverage)
	q.NumericConsistency = round2(q.NumericConsistency)
	q.UniqueAttackRatio = round2(q.UniqueAttackRatio)
	q.FinalDataAccuracy = round2(final)
	return q
}

// completeness is the share of non-null cells
func completeness(ds *model.Dataset) float64 {
	cells := ds.Len() * len(ds.Columns)
	if cells == 0 {
		return 0
	}
	nulls := 0
	for _, row := range ds.Rows {
		for _, col := range ds.Columns {
			if converter.IsNull(row[col.Name]) {
				nulls++
			}
		}
	}
	return 100 * (1 - float64(nulls)/float64(cells))
}

// coverage is the share of non-null values of one column
func coverage(ds *model.Dataset, name string) float64 {
	if !ds.HasColumn(name) || ds.Len() == 0 {
		return 0
	}
	present := 0
	for _, row := range ds.Rows {
		if !converter.IsNull(row[name]) {
			present++
		}
	}
	return 100 * float64(present) / float64(ds.Len())
}

// numericConsistency is the share of non-null numeric cells that are finite
// and not negative
func numericConsistency(ds *model.Dataset) float64 {
	total, consistent := 0, 0
	for _, col := range ds.Columns {
		if !col.Kind.IsNumber() {
			continue
		}
		for _, row := range ds.Rows {
			f, ok := row[col.Name].(float64)
			if !ok {
				if i, isInt := row[col.Name].(int64); isInt {
					f, ok = float64(i), true
				}
			}
			if !ok || math.IsNaN(f) {
				continue
			}
			total++
			if !math.IsInf(f, 0) && f >= 0 {
				consistent++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return 100 * float64(consistent) / float64(total)
}

// uniqueRatio is the number of distinct non-null values per row
func uniqueRatio(ds *model.Dataset, name string) float64 {
	if !ds.HasColumn(name) || ds.Len() == 0 {
		return 0
	}
	distinct := make(map[string]struct{})
	for _, row := range ds.Rows {
		v := row[name]
		if converter.IsNull(v) {
			continue
		}
		distinct[converter.ToText(v)] = struct{}{}
	}
	return 100 * float64(len(distinct)) / float64(ds.Len())
}

func round2(f float64) float64 {
	r, err := stats.Round(f, 2)
	if err != nil {
		return 0
	}
	return r
}
