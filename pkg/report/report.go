// pkg/report/report.go
package report

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/dataio"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// ErrDatasetNotFound is returned when the cleaned dataset does not exist
var ErrDatasetNotFound = errors.New("cleaned dataset not found")

// Report is the exploratory analysis of a cleaned dataset
type Report struct {
	Quality        Quality                  `json:"data_quality"`
	Charts         []Chart                  `json:"charts"`
	Skipped        []string                 `json:"skipped"`
	NumericSummary map[string]ColumnSummary `json:"numeric_summary"`
	Rows           int                      `json:"rows"`
}

// Chart returns the chart with the given name, or nil
func (r *Report) Chart(name string) *Chart {
	for i := range r.Charts {
		if r.Charts[i].Name == name {
			return &r.Charts[i]
		}
	}
	return nil
}

// Analyzer loads cleaned datasets and derives quality metrics, chart data
// and numeric summaries from them
type Analyzer struct {
	reader *dataio.Reader
	logger *zap.Logger
}

// NewAnalyzer creates a new Analyzer
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		reader: dataio.NewReader(converter.NewTypeConverter(logger), logger),
		logger: logger.Named("report"),
	}
}

// Load reads the cleaned dataset and normalizes its column names. A missing
// file yields ErrDatasetNotFound.
func (a *Analyzer) Load(path string) (*model.Dataset, error) {
	ds, err := a.reader.ReadFile(path)
	if err != nil {
		if model.IsKind(err, model.ErrorKindMissingInput) {
			return nil, fmt.Errorf("%w at %s", ErrDatasetNotFound, path)
		}
		return nil, err
	}

	renamed := model.NewDataset(ds.Name)
	for _, col := range ds.Columns {
		renamed.AddColumn(model.Column{Name: model.NormalizeColumnName(col.Name), Kind: col.Kind})
	}
	renamed.Rows = make([]model.Row, len(ds.Rows))
	for i, row := range ds.Rows {
		r := make(model.Row, len(row))
		for _, col := range ds.Columns {
			r[model.NormalizeColumnName(col.Name)] = row[col.Name]
		}
		renamed.Rows[i] = r
	}
	return renamed, nil
}

// Analyze computes the full report for a dataset
func (a *Analyzer) Analyze(ds *model.Dataset) *Report {
	report := &Report{
		Quality:        ComputeQuality(ds),
		NumericSummary: NumericSummary(ds),
		Rows:           ds.Len(),
	}
	report.Charts, report.Skipped = BuildCharts(ds)

	for _, name := range report.Skipped {
		a.logger.Warn("Skipped chart",
			zap.String("chart", name),
			zap.Stringer("kind", model.ErrorKindPartialData))
	}
	a.logger.Info("Built EDA report",
		zap.Int("rows", ds.Len()),
		zap.Int("charts", len(report.Charts)),
		zap.Float64("final_data_accuracy", report.Quality.FinalDataAccuracy))

	return report
}

// LoadAndAnalyze loads the dataset at path and analyzes it
func (a *Analyzer) LoadAndAnalyze(path string) (*Report, error) {
	ds, err := a.Load(path)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ds), nil
}
