package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

const cleanedFixture = `[
    {"Attack Type": "Phishing", "Country": "USA", "Target Industry": "Finance", "Impact": "Data Breach",
     "financial_loss_(in_million_$)": 10, "number_of_affected_users": 100},
    {"Attack Type": "Phishing", "Country": "UK", "Target Industry": "Unknown", "Impact": "Downtime",
     "financial_loss_(in_million_$)": 0, "number_of_affected_users": 50},
    {"Attack Type": "DDoS", "Country": "USA", "Target Industry": null, "Impact": "Data Breach",
     "financial_loss_(in_million_$)": 5, "number_of_affected_users": 1000},
    {"Attack Type": "Malware", "Country": "unknown", "Target Industry": "Retail", "Impact": null,
     "financial_loss_(in_million_$)": -2, "number_of_affected_users": null}
]`

func loadFixture(t *testing.T) (*Analyzer, *model.Dataset) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cleaned.json")
	require.NoError(t, os.WriteFile(path, []byte(cleanedFixture), 0o644))

	a := NewAnalyzer(zap.NewNop())
	ds, err := a.Load(path)
	require.NoError(t, err)
	return a, ds
}

func TestLoadNormalizesColumnNames(t *testing.T) {
	_, ds := loadFixture(t)
	assert.Equal(t, []string{
		"attack_type", "country", "target_industry", "impact",
		"financial_loss_(in_million_$)", "number_of_affected_users",
	}, ds.ColumnNames())
	assert.Equal(t, "Phishing", ds.Rows[0]["attack_type"])
}

func TestLoadMissingDataset(t *testing.T) {
	_, err := NewAnalyzer(nil).Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, errors.Is(err, ErrDatasetNotFound), "got %v", err)
}

func TestComputeQuality(t *testing.T) {
	_, ds := loadFixture(t)
	q := ComputeQuality(ds)

	// 3 nulls in 24 cells
	assert.Equal(t, 87.5, q.Completeness)
	assert.Equal(t, 75.0, q.ImpactCoverage)
	// "Unknown" is data, not a gap
	assert.Equal(t, 75.0, q.IndustryCoverage)
	// -2 is the only inconsistent value among 7 numeric cells
	assert.Equal(t, 85.71, q.NumericConsistency)
	assert.Equal(t, 75.0, q.UniqueAttackRatio)
	assert.Equal(t, 79.64, q.FinalDataAccuracy)
}

func TestComputeQualityMissingColumns(t *testing.T) {
	ds := model.NewDataset("partial", model.Column{Name: "country", Kind: model.KindText})
	ds.Rows = append(ds.Rows, model.Row{"country": "USA"})

	q := ComputeQuality(ds)
	assert.Equal(t, 100.0, q.Completeness)
	assert.Zero(t, q.ImpactCoverage)
	assert.Zero(t, q.IndustryCoverage)
	assert.Zero(t, q.NumericConsistency)
	assert.Zero(t, q.UniqueAttackRatio)
	assert.Equal(t, 20.0, q.FinalDataAccuracy)

	assert.Equal(t, Quality{}, ComputeQuality(model.NewDataset("empty")))
}

func TestBuildCharts(t *testing.T) {
	_, ds := loadFixture(t)
	charts, skipped := BuildCharts(ds)
	assert.Empty(t, skipped)
	require.Len(t, charts, 6)

	report := &Report{Charts: charts}

	attacks := report.Chart(ChartTopAttackTypes)
	require.NotNil(t, attacks)
	assert.Equal(t, KindLine, attacks.Kind)
	// ties are ordered by label
	assert.Equal(t, []string{"Phishing", "DDoS", "Malware"}, attacks.Labels)
	assert.Equal(t, []float64{50, 25, 25}, attacks.Values)

	countries := report.Chart(ChartTopCountries)
	require.NotNil(t, countries)
	assert.Equal(t, []string{"USA", "UK"}, countries.Labels)
	assert.Equal(t, []float64{66.67, 33.33}, countries.Values)

	industries := report.Chart(ChartTopIndustries)
	require.NotNil(t, industries)
	assert.Equal(t, []string{"Finance", "Retail"}, industries.Labels)

	impact := report.Chart(ChartAttackVsImpact)
	require.NotNil(t, impact)
	assert.Equal(t, []string{"Data Breach", "Downtime", "Unknown"}, impact.Labels)
	assert.Equal(t, []float64{2, 1, 1}, impact.Values)

	scatter := report.Chart(ChartLossVsAffectedUsers)
	require.NotNil(t, scatter)
	assert.Equal(t, "log", scatter.XScale)
	assert.Equal(t, []Series{
		{Name: "DDoS", Points: []Point{{X: 5, Y: 1000}}},
		{Name: "Phishing", Points: []Point{{X: 10, Y: 100}}},
	}, scatter.Series)

	heatmap := report.Chart(ChartCorrelationHeatmap)
	require.NotNil(t, heatmap)
	assert.Equal(t, []string{"financial_loss_(in_million_$)", "number_of_affected_users"}, heatmap.Labels)
	require.Len(t, heatmap.Matrix, 2)
	require.NotNil(t, heatmap.Matrix[0][0])
	assert.Equal(t, 1.0, *heatmap.Matrix[0][0])
	require.NotNil(t, heatmap.Matrix[0][1])
	assert.Equal(t, *heatmap.Matrix[0][1], *heatmap.Matrix[1][0])
}

func TestBuildChartsSkipsMissingColumns(t *testing.T) {
	ds := model.NewDataset("partial", model.Column{Name: "attack_type", Kind: model.KindText})
	ds.Rows = append(ds.Rows, model.Row{"attack_type": nil})

	charts, skipped := BuildCharts(ds)
	require.Len(t, charts, 1)
	assert.Equal(t, []string{model.UnknownValue}, charts[0].Labels)
	assert.Equal(t, []string{
		ChartTopCountries, ChartTopIndustries, ChartAttackVsImpact,
		ChartLossVsAffectedUsers, ChartCorrelationHeatmap,
	}, skipped)
}

func TestNumericSummary(t *testing.T) {
	_, ds := loadFixture(t)
	summary := NumericSummary(ds)

	loss := summary["financial_loss_(in_million_$)"]
	assert.Equal(t, 4, loss.Count)
	assert.Equal(t, 3.25, loss.Mean)
	assert.Equal(t, 2.5, loss.Median)
	assert.Equal(t, -2.0, loss.Min)
	assert.Equal(t, 10.0, loss.Max)
	assert.Positive(t, loss.StdDev)

	assert.Equal(t, 3, summary["number_of_affected_users"].Count)
	assert.NotContains(t, summary, "attack_type")
}

func TestPublish(t *testing.T) {
	a, ds := loadFixture(t)
	report := a.Analyze(ds)
	dir := filepath.Join(t.TempDir(), "static", "eda")

	urls, err := Publish(report, dir, "http://localhost:8000/")
	require.NoError(t, err)
	require.Len(t, urls, len(report.Charts))
	assert.Equal(t, "http://localhost:8000/static/eda/top_15_countries.json", urls[ChartTopCountries])

	body, err := os.ReadFile(filepath.Join(dir, ChartTopCountries+".json"))
	require.NoError(t, err)
	var chart Chart
	require.NoError(t, json.Unmarshal(body, &chart))
	assert.Equal(t, ChartTopCountries, chart.Name)
	assert.Equal(t, []string{"USA", "UK"}, chart.Labels)
}
