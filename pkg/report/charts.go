// pkg/report/charts.go
package report

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// Chart names
const (
	ChartTopAttackTypes      = "top_20_attack_types"
	ChartTopCountries        = "top_15_countries"
	ChartTopIndustries       = "top_10_target_industries"
	ChartAttackVsImpact      = "attack_vs_impact"
	ChartLossVsAffectedUsers = "financial_loss_vs_affected_users"
	ChartCorrelationHeatmap  = "correlation_heatmap"
)

// Chart kinds understood by the renderer
const (
	KindLine    = "line"
	KindBar     = "bar"
	KindBarH    = "barh"
	KindPie     = "pie"
	KindScatter = "scatter"
	KindHeatmap = "heatmap"
)

// Point is one scatter point
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named group of scatter points
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Chart is the renderer-independent description of one plot
type Chart struct {
	Name   string       `json:"name"`
	Title  string       `json:"title"`
	Kind   string       `json:"kind"`
	XLabel string       `json:"x_label,omitempty"`
	YLabel string       `json:"y_label,omitempty"`
	XScale string       `json:"x_scale,omitempty"`
	YScale string       `json:"y_scale,omitempty"`
	Labels []string     `json:"labels,omitempty"`
	Values []float64    `json:"values,omitempty"`
	Series []Series     `json:"series,omitempty"`
	Matrix [][]*float64 `json:"matrix,omitempty"` // Null where a correlation is undefined
}

type chartBuilder struct {
	name   string
	column []string
	build  func(ds *model.Dataset) (Chart, bool)
}

var chartBuilders = []chartBuilder{
	{ChartTopAttackTypes, []string{model.ColAttackType}, topAttackTypes},
	{ChartTopCountries, []string{model.ColCountry}, topCountries},
	{ChartTopIndustries, []string{model.ColTargetIndustry}, topIndustries},
	{ChartAttackVsImpact, []string{model.ColImpact}, attackVsImpact},
	{ChartLossVsAffectedUsers, []string{model.ColFinancialLoss, model.ColAffectedUsers, model.ColAttackType}, lossVsAffectedUsers},
	{ChartCorrelationHeatmap, nil, correlationHeatmap},
}

// BuildCharts builds every chart the dataset supports. Charts whose columns
// are missing or whose data is empty are returned by name in skipped.
func BuildCharts(ds *model.Dataset) (charts []Chart, skipped []string) {
	filled := safeFill(ds)

	for _, b := range chartBuilders {
		if !hasColumns(filled, b.column) {
			skipped = append(skipped, b.name)
			continue
		}
		chart, ok := b.build(filled)
		if !ok {
			skipped = append(skipped, b.name)
			continue
		}
		chart.Name = b.name
		charts = append(charts, chart)
	}
	return charts, skipped
}

func topAttackTypes(ds *model.Dataset) (Chart, bool) {
	counts := valueCounts(ds, model.ColAttackType, nil)
	counts = top(counts, 20)
	if len(counts) == 0 {
		return Chart{}, false
	}
	labels, values := percentages(counts)
	return Chart{
		Title:  "Top 20 Attack Types (%)",
		Kind:   KindLine,
		XLabel: "Attack Type",
		YLabel: "Percentage",
		Labels: labels,
		Values: values,
	}, true
}

func topCountries(ds *model.Dataset) (Chart, bool) {
	counts := top(valueCounts(ds, model.ColCountry, isUnknown), 15)
	if len(counts) == 0 {
		return Chart{}, false
	}
	labels, values := percentages(counts)
	return Chart{
		Title:  "Top 15 Countries by Attack Percentage",
		Kind:   KindBar,
		XLabel: "Country",
		YLabel: "Percentage",
		Labels: labels,
		Values: values,
	}, true
}

func topIndustries(ds *model.Dataset) (Chart, bool) {
	counts := top(valueCounts(ds, model.ColTargetIndustry, isUnknown), 10)
	if len(counts) == 0 {
		return Chart{}, false
	}
	labels, values := percentages(counts)
	return Chart{
		Title:  "Top 10 Target Industries",
		Kind:   KindPie,
		Labels: labels,
		Values: values,
	}, true
}

func attackVsImpact(ds *model.Dataset) (Chart, bool) {
	counts := top(valueCounts(ds, model.ColImpact, nil), 15)
	if len(counts) == 0 {
		return Chart{}, false
	}
	chart := Chart{
		Title:  "Attack Type vs Impact",
		Kind:   KindBarH,
		XLabel: "Count",
		YLabel: "Impact",
	}
	for _, c := range counts {
		chart.Labels = append(chart.Labels, c.label)
		chart.Values = append(chart.Values, float64(c.count))
	}
	return chart, true
}

func lossVsAffectedUsers(ds *model.Dataset) (Chart, bool) {
	groups := make(map[string][]Point)
	var order []string
	for _, row := range ds.Rows {
		loss, okLoss := asFloat(row[model.ColFinancialLoss])
		users, okUsers := asFloat(row[model.ColAffectedUsers])
		if !okLoss || !okUsers || loss <= 0 || users <= 0 {
			continue
		}
		name := converter.ToText(row[model.ColAttackType])
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], Point{X: loss, Y: users})
	}
	if len(order) == 0 {
		return Chart{}, false
	}
	sort.Strings(order)

	chart := Chart{
		Title:  "Financial Loss vs. Affected Users",
		Kind:   KindScatter,
		XLabel: "Financial Loss (Million $)",
		YLabel: "Affected Users",
		XScale: "log",
		YScale: "log",
	}
	for _, name := range order {
		chart.Series = append(chart.Series, Series{Name: name, Points: groups[name]})
	}
	return chart, true
}

func correlationHeatmap(ds *model.Dataset) (Chart, bool) {
	var names []string
	var columns [][]float64
	for _, col := range ds.Columns {
		if !col.Kind.IsNumber() {
			continue
		}
		values := make([]float64, ds.Len())
		for i, row := range ds.Rows {
			values[i], _ = asFloat(row[col.Name])
		}
		names = append(names, col.Name)
		columns = append(columns, values)
	}
	if len(names) == 0 || ds.Len() < 2 {
		return Chart{}, false
	}

	matrix := make([][]*float64, len(names))
	for i := range names {
		matrix[i] = make([]*float64, len(names))
		for j := range names {
			r := stat.Correlation(columns[i], columns[j], nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			r = round2(r)
			matrix[i][j] = &r
		}
	}

	return Chart{
		Title:  "Correlation Heatmap of Numeric Features",
		Kind:   KindHeatmap,
		Labels: names,
		Matrix: matrix,
	}, true
}

// labelCount is one entry of a value count
type labelCount struct {
	label string
	count int
}

// valueCounts counts the text form of every value of a column, most frequent
// first with ties broken by label. Values matching exclude are left out.
func valueCounts(ds *model.Dataset, name string, exclude func(string) bool) []labelCount {
	index := make(map[string]int)
	var counts []labelCount
	for _, row := range ds.Rows {
		label := converter.ToText(row[name])
		if label == "" {
			label = model.UnknownValue
		}
		if exclude != nil && exclude(label) {
			continue
		}
		i, ok := index[label]
		if !ok {
			i = len(counts)
			index[label] = i
			counts = append(counts, labelCount{label: label})
		}
		counts[i].count++
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].label < counts[j].label
	})
	return counts
}

func top(counts []labelCount, n int) []labelCount {
	if len(counts) > n {
		return counts[:n]
	}
	return counts
}

// percentages converts counts to shares of their sum
func percentages(counts []labelCount) ([]string, []float64) {
	total := 0
	for _, c := range counts {
		total += c.count
	}
	labels := make([]string, len(counts))
	values := make([]float64, len(counts))
	for i, c := range counts {
		labels[i] = c.label
		values[i] = round2(100 * float64(c.count) / float64(total))
	}
	return labels, values
}

func isUnknown(label string) bool {
	return strings.EqualFold(strings.TrimSpace(label), model.UnknownValue)
}

// safeFill returns a copy with numeric nulls set to 0 and text nulls set to
// "Unknown"
func safeFill(ds *model.Dataset) *model.Dataset {
	out := ds.Clone()
	for _, col := range out.Columns {
		for _, row := range out.Rows {
			if !converter.IsNull(row[col.Name]) {
				continue
			}
			if col.Kind.IsNumber() {
				row[col.Name] = 0.0
			} else {
				row[col.Name] = model.UnknownValue
			}
		}
	}
	return out
}

func hasColumns(ds *model.Dataset, names []string) bool {
	for _, name := range names {
		if !ds.HasColumn(name) {
			return false
		}
	}
	return true
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
