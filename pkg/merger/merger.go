// pkg/merger/merger.go
package merger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/dataio"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// Suffixes applied to non-key columns present in both sources
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// fillUnknownColumns get "Unknown" in place of nulls after the join
var fillUnknownColumns = []string{model.ColIndustry, model.ColCause}

// MergeJob names the inputs and outputs of one merge
type MergeJob struct {
	LeftPath  string
	RightPath string
	CSVOut    string
	JSONOut   string
}

// MergeResult describes the outcome of a merge
type MergeResult struct {
	LeftRows          int            `json:"left_rows"`
	RightRows         int            `json:"right_rows"`
	RowCount          int            `json:"row_count"`
	ColumnCount       int            `json:"column_count"`
	MatchedKeys       int            `json:"matched_keys"`
	LeftOnlyKeys      int            `json:"left_only_keys"`
	RightOnlyKeys     int            `json:"right_only_keys"`
	FilledCells       map[string]int `json:"filled_cells,omitempty"`
	DuplicatesDropped int            `json:"duplicates_dropped"`
	OutputPaths       []string       `json:"output_paths,omitempty"`
	ExecutionTime     time.Duration  `json:"execution_time"`
}

// Merger joins the two raw cyberattack sources on attack_type
type Merger struct {
	converter *converter.TypeConverter
	reader    *dataio.Reader
	logger    *zap.Logger
}

// NewMerger creates a new Merger
func NewMerger(tc *converter.TypeConverter, logger *zap.Logger) (*Merger, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if tc == nil {
		tc = converter.NewTypeConverter(logger)
	}

	return &Merger{
		converter: tc,
		reader:    dataio.NewReader(tc, logger),
		logger:    logger.Named("merger"),
	}, nil
}

// MergeFiles reads both sources, merges them and writes the delimited and
// structured outputs. Nothing is written unless both outputs were produced.
func (m *Merger) MergeFiles(ctx context.Context, job MergeJob) (*MergeResult, error) {
	if job.CSVOut == "" || job.JSONOut == "" {
		return nil, errors.New("merge job requires both output paths")
	}

	left, err := m.reader.ReadFile(job.LeftPath)
	if err != nil {
		return nil, err
	}
	right, err := m.reader.ReadFile(job.RightPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("merge cancelled: %w", err)
	}

	merged, result, err := m.Merge(left, right)
	if err != nil {
		return nil, err
	}

	csvFile, err := dataio.StageDataset(job.CSVOut, merged)
	if err != nil {
		return nil, err
	}
	jsonFile, err := dataio.StageDataset(job.JSONOut, merged)
	if err != nil {
		csvFile.Discard()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		dataio.DiscardAll(csvFile, jsonFile)
		return nil, fmt.Errorf("merge cancelled: %w", err)
	}
	if err := dataio.CommitAll(csvFile, jsonFile); err != nil {
		return nil, err
	}

	result.OutputPaths = []string{job.CSVOut, job.JSONOut}
	m.logger.Info("Wrote merged dataset",
		zap.String("csv", job.CSVOut),
		zap.String("json", job.JSONOut),
		zap.Int("rows", result.RowCount))

	return result, nil
}

// Merge performs the outer join of left and right on attack_type, fills
// industry and cause with "Unknown" and drops exact duplicate rows
func (m *Merger) Merge(left, right *model.Dataset) (*model.Dataset, *MergeResult, error) {
	startTime := time.Now()

	if left == nil || right == nil {
		return nil, nil, errors.New("both datasets are required")
	}

	l, err := normalizeHeaders(left)
	if err != nil {
		return nil, nil, err
	}
	r, err := normalizeHeaders(right)
	if err != nil {
		return nil, nil, err
	}

	for _, ds := range []*model.Dataset{l, r} {
		if !ds.HasColumn(model.ColAttackType) {
			return nil, nil, model.NewError(model.ErrorKindSchemaMismatch, "merge", ds.Name,
				fmt.Errorf("missing join column %q", model.ColAttackType))
		}
	}

	textKeys(l)
	textKeys(r)

	result := &MergeResult{
		LeftRows:    l.Len(),
		RightRows:   r.Len(),
		FilledCells: make(map[string]int),
	}

	merged := m.outerJoin(l, r, result)

	for _, name := range fillUnknownColumns {
		if !merged.HasColumn(name) {
			continue
		}
		for _, row := range merged.Rows {
			if converter.IsNull(row[name]) {
				row[name] = model.UnknownValue
				result.FilledCells[name]++
			}
		}
	}

	result.DuplicatesDropped = dropDuplicates(merged)
	m.converter.InferDatasetKinds(merged)

	result.RowCount = merged.Len()
	result.ColumnCount = len(merged.Columns)
	result.ExecutionTime = time.Since(startTime)

	m.logger.Info("Merged datasets",
		zap.String("left", left.Name),
		zap.String("right", right.Name),
		zap.Int("left_rows", result.LeftRows),
		zap.Int("right_rows", result.RightRows),
		zap.Int("rows", result.RowCount),
		zap.Int("columns", result.ColumnCount),
		zap.Int("duplicates_dropped", result.DuplicatesDropped),
		zap.Duration("duration", result.ExecutionTime))

	return merged, result, nil
}

// normalizeHeaders returns a copy of ds with normalized column names
func normalizeHeaders(ds *model.Dataset) (*model.Dataset, error) {
	out := model.NewDataset(ds.Name)
	renames := make(map[string]string, len(ds.Columns))

	for _, col := range ds.Columns {
		name := model.NormalizeColumnName(col.Name)
		if out.HasColumn(name) {
			return nil, model.NewError(model.ErrorKindSchemaMismatch, "merge", ds.Name,
				fmt.Errorf("columns %q collide after normalization as %q", col.Name, name))
		}
		out.Columns = append(out.Columns, model.Column{Name: name, Kind: col.Kind})
		renames[col.Name] = name
	}

	out.Rows = make([]model.Row, len(ds.Rows))
	for i, row := range ds.Rows {
		r := make(model.Row, len(row))
		for k, v := range row {
			if name, ok := renames[k]; ok {
				r[name] = v
			}
		}
		out.Rows[i] = r
	}
	return out, nil
}

// joinKey groups rows sharing one attack_type value. Null keys form their
// own group.
type joinKey struct {
	id    string
	value interface{}
	left  []int
	right []int
}

func (m *Merger) outerJoin(l, r *model.Dataset, result *MergeResult) *model.Dataset {
	// Column layout: left columns, then right non-key columns. Shared names
	// are suffixed on both sides.
	merged := model.NewDataset("merged")
	leftNames := make(map[string]string, len(l.Columns))
	rightNames := make(map[string]string, len(r.Columns))

	for _, col := range l.Columns {
		name := col.Name
		if name != model.ColAttackType && r.HasColumn(name) {
			name += LeftSuffix
		}
		leftNames[col.Name] = name
		merged.Columns = append(merged.Columns, model.Column{Name: name, Kind: col.Kind})
	}
	for _, col := range r.Columns {
		if col.Name == model.ColAttackType {
			continue
		}
		name := col.Name
		if l.HasColumn(name) {
			name += RightSuffix
		}
		rightNames[col.Name] = name
		merged.Columns = append(merged.Columns, model.Column{Name: name, Kind: col.Kind})
	}

	keys := make(map[string]*joinKey)
	var order []*joinKey
	group := func(v interface{}) *joinKey {
		id := joinKeyID(v)
		k, ok := keys[id]
		if !ok {
			k = &joinKey{id: id, value: v}
			keys[id] = k
			order = append(order, k)
		}
		return k
	}
	for i, row := range l.Rows {
		k := group(row[model.ColAttackType])
		k.left = append(k.left, i)
	}
	for i, row := range r.Rows {
		k := group(row[model.ColAttackType])
		k.right = append(k.right, i)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return lessKey(order[i].value, order[j].value)
	})

	for _, k := range order {
		switch {
		case len(k.left) > 0 && len(k.right) > 0:
			result.MatchedKeys++
			for _, li := range k.left {
				for _, ri := range k.right {
					merged.Rows = append(merged.Rows, joinRow(l.Rows[li], r.Rows[ri], leftNames, rightNames))
				}
			}
		case len(k.left) > 0:
			result.LeftOnlyKeys++
			for _, li := range k.left {
				merged.Rows = append(merged.Rows, joinRow(l.Rows[li], nil, leftNames, rightNames))
			}
		default:
			result.RightOnlyKeys++
			for _, ri := range k.right {
				row := joinRow(nil, r.Rows[ri], leftNames, rightNames)
				row[model.ColAttackType] = r.Rows[ri][model.ColAttackType]
				merged.Rows = append(merged.Rows, row)
			}
		}
	}

	return merged
}

// joinRow combines one row of each side. A nil side contributes nulls.
func joinRow(left, right model.Row, leftNames, rightNames map[string]string) model.Row {
	row := make(model.Row, len(leftNames)+len(rightNames))
	for src, dst := range leftNames {
		row[dst] = nil
		if left != nil {
			row[dst] = left[src]
		}
	}
	for src, dst := range rightNames {
		row[dst] = nil
		if right != nil {
			row[dst] = right[src]
		}
	}
	return row
}

// textKeys converts every non-null attack_type to its text form. Sources
// are typed column by column, so an all-digit key column loads as numbers.
func textKeys(ds *model.Dataset) {
	for _, row := range ds.Rows {
		if v := row[model.ColAttackType]; !converter.IsNull(v) {
			row[model.ColAttackType] = converter.ToText(v)
		}
	}
	if col := ds.GetColumnByName(model.ColAttackType); col != nil {
		col.Kind = model.KindText
	}
}

// joinKeyID identifies a join key by its text form. Null keys share one id.
func joinKeyID(v interface{}) string {
	if converter.IsNull(v) {
		return "\x00null"
	}
	return "t\x00" + converter.ToText(v)
}

// keyID identifies a cell value for duplicate detection. Values of
// different types are distinct.
func keyID(v interface{}) string {
	if converter.IsNull(v) {
		return "\x00null"
	}
	return fmt.Sprintf("%T\x00%s", v, converter.ToText(v))
}

// lessKey orders join keys lexicographically with nulls last
func lessKey(a, b interface{}) bool {
	aNull, bNull := converter.IsNull(a), converter.IsNull(b)
	if aNull || bNull {
		return !aNull && bNull
	}
	return converter.ToText(a) < converter.ToText(b)
}

// dropDuplicates removes rows identical across every column, keeping the
// first occurrence, and returns how many were removed
func dropDuplicates(ds *model.Dataset) int {
	seen := make(map[string]struct{}, len(ds.Rows))
	kept := ds.Rows[:0]
	names := ds.ColumnNames()

	var sb strings.Builder
	for _, row := range ds.Rows {
		sb.Reset()
		for _, name := range names {
			sb.WriteString(keyID(row[name]))
			sb.WriteByte('\x1f')
		}
		key := sb.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}

	dropped := len(ds.Rows) - len(kept)
	ds.Rows = kept
	return dropped
}
