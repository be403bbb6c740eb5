package merger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/dataio"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

func newTestMerger(t *testing.T) *Merger {
	t.Helper()
	m, err := NewMerger(nil, zap.NewNop())
	require.NoError(t, err)
	return m
}

func dataset(name string, columns []string, rows ...[]interface{}) *model.Dataset {
	ds := model.NewDataset(name)
	for _, c := range columns {
		ds.Columns = append(ds.Columns, model.Column{Name: c})
	}
	for _, values := range rows {
		row := make(model.Row, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func TestNewMergerRequiresLogger(t *testing.T) {
	_, err := NewMerger(nil, nil)
	assert.Error(t, err)
}

func TestMergeDisjointSources(t *testing.T) {
	left := dataset("global", []string{"Attack Type", "Industry"}, []interface{}{"Phishing", "Finance"})
	right := dataset("defense", []string{"attack_type", "Cause"}, []interface{}{"Malware", "Unpatched"})

	merged, result, err := newTestMerger(t).Merge(left, right)
	require.NoError(t, err)

	assert.Equal(t, []string{"attack_type", "industry", "cause"}, merged.ColumnNames())
	require.Len(t, merged.Rows, 2)

	// rows are ordered by key
	assert.Equal(t, model.Row{"attack_type": "Malware", "industry": "Unknown", "cause": "Unpatched"}, merged.Rows[0])
	assert.Equal(t, model.Row{"attack_type": "Phishing", "industry": "Finance", "cause": "Unknown"}, merged.Rows[1])

	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, 1, result.LeftOnlyKeys)
	assert.Equal(t, 1, result.RightOnlyKeys)
	assert.Equal(t, 1, result.FilledCells["industry"])
	assert.Equal(t, 1, result.FilledCells["cause"])
}

func TestMergeCardinalityIsOuterJoin(t *testing.T) {
	left := dataset("l", []string{"attack_type", "country"},
		[]interface{}{"DDoS", "USA"},
		[]interface{}{"DDoS", "UK"},
		[]interface{}{"Phishing", "India"},
		[]interface{}{nil, "Brazil"},
	)
	right := dataset("r", []string{"attack_type", "cause"},
		[]interface{}{"DDoS", "Botnet"},
		[]interface{}{"DDoS", "Misconfig"},
		[]interface{}{"DDoS", "Amplification"},
		[]interface{}{"SQL Injection", "Unvalidated input"},
		[]interface{}{nil, "Insider"},
	)

	merged, result, err := newTestMerger(t).Merge(left, right)
	require.NoError(t, err)

	// DDoS 2x3, Phishing left only, SQL Injection right only, null keys 1x1
	assert.Equal(t, 6+1+1+1, merged.Len())
	assert.Equal(t, 2, result.MatchedKeys)

	keys := merged.Values("attack_type")
	assert.Equal(t, "DDoS", keys[0])
	assert.Equal(t, "Phishing", keys[6])
	assert.Equal(t, "SQL Injection", keys[7])
	assert.Nil(t, keys[8])

	// cartesian product keeps source order
	assert.Equal(t, "USA", merged.Rows[0]["country"])
	assert.Equal(t, "Botnet", merged.Rows[0]["cause"])
	assert.Equal(t, "Misconfig", merged.Rows[1]["cause"])
	assert.Equal(t, "UK", merged.Rows[3]["country"])

	for _, row := range merged.Rows {
		assert.NotNil(t, row["cause"])
	}
}

func TestMergeSuffixesSharedColumns(t *testing.T) {
	left := dataset("l", []string{"attack_type", "Country", "Year"}, []interface{}{"Malware", "USA", 2021.0})
	right := dataset("r", []string{"attack_type", "country"}, []interface{}{"Malware", "Germany"})

	merged, _, err := newTestMerger(t).Merge(left, right)
	require.NoError(t, err)

	assert.Equal(t, []string{"attack_type", "country_x", "year", "country_y"}, merged.ColumnNames())
	assert.Equal(t, "USA", merged.Rows[0]["country_x"])
	assert.Equal(t, "Germany", merged.Rows[0]["country_y"])
	assert.Equal(t, model.KindInteger, merged.GetColumnByName("year").Kind)
}

func TestMergeDropsExactDuplicates(t *testing.T) {
	left := dataset("l", []string{"attack_type", "industry"},
		[]interface{}{"Ransomware", nil},
		[]interface{}{"Ransomware", nil},
		[]interface{}{"Ransomware", "Retail"},
	)
	right := dataset("r", []string{"attack_type"}, []interface{}{"Ransomware"})

	merged, result, err := newTestMerger(t).Merge(left, right)
	require.NoError(t, err)

	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, 1, result.DuplicatesDropped)
	assert.Equal(t, "Unknown", merged.Rows[0]["industry"])
	assert.Equal(t, "Retail", merged.Rows[1]["industry"])
}

func TestMergeSchemaErrors(t *testing.T) {
	m := newTestMerger(t)

	noKey := dataset("r", []string{"type"}, []interface{}{"Malware"})
	_, _, err := m.Merge(dataset("l", []string{"Attack Type"}), noKey)
	assert.True(t, model.IsKind(err, model.ErrorKindSchemaMismatch), "got %v", err)

	colliding := dataset("l", []string{"Attack Type", "attack  type"})
	_, _, err = m.Merge(colliding, dataset("r", []string{"attack_type"}))
	assert.True(t, model.IsKind(err, model.ErrorKindSchemaMismatch), "got %v", err)
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	leftPath := filepath.Join(dir, "global.csv")
	rightPath := filepath.Join(dir, "defense.json")
	require.NoError(t, os.WriteFile(leftPath, []byte("Attack Type,Industry\nPhishing,Finance\n"), 0o644))
	require.NoError(t, os.WriteFile(rightPath, []byte(`[{"Attack Type": "Malware", "Cause": "Unpatched"}]`), 0o644))

	job := MergeJob{
		LeftPath:  leftPath,
		RightPath: rightPath,
		CSVOut:    filepath.Join(dir, "out", "merged.csv"),
		JSONOut:   filepath.Join(dir, "out", "merged.json"),
	}
	result, err := newTestMerger(t).MergeFiles(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)

	csvBody, err := os.ReadFile(job.CSVOut)
	require.NoError(t, err)
	assert.Equal(t, "attack_type,industry,cause\nMalware,Unknown,Unpatched\nPhishing,Finance,Unknown\n", string(csvBody))

	reread, err := dataio.NewReader(nil, nil).ReadFile(job.JSONOut)
	require.NoError(t, err)
	assert.Equal(t, []string{"attack_type", "industry", "cause"}, reread.ColumnNames())
	assert.Equal(t, "Malware", reread.Rows[0]["attack_type"])
}

func TestMergeFilesWritesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	leftPath := filepath.Join(dir, "global.csv")
	require.NoError(t, os.WriteFile(leftPath, []byte("Attack Type\nPhishing\n"), 0o644))

	job := MergeJob{
		LeftPath:  leftPath,
		RightPath: filepath.Join(dir, "missing.csv"),
		CSVOut:    filepath.Join(dir, "merged.csv"),
		JSONOut:   filepath.Join(dir, "merged.json"),
	}
	_, err := newTestMerger(t).MergeFiles(context.Background(), job)
	assert.True(t, model.IsKind(err, model.ErrorKindMissingInput), "got %v", err)

	_, statErr := os.Stat(job.CSVOut)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(job.JSONOut)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeFilesMatchesDigitKeys(t *testing.T) {
	dir := t.TempDir()
	leftPath := filepath.Join(dir, "global.csv")
	rightPath := filepath.Join(dir, "defense.csv")
	require.NoError(t, os.WriteFile(leftPath, []byte("Attack Type,Industry\n101,Finance\nPhishing,Retail\n"), 0o644))
	// every key of this source parses as a number
	require.NoError(t, os.WriteFile(rightPath, []byte("attack type,Cause\n101,Bug\n"), 0o644))

	job := MergeJob{
		LeftPath:  leftPath,
		RightPath: rightPath,
		CSVOut:    filepath.Join(dir, "merged.csv"),
		JSONOut:   filepath.Join(dir, "merged.json"),
	}
	result, err := newTestMerger(t).MergeFiles(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedKeys)
	assert.Equal(t, 2, result.RowCount)

	csvBody, err := os.ReadFile(job.CSVOut)
	require.NoError(t, err)
	assert.Equal(t, "attack_type,industry,cause\n101,Finance,Bug\nPhishing,Retail,Unknown\n", string(csvBody))
}

func TestMergeNumericKeysJoinText(t *testing.T) {
	left := dataset("l", []string{"attack_type", "industry"}, []interface{}{"7", "Energy"})
	right := dataset("r", []string{"attack_type", "cause"}, []interface{}{7.0, "Botnet"})

	merged, result, err := newTestMerger(t).Merge(left, right)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedKeys)
	require.Equal(t, 1, merged.Len())
	assert.Equal(t, model.Row{"attack_type": "7", "industry": "Energy", "cause": "Botnet"}, merged.Rows[0])
	assert.Equal(t, model.KindText, merged.GetColumnByName("attack_type").Kind)
}
