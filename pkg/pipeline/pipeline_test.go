package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/cleaner"
	"github.com/David-Botos/cyberattack-ingress/pkg/config"
	"github.com/David-Botos/cyberattack-ingress/pkg/merger"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

const globalCSV = `Attack Type,Category,Country,Financial Loss (in Million $),Number of Affected Users,ID,Industry,Unnamed: 15
Phishing,Social -> Email -> Spear,USA,12.5,1000,1,Finance,
DDoS!!,Network,UK,,500,12a,,
`

const defenseCSV = `Attack Type,Cause
Phishing,Weak training
Malware,Unpatched
`

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	logger := zap.NewNop()
	m, err := merger.NewMerger(nil, logger)
	require.NoError(t, err)
	c, err := cleaner.NewDataCleaner(nil, nil, logger)
	require.NoError(t, err)
	r, err := NewRunner(m, c, logger)
	require.NoError(t, err)
	return r
}

func fixtureJob(t *testing.T) Job {
	t.Helper()
	dir := t.TempDir()
	paths := config.PathsConfig{
		GlobalSource:  filepath.Join(dir, "global.csv"),
		DefenseSource: filepath.Join(dir, "defense.csv"),
		MergedCSV:     filepath.Join(dir, "out", "merged.csv"),
		MergedJSON:    filepath.Join(dir, "out", "merged.json"),
		CleanedJSON:   filepath.Join(dir, "out", "cleaned.json"),
	}
	require.NoError(t, os.WriteFile(paths.GlobalSource, []byte(globalCSV), 0o644))
	require.NoError(t, os.WriteFile(paths.DefenseSource, []byte(defenseCSV), 0o644))
	return JobFromConfig(paths)
}

func TestNewRunnerValidatesArguments(t *testing.T) {
	_, err := NewRunner(nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	r := newTestRunner(t)
	job := fixtureJob(t)

	summary, err := r.Run(context.Background(), job)
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, job.ID, summary.RunID)
	assert.Equal(t, job.ID, summary.Clean.RunID)
	assert.Empty(t, summary.Violations)

	// DDoS!! (left only), Malware (right only), Phishing (matched)
	assert.Equal(t, 3, summary.Merge.RowCount)
	assert.Equal(t, 3, summary.Clean.OutputRows)

	// "12a" and the "Unknown" filled into the right-only id
	assert.Equal(t, 2, summary.Errors[model.ErrorKindParseFailure.String()])
	assert.Positive(t, summary.CleaningOperations())
	assert.Contains(t, summary.Samples,
		"[ParseFailure] Stage: clean Column: id Error: values could not be coerced and were set to null (x2)")

	for _, path := range []string{job.Merge.CSVOut, job.Merge.JSONOut, job.CleanedPath} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	report := r.LastMetrics().GenerateMetricsReport()
	assert.Contains(t, report, job.ID)
	assert.Contains(t, report, "- merge:")
	assert.Contains(t, report, "- clean:")

	body, err := r.LastMetrics().ToJSON()
	require.NoError(t, err)
	var decoded struct {
		RunID  string `json:"runId"`
		Stages []struct {
			Name    string `json:"name"`
			RowsOut int    `json:"rowsOut"`
		} `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, job.ID, decoded.RunID)
	require.Len(t, decoded.Stages, 2)
	assert.Equal(t, StageMerge, decoded.Stages[0].Name)
	assert.Equal(t, 3, decoded.Stages[1].RowsOut)
}

func TestRunFailsOnMissingSource(t *testing.T) {
	r := newTestRunner(t)
	job := fixtureJob(t)
	require.NoError(t, os.Remove(job.Merge.RightPath))

	summary, err := r.Run(context.Background(), job)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrorKindMissingInput))
	assert.False(t, summary.Success)
	assert.Equal(t, 1, summary.Errors[model.ErrorKindMissingInput.String()])

	_, statErr := os.Stat(job.CleanedPath)
	assert.True(t, os.IsNotExist(statErr))
	assert.True(t, r.LastMetrics().Stages[StageMerge].Failed)
}

func TestErrorSummary(t *testing.T) {
	s := NewErrorSummary(zap.NewNop())

	s.Record(NewRecoveredRecord(model.ErrorKindParseFailure, StageClean, "bad cell").WithCount(3))
	s.Record(NewRecoveredRecord(model.ErrorKindPartialData, StageClean, "missing").WithStep("category_split"))
	s.Record(NewRecoveredRecord(model.ErrorKindPartialData, StageClean, "ignored").WithCount(0))

	assert.Equal(t, map[string]int{"ParseFailure": 3, "PartialData": 1}, s.Counts())
	assert.Equal(t, 4, s.StageCount(StageClean))
	assert.False(t, s.HasFatal())

	samples := s.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, "[ParseFailure] Stage: clean Error: bad cell (x3)", samples[0].String())
	assert.Equal(t, "[PartialData] Stage: clean Step: category_split Error: missing", samples[1].String())

	s.Record(NewErrorRecord(model.NewError(model.ErrorKindSchemaMismatch, "merge", "", errors.New("no key")), StageMerge))
	assert.True(t, s.HasFatal())
}
