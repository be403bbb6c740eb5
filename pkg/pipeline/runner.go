// pkg/pipeline/runner.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/cleaner"
	"github.com/David-Botos/cyberattack-ingress/pkg/dataio"
	"github.com/David-Botos/cyberattack-ingress/pkg/merger"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// Runner orchestrates the merge and clean stages
type Runner struct {
	merger  *merger.Merger
	cleaner *cleaner.DataCleaner
	reader  *dataio.Reader
	logger  *zap.Logger

	lastMetrics *RunMetrics
}

// NewRunner creates a new pipeline runner
func NewRunner(m *merger.Merger, c *cleaner.DataCleaner, logger *zap.Logger) (*Runner, error) {
	if m == nil || c == nil {
		return nil, errors.New("merger and cleaner are required")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Runner{
		merger:  m,
		cleaner: c,
		reader:  dataio.NewReader(nil, logger),
		logger:  logger.Named("pipeline"),
	}, nil
}

// Run merges the two sources and cleans the result. A failure in either
// stage aborts the run; recovered problems are tallied in the summary.
func (r *Runner) Run(ctx context.Context, job Job) (*RunSummary, error) {
	if job.ID == "" {
		job.ID = NewJob(job.Merge, job.CleanedPath).ID
	}
	ctx = model.WithRunID(ctx, job.ID)

	summary := NewRunSummary(job)
	metrics := NewRunMetrics(job.ID, r.logger)
	problems := NewErrorSummary(r.logger)
	r.lastMetrics = metrics

	r.logger.Info("Starting pipeline run",
		zap.String("run_id", job.ID),
		zap.String("left", job.Merge.LeftPath),
		zap.String("right", job.Merge.RightPath),
		zap.String("cleaned", job.CleanedPath))

	fail := func(stage string, err error) (*RunSummary, error) {
		problems.Record(NewErrorRecord(err, stage))
		metrics.FailStage(stage, err)
		metrics.RecordErrors(problems.Counts())
		metrics.Complete()
		summary.Errors = problems.Counts()
		summary.Complete(false)
		return summary, fmt.Errorf("%s stage failed: %w", stage, err)
	}

	// Merge
	metrics.StartStage(StageMerge)
	mergeResult, err := r.merger.MergeFiles(ctx, job.Merge)
	if err != nil {
		return fail(StageMerge, err)
	}
	summary.Merge = mergeResult
	metrics.EndStage(StageMerge, mergeResult.LeftRows+mergeResult.RightRows,
		mergeResult.RowCount, mergeResult.ColumnCount, 0)

	// Clean
	metrics.StartStage(StageClean)
	cleanResult, err := r.cleaner.CleanFile(ctx, job.Merge.JSONOut, job.CleanedPath)
	if err != nil {
		return fail(StageClean, err)
	}
	summary.Clean = cleanResult
	metrics.EndStage(StageClean, cleanResult.InputRows, cleanResult.OutputRows,
		cleanResult.ColumnCount, summary.CleaningOperations())

	failedColumns := make([]string, 0, len(cleanResult.FailedColumns))
	for name := range cleanResult.FailedColumns {
		failedColumns = append(failedColumns, name)
	}
	sort.Strings(failedColumns)
	for _, name := range failedColumns {
		problems.Record(NewRecoveredRecord(model.ErrorKindParseFailure, StageClean,
			"values could not be coerced and were set to null").
			WithColumn(name).
			WithCount(cleanResult.FailedColumns[name]))
	}
	for _, step := range cleanResult.Skipped {
		problems.Record(NewRecoveredRecord(model.ErrorKindPartialData, StageClean,
			"required column missing").WithStep(step))
	}
	if cleanResult.AuditError != "" {
		problems.Record(NewRecoveredRecord(model.ErrorKindPartialData, StageAudit,
			cleanResult.AuditError).WithStep("record_cleaning_operations"))
	}

	summary.Violations = r.verify(job.CleanedPath)

	metrics.RecordErrors(problems.Counts())
	metrics.Complete()

	summary.Errors = problems.Counts()
	for _, record := range problems.Samples() {
		summary.Samples = append(summary.Samples, record.String())
	}
	summary.Complete(len(summary.Violations) == 0)

	r.logger.Info("Pipeline run completed",
		zap.String("run_id", job.ID),
		zap.Int("rows", cleanResult.OutputRows),
		zap.Int("cleaning_operations", summary.CleaningOperations()),
		zap.Int("violations", len(summary.Violations)),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// verify re-reads the cleaned output and checks the cleaning guarantees
func (r *Runner) verify(path string) []string {
	cleaned, err := r.reader.ReadFile(path)
	if err != nil {
		r.logger.Warn("Could not re-read cleaned dataset", zap.Error(err))
		return []string{err.Error()}
	}

	var violations []string
	for _, err := range r.cleaner.ValidateCleaned(cleaned) {
		violations = append(violations, err.Error())
	}
	if len(violations) > 0 {
		r.logger.Warn("Cleaned dataset violates cleaning guarantees",
			zap.Strings("violations", violations))
	}
	return violations
}

// LastMetrics returns the metrics of the most recent run
func (r *Runner) LastMetrics() *RunMetrics {
	return r.lastMetrics
}
