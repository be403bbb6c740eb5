// pkg/pipeline/metrics.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage names
const (
	StageMerge = "merge"
	StageClean = "clean"
	StageAudit = "audit"
)

// StageMetrics tracks metrics for a single pipeline stage
type StageMetrics struct {
	Name               string
	StartTime          time.Time
	EndTime            time.Time
	RowsIn             int
	RowsOut            int
	Columns            int
	CleaningOperations int
	Failed             bool
	FailureMessage     string
}

// Duration returns the duration of the stage
func (sm *StageMetrics) Duration() time.Duration {
	if sm.EndTime.IsZero() {
		return time.Since(sm.StartTime)
	}
	return sm.EndTime.Sub(sm.StartTime)
}

// RunMetrics tracks metrics for one pipeline run
type RunMetrics struct {
	mu          sync.Mutex
	logger      *zap.Logger
	RunID       string
	StartTime   time.Time
	EndTime     time.Time
	Stages      map[string]*StageMetrics
	stageOrder  []string
	ErrorCounts map[string]int
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(runID string, logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		RunID:       runID,
		StartTime:   time.Now(),
		Stages:      make(map[string]*StageMetrics),
		ErrorCounts: make(map[string]int),
		logger:      logger,
	}
}

// StartStage begins tracking metrics for a stage
func (rm *RunMetrics) StartStage(name string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	sm := &StageMetrics{Name: name, StartTime: time.Now()}
	if _, exists := rm.Stages[name]; !exists {
		rm.stageOrder = append(rm.stageOrder, name)
	}
	rm.Stages[name] = sm

	if rm.logger != nil {
		rm.logger.Info("Started stage",
			zap.String("run_id", rm.RunID),
			zap.String("stage", name))
	}
}

// EndStage completes tracking metrics for a stage
func (rm *RunMetrics) EndStage(name string, rowsIn, rowsOut, columns, cleaningOps int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	sm, ok := rm.Stages[name]
	if !ok {
		return
	}
	sm.EndTime = time.Now()
	sm.RowsIn = rowsIn
	sm.RowsOut = rowsOut
	sm.Columns = columns
	sm.CleaningOperations = cleaningOps

	if rm.logger != nil {
		rm.logger.Info("Completed stage",
			zap.String("run_id", rm.RunID),
			zap.String("stage", name),
			zap.Duration("duration", sm.Duration()),
			zap.Int("rowsIn", rowsIn),
			zap.Int("rowsOut", rowsOut),
			zap.Int("columns", columns))
	}
}

// FailStage marks a stage as failed
func (rm *RunMetrics) FailStage(name string, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	sm, ok := rm.Stages[name]
	if !ok {
		return
	}
	sm.EndTime = time.Now()
	sm.Failed = true
	if err != nil {
		sm.FailureMessage = err.Error()
	}
}

// RecordErrors merges per-kind problem counts into the metrics
func (rm *RunMetrics) RecordErrors(counts map[string]int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for kind, n := range counts {
		rm.ErrorCounts[kind] += n
	}
}

// Complete finalizes the run metrics
func (rm *RunMetrics) Complete() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.EndTime = time.Now()
}

// Duration returns the total duration of the run
func (rm *RunMetrics) Duration() time.Duration {
	if rm.EndTime.IsZero() {
		return time.Since(rm.StartTime)
	}
	return rm.EndTime.Sub(rm.StartTime)
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// GenerateMetricsReport creates a detailed metrics report
func (rm *RunMetrics) GenerateMetricsReport() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	report := fmt.Sprintf(`
Pipeline Run Report
===================
Run ID:                  %s
Duration:                %s
Start Time:              %s
End Time:                %s
`,
		rm.RunID,
		formatDuration(rm.Duration()),
		rm.StartTime.Format(time.RFC3339),
		rm.EndTime.Format(time.RFC3339),
	)

	report += "\nStage Details\n-------------\n"
	for _, name := range rm.stageOrder {
		sm := rm.Stages[name]
		status := "ok"
		if sm.Failed {
			status = "failed: " + sm.FailureMessage
		}
		report += fmt.Sprintf("- %s: %d -> %d rows, %d columns, %d cleaning ops, %s, %s\n",
			name,
			sm.RowsIn,
			sm.RowsOut,
			sm.Columns,
			sm.CleaningOperations,
			formatDuration(sm.Duration()),
			status)
	}

	if len(rm.ErrorCounts) > 0 {
		report += "\nRecovered Problems\n------------------\n"
		kinds := make([]string, 0, len(rm.ErrorCounts))
		for kind := range rm.ErrorCounts {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			report += fmt.Sprintf("- %s: %d\n", kind, rm.ErrorCounts[kind])
		}
	}

	return report
}

type stageJSON struct {
	Name               string `json:"name"`
	Duration           string `json:"duration"`
	RowsIn             int    `json:"rowsIn"`
	RowsOut            int    `json:"rowsOut"`
	Columns            int    `json:"columns"`
	CleaningOperations int    `json:"cleaningOperations"`
	Failed             bool   `json:"failed"`
	FailureMessage     string `json:"failureMessage,omitempty"`
}

// ToJSON serializes metrics to JSON
func (rm *RunMetrics) ToJSON() ([]byte, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	stages := make([]stageJSON, 0, len(rm.stageOrder))
	for _, name := range rm.stageOrder {
		sm := rm.Stages[name]
		stages = append(stages, stageJSON{
			Name:               name,
			Duration:           formatDuration(sm.Duration()),
			RowsIn:             sm.RowsIn,
			RowsOut:            sm.RowsOut,
			Columns:            sm.Columns,
			CleaningOperations: sm.CleaningOperations,
			Failed:             sm.Failed,
			FailureMessage:     sm.FailureMessage,
		})
	}

	return json.Marshal(struct {
		RunID       string         `json:"runId"`
		Duration    string         `json:"duration"`
		Stages      []stageJSON    `json:"stages"`
		ErrorCounts map[string]int `json:"errorCounts"`
	}{
		RunID:       rm.RunID,
		Duration:    formatDuration(rm.Duration()),
		Stages:      stages,
		ErrorCounts: rm.ErrorCounts,
	})
}
