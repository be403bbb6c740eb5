// pkg/pipeline/error.go
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// ErrorRecord represents a single problem met during a run
type ErrorRecord struct {
	Kind        model.ErrorKind
	Stage       string
	ColumnName  string
	Step        string
	Count       int    // Number of occurrences this record stands for
	Message     string // Derived from Error but stored for serialization
	Timestamp   time.Time
	Recoverable bool
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, stage string) ErrorRecord {
	kind := model.KindOf(err)
	record := ErrorRecord{
		Kind:        kind,
		Stage:       stage,
		Count:       1,
		Timestamp:   time.Now(),
		Recoverable: !kind.Fatal(),
	}

	if err != nil {
		record.Message = err.Error()
	}

	return record
}

// NewRecoveredRecord creates a record for a problem the pipeline recovered from
func NewRecoveredRecord(kind model.ErrorKind, stage, message string) ErrorRecord {
	return ErrorRecord{
		Kind:        kind,
		Stage:       stage,
		Count:       1,
		Message:     message,
		Timestamp:   time.Now(),
		Recoverable: true,
	}
}

// WithColumn adds column information to the error record
func (r ErrorRecord) WithColumn(columnName string) ErrorRecord {
	r.ColumnName = columnName
	return r
}

// WithStep adds the name of the affected step
func (r ErrorRecord) WithStep(step string) ErrorRecord {
	r.Step = step
	return r
}

// WithCount sets how many occurrences the record stands for
func (r ErrorRecord) WithCount(count int) ErrorRecord {
	r.Count = count
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Kind))

	if r.Stage != "" {
		sb.WriteString(fmt.Sprintf("Stage: %s ", r.Stage))
	}

	if r.Step != "" {
		sb.WriteString(fmt.Sprintf("Step: %s ", r.Step))
	}

	if r.ColumnName != "" {
		sb.WriteString(fmt.Sprintf("Column: %s ", r.ColumnName))
	}

	if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	if r.Count > 1 {
		sb.WriteString(fmt.Sprintf(" (x%d)", r.Count))
	}

	return strings.TrimSpace(sb.String())
}

// ErrorSummary collects the problems of one run, keeping counts per kind
// and a few samples of each
type ErrorSummary struct {
	logger       *zap.Logger
	errorCounts  map[model.ErrorKind]int
	sampleErrors map[model.ErrorKind][]ErrorRecord
	stageErrors  map[string]int
	mu           sync.Mutex
	maxSamples   int
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(logger *zap.Logger) *ErrorSummary {
	return &ErrorSummary{
		logger:       logger,
		errorCounts:  make(map[model.ErrorKind]int),
		sampleErrors: make(map[model.ErrorKind][]ErrorRecord),
		stageErrors:  make(map[string]int),
		maxSamples:   5, // Store up to 5 sample errors per kind
	}
}

// Record adds a record to the summary
func (s *ErrorSummary) Record(record ErrorRecord) {
	if record.Count <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.errorCounts[record.Kind] += record.Count
	s.stageErrors[record.Stage] += record.Count
	if len(s.sampleErrors[record.Kind]) < s.maxSamples {
		s.sampleErrors[record.Kind] = append(s.sampleErrors[record.Kind], record)
	}

	if s.logger != nil {
		level := s.logger.Debug
		if !record.Recoverable {
			level = s.logger.Error
		}
		level("Recorded pipeline problem",
			zap.String("kind", record.Kind.String()),
			zap.String("stage", record.Stage),
			zap.String("step", record.Step),
			zap.Int("count", record.Count),
			zap.String("message", record.Message))
	}
}

// Counts returns the number of problems per kind name
func (s *ErrorSummary) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(s.errorCounts))
	for kind, n := range s.errorCounts {
		counts[kind.String()] = n
	}
	return counts
}

// Samples returns the stored sample records ordered by kind
func (s *ErrorSummary) Samples() []ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds := make([]model.ErrorKind, 0, len(s.sampleErrors))
	for kind := range s.sampleErrors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var samples []ErrorRecord
	for _, kind := range kinds {
		samples = append(samples, s.sampleErrors[kind]...)
	}
	return samples
}

// StageCount returns the number of problems recorded for a stage
func (s *ErrorSummary) StageCount(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stageErrors[stage]
}

// HasFatal reports whether any fatal problem was recorded
func (s *ErrorSummary) HasFatal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for kind, n := range s.errorCounts {
		if n > 0 && kind.Fatal() {
			return true
		}
	}
	return false
}
