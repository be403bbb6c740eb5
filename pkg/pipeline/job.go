// pkg/pipeline/job.go
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/cyberattack-ingress/pkg/cleaner"
	"github.com/David-Botos/cyberattack-ingress/pkg/config"
	"github.com/David-Botos/cyberattack-ingress/pkg/merger"
)

// Job represents one merge-then-clean pipeline run
type Job struct {
	ID          string // Unique run identifier
	Merge       merger.MergeJob
	CleanedPath string    // Durable cleaned dataset
	CreatedAt   time.Time // Job creation timestamp
}

// NewJob creates a new job with a fresh run id
func NewJob(merge merger.MergeJob, cleanedPath string) Job {
	return Job{
		ID:          uuid.New().String(),
		Merge:       merge,
		CleanedPath: cleanedPath,
		CreatedAt:   time.Now(),
	}
}

// JobFromConfig builds a job from the configured paths
func JobFromConfig(paths config.PathsConfig) Job {
	return NewJob(merger.MergeJob{
		LeftPath:  paths.GlobalSource,
		RightPath: paths.DefenseSource,
		CSVOut:    paths.MergedCSV,
		JSONOut:   paths.MergedJSON,
	}, paths.CleanedJSON)
}

// RunSummary represents the result of a pipeline run
type RunSummary struct {
	RunID      string               `json:"run_id"`
	Success    bool                 `json:"success"`
	Merge      *merger.MergeResult  `json:"merge,omitempty"`
	Clean      *cleaner.CleanResult `json:"clean,omitempty"`
	Errors     map[string]int       `json:"errors,omitempty"` // Problem counts per kind
	Samples    []string             `json:"samples,omitempty"`
	Violations []string             `json:"violations,omitempty"`
	StartTime  time.Time            `json:"start_time"`
	EndTime    time.Time            `json:"end_time"`
	Duration   time.Duration        `json:"duration"`
}

// NewRunSummary initializes a summary for a job
func NewRunSummary(job Job) *RunSummary {
	return &RunSummary{
		RunID:     job.ID,
		StartTime: time.Now(),
	}
}

// Complete marks the run as complete and calculates duration
func (s *RunSummary) Complete(success bool) {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.Success = success
}

// CleaningOperations returns the total number of cleaning operations
func (s *RunSummary) CleaningOperations() int {
	if s.Clean == nil {
		return 0
	}
	total := 0
	for _, n := range s.Clean.Operations {
		total += n
	}
	return total
}
