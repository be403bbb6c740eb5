// pkg/model/run.go
package model

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID returns a context carrying the pipeline run id
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id stored in ctx, or a fresh one when
// the context carries none
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}
