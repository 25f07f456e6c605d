// internal/logging/context.go
package logging

import (
	"context"

	"go.uber.org/zap"
)

type cycleCtxKey struct{}
type repoCtxKey struct{}

// WithCycleID attaches an analysis cycle identifier to the context.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleCtxKey{}, cycleID)
}

// CycleIDFromContext returns the cycle identifier, or "" if unset.
func CycleIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(cycleCtxKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRepository attaches the repository path under analysis.
func WithRepository(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, repoCtxKey{}, path)
}

// RepositoryFromContext returns the repository path, or "" if unset.
func RepositoryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(repoCtxKey{}).(string); ok {
		return v
	}
	return ""
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if cycleID := CycleIDFromContext(ctx); cycleID != "" {
		fields = append(fields, zap.String("cycle.id", cycleID))
	}
	if repo := RepositoryFromContext(ctx); repo != "" {
		fields = append(fields, zap.String("repo.path", repo))
	}
	return fields
}
