package scheduling

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/studygroup-scheduler/internal/logging"
)

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOrDefault(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and structured errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrGroupNotFound):
		return "group_not_found"
	case errors.Is(err, ErrSessionImmutable):
		return "session_immutable"
	case errors.Is(err, ErrNoEligibleCandidates):
		return "no_eligible_candidates"
	case errors.Is(err, ErrStorage):
		return "storage_failure"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return "scheduling_conflict"
	}
	var tErr *InvalidTimeError
	if errors.As(err, &tErr) {
		return "invalid_session_time"
	}

	return "unexpected"
}
