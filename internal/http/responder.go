package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/studygroup-scheduler/internal/logging"
	"github.com/example/studygroup-scheduler/internal/scheduling"
)

var (
	errBadRequestBody   = errors.New("the request body could not be parsed")
	errInvalidSessionID = errors.New("a session id is required")
	errInvalidGroupID   = errors.New("a group id is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContextOrDefault(ctx, r.logger).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		logging.FromContextOrDefault(ctx, r.logger).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps engine errors onto the HTTP surface: validation and
// time policy violations are 422, authorization 403, missing resources 404,
// conflicts and immutability 409, everything else 500.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, scheduling.ErrNotAuthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "NOT_AUTHORIZED",
			Message:   "you are not allowed to perform this operation",
		})
		return
	case errors.Is(err, scheduling.ErrGroupNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "GROUP_NOT_FOUND",
			Message:   "the requested group was not found",
		})
		return
	case errors.Is(err, scheduling.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "SESSION_NOT_FOUND",
			Message:   "the requested session was not found",
		})
		return
	case errors.Is(err, scheduling.ErrSessionImmutable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SESSION_IMMUTABLE",
			Message:   "completed or cancelled sessions cannot be changed",
		})
		return
	case errors.Is(err, scheduling.ErrNoEligibleCandidates):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "NO_ELIGIBLE_CANDIDATES",
			Message:   "no group member is eligible for assignment",
		})
		return
	}

	var conflictErr *scheduling.ConflictError
	if errors.As(err, &conflictErr) {
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SCHEDULING_CONFLICT",
			Message:   "the proposed time overlaps existing sessions",
			Conflicts: toConflictAnalysisDTO(conflictErr.Analysis),
		})
		return
	}

	var vErr *scheduling.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "the request contains invalid fields",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	var timeErr *scheduling.InvalidTimeError
	if errors.As(err, &timeErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_SESSION_TIME",
			Message:   timeErr.Reason,
		})
		return
	}

	logging.FromContextOrDefault(ctx, r.logger).ErrorContext(ctx, "unhandled service error", "error", err, "kind", scheduling.ErrorKind(err))
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
}

type errorResponse struct {
	ErrorCode string               `json:"error_code,omitempty"`
	Message   string               `json:"message"`
	Errors    map[string]string    `json:"errors,omitempty"`
	Conflicts *conflictAnalysisDTO `json:"conflicts,omitempty"`
}
