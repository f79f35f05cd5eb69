package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/example/studygroup-scheduler/internal/interval"
	"github.com/example/studygroup-scheduler/internal/persistence"
)

// SessionFinder is the narrow persistence view the detector needs.
type SessionFinder interface {
	FindByUserAndWindow(ctx context.Context, filter persistence.SessionWindowFilter) ([]persistence.Session, error)
}

// ConflictDetector classifies a user's existing commitments against a
// proposed interval.
type ConflictDetector struct {
	sessions SessionFinder
	policy   SchedulingPolicy
}

// NewConflictDetector wires the detector with its session source and policy.
func NewConflictDetector(sessions SessionFinder, policy SchedulingPolicy) *ConflictDetector {
	return &ConflictDetector{
		sessions: sessions,
		policy:   policy.normalized(),
	}
}

// Detect retrieves the user's candidate sessions inside a buffered window
// around the proposed interval and splits them into true conflicts and
// buffer-only near-misses. A candidate conflicts only when it genuinely
// overlaps the proposed interval; adjacency inside the buffer is reported
// but never blocks. Sessions identified by excludeID are skipped, which
// supports re-validation during update-in-place.
func (d *ConflictDetector) Detect(ctx context.Context, userID string, proposedStart time.Time, durationMinutes int, excludeID string) (ConflictAnalysis, error) {
	vErr := &ValidationError{}
	if userID == "" {
		vErr.add("user_id", "user id is required")
	}
	if proposedStart.IsZero() {
		vErr.add("scheduled_start", "start time is required")
	}
	if durationMinutes < d.policy.MinDurationMinutes || durationMinutes > d.policy.MaxDurationMinutes {
		vErr.add("duration_minutes", "duration is out of range")
	}
	if vErr.HasErrors() {
		return ConflictAnalysis{}, vErr
	}

	proposed := interval.FromStartDuration(proposedStart.UTC(), durationMinutes)
	window := interval.ExpandWithBuffer(proposed, d.policy.Buffer())

	candidates, err := d.sessions.FindByUserAndWindow(ctx, persistence.SessionWindowFilter{
		UserID:      userID,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		ExcludeID:   excludeID,
		Statuses:    []persistence.SessionStatus{persistence.StatusScheduled, persistence.StatusOngoing},
	})
	if err != nil {
		return ConflictAnalysis{}, mapStoreError(err)
	}

	analysis := ConflictAnalysis{Proposed: proposed}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ScheduledStart.Equal(candidates[j].ScheduledStart) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].ScheduledStart.Before(candidates[j].ScheduledStart)
	})

	for _, candidate := range candidates {
		if excludeID != "" && candidate.ID == excludeID {
			continue
		}

		existing := interval.Interval{Start: candidate.ScheduledStart, End: candidate.End()}
		detail := ConflictDetail{
			SessionID:          candidate.ID,
			Title:              candidate.Title,
			OverlapMinutes:     interval.OverlapMinutes(proposed, existing),
			Classification:     interval.Classify(proposed, existing),
			TimeUntilAvailable: timeUntilAvailable(proposed.Start, existing.End),
		}

		if detail.OverlapMinutes > 0 {
			analysis.Conflicts = append(analysis.Conflicts, detail)
		} else {
			analysis.NearMisses = append(analysis.NearMisses, detail)
		}
	}

	return analysis, nil
}

func timeUntilAvailable(proposedStart, existingEnd time.Time) time.Duration {
	if !existingEnd.After(proposedStart) {
		return 0
	}
	return existingEnd.Sub(proposedStart)
}
