package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/studygroup-scheduler/internal/interval"
	"github.com/example/studygroup-scheduler/internal/persistence"
	"github.com/example/studygroup-scheduler/internal/testfixtures"
)

func newDetectorFixture(t *testing.T) (*ConflictDetector, *testfixtures.MemoryStore) {
	t.Helper()
	store := testfixtures.NewMemoryStore()
	store.SeedGroup(testfixtures.StudyGroup("group-1", "alice", "bob"))
	return NewConflictDetector(store, DefaultPolicy()), store
}

func TestDetectReportsTrueOverlap(t *testing.T) {
	t.Parallel()

	detector, store := newDetectorFixture(t)
	ref := testfixtures.ReferenceTime()
	store.SeedSession(testfixtures.ScheduledSession("sess-1", "group-1", ref, 60, "alice"))

	analysis, err := detector.Detect(context.Background(), "alice", ref.Add(30*time.Minute), 60, "")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if !analysis.HasConflict() {
		t.Fatal("expected a blocking conflict")
	}
	if len(analysis.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(analysis.Conflicts))
	}
	if len(analysis.NearMisses) != 0 {
		t.Fatalf("expected no near misses, got %d", len(analysis.NearMisses))
	}

	detail := analysis.Conflicts[0]
	if detail.SessionID != "sess-1" {
		t.Errorf("conflict session id = %q, want sess-1", detail.SessionID)
	}
	if detail.OverlapMinutes != 30 {
		t.Errorf("overlap minutes = %d, want 30", detail.OverlapMinutes)
	}
	if detail.Classification != interval.RelationOverlap {
		t.Errorf("classification = %v, want overlap", detail.Classification)
	}
	if detail.TimeUntilAvailable != 30*time.Minute {
		t.Errorf("time until available = %v, want 30m", detail.TimeUntilAvailable)
	}
}

func TestDetectReportsNearMissInsideBuffer(t *testing.T) {
	t.Parallel()

	detector, store := newDetectorFixture(t)
	ref := testfixtures.ReferenceTime()
	// Existing session ends at 11:00; proposing 11:10 leaves only a 10 minute
	// gap, inside the 15 minute buffer.
	store.SeedSession(testfixtures.ScheduledSession("sess-1", "group-1", ref, 60, "alice"))

	analysis, err := detector.Detect(context.Background(), "alice", ref.Add(70*time.Minute), 60, "")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if analysis.HasConflict() {
		t.Fatalf("expected no blocking conflict, got %d", len(analysis.Conflicts))
	}
	if len(analysis.NearMisses) != 1 {
		t.Fatalf("expected 1 near miss, got %d", len(analysis.NearMisses))
	}
	if got := analysis.NearMisses[0].OverlapMinutes; got != 0 {
		t.Errorf("near miss overlap = %d, want 0", got)
	}
	if got := analysis.NearMisses[0].TimeUntilAvailable; got != 0 {
		t.Errorf("near miss time until available = %v, want 0", got)
	}
}

func TestDetectGapOfExactlyBufferIsClean(t *testing.T) {
	t.Parallel()

	detector, store := newDetectorFixture(t)
	ref := testfixtures.ReferenceTime()
	store.SeedSession(testfixtures.ScheduledSession("sess-1", "group-1", ref, 60, "alice"))

	// Gap of exactly 15 minutes: the buffer is exclusive at its boundary.
	analysis, err := detector.Detect(context.Background(), "alice", ref.Add(75*time.Minute), 60, "")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if analysis.HasConflict() || len(analysis.NearMisses) != 0 {
		t.Fatalf("expected a clean analysis, got conflicts=%d nearMisses=%d",
			len(analysis.Conflicts), len(analysis.NearMisses))
	}

	// One minute past the buffer stays clean too.
	analysis, err = detector.Detect(context.Background(), "alice", ref.Add(76*time.Minute), 60, "")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if analysis.HasConflict() || len(analysis.NearMisses) != 0 {
		t.Fatalf("expected a clean analysis past the buffer, got conflicts=%d nearMisses=%d",
			len(analysis.Conflicts), len(analysis.NearMisses))
	}
}

func TestDetectIgnoresOtherUsersAndTerminalSessions(t *testing.T) {
	t.Parallel()

	detector, store := newDetectorFixture(t)
	ref := testfixtures.ReferenceTime()

	other := testfixtures.ScheduledSession("sess-bob", "group-1", ref, 60, "bob")
	store.SeedSession(other)

	cancelled := testfixtures.ScheduledSession("sess-cancelled", "group-1", ref, 60, "alice")
	cancelled.Status = persistence.StatusCancelled
	store.SeedSession(cancelled)

	analysis, err := detector.Detect(context.Background(), "alice", ref, 60, "")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if analysis.HasConflict() || len(analysis.NearMisses) != 0 {
		t.Fatalf("expected a clean analysis, got conflicts=%d nearMisses=%d",
			len(analysis.Conflicts), len(analysis.NearMisses))
	}
}

func TestDetectExcludesIdentifiedSession(t *testing.T) {
	t.Parallel()

	detector, store := newDetectorFixture(t)
	ref := testfixtures.ReferenceTime()
	store.SeedSession(testfixtures.ScheduledSession("sess-1", "group-1", ref, 60, "alice"))

	analysis, err := detector.Detect(context.Background(), "alice", ref, 60, "sess-1")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if analysis.HasConflict() {
		t.Fatal("excluded session should not conflict with itself")
	}
}

func TestDetectOrdersConflictsByStartTime(t *testing.T) {
	t.Parallel()

	detector, store := newDetectorFixture(t)
	ref := testfixtures.ReferenceTime()
	store.SeedSession(testfixtures.ScheduledSession("sess-late", "group-1", ref.Add(45*time.Minute), 60, "alice"))
	store.SeedSession(testfixtures.ScheduledSession("sess-early", "group-1", ref, 60, "alice"))

	analysis, err := detector.Detect(context.Background(), "alice", ref.Add(30*time.Minute), 60, "")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(analysis.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(analysis.Conflicts))
	}
	if analysis.Conflicts[0].SessionID != "sess-early" || analysis.Conflicts[1].SessionID != "sess-late" {
		t.Errorf("conflicts out of order: %q, %q",
			analysis.Conflicts[0].SessionID, analysis.Conflicts[1].SessionID)
	}
}

func TestDetectValidatesInput(t *testing.T) {
	t.Parallel()

	detector, _ := newDetectorFixture(t)

	cases := []struct {
		name     string
		userID   string
		start    time.Time
		duration int
		field    string
	}{
		{"missing user", "", testfixtures.ReferenceTime(), 60, "user_id"},
		{"zero start", "alice", time.Time{}, 60, "scheduled_start"},
		{"duration too short", "alice", testfixtures.ReferenceTime(), 15, "duration_minutes"},
		{"duration too long", "alice", testfixtures.ReferenceTime(), 481, "duration_minutes"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := detector.Detect(context.Background(), tc.userID, tc.start, tc.duration, "")
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Errorf("expected field error for %q, got %v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestDetectWrapsStorageFailures(t *testing.T) {
	t.Parallel()

	detector, store := newDetectorFixture(t)
	store.FailWith = errors.New("disk on fire")

	_, err := detector.Detect(context.Background(), "alice", testfixtures.ReferenceTime(), 60, "")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage failure, got %v", err)
	}
}
