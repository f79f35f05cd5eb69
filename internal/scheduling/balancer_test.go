package scheduling

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

type stubHistory struct {
	counts map[string]int
	err    error
}

func (s *stubHistory) CountByUserInGroup(ctx context.Context, groupID string, userIDs []string) (map[string]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	counts := make(map[string]int, len(userIDs))
	for _, id := range userIDs {
		counts[id] = s.counts[id]
	}
	return counts, nil
}

func seededBalancer(history SessionHistory, seed int64) *AssignmentBalancer {
	return NewAssignmentBalancer(history, DefaultPolicy(), rand.New(rand.NewSource(seed)))
}

func TestBalancePrefersLeastLoadedMembers(t *testing.T) {
	t.Parallel()

	history := &stubHistory{counts: map[string]int{
		"alice": 0,
		"bob":   1,
		"carol": 2,
		"dave":  2,
	}}
	balancer := seededBalancer(history, 1)

	result, err := balancer.Balance(context.Background(), "group-1", []string{"alice", "bob", "carol", "dave"}, 3)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}

	// Only counts within one of the minimum (0) are eligible.
	if len(result.SelectedUserIDs) != 2 {
		t.Fatalf("selected %d members, want 2: %v", len(result.SelectedUserIDs), result.SelectedUserIDs)
	}
	for _, id := range result.SelectedUserIDs {
		if id != "alice" && id != "bob" {
			t.Errorf("selected %q, want only members in the near-minimum band", id)
		}
	}
	if result.PerUserSessionCount["carol"] != 2 {
		t.Errorf("per-user count for carol = %d, want 2", result.PerUserSessionCount["carol"])
	}
}

func TestBalanceNeverSelectsTheSameMemberTwice(t *testing.T) {
	t.Parallel()

	history := &stubHistory{counts: map[string]int{}}
	balancer := seededBalancer(history, 42)

	candidates := []string{"u1", "u2", "u3", "u4", "u5"}
	result, err := balancer.Balance(context.Background(), "group-1", candidates, 3)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if len(result.SelectedUserIDs) != 3 {
		t.Fatalf("selected %d members, want 3", len(result.SelectedUserIDs))
	}

	seen := make(map[string]struct{})
	for _, id := range result.SelectedUserIDs {
		if _, dup := seen[id]; dup {
			t.Fatalf("member %q selected twice: %v", id, result.SelectedUserIDs)
		}
		seen[id] = struct{}{}
	}
}

func TestBalanceRespectsPerUserCeiling(t *testing.T) {
	t.Parallel()

	history := &stubHistory{counts: map[string]int{
		"alice": 3,
		"bob":   3,
	}}
	balancer := seededBalancer(history, 7)

	result, err := balancer.Balance(context.Background(), "group-1", []string{"alice", "bob"}, 2)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if len(result.SelectedUserIDs) != 0 {
		t.Fatalf("members at the ceiling must not be selected, got %v", result.SelectedUserIDs)
	}
}

func TestBalanceShortPoolYieldsShortResult(t *testing.T) {
	t.Parallel()

	history := &stubHistory{counts: map[string]int{}}
	balancer := seededBalancer(history, 7)

	result, err := balancer.Balance(context.Background(), "group-1", []string{"solo"}, 3)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if len(result.SelectedUserIDs) != 1 || result.SelectedUserIDs[0] != "solo" {
		t.Fatalf("expected the single candidate, got %v", result.SelectedUserIDs)
	}
}

func TestBalanceEmptyCandidatePool(t *testing.T) {
	t.Parallel()

	balancer := seededBalancer(&stubHistory{}, 7)

	if _, err := balancer.Balance(context.Background(), "group-1", nil, 3); !errors.Is(err, ErrNoEligibleCandidates) {
		t.Fatalf("expected ErrNoEligibleCandidates, got %v", err)
	}
	// Blank and duplicate ids collapse to nothing.
	if _, err := balancer.Balance(context.Background(), "group-1", []string{"", ""}, 3); !errors.Is(err, ErrNoEligibleCandidates) {
		t.Fatalf("expected ErrNoEligibleCandidates for blank candidates, got %v", err)
	}
}

func TestBalanceDefaultsTargetFromPolicy(t *testing.T) {
	t.Parallel()

	history := &stubHistory{counts: map[string]int{}}
	balancer := seededBalancer(history, 11)

	result, err := balancer.Balance(context.Background(), "group-1", []string{"u1", "u2", "u3", "u4"}, 0)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if len(result.SelectedUserIDs) != DefaultPolicy().TargetAssignments {
		t.Fatalf("selected %d members, want policy default %d",
			len(result.SelectedUserIDs), DefaultPolicy().TargetAssignments)
	}
}

func TestBalanceIsDeterministicForASeed(t *testing.T) {
	t.Parallel()

	history := &stubHistory{counts: map[string]int{}}
	candidates := []string{"u1", "u2", "u3", "u4", "u5"}

	first, err := seededBalancer(history, 99).Balance(context.Background(), "group-1", candidates, 3)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	second, err := seededBalancer(history, 99).Balance(context.Background(), "group-1", candidates, 3)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}

	if len(first.SelectedUserIDs) != len(second.SelectedUserIDs) {
		t.Fatalf("runs disagree on count: %v vs %v", first.SelectedUserIDs, second.SelectedUserIDs)
	}
	for i := range first.SelectedUserIDs {
		if first.SelectedUserIDs[i] != second.SelectedUserIDs[i] {
			t.Fatalf("runs disagree at %d: %v vs %v", i, first.SelectedUserIDs, second.SelectedUserIDs)
		}
	}
}

func TestBalanceSpreadsTiesAcrossMembers(t *testing.T) {
	t.Parallel()

	history := &stubHistory{counts: map[string]int{}}
	balancer := seededBalancer(history, 5)
	candidates := []string{"u1", "u2", "u3", "u4", "u5", "u6"}

	picked := make(map[string]int)
	for i := 0; i < 200; i++ {
		result, err := balancer.Balance(context.Background(), "group-1", candidates, 1)
		if err != nil {
			t.Fatalf("Balance returned error: %v", err)
		}
		picked[result.SelectedUserIDs[0]]++
	}

	// With uniform tie-breaking every member should be picked at least once
	// over 200 single-slot draws.
	for _, id := range candidates {
		if picked[id] == 0 {
			t.Errorf("member %q was never selected across 200 draws", id)
		}
	}
}

func TestBalanceWrapsHistoryFailures(t *testing.T) {
	t.Parallel()

	balancer := seededBalancer(&stubHistory{err: errors.New("index corrupted")}, 3)

	_, err := balancer.Balance(context.Background(), "group-1", []string{"alice"}, 1)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage failure, got %v", err)
	}
}
