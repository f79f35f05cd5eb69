package scheduling

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SessionHistory is the narrow persistence view the balancer needs.
type SessionHistory interface {
	CountByUserInGroup(ctx context.Context, groupID string, userIDs []string) (map[string]int, error)
}

// AssignmentBalancer selects group members for auto-assigned sessions,
// preferring the least-loaded members with randomized tie-breaking.
type AssignmentBalancer struct {
	history SessionHistory
	policy  SchedulingPolicy

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAssignmentBalancer wires the balancer. A nil rng falls back to a
// time-seeded source; tests inject a seeded one for exact assertions.
func NewAssignmentBalancer(history SessionHistory, policy SchedulingPolicy, rng *rand.Rand) *AssignmentBalancer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &AssignmentBalancer{
		history: history,
		policy:  policy.normalized(),
		rng:     rng,
	}
}

// Balance picks up to targetCount members from the candidates. Candidates are
// eligible when their historical session count sits within one of the current
// minimum (a soft near-minimum band, so members slightly above the floor are
// not starved) and below the per-user ceiling. Picks are uniformly random
// without replacement; a pool smaller than targetCount yields a short result
// rather than an error. targetCount values below one fall back to the policy
// default.
func (b *AssignmentBalancer) Balance(ctx context.Context, groupID string, candidateIDs []string, targetCount int) (LoadBalanceResult, error) {
	candidates := uniqueStrings(candidateIDs)
	if len(candidates) == 0 {
		return LoadBalanceResult{}, ErrNoEligibleCandidates
	}
	if targetCount <= 0 {
		targetCount = b.policy.TargetAssignments
	}

	counts, err := b.history.CountByUserInGroup(ctx, groupID, candidates)
	if err != nil {
		return LoadBalanceResult{}, mapStoreError(err)
	}

	perUser := make(map[string]int, len(candidates))
	minCount := -1
	for _, id := range candidates {
		count := counts[id]
		perUser[id] = count
		if minCount < 0 || count < minCount {
			minCount = count
		}
	}

	eligible := make([]string, 0, len(candidates))
	for _, id := range candidates {
		count := perUser[id]
		if count <= minCount+1 && count < b.policy.MaxSessionsPerUser {
			eligible = append(eligible, id)
		}
	}

	selected := make([]string, 0, targetCount)
	b.mu.Lock()
	for len(selected) < targetCount && len(eligible) > 0 {
		idx := b.rng.Intn(len(eligible))
		selected = append(selected, eligible[idx])
		eligible = append(eligible[:idx], eligible[idx+1:]...)
	}
	b.mu.Unlock()

	return LoadBalanceResult{
		SelectedUserIDs:     selected,
		PerUserSessionCount: perUser,
	}, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
