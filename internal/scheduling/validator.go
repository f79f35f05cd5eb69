package scheduling

import (
	"time"

	"github.com/example/studygroup-scheduler/internal/persistence"
)

// TimeValidator checks a proposed start instant against the deployment-wide
// preferred-hours window and the group's weekday preference. All arithmetic
// is in UTC.
type TimeValidator struct {
	policy SchedulingPolicy
}

// NewTimeValidator returns a validator bound to the supplied policy.
func NewTimeValidator(policy SchedulingPolicy) TimeValidator {
	return TimeValidator{policy: policy.normalized()}
}

// Validate returns nil when the start time is admissible, or an
// InvalidTimeError describing the first violated rule.
func (v TimeValidator) Validate(proposedStart time.Time, groupPolicy persistence.GroupPolicy) error {
	start := proposedStart.UTC()

	if hour := start.Hour(); hour < v.policy.EarliestHour || hour >= v.policy.LatestHour {
		return &InvalidTimeError{Reason: "start hour is outside the preferred window"}
	}

	if groupPolicy.PreferWeekdays {
		switch start.Weekday() {
		case time.Saturday, time.Sunday:
			return &InvalidTimeError{Reason: "group prefers weekday sessions"}
		}
	}

	return nil
}
