package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/example/studygroup-scheduler/internal/persistence"
)

func TestTimeValidatorPreferredHours(t *testing.T) {
	t.Parallel()

	validator := NewTimeValidator(DefaultPolicy())
	anyPolicy := persistence.GroupPolicy{}

	cases := []struct {
		name  string
		start time.Time
		valid bool
	}{
		{"earliest boundary", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), true},
		{"mid morning", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), true},
		{"last admissible hour", time.Date(2024, 1, 1, 20, 59, 0, 0, time.UTC), true},
		{"latest boundary rejected", time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC), false},
		{"late evening", time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC), false},
		{"before opening", time.Date(2024, 1, 1, 8, 59, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validator.Validate(tc.start, anyPolicy)
			if tc.valid && err != nil {
				t.Fatalf("expected %v to be valid, got %v", tc.start, err)
			}
			if !tc.valid {
				var timeErr *InvalidTimeError
				if !errors.As(err, &timeErr) {
					t.Fatalf("expected InvalidTimeError for %v, got %v", tc.start, err)
				}
			}
		})
	}
}

func TestTimeValidatorEvaluatesHourInUTC(t *testing.T) {
	t.Parallel()

	validator := NewTimeValidator(DefaultPolicy())

	// 10:00 at UTC+2 is 08:00 UTC, before the window opens.
	zone := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, zone)

	err := validator.Validate(start, persistence.GroupPolicy{})
	var timeErr *InvalidTimeError
	if !errors.As(err, &timeErr) {
		t.Fatalf("expected InvalidTimeError, got %v", err)
	}
}

func TestTimeValidatorWeekdayPreference(t *testing.T) {
	t.Parallel()

	validator := NewTimeValidator(DefaultPolicy())
	saturday := time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2024, 1, 7, 10, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

	weekdaysOnly := persistence.GroupPolicy{PreferWeekdays: true}

	for _, start := range []time.Time{saturday, sunday} {
		var timeErr *InvalidTimeError
		if err := validator.Validate(start, weekdaysOnly); !errors.As(err, &timeErr) {
			t.Fatalf("expected weekend %v to be rejected, got %v", start, err)
		}
	}

	if err := validator.Validate(monday, weekdaysOnly); err != nil {
		t.Fatalf("expected weekday to pass, got %v", err)
	}

	// Without the preference weekends are admissible.
	if err := validator.Validate(saturday, persistence.GroupPolicy{}); err != nil {
		t.Fatalf("expected Saturday without weekday policy to pass, got %v", err)
	}
}

func TestTimeValidatorCustomWindow(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	policy.EarliestHour = 18
	policy.LatestHour = 22
	validator := NewTimeValidator(policy)

	if err := validator.Validate(time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC), persistence.GroupPolicy{}); err != nil {
		t.Fatalf("expected 19:00 to pass under evening window, got %v", err)
	}
	var timeErr *InvalidTimeError
	if err := validator.Validate(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), persistence.GroupPolicy{}); !errors.As(err, &timeErr) {
		t.Fatalf("expected 10:00 to fail under evening window, got %v", err)
	}
}
