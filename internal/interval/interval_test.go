package interval

import (
	"testing"
	"time"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("failed to parse time %q: %v", value, err)
	}
	return parsed
}

func TestFromStartDuration(t *testing.T) {
	t.Parallel()

	start := at(t, "2024-01-01T10:00:00Z")
	ivl := FromStartDuration(start, 60)

	if !ivl.Start.Equal(start) {
		t.Fatalf("expected start %v, got %v", start, ivl.Start)
	}
	if want := at(t, "2024-01-01T11:00:00Z"); !ivl.End.Equal(want) {
		t.Fatalf("expected end %v, got %v", want, ivl.End)
	}
	if ivl.Duration() != time.Hour {
		t.Fatalf("expected duration 1h, got %v", ivl.Duration())
	}
}

func TestExpandWithBuffer(t *testing.T) {
	t.Parallel()

	ivl := Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")}
	window := ExpandWithBuffer(ivl, 15*time.Minute)

	if want := at(t, "2024-01-01T09:45:00Z"); !window.Start.Equal(want) {
		t.Fatalf("expected window start %v, got %v", want, window.Start)
	}
	if want := at(t, "2024-01-01T11:15:00Z"); !window.End.Equal(want) {
		t.Fatalf("expected window end %v, got %v", want, window.End)
	}
}

func TestExpandWithBuffer_NegativeBufferIsIgnored(t *testing.T) {
	t.Parallel()

	ivl := Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")}
	window := ExpandWithBuffer(ivl, -time.Minute)

	if !window.Start.Equal(ivl.Start) || !window.End.Equal(ivl.End) {
		t.Fatalf("expected unchanged interval, got %+v", window)
	}
}

func TestOverlapMinutes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a    Interval
		b    Interval
		want int
	}{
		{
			name: "partial overlap",
			a:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T10:30:00Z"), End: at(t, "2024-01-01T11:30:00Z")},
			want: 30,
		},
		{
			name: "full containment",
			a:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T12:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T10:30:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			want: 30,
		},
		{
			name: "adjacent intervals do not overlap",
			a:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T11:00:00Z"), End: at(t, "2024-01-01T12:00:00Z")},
			want: 0,
		},
		{
			name: "disjoint intervals",
			a:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T13:00:00Z"), End: at(t, "2024-01-01T14:00:00Z")},
			want: 0,
		},
		{
			name: "identical intervals",
			a:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			want: 60,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := OverlapMinutes(tc.a, tc.b); got != tc.want {
				t.Fatalf("expected %d overlap minutes, got %d", tc.want, got)
			}
			// Overlap is symmetric.
			if got := OverlapMinutes(tc.b, tc.a); got != tc.want {
				t.Fatalf("expected symmetric overlap %d, got %d", tc.want, got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a    Interval
		b    Interval
		want Relation
	}{
		{
			name: "partial overlap",
			a:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T10:30:00Z"), End: at(t, "2024-01-01T11:30:00Z")},
			want: RelationOverlap,
		},
		{
			name: "a encloses b",
			a:    Interval{Start: at(t, "2024-01-01T09:00:00Z"), End: at(t, "2024-01-01T12:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			want: RelationContains,
		},
		{
			name: "b encloses a",
			a:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T09:00:00Z"), End: at(t, "2024-01-01T12:00:00Z")},
			want: RelationContained,
		},
		{
			name: "identical intervals",
			a:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b:    Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			want: RelationOverlap,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tc.a, tc.b); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestClassify_ContainsContainedSymmetry(t *testing.T) {
	t.Parallel()

	pairs := []struct {
		a Interval
		b Interval
	}{
		{
			a: Interval{Start: at(t, "2024-01-01T09:00:00Z"), End: at(t, "2024-01-01T12:00:00Z")},
			b: Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
		},
		{
			a: Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b: Interval{Start: at(t, "2024-01-01T10:30:00Z"), End: at(t, "2024-01-01T11:30:00Z")},
		},
		{
			a: Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
			b: Interval{Start: at(t, "2024-01-01T10:00:00Z"), End: at(t, "2024-01-01T11:00:00Z")},
		},
	}

	for _, pair := range pairs {
		forward := Classify(pair.a, pair.b)
		backward := Classify(pair.b, pair.a)

		if (forward == RelationContains) != (backward == RelationContained) {
			t.Fatalf("contains/contained symmetry violated: forward=%s backward=%s", forward, backward)
		}
		if (forward == RelationContained) != (backward == RelationContains) {
			t.Fatalf("contained/contains symmetry violated: forward=%s backward=%s", forward, backward)
		}
		if forward == RelationOverlap && backward != RelationOverlap {
			t.Fatalf("overlap must be symmetric: forward=%s backward=%s", forward, backward)
		}
	}
}
