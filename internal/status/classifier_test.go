package status

import (
	"testing"
	"time"
)

func monthDate(month int) time.Time {
	return time.Date(2026, time.Month(month), 15, 0, 0, 0, 0, time.UTC)
}

func TestClassifyExecutedWins(t *testing.T) {
	for planned := 1; planned <= 12; planned++ {
		for current := 1; current <= 12; current++ {
			got := Classify(planned, true, monthDate(current))
			if got != BucketExecuted {
				t.Fatalf("planned=%d current=%d: got %s, want EXECUTED", planned, current, got)
			}
		}
	}
}

func TestClassifyExhaustive(t *testing.T) {
	for planned := 1; planned <= 12; planned++ {
		for current := 1; current <= 12; current++ {
			next1 := current%12 + 1
			next2 := next1%12 + 1

			want := BucketFuture
			switch {
			case planned <= current:
				want = BucketCritical
			case planned == next1 || planned == next2:
				want = BucketUpcoming
			}

			got := Classify(planned, false, monthDate(current))
			if got != want {
				t.Errorf("planned=%d current=%d: got %s, want %s", planned, current, got, want)
			}
		}
	}
}

func TestClassifyYearWraparound(t *testing.T) {
	cases := []struct {
		planned int
		current int
		want    Bucket
	}{
		{planned: 1, current: 12, want: BucketUpcoming},
		{planned: 1, current: 11, want: BucketUpcoming},
		{planned: 2, current: 12, want: BucketUpcoming},
		{planned: 3, current: 12, want: BucketFuture},
		{planned: 12, current: 12, want: BucketCritical},
		{planned: 1, current: 1, want: BucketCritical},
		{planned: 1, current: 2, want: BucketCritical},
		{planned: 4, current: 1, want: BucketFuture},
	}
	for _, tc := range cases {
		got := Classify(tc.planned, false, monthDate(tc.current))
		if got != tc.want {
			t.Errorf("planned=%d current=%d: got %s, want %s", tc.planned, tc.current, got, tc.want)
		}
	}
}
