package buckets

import (
	"testing"
	"time"
)

func dt(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthsInRange(t *testing.T) {
	start := dt(2020, time.January, 15)
	end := dt(2020, time.March, 3)

	got := MonthsInRange(start, end)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	if !got[0].Start.Equal(dt(2020, time.January, 1)) {
		t.Errorf("got[0].Start = %v", got[0].Start)
	}
	if !got[2].End.Equal(dt(2020, time.April, 1)) {
		t.Errorf("got[2].End = %v", got[2].End)
	}
}

func TestMonthsInRange_YearBoundary(t *testing.T) {
	start := dt(2020, time.December, 20)
	end := dt(2021, time.January, 5)

	got := MonthsInRange(start, end)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[1].Start.Year() != 2021 || got[1].Start.Month() != time.January {
		t.Errorf("got[1].Start = %v", got[1].Start)
	}
}

func TestEpochsInRange(t *testing.T) {
	start := dt(2020, time.July, 1)
	end := dt(2021, time.September, 1)

	got := EpochsInRange(start, end)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3: %+v", len(got), got)
	}
	if !got[0].Start.Equal(dt(2019, time.August, 1)) {
		t.Errorf("got[0].Start = %v, want 2019-08-01", got[0].Start)
	}
	if !got[2].End.Equal(dt(2022, time.August, 1)) {
		t.Errorf("got[2].End = %v, want 2022-08-01", got[2].End)
	}
}

func TestRoundToPrevEpoch_ExactlyAugustFirst(t *testing.T) {
	d := dt(2020, time.August, 1)
	got := RoundToPrevEpoch(d)
	if !got.Equal(d) {
		t.Errorf("RoundToPrevEpoch(aug1) = %v, want %v", got, d)
	}
}

func TestAllTimeWindow_DaySentinel(t *testing.T) {
	w := AllTimeWindow(dt(2026, time.January, 1))
	day := w.Day(true)
	if day.Unix() != 0 {
		t.Errorf("Day(true) = %v, want unix epoch", day)
	}
}
