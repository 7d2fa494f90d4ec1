package domain

import (
	"testing"
	"time"
)

func TestWeekStart_NormalizesToMonday(t *testing.T) {
	monday := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		in   time.Time
	}{
		{"monday itself", monday},
		{"monday midday", monday.Add(13 * time.Hour)},
		{"wednesday", monday.AddDate(0, 0, 2)},
		{"sunday night", monday.AddDate(0, 0, 6).Add(23 * time.Hour)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := WeekStart(tc.in); !got.Equal(monday) {
				t.Errorf("WeekStart(%v) = %v, want %v", tc.in, got, monday)
			}
		})
	}
}

func TestWeekStart_NextMondayStartsNewWeek(t *testing.T) {
	monday := time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)
	next := monday.AddDate(0, 0, 7)

	if got := WeekStart(next); !got.Equal(next) {
		t.Errorf("WeekStart(%v) = %v, want %v", next, got, next)
	}
}
