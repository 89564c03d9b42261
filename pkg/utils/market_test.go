package utils

import (
	"testing"
	"time"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

func istTime(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, IndiaLocation)
}

func TestMarketStatusAt(t *testing.T) {
	testCases := []struct {
		name string
		at   time.Time
		want models.MarketStatus
	}{
		{"weekday pre-open", istTime(2024, time.January, 8, 9, 5), models.MarketPreOpen},
		{"weekday open bell", istTime(2024, time.January, 8, 9, 15), models.MarketOpen},
		{"weekday midday", istTime(2024, time.January, 8, 12, 30), models.MarketOpen},
		{"weekday last minute", istTime(2024, time.January, 8, 15, 29), models.MarketOpen},
		{"weekday close bell", istTime(2024, time.January, 8, 15, 30), models.MarketClosed},
		{"weekday early morning", istTime(2024, time.January, 8, 7, 0), models.MarketClosed},
		{"saturday midday", istTime(2024, time.January, 6, 12, 0), models.MarketClosed},
		{"sunday midday", istTime(2024, time.January, 7, 12, 0), models.MarketClosed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := marketStatusAt(tc.at); got != tc.want {
				t.Errorf("marketStatusAt(%v) = %s, want %s", tc.at, got, tc.want)
			}
		})
	}
}

func TestNextWeeklyExpiry(t *testing.T) {
	testCases := []struct {
		name string
		from time.Time
		want time.Time
	}{
		// 2024-01-04 and 2024-01-11 are Thursdays.
		{"monday", istTime(2024, time.January, 1, 10, 0), istTime(2024, time.January, 4, 15, 30)},
		{"thursday before close", istTime(2024, time.January, 4, 11, 0), istTime(2024, time.January, 4, 15, 30)},
		{"thursday after close", istTime(2024, time.January, 4, 16, 0), istTime(2024, time.January, 11, 15, 30)},
		{"friday", istTime(2024, time.January, 5, 10, 0), istTime(2024, time.January, 11, 15, 30)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextWeeklyExpiry(tc.from)
			if !got.Equal(tc.want) {
				t.Errorf("NextWeeklyExpiry(%v) = %v, want %v", tc.from, got, tc.want)
			}
			if got.Weekday() != time.Thursday {
				t.Errorf("expiry %v is not a Thursday", got)
			}
		})
	}
}

func TestDaysToExpiry(t *testing.T) {
	testCases := []struct {
		name   string
		now    time.Time
		expiry time.Time
		want   int
	}{
		{"expiry day", istTime(2024, time.January, 4, 10, 0), istTime(2024, time.January, 4, 15, 30), 0},
		{"one day out", istTime(2024, time.January, 3, 10, 0), istTime(2024, time.January, 4, 15, 30), 1},
		{"partial day counts whole", istTime(2024, time.January, 3, 23, 59), istTime(2024, time.January, 4, 15, 30), 1},
		{"week out", istTime(2024, time.January, 4, 16, 0), istTime(2024, time.January, 11, 15, 30), 7},
		{"expired clamps to zero", istTime(2024, time.January, 5, 10, 0), istTime(2024, time.January, 4, 15, 30), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysToExpiry(tc.now, tc.expiry); got != tc.want {
				t.Errorf("DaysToExpiry(%v, %v) = %d, want %d", tc.now, tc.expiry, got, tc.want)
			}
		})
	}
}
