package utils

import (
	"time"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// ISTLocation returns the IST location used for all market timestamps.
func ISTLocation() *time.Location {
	return IndiaLocation
}

// GetMarketStatus returns the current NSE market status.
func GetMarketStatus() models.MarketStatus {
	return marketStatusAt(time.Now().In(IndiaLocation))
}

func marketStatusAt(now time.Time) models.MarketStatus {
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return models.MarketClosed
	}

	timeMinutes := now.Hour()*60 + now.Minute()

	// Pre-open: 9:00 - 9:15
	if timeMinutes >= 540 && timeMinutes < 555 {
		return models.MarketPreOpen
	}

	// Market open: 9:15 - 15:30
	if timeMinutes >= 555 && timeMinutes < 930 {
		return models.MarketOpen
	}

	return models.MarketClosed
}

// IsMarketOpen returns true if the market is currently open.
func IsMarketOpen() bool {
	return GetMarketStatus() == models.MarketOpen
}

// GetNextMarketOpen returns the next market opening time.
func GetNextMarketOpen() time.Time {
	now := time.Now().In(IndiaLocation)

	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 15, 0, 0, IndiaLocation)
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// GetMarketClose returns today's market close time.
func GetMarketClose() time.Time {
	now := time.Now().In(IndiaLocation)
	return time.Date(now.Year(), now.Month(), now.Day(), 15, 30, 0, 0, IndiaLocation)
}

// NextWeeklyExpiry returns the next weekly index expiry (Thursday) on
// or after the given date. A Thursday after market close rolls to the
// following week.
func NextWeeklyExpiry(from time.Time) time.Time {
	from = from.In(IndiaLocation)
	expiry := time.Date(from.Year(), from.Month(), from.Day(), 15, 30, 0, 0, IndiaLocation)

	daysAhead := (int(time.Thursday) - int(expiry.Weekday()) + 7) % 7
	expiry = expiry.AddDate(0, 0, daysAhead)

	if expiry.Before(from) {
		expiry = expiry.AddDate(0, 0, 7)
	}
	return expiry
}

// DaysToExpiry returns the calendar days remaining until expiry,
// counting a partial day as a full day. Expired chains return 0.
func DaysToExpiry(now, expiry time.Time) int {
	now = now.In(IndiaLocation)
	expiry = expiry.In(IndiaLocation)

	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, IndiaLocation)
	expDay := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, IndiaLocation)

	days := int(expDay.Sub(nowDay).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
