package domain

import "time"

// ExpiryStatus is the time-derived state of a batch
type ExpiryStatus string

const (
	ExpiryNormal       ExpiryStatus = "normal"
	ExpiryExpiringSoon ExpiryStatus = "expiring_soon"
	ExpiryExpired      ExpiryStatus = "expired"
)

// ExpiringSoonDays is the window in which a batch counts as expiring soon.
const ExpiringSoonDays = 30

// DefaultShelfLifeMonths is used when no shelf life is configured.
const DefaultShelfLifeMonths = 6

// ParseExpiryStatus returns the status named by s
func ParseExpiryStatus(s string) (ExpiryStatus, bool) {
	switch ExpiryStatus(s) {
	case ExpiryNormal, ExpiryExpiringSoon, ExpiryExpired:
		return ExpiryStatus(s), true
	}
	return "", false
}

// ExpiryStatusAt classifies an expiry date relative to now. Every view that
// shows or filters by expiry goes through this function.
func ExpiryStatusAt(expiryDate, now time.Time) ExpiryStatus {
	days := DaysUntil(expiryDate, now)
	switch {
	case days < 0:
		return ExpiryExpired
	case days < ExpiringSoonDays:
		return ExpiryExpiringSoon
	default:
		return ExpiryNormal
	}
}

// DaysUntil counts whole calendar days (UTC) from now to expiryDate.
// A batch expiring today yields 0, one that expired yesterday yields -1.
func DaysUntil(expiryDate, now time.Time) int {
	return int(DateOf(expiryDate).Sub(DateOf(now)).Hours() / 24)
}

// ExpiryDate derives a stock expiry date from the production date. A day
// past the end of the target month clamps to its last day, matching
// Postgres date + interval arithmetic.
func ExpiryDate(productionDate time.Time, shelfLifeMonths int) time.Time {
	if shelfLifeMonths <= 0 {
		shelfLifeMonths = DefaultShelfLifeMonths
	}
	d := DateOf(productionDate)
	first := time.Date(d.Year(), d.Month()+time.Month(shelfLifeMonths), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 0, min(d.Day(), daysIn(first))-1)
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
