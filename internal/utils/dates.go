package utils

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// daysPerYear is the ACT/365 day count used to turn dates into maturities
const daysPerYear = 365.0

// NextExpiration is the expiration keyword for the next monthly expiration
const NextExpiration = "next"

// thirdFriday returns the standard monthly options expiration day
func thirdFriday(year int, month time.Month, loc *time.Location) time.Time {
	firstFriday := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	for firstFriday.Weekday() != time.Friday {
		firstFriday = firstFriday.AddDate(0, 0, 1)
	}
	return firstFriday.AddDate(0, 0, 14)
}

// CalculateNextOptionsExpiration returns the next third Friday for options expiration:
// - Third Friday of the current month if we haven't reached the expiration week yet
// - Third Friday of next month if we're in or past the expiration week
func CalculateNextOptionsExpiration(today time.Time) time.Time {
	expiry := thirdFriday(today.Year(), today.Month(), today.Location())
	weekStart := expiry.AddDate(0, 0, -7)

	if !today.Before(weekStart) {
		// time.Date normalises month 13 into January of the next year
		next := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())
		return thirdFriday(next.Year(), next.Month(), today.Location())
	}
	return expiry
}

// YearsToExpiration converts an expiration date ("2006-01-02" or "next") into
// a time to maturity in years, counted in calendar days from today's date.
func YearsToExpiration(today time.Time, expiration string) (float64, error) {
	var expiry time.Time
	if strings.EqualFold(strings.TrimSpace(expiration), NextExpiration) {
		expiry = CalculateNextOptionsExpiration(today)
	} else {
		var err error
		expiry, err = time.ParseInLocation("2006-01-02", strings.TrimSpace(expiration), today.Location())
		if err != nil {
			return 0, errors.Wrapf(err, "expiration date %q", expiration)
		}
	}

	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	if expiry.Before(start) {
		return 0, errors.Errorf("expiration %s is in the past", expiry.Format("2006-01-02"))
	}
	// round absorbs DST hour shifts between the two midnights
	days := expiry.Sub(start).Round(24 * time.Hour).Hours() / 24
	return days / daysPerYear, nil
}
