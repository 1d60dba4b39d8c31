package service

import (
	"time"
)

// GetNextResetTime returns the first daily reset at resetHour UTC strictly after now
func GetNextResetTime(now time.Time, resetHour int) time.Time {
	now = now.UTC()
	resetTime := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)

	// If current time is past today's reset, use tomorrow's
	if !now.Before(resetTime) {
		resetTime = resetTime.AddDate(0, 0, 1)
	}

	return resetTime
}

// GetCurrentPeriodStart returns the most recent daily reset at or before now
func GetCurrentPeriodStart(now time.Time, resetHour int) time.Time {
	now = now.UTC()
	periodStart := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)

	// If current time is before today's reset, use yesterday's reset time
	if now.Before(periodStart) {
		periodStart = periodStart.AddDate(0, 0, -1)
	}

	return periodStart
}
