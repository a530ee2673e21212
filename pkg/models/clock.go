package models

import (
	"time"
	_ "time/tzdata"
)

// Eastern is the timezone every game date is expressed in
var Eastern = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// EasternDate is the Eastern calendar day of t, at midnight UTC
func EasternDate(t time.Time) time.Time {
	et := t.In(Eastern)
	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, time.UTC)
}

// EasternMidnight is the start of the Eastern calendar day named by date
func EasternMidnight(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, Eastern)
}
