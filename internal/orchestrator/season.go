package orchestrator

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// Calendar holds the phase boundaries of one season. Every bound is an
// Eastern calendar date and inclusive.
type Calendar struct {
	PreseasonStart time.Time
	RegularStart   time.Time
	CupStart       time.Time
	CupFinals      time.Time
	AllStarStart   time.Time
	AllStarEnd     time.Time
	PlayInStart    time.Time
	PlayInEnd      time.Time
	PlayoffsStart  time.Time
	FinalsEnd      time.Time
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// Calendars is keyed by the year a season ends in
var Calendars = map[int]Calendar{
	2026: {
		PreseasonStart: day(2025, time.October, 3),
		RegularStart:   day(2025, time.October, 21),
		CupStart:       day(2025, time.November, 11),
		CupFinals:      day(2025, time.December, 16),
		AllStarStart:   day(2026, time.February, 13),
		AllStarEnd:     day(2026, time.February, 18),
		PlayInStart:    day(2026, time.April, 14),
		PlayInEnd:      day(2026, time.April, 17),
		PlayoffsStart:  day(2026, time.April, 18),
		FinalsEnd:      day(2026, time.June, 21),
	},
}

// SeasonFor places an Eastern date on the NBA calendar. Seasons without a
// calendar are treated as regular season.
func SeasonFor(date time.Time) models.SeasonInfo {
	date = day(date.Year(), date.Month(), date.Day())
	season := models.SeasonYear(date)

	cal, ok := Calendars[season]
	if !ok {
		return models.SeasonInfo{Season: season, Type: models.SeasonRegular, ShouldRun: true}
	}

	within := func(from, to time.Time) bool {
		return !date.Before(from) && !date.After(to)
	}

	switch {
	case date.Before(cal.PreseasonStart):
		return models.SeasonInfo{Season: season - 1, Type: models.SeasonOffseason}
	case date.Before(cal.RegularStart):
		return models.SeasonInfo{Season: season, Type: models.SeasonPreseason}
	case within(cal.AllStarStart, cal.AllStarEnd):
		return models.SeasonInfo{Season: season, Type: models.SeasonAllStarBreak}
	case within(cal.PlayInStart, cal.PlayInEnd):
		return models.SeasonInfo{Season: season, Type: models.SeasonPlayIn, ShouldRun: true}
	case date.After(cal.FinalsEnd):
		return models.SeasonInfo{Season: season, Type: models.SeasonOffseason}
	case !date.Before(cal.PlayoffsStart):
		return models.SeasonInfo{Season: season, Type: models.SeasonPlayoffs, ShouldRun: true}
	case within(cal.CupStart, cal.CupFinals):
		return models.SeasonInfo{Season: season, Type: models.SeasonCup, ShouldRun: true, IsCupPeriod: true}
	}
	return models.SeasonInfo{Season: season, Type: models.SeasonRegular, ShouldRun: true}
}
