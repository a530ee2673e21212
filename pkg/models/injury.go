package models

import "strings"

// InjuryStatus is the availability designation reported for a player
type InjuryStatus string

const (
	InjuryAvailable    InjuryStatus = "available"
	InjuryDayToDay     InjuryStatus = "day_to_day"
	InjuryQuestionable InjuryStatus = "questionable"
	InjuryDoubtful     InjuryStatus = "doubtful"
	InjuryOut          InjuryStatus = "out"
	InjurySuspended    InjuryStatus = "suspended"
	InjuryUnknown      InjuryStatus = "unknown"
)

var injuryModifiers = map[InjuryStatus]float64{
	InjuryAvailable:    1.0,
	InjuryDayToDay:     0.6,
	InjuryQuestionable: 0.5,
	InjuryDoubtful:     0.3,
	InjuryOut:          0,
	InjurySuspended:    0,
	InjuryUnknown:      0.9,
}

// ParseInjuryStatus maps a provider designation ("Out", "Day-To-Day", "GTD", ...)
// onto the closed set. Empty input means the player is not on the report.
func ParseInjuryStatus(raw string) InjuryStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch s {
	case "", "active", "available", "probable":
		return InjuryAvailable
	case "day_to_day", "gtd", "game_time_decision":
		return InjuryDayToDay
	case "questionable":
		return InjuryQuestionable
	case "doubtful":
		return InjuryDoubtful
	case "out", "inactive", "out_for_season", "injured_reserve":
		return InjuryOut
	case "suspended", "suspension":
		return InjurySuspended
	}
	return InjuryUnknown
}

// IsExcluded reports whether the player must be left out of generation
func (s InjuryStatus) IsExcluded() bool {
	return s == InjuryOut || s == InjurySuspended
}

// ConfidenceModifier is the multiplier applied to a prop's confidence.
// The zero value is treated as available.
func (s InjuryStatus) ConfidenceModifier() float64 {
	if s == "" {
		return 1.0
	}
	if m, ok := injuryModifiers[s]; ok {
		return m
	}
	return injuryModifiers[InjuryUnknown]
}

// InjuryReport is one entry of a team injury list
type InjuryReport struct {
	PlayerName string       `json:"player_name"`
	Team       string       `json:"team"`
	Status     InjuryStatus `json:"status"`
	Detail     string       `json:"detail,omitempty"`
}
