package models

import (
	"strings"
	"time"
)

// NBA team abbreviation mappings
var teamAbbreviations = map[string]string{
	"Atlanta Hawks":          "ATL",
	"Boston Celtics":         "BOS",
	"Brooklyn Nets":          "BKN",
	"Charlotte Hornets":      "CHA",
	"Chicago Bulls":          "CHI",
	"Cleveland Cavaliers":    "CLE",
	"Dallas Mavericks":       "DAL",
	"Denver Nuggets":         "DEN",
	"Detroit Pistons":        "DET",
	"Golden State Warriors":  "GSW",
	"Houston Rockets":        "HOU",
	"Indiana Pacers":         "IND",
	"Los Angeles Clippers":   "LAC",
	"Los Angeles Lakers":     "LAL",
	"Memphis Grizzlies":      "MEM",
	"Miami Heat":             "MIA",
	"Milwaukee Bucks":        "MIL",
	"Minnesota Timberwolves": "MIN",
	"New Orleans Pelicans":   "NOP",
	"New York Knicks":        "NYK",
	"Oklahoma City Thunder":  "OKC",
	"Orlando Magic":          "ORL",
	"Philadelphia 76ers":     "PHI",
	"Phoenix Suns":           "PHX",
	"Portland Trail Blazers": "POR",
	"Sacramento Kings":       "SAC",
	"San Antonio Spurs":      "SAS",
	"Toronto Raptors":        "TOR",
	"Utah Jazz":              "UTA",
	"Washington Wizards":     "WAS",
}

// Alternate abbreviations seen across providers
var teamAliases = map[string]string{
	"LA Clippers": "LAC",
	"GS":          "GSW",
	"NY":          "NYK",
	"NO":          "NOP",
	"SA":          "SAS",
	"UTAH":        "UTA",
	"WSH":         "WAS",
	"PHO":         "PHX",
	"BRK":         "BKN",
	"CHO":         "CHA",
}

var abbreviationToName = map[string]string{}

func init() {
	for name, abbr := range teamAbbreviations {
		abbreviationToName[abbr] = name
	}
}

// TeamAbbreviation returns the standard tricode for a full name or a
// provider-specific abbreviation. Unknown input is returned unchanged.
func TeamAbbreviation(team string) string {
	team = strings.TrimSpace(team)
	if abbr, ok := teamAbbreviations[team]; ok {
		return abbr
	}
	if abbr, ok := teamAliases[team]; ok {
		return abbr
	}
	if abbr, ok := teamAliases[strings.ToUpper(team)]; ok {
		return abbr
	}
	if _, ok := abbreviationToName[strings.ToUpper(team)]; ok {
		return strings.ToUpper(team)
	}
	return team
}

// TeamName returns the full name for an abbreviation
func TeamName(abbr string) string {
	if name, ok := abbreviationToName[TeamAbbreviation(abbr)]; ok {
		return name
	}
	return abbr
}

// SeasonYear returns the season a date belongs to, named by the year it
// ends in. October onwards starts the next season.
func SeasonYear(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}
