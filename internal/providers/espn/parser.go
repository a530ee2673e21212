package espn

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// Box score labels mapped to stat columns. Shooting labels are
// "made-attempted" and keep the made count.
var labelColumns = map[string]string{
	"PTS": models.ColPoints,
	"REB": models.ColRebounds,
	"AST": models.ColAssists,
	"STL": models.ColSteals,
	"BLK": models.ColBlocks,
	"TO":  models.ColTurnovers,
	"3PT": models.ColThrees,
	"FG":  models.ColFGM,
	"FT":  models.ColFTM,
}

// ParseBoxScore parses an ESPN game summary into a box score
func ParseBoxScore(raw map[string]interface{}) (models.BoxScore, error) {
	header := extractMap(raw, "header")
	if len(header) == 0 {
		header = raw
	}
	box, err := parseGameHeader(header)
	if err != nil {
		return models.BoxScore{}, fmt.Errorf("parsing game header: %w", err)
	}

	boxscore := extractMap(raw, "boxscore")
	for _, td := range extractArray(boxscore, "players") {
		teamData, ok := td.(map[string]interface{})
		if !ok {
			continue
		}
		team := models.TeamAbbreviation(extractString(extractMap(teamData, "team"), "abbreviation"))

		statistics := extractArray(teamData, "statistics")
		if len(statistics) == 0 {
			continue
		}
		// First group has player stats
		group, ok := statistics[0].(map[string]interface{})
		if !ok {
			continue
		}
		labels := extractArray(group, "labels")

		for _, a := range extractArray(group, "athletes") {
			athleteData, ok := a.(map[string]interface{})
			if !ok {
				continue
			}
			box.Players = append(box.Players, parsePlayerLine(athleteData, labels, team))
		}
	}

	if box.Status == models.GameFinal && len(box.Players) == 0 {
		return models.BoxScore{}, fmt.Errorf("final game %s has no player statistics", box.GameID)
	}
	return box, nil
}

func parsePlayerLine(athleteData map[string]interface{}, labels []interface{}, team string) models.PlayerLine {
	athlete := extractMap(athleteData, "athlete")
	line := models.PlayerLine{
		PlayerID:   extractString(athlete, "id"),
		PlayerName: extractString(athlete, "displayName"),
		Team:       team,
		Stats:      make(map[string]float64),
	}

	if didNotPlay, ok := athleteData["didNotPlay"].(bool); ok && didNotPlay {
		line.DNP = true
		return line
	}

	stats := extractArray(athleteData, "stats")
	if len(stats) == 0 {
		line.DNP = true
		return line
	}

	for i, l := range labels {
		if i >= len(stats) {
			break
		}
		label, _ := l.(string)
		value := fmt.Sprint(stats[i])
		if label == "MIN" {
			line.Minutes = parseMinutes(value)
			continue
		}
		if col, ok := labelColumns[label]; ok {
			line.Stats[col] = parseMade(value)
		}
	}
	return line
}

// parseGameHeader reads id, status, date and teams from a scoreboard event
// or a summary header
func parseGameHeader(raw map[string]interface{}) (models.BoxScore, error) {
	box := models.BoxScore{GameID: extractString(raw, "id")}
	if t, err := parseCommenceTime(extractString(raw, "date")); err == nil {
		box.GameDate = models.EasternDate(t)
	}

	competitions := extractArray(raw, "competitions")
	if len(competitions) == 0 {
		return box, fmt.Errorf("no competitions found in event")
	}
	comp, ok := competitions[0].(map[string]interface{})
	if !ok {
		return box, fmt.Errorf("malformed competition")
	}
	if box.GameDate.IsZero() {
		if t, err := parseCommenceTime(extractString(comp, "date")); err == nil {
			box.GameDate = models.EasternDate(t)
		}
	}

	status := extractMap(raw, "status")
	if len(status) == 0 {
		status = extractMap(comp, "status")
	}
	box.Status = parseGameStatus(extractMap(status, "type"))

	competitors := extractArray(comp, "competitors")
	if len(competitors) < 2 {
		return box, fmt.Errorf("insufficient competitors")
	}
	for _, ci := range competitors {
		competitor, ok := ci.(map[string]interface{})
		if !ok {
			continue
		}
		abbr := models.TeamAbbreviation(extractString(extractMap(competitor, "team"), "abbreviation"))
		switch extractString(competitor, "homeAway") {
		case "home":
			box.HomeTeam = abbr
		case "away":
			box.AwayTeam = abbr
		}
	}
	return box, nil
}

// parseGameStatus converts an ESPN status type to our GameStatus
func parseGameStatus(statusType map[string]interface{}) models.GameStatus {
	switch extractString(statusType, "name") {
	case "STATUS_POSTPONED":
		return models.GamePostponed
	case "STATUS_CANCELED", "STATUS_CANCELLED":
		return models.GameCancelled
	}

	if completed, ok := statusType["completed"].(bool); ok && completed {
		return models.GameFinal
	}

	switch extractString(statusType, "state") {
	case "in":
		return models.GameLive
	case "post":
		return models.GameFinal
	}
	return models.GameUpcoming
}

// ParseInjuries flattens the league injury report
func ParseInjuries(raw map[string]interface{}) []models.InjuryReport {
	var reports []models.InjuryReport
	for _, ti := range extractArray(raw, "injuries") {
		team, ok := ti.(map[string]interface{})
		if !ok {
			continue
		}
		abbr := models.TeamAbbreviation(extractString(team, "displayName"))
		for _, ii := range extractArray(team, "injuries") {
			injury, ok := ii.(map[string]interface{})
			if !ok {
				continue
			}
			name := extractString(extractMap(injury, "athlete"), "displayName")
			if name == "" {
				continue
			}
			reports = append(reports, models.InjuryReport{
				PlayerName: name,
				Team:       abbr,
				Status:     models.ParseInjuryStatus(extractString(injury, "status")),
				Detail:     extractString(injury, "shortComment"),
			})
		}
	}
	return reports
}

// parseMinutes converts ESPN minutes format to float
func parseMinutes(minutesStr string) float64 {
	if minutesStr == "" || minutesStr == "0" || minutesStr == "--" {
		return 0.0
	}

	// Handle "33" or "33:15" format
	if strings.Contains(minutesStr, ":") {
		parts := strings.Split(minutesStr, ":")
		mins, _ := strconv.Atoi(parts[0])
		secs := 0
		if len(parts) > 1 {
			secs, _ = strconv.Atoi(parts[1])
		}
		return float64(mins) + (float64(secs) / 60.0)
	}

	f, _ := strconv.ParseFloat(minutesStr, 64)
	return f
}

// parseMade reads a plain count or the made part of "made-attempted"
func parseMade(value string) float64 {
	if i := strings.Index(value, "-"); i > 0 {
		value = value[:i]
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseCommenceTime parses ESPN date format to time.Time
func parseCommenceTime(dateStr string) (time.Time, error) {
	// ESPN format: "2025-11-11T23:30Z"
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00", "2006-01-02T15:04Z"} {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", dateStr)
}

// extractString safely extracts a string from a map
func extractString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// extractMap safely extracts a map from a map
func extractMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key]; ok {
		if mapVal, ok := v.(map[string]interface{}); ok {
			return mapVal
		}
	}
	return map[string]interface{}{}
}

// extractArray safely extracts an array from a map
func extractArray(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key]; ok {
		if arrVal, ok := v.([]interface{}); ok {
			return arrVal
		}
	}
	return []interface{}{}
}
