package nbastats

import (
	"fmt"
	"strings"
	"time"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// Response is the envelope every stats endpoint returns. A few endpoints
// use the singular resultSet key.
type Response struct {
	ResultSets []ResultSet `json:"resultSets"`
	ResultSet  *ResultSet  `json:"resultSet"`
}

// ResultSet is a named table of rows
type ResultSet struct {
	Name    string          `json:"name"`
	Headers []string        `json:"headers"`
	RowSet  [][]interface{} `json:"rowSet"`
}

// Row is one result row keyed by header
type Row map[string]interface{}

// Table returns the rows of the named result set, or of the first set when
// name is empty
func (r Response) Table(name string) ([]Row, error) {
	sets := r.ResultSets
	if r.ResultSet != nil {
		sets = append(sets, *r.ResultSet)
	}
	for _, set := range sets {
		if name != "" && set.Name != name {
			continue
		}
		return set.Rows(), nil
	}
	if name == "" {
		return nil, fmt.Errorf("response has no result sets")
	}
	return nil, fmt.Errorf("result set %s not found", name)
}

// Rows zips each row with the headers
func (s ResultSet) Rows() []Row {
	rows := make([]Row, 0, len(s.RowSet))
	for _, values := range s.RowSet {
		row := make(Row, len(s.Headers))
		for i, h := range s.Headers {
			if i < len(values) {
				row[h] = values[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Float returns a numeric column, zero when missing or null
func (r Row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Int returns a numeric column as an int
func (r Row) Int(key string) int {
	return int(r.Float(key))
}

// String returns a text column
func (r Row) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Box score columns as named by stats.nba.com
var statColumns = map[string]string{
	"PTS":  models.ColPoints,
	"REB":  models.ColRebounds,
	"AST":  models.ColAssists,
	"STL":  models.ColSteals,
	"BLK":  models.ColBlocks,
	"FG3M": models.ColThrees,
	"TOV":  models.ColTurnovers,
	"FGM":  models.ColFGM,
	"FTM":  models.ColFTM,
}

// statsFromRow copies the box score columns present on a row
func statsFromRow(r Row) map[string]float64 {
	stats := make(map[string]float64, len(statColumns))
	for src, col := range statColumns {
		if _, ok := r[src]; ok {
			stats[col] = r.Float(src)
		}
	}
	return stats
}

var gameDateLayouts = []string{
	"Jan 02, 2006",
	"2006-01-02",
	"2006-01-02T15:04:05",
}

// parseGameDate reads the several date formats the endpoints use
func parseGameDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range gameDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized game date %q", s)
}

// parseGameLog converts a playergamelog row
func parseGameLog(r Row) (models.GameLog, error) {
	date, err := parseGameDate(r.String("GAME_DATE"))
	if err != nil {
		return models.GameLog{}, err
	}
	id := r.String("Game_ID")
	if id == "" {
		id = r.String("GAME_ID")
	}
	return models.GameLog{
		GameID:   id,
		GameDate: date,
		Matchup:  r.String("MATCHUP"),
		Minutes:  r.Float("MIN"),
		Stats:    statsFromRow(r),
	}, nil
}

// SeasonString formats the season containing t, e.g. "2025-26"
func SeasonString(t time.Time) string {
	y := models.SeasonYear(t)
	return fmt.Sprintf("%d-%02d", y-1, y%100)
}
