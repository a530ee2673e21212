package nbastats

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/httpclient"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

const (
	BaseURL           = "https://stats.nba.com/stats"
	LeagueID          = "00"
	SeasonTypeRegular = "Regular Season"
	SeasonTypePlayoff = "Playoffs"

	leagueTTL = 6 * time.Hour
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrTeamNotFound   = errors.New("team not found")
)

// DefaultHeaders are the browser headers stats.nba.com requires
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":             "application/json, text/plain, */*",
		"Accept-Language":    "en-US,en;q=0.9",
		"Origin":             "https://www.nba.com",
		"Referer":            "https://www.nba.com/",
		"x-nba-stats-origin": "stats",
		"x-nba-stats-token":  "true",
	}
}

// leagueTables holds the league-wide tables refreshed together
type leagueTables struct {
	season    string
	fetchedAt time.Time

	players map[string]models.PlayerRef // by normalized name
	base    map[int]Row
	usage   map[int]float64
	teams   map[string]models.TeamDefense // by tricode
	games   map[string][]time.Time        // team game dates, ascending
}

// Client reads player and team statistics from stats.nba.com
type Client struct {
	http       *httpclient.Client
	baseURL    string
	seasonType string
	logger     zerolog.Logger
	now        func() time.Time

	mu     sync.Mutex
	league *leagueTables
}

// New creates a stats client. baseURL may be empty for the public API.
func New(http *httpclient.Client, baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		http:       http,
		baseURL:    strings.TrimRight(baseURL, "/"),
		seasonType: SeasonTypeRegular,
		logger:     logger.With().Str("component", "nbastats").Logger(),
		now:        time.Now,
	}
}

// SetSeasonType switches between regular season and playoff tables
func (c *Client) SetSeasonType(seasonType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seasonType != c.seasonType {
		c.seasonType = seasonType
		c.league = nil
	}
}

// UsePhase reads playoff tables during the playoffs and regular season
// tables otherwise
func (c *Client) UsePhase(phase models.SeasonType) {
	if phase == models.SeasonPlayoffs {
		c.SetSeasonType(SeasonTypePlayoff)
		return
	}
	c.SetSeasonType(SeasonTypeRegular)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (Response, error) {
	var resp Response
	if err := c.http.GetJSON(ctx, c.baseURL+"/"+endpoint, params, &resp); err != nil {
		return Response{}, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	return resp, nil
}

func (c *Client) leagueParams(season, measure string) url.Values {
	return url.Values{
		"LeagueID":       {LeagueID},
		"Season":         {season},
		"SeasonType":     {c.seasonType},
		"MeasureType":    {measure},
		"PerMode":        {"PerGame"},
		"LastNGames":     {"0"},
		"Month":          {"0"},
		"OpponentTeamID": {"0"},
		"PaceAdjust":     {"N"},
		"Period":         {"0"},
		"PlusMinus":      {"N"},
		"Rank":           {"N"},
	}
}

// tables returns the cached league tables, reloading them when stale or
// when the season rolls over
func (c *Client) tables(ctx context.Context) (*leagueTables, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	season := SeasonString(c.now())
	if c.league != nil && c.league.season == season && c.now().Sub(c.league.fetchedAt) < leagueTTL {
		return c.league, nil
	}

	t := &leagueTables{
		season:  season,
		players: make(map[string]models.PlayerRef),
		base:    make(map[int]Row),
		usage:   make(map[int]float64),
		teams:   make(map[string]models.TeamDefense),
		games:   make(map[string][]time.Time),
	}

	base, err := c.get(ctx, "leaguedashplayerstats", c.leagueParams(season, "Base"))
	if err != nil {
		return nil, err
	}
	rows, err := base.Table("")
	if err != nil {
		return nil, fmt.Errorf("parse player stats: %w", err)
	}
	for _, r := range rows {
		id := r.Int("PLAYER_ID")
		t.base[id] = r
		t.players[models.NormalizeName(r.String("PLAYER_NAME"))] = models.PlayerRef{
			ID:   id,
			Name: r.String("PLAYER_NAME"),
			Team: models.TeamAbbreviation(r.String("TEAM_ABBREVIATION")),
		}
	}

	advanced, err := c.get(ctx, "leaguedashplayerstats", c.leagueParams(season, "Advanced"))
	if err != nil {
		return nil, err
	}
	if rows, err = advanced.Table(""); err == nil {
		for _, r := range rows {
			t.usage[r.Int("PLAYER_ID")] = models.Round(r.Float("USG_PCT")*100, 2)
		}
	}

	teams, err := c.get(ctx, "leaguedashteamstats", c.leagueParams(season, "Advanced"))
	if err != nil {
		return nil, err
	}
	if rows, err = teams.Table(""); err == nil {
		for _, r := range rows {
			abbr := models.TeamAbbreviation(r.String("TEAM_NAME"))
			t.teams[abbr] = models.TeamDefense{
				Team:      abbr,
				DefRating: r.Float("DEF_RATING"),
				Pace:      r.Float("PACE"),
				OrebPct:   r.Float("OREB_PCT"),
				DrebPct:   r.Float("DREB_PCT"),
			}
		}
	}

	log, err := c.get(ctx, "leaguegamelog", url.Values{
		"LeagueID":     {LeagueID},
		"Season":       {season},
		"SeasonType":   {c.seasonType},
		"PlayerOrTeam": {"T"},
		"Direction":    {"ASC"},
		"Sorter":       {"DATE"},
	})
	if err != nil {
		return nil, err
	}
	if rows, err = log.Table(""); err == nil {
		for _, r := range rows {
			date, err := parseGameDate(r.String("GAME_DATE"))
			if err != nil {
				continue
			}
			abbr := models.TeamAbbreviation(r.String("TEAM_ABBREVIATION"))
			t.games[abbr] = append(t.games[abbr], date)
		}
		for abbr := range t.games {
			dates := t.games[abbr]
			sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		}
	}

	t.fetchedAt = c.now()
	c.league = t
	c.logger.Info().
		Str("season", season).
		Int("players", len(t.players)).
		Int("teams", len(t.teams)).
		Msg("league tables refreshed")
	return t, nil
}

// FindPlayer resolves a market name to a stats player id
func (c *Client) FindPlayer(ctx context.Context, name string) (models.PlayerRef, error) {
	t, err := c.tables(ctx)
	if err != nil {
		return models.PlayerRef{}, err
	}
	if ref, ok := t.players[models.NormalizeName(name)]; ok {
		return ref, nil
	}
	return models.PlayerRef{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
}

// SeasonAverages returns per-game averages, usage and tracking rates.
// Tracking endpoints are best effort.
func (c *Client) SeasonAverages(ctx context.Context, playerID int) (models.SeasonAverages, error) {
	t, err := c.tables(ctx)
	if err != nil {
		return models.SeasonAverages{}, err
	}
	row, ok := t.base[playerID]
	if !ok {
		return models.SeasonAverages{}, fmt.Errorf("%w: id %d", ErrPlayerNotFound, playerID)
	}

	avg := models.SeasonAverages{
		PlayerID:       playerID,
		GamesPlayed:    row.Int("GP"),
		MinutesPerGame: row.Float("MIN"),
		UsagePct:       t.usage[playerID],
		Stats:          statsFromRow(row),
	}

	if err := c.rebounding(ctx, t.season, playerID, &avg); err != nil {
		c.logger.Debug().Err(err).Int("player_id", playerID).Msg("rebound tracking unavailable")
	}
	if err := c.passing(ctx, t.season, playerID, &avg); err != nil {
		c.logger.Debug().Err(err).Int("player_id", playerID).Msg("pass tracking unavailable")
	}
	return avg, nil
}

func (c *Client) playerParams(season string, playerID int) url.Values {
	return url.Values{
		"LeagueID":   {LeagueID},
		"Season":     {season},
		"SeasonType": {c.seasonType},
		"PlayerID":   {strconv.Itoa(playerID)},
		"PerMode":    {"PerGame"},
		"TeamID":     {"0"},
	}
}

func (c *Client) rebounding(ctx context.Context, season string, playerID int, avg *models.SeasonAverages) error {
	resp, err := c.get(ctx, "playerdashptreb", c.playerParams(season, playerID))
	if err != nil {
		return err
	}
	rows, err := resp.Table("OverallRebounding")
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	avg.RebFrequency = rows[0].Float("REB_FREQUENCY")
	avg.ContestedRebPct = rows[0].Float("C_REB_PCT")
	avg.UncontestedRebPct = rows[0].Float("UC_REB_PCT")
	return nil
}

func (c *Client) passing(ctx context.Context, season string, playerID int, avg *models.SeasonAverages) error {
	resp, err := c.get(ctx, "playerdashptpass", c.playerParams(season, playerID))
	if err != nil {
		return err
	}
	rows, err := resp.Table("PassesMade")
	if err != nil {
		return err
	}
	var passes, assists float64
	for _, r := range rows {
		passes += r.Float("PASS")
		assists += r.Float("AST")
	}
	if passes > 0 {
		avg.PassToAstRate = models.Round(assists/passes, 4)
	}
	return nil
}

// RecentGames returns up to lookback game logs, newest first
func (c *Client) RecentGames(ctx context.Context, playerID int, lookback int) ([]models.GameLog, error) {
	season := SeasonString(c.now())
	params := url.Values{
		"LeagueID":   {LeagueID},
		"Season":     {season},
		"SeasonType": {c.seasonType},
		"PlayerID":   {strconv.Itoa(playerID)},
	}
	resp, err := c.get(ctx, "playergamelog", params)
	if err != nil {
		return nil, err
	}
	rows, err := resp.Table("")
	if err != nil {
		return nil, fmt.Errorf("parse game log %d: %w", playerID, err)
	}

	logs := make([]models.GameLog, 0, len(rows))
	for _, r := range rows {
		g, err := parseGameLog(r)
		if err != nil {
			c.logger.Debug().Err(err).Int("player_id", playerID).Msg("skipping game log row")
			continue
		}
		logs = append(logs, g)
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].GameDate.After(logs[j].GameDate) })

	if lookback > 0 && len(logs) > lookback {
		logs = logs[:lookback]
	}
	return logs, nil
}

// TeamDefense returns the advanced defensive profile of a team
func (c *Client) TeamDefense(ctx context.Context, team string) (models.TeamDefense, error) {
	t, err := c.tables(ctx)
	if err != nil {
		return models.TeamDefense{}, err
	}
	if d, ok := t.teams[models.TeamAbbreviation(team)]; ok {
		return d, nil
	}
	return models.TeamDefense{}, fmt.Errorf("%w: %s", ErrTeamNotFound, team)
}

// ScheduleContext derives rest from the team's games before date. A team
// with no prior game this season is treated as fully rested.
func (c *Client) ScheduleContext(ctx context.Context, team string, date time.Time) (models.ScheduleContext, error) {
	t, err := c.tables(ctx)
	if err != nil {
		return models.ScheduleContext{}, err
	}
	abbr := models.TeamAbbreviation(team)
	return scheduleFor(abbr, t.games[abbr], date), nil
}

// restDaysCap bounds days of rest reported for a team's first game
const restDaysCap = 3

func scheduleFor(team string, games []time.Time, date time.Time) models.ScheduleContext {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	sc := models.ScheduleContext{Team: team, DaysRest: restDaysCap}

	var last time.Time
	recent := 0
	for _, g := range games {
		if !g.Before(day) {
			break
		}
		last = g
		if !g.Before(day.AddDate(0, 0, -3)) {
			recent++
		}
	}
	if last.IsZero() {
		return sc
	}

	gap := int(day.Sub(last).Hours() / 24)
	sc.DaysRest = gap - 1
	if sc.DaysRest > restDaysCap {
		sc.DaysRest = restDaysCap
	}
	sc.IsB2B = gap == 1
	sc.Is3In4 = recent >= 2
	return sc
}
