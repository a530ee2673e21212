package oddsapi

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/httpclient"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

const (
	BaseURL  = "https://api.the-odds-api.com/v4"
	SportKey = "basketball_nba"
)

// Player prop markets mapped to stat types
var marketStats = map[string]models.StatType{
	"player_points":                  models.StatPoints,
	"player_rebounds":                models.StatRebounds,
	"player_assists":                 models.StatAssists,
	"player_threes":                  models.StatThrees,
	"player_blocks":                  models.StatBlocks,
	"player_steals":                  models.StatSteals,
	"player_blocks_steals":           models.StatBlocksSteals,
	"player_turnovers":               models.StatTurnovers,
	"player_points_rebounds_assists": models.StatPRA,
	"player_points_rebounds":         models.StatPR,
	"player_points_assists":          models.StatPA,
	"player_rebounds_assists":        models.StatRA,
	"player_field_goals":             models.StatFGM,
	"player_frees_made":              models.StatFTM,
}

// Event is a scheduled game
type Event struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
}

// EventOdds is the odds response for one event
type EventOdds struct {
	Event
	Bookmakers []Bookmaker `json:"bookmakers"`
}

// Bookmaker holds one book's markets
type Bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// Market is one market of a book
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is one priced side. Description carries the player for props.
type Outcome struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int      `json:"price"`
	Point       *float64 `json:"point"`
}

// Client reads NBA games and lines from The Odds API
type Client struct {
	http       *httpclient.Client
	baseURL    string
	apiKey     string
	regions    string
	bookmakers []string
	logger     zerolog.Logger
}

// New creates an odds client. bookmakers lists preferred books in order;
// when empty the first book quoting a line is used.
func New(http *httpclient.Client, baseURL, apiKey string, bookmakers []string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		http:       http,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		regions:    "us",
		bookmakers: bookmakers,
		logger:     logger.With().Str("component", "oddsapi").Logger(),
	}
}

// Games lists events tipping off on the given Eastern date
func (c *Client) Games(ctx context.Context, date time.Time) ([]models.Game, error) {
	from := models.EasternMidnight(date)
	params := url.Values{
		"apiKey":           {c.apiKey},
		"commenceTimeFrom": {from.UTC().Format("2006-01-02T15:04:05Z")},
		"commenceTimeTo":   {from.AddDate(0, 0, 1).UTC().Format("2006-01-02T15:04:05Z")},
	}

	var events []Event
	if err := c.http.GetJSON(ctx, fmt.Sprintf("%s/sports/%s/events", c.baseURL, SportKey), params, &events); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	games := make([]models.Game, 0, len(events))
	for _, e := range events {
		games = append(games, models.Game{
			ID:           e.ID,
			SportKey:     e.SportKey,
			HomeTeam:     models.TeamAbbreviation(e.HomeTeam),
			AwayTeam:     models.TeamAbbreviation(e.AwayTeam),
			CommenceTime: e.CommenceTime,
		})
	}
	sort.SliceStable(games, func(i, j int) bool { return games[i].CommenceTime.Before(games[j].CommenceTime) })
	return games, nil
}

// Props returns one over/under line per player and stat
func (c *Client) Props(ctx context.Context, gameID string) ([]models.PropLine, error) {
	markets := make([]string, 0, len(marketStats))
	for m := range marketStats {
		markets = append(markets, m)
	}
	sort.Strings(markets)

	odds, err := c.eventOdds(ctx, gameID, markets)
	if err != nil {
		return nil, fmt.Errorf("fetch props: %w", err)
	}
	return c.parseProps(odds), nil
}

// GameLines returns the game total and the home spread
func (c *Client) GameLines(ctx context.Context, gameID string) (models.GameLines, error) {
	odds, err := c.eventOdds(ctx, gameID, []string{"totals", "spreads"})
	if err != nil {
		return models.GameLines{}, fmt.Errorf("fetch game lines: %w", err)
	}

	var lines models.GameLines
	for _, book := range c.orderBooks(odds.Bookmakers) {
		for _, m := range book.Markets {
			for _, o := range m.Outcomes {
				if o.Point == nil {
					continue
				}
				point := *o.Point
				switch {
				case m.Key == "totals" && o.Name == "Over" && lines.Total == nil:
					lines.Total = &point
				case m.Key == "spreads" && o.Name == odds.HomeTeam && lines.Spread == nil:
					lines.Spread = &point
				}
			}
		}
		if lines.Total != nil && lines.Spread != nil {
			break
		}
	}
	return lines, nil
}

func (c *Client) eventOdds(ctx context.Context, gameID string, markets []string) (EventOdds, error) {
	params := url.Values{
		"apiKey":     {c.apiKey},
		"regions":    {c.regions},
		"markets":    {strings.Join(markets, ",")},
		"oddsFormat": {"american"},
	}
	if len(c.bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(c.bookmakers, ","))
		params.Del("regions")
	}

	var odds EventOdds
	endpoint := fmt.Sprintf("%s/sports/%s/events/%s/odds", c.baseURL, SportKey, url.PathEscape(gameID))
	if err := c.http.GetJSON(ctx, endpoint, params, &odds); err != nil {
		return EventOdds{}, err
	}
	return odds, nil
}

type propKey struct {
	player string
	stat   models.StatType
}

// parseProps pairs Over and Under outcomes per player and line, keeping the
// first complete pair per player and stat in bookmaker preference order
func (c *Client) parseProps(odds EventOdds) []models.PropLine {
	seen := make(map[propKey]bool)
	var props []models.PropLine

	for _, book := range c.orderBooks(odds.Bookmakers) {
		for _, m := range book.Markets {
			stat, ok := marketStats[m.Key]
			if !ok {
				continue
			}

			type side struct{ over, under int }
			type lineKey struct {
				player string
				point  float64
			}
			pairs := make(map[lineKey]*side)
			var order []lineKey
			for _, o := range m.Outcomes {
				if o.Point == nil || o.Description == "" {
					continue
				}
				k := lineKey{player: o.Description, point: *o.Point}
				s, exists := pairs[k]
				if !exists {
					s = &side{}
					pairs[k] = s
					order = append(order, k)
				}
				switch o.Name {
				case "Over":
					s.over = o.Price
				case "Under":
					s.under = o.Price
				}
			}

			for _, k := range order {
				s := pairs[k]
				pk := propKey{player: models.NormalizeName(k.player), stat: stat}
				if s.over == 0 || s.under == 0 || seen[pk] {
					continue
				}
				seen[pk] = true
				props = append(props, models.PropLine{
					PlayerName: k.player,
					StatType:   stat,
					Line:       k.point,
					OverPrice:  s.over,
					UnderPrice: s.under,
					BookKey:    book.Key,
				})
			}
		}
	}

	c.logger.Debug().Str("game_id", odds.ID).Int("props", len(props)).Msg("parsed prop lines")
	return props
}

// orderBooks puts preferred books first, keeping the response order otherwise
func (c *Client) orderBooks(books []Bookmaker) []Bookmaker {
	if len(c.bookmakers) == 0 {
		return books
	}
	rank := make(map[string]int, len(c.bookmakers))
	for i, b := range c.bookmakers {
		rank[b] = i
	}
	ordered := append([]Bookmaker(nil), books...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, iok := rank[ordered[i].Key]
		rj, jok := rank[ordered[j].Key]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		}
		return false
	})
	return ordered
}
