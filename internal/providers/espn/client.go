package espn

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/httpclient"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

const (
	BaseURL   = "https://site.api.espn.com/apis/site/v2/sports"
	SportPath = "basketball/nba"

	injuryTTL = 30 * time.Minute
)

// Client reads scoreboards, box scores and injuries from ESPN
type Client struct {
	http    *httpclient.Client
	baseURL string
	logger  zerolog.Logger

	mu         sync.Mutex
	injuries   map[string]models.InjuryReport
	injuriesAt time.Time
	now        func() time.Time
}

// New creates a new ESPN client. baseURL may be empty for the public API.
func New(http *httpclient.Client, baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		http:    http,
		baseURL: baseURL,
		logger:  logger.With().Str("component", "espn").Logger(),
		now:     time.Now,
	}
}

// FetchScoreboard fetches the games on an Eastern date
func (c *Client) FetchScoreboard(ctx context.Context, date time.Time) (map[string]interface{}, error) {
	var raw map[string]interface{}
	endpoint := fmt.Sprintf("%s/%s/scoreboard", c.baseURL, SportPath)
	if err := c.http.GetJSON(ctx, endpoint, url.Values{"dates": {date.Format("20060102")}}, &raw); err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}
	return raw, nil
}

// FetchGameSummary fetches the summary of one game, box score included
func (c *Client) FetchGameSummary(ctx context.Context, gameID string) (map[string]interface{}, error) {
	var raw map[string]interface{}
	endpoint := fmt.Sprintf("%s/%s/summary", c.baseURL, SportPath)
	if err := c.http.GetJSON(ctx, endpoint, url.Values{"event": {gameID}}, &raw); err != nil {
		return nil, fmt.Errorf("fetch summary %s: %w", gameID, err)
	}
	return raw, nil
}

// BoxScores returns every game on date. Finished games carry player lines;
// games that are not final carry only their status. A final game whose
// summary fails is returned as GameUnknown so callers retry it later.
func (c *Client) BoxScores(ctx context.Context, date time.Time) ([]models.BoxScore, error) {
	raw, err := c.FetchScoreboard(ctx, date)
	if err != nil {
		return nil, err
	}

	events := extractArray(raw, "events")
	boxes := make([]models.BoxScore, 0, len(events))
	for _, ev := range events {
		event, ok := ev.(map[string]interface{})
		if !ok {
			continue
		}
		header, err := parseGameHeader(event)
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping scoreboard event")
			continue
		}
		header.GameDate = date

		if header.Status != models.GameFinal {
			boxes = append(boxes, header)
			continue
		}

		box, err := c.BoxScore(ctx, header.GameID)
		if err != nil {
			c.logger.Warn().Err(err).Str("game_id", header.GameID).Msg("box score unavailable")
			header.Status = models.GameUnknown
			boxes = append(boxes, header)
			continue
		}
		box.GameDate = date
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// BoxScore returns one game's final player lines
func (c *Client) BoxScore(ctx context.Context, gameID string) (models.BoxScore, error) {
	raw, err := c.FetchGameSummary(ctx, gameID)
	if err != nil {
		return models.BoxScore{}, err
	}
	box, err := ParseBoxScore(raw)
	if err != nil {
		return models.BoxScore{}, fmt.Errorf("parse box score %s: %w", gameID, err)
	}
	if box.GameID == "" {
		box.GameID = gameID
	}
	return box, nil
}

// Injuries returns the league injury report, refreshed every 30 minutes
func (c *Client) Injuries(ctx context.Context) ([]models.InjuryReport, error) {
	reports, err := c.injuryIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.InjuryReport, 0, len(reports))
	for _, r := range reports {
		out = append(out, r)
	}
	return out, nil
}

// Status returns a player's designation. Players not on the report are available.
func (c *Client) Status(ctx context.Context, playerName string) (models.InjuryStatus, error) {
	reports, err := c.injuryIndex(ctx)
	if err != nil {
		return models.InjuryUnknown, err
	}
	if r, ok := reports[models.NormalizeName(playerName)]; ok {
		return r.Status, nil
	}
	return models.InjuryAvailable, nil
}

func (c *Client) injuryIndex(ctx context.Context) (map[string]models.InjuryReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.injuries != nil && c.now().Sub(c.injuriesAt) < injuryTTL {
		return c.injuries, nil
	}

	var raw map[string]interface{}
	endpoint := fmt.Sprintf("%s/%s/injuries", c.baseURL, SportPath)
	if err := c.http.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch injuries: %w", err)
	}

	index := make(map[string]models.InjuryReport)
	for _, r := range ParseInjuries(raw) {
		index[models.NormalizeName(r.PlayerName)] = r
	}
	c.injuries = index
	c.injuriesAt = c.now()
	c.logger.Debug().Int("players", len(index)).Msg("injury report refreshed")
	return index, nil
}
