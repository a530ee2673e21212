package nbastats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/httpclient"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/retry"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

func writeSets(t *testing.T, w http.ResponseWriter, sets ...ResultSet) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(Response{ResultSets: sets}))
}

type statsServer struct {
	*httptest.Server
	leagueCalls int32
}

func newStatsServer(t *testing.T) *statsServer {
	t.Helper()
	s := &statsServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/leaguedashplayerstats", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.leagueCalls, 1)
		assert.Equal(t, "2025-26", r.URL.Query().Get("Season"))
		assert.Equal(t, "stats", r.Header.Get("x-nba-stats-origin"))
		if r.URL.Query().Get("MeasureType") == "Advanced" {
			writeSets(t, w, ResultSet{
				Name:    "LeagueDashPlayerStats",
				Headers: []string{"PLAYER_ID", "PLAYER_NAME", "USG_PCT"},
				RowSet:  [][]interface{}{{1628369, "Jayson Tatum", 0.301}, {1629029, "Luka Dončić", 0.356}},
			})
			return
		}
		writeSets(t, w, ResultSet{
			Name:    "LeagueDashPlayerStats",
			Headers: []string{"PLAYER_ID", "PLAYER_NAME", "TEAM_ABBREVIATION", "GP", "MIN", "PTS", "REB", "AST", "FG3M", "TOV"},
			RowSet: [][]interface{}{
				{1628369, "Jayson Tatum", "BOS", 40, 36.2, 27.1, 8.4, 4.9, 3.1, 2.6},
				{1629029, "Luka Dončić", "LAL", 35, 37.0, 33.5, 9.1, 8.8, 4.0, 3.9},
			},
		})
	})

	mux.HandleFunc("/leaguedashteamstats", func(w http.ResponseWriter, r *http.Request) {
		writeSets(t, w, ResultSet{
			Name:    "LeagueDashTeamStats",
			Headers: []string{"TEAM_ID", "TEAM_NAME", "DEF_RATING", "PACE", "OREB_PCT", "DREB_PCT"},
			RowSet: [][]interface{}{
				{1610612738, "Boston Celtics", 108.4, 97.2, 0.28, 0.74},
				{1610612752, "New York Knicks", 112.9, 96.1, 0.31, 0.71},
			},
		})
	})

	mux.HandleFunc("/leaguegamelog", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "T", r.URL.Query().Get("PlayerOrTeam"))
		writeSets(t, w, ResultSet{
			Name:    "LeagueGameLog",
			Headers: []string{"TEAM_ABBREVIATION", "GAME_ID", "GAME_DATE"},
			RowSet: [][]interface{}{
				{"BOS", "0022500601", "2026-01-13"},
				{"BOS", "0022500580", "2026-01-10"},
				{"BOS", "0022500590", "2026-01-12"},
				{"NYK", "0022500585", "2026-01-11"},
			},
		})
	})

	mux.HandleFunc("/playergamelog", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1628369", r.URL.Query().Get("PlayerID"))
		writeSets(t, w, ResultSet{
			Name:    "PlayerGameLog",
			Headers: []string{"Game_ID", "GAME_DATE", "MATCHUP", "MIN", "PTS", "REB", "AST", "TOV", "FG3M"},
			RowSet: [][]interface{}{
				{"0022500590", "JAN 12, 2026", "BOS vs. MIA", 35, 31, 9, 4, 2, 4},
				{"0022500601", "JAN 13, 2026", "BOS @ PHI", 38, 24, 11, 6, 3, 2},
				{"0022500580", "JAN 10, 2026", "BOS vs. CHI", 33, 29, 7, 5, 1, 3},
				{"bad", "not a date", "BOS @ ???", 0, 0, 0, 0, 0, 0},
			},
		})
	})

	mux.HandleFunc("/playerdashptreb", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("PlayerID") != "1628369" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeSets(t, w, ResultSet{
			Name:    "OverallRebounding",
			Headers: []string{"PLAYER_ID", "REB_FREQUENCY", "C_REB_PCT", "UC_REB_PCT"},
			RowSet:  [][]interface{}{{1628369, 1, 0.31, 0.69}},
		})
	})

	mux.HandleFunc("/playerdashptpass", func(w http.ResponseWriter, r *http.Request) {
		writeSets(t, w, ResultSet{
			Name:    "PassesMade",
			Headers: []string{"PASS_TO", "PASS", "AST"},
			RowSet:  [][]interface{}{{"White, Derrick", 12.0, 1.5}, {"Brown, Jaylen", 8.0, 0.5}},
		})
	})

	s.Server = httptest.NewServer(mux)
	return s
}

func newTestClient(server *statsServer) *Client {
	hc := httpclient.New(httpclient.Config{
		Name:    "nbastats",
		Headers: DefaultHeaders(),
		Retry:   retry.Policy{MaxAttempts: 1},
	}, nil, zerolog.Nop())
	c := New(hc, server.URL, zerolog.Nop())
	c.now = func() time.Time { return time.Date(2026, 1, 14, 15, 0, 0, 0, time.UTC) }
	return c
}

func TestFindPlayer(t *testing.T) {
	server := newStatsServer(t)
	defer server.Close()
	c := newTestClient(server)
	ctx := context.Background()

	ref, err := c.FindPlayer(ctx, "Luka Doncic")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerRef{ID: 1629029, Name: "Luka Dončić", Team: "LAL"}, ref)

	_, err = c.FindPlayer(ctx, "Nobody Special")
	assert.True(t, errors.Is(err, ErrPlayerNotFound))

	_, err = c.TeamDefense(ctx, "NYK")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&server.leagueCalls), "league tables are cached")
}

func TestSeasonAverages(t *testing.T) {
	server := newStatsServer(t)
	defer server.Close()
	c := newTestClient(server)

	avg, err := c.SeasonAverages(context.Background(), 1628369)
	require.NoError(t, err)

	assert.Equal(t, 40, avg.GamesPlayed)
	assert.Equal(t, 36.2, avg.MinutesPerGame)
	assert.Equal(t, 30.1, avg.UsagePct)
	assert.Equal(t, 27.1, avg.Stats[models.ColPoints])
	assert.Equal(t, 2.6, avg.Stats[models.ColTurnovers])
	assert.Equal(t, 3.1, avg.Stats[models.ColThrees])
	assert.Equal(t, 1.0, avg.RebFrequency)
	assert.Equal(t, 0.31, avg.ContestedRebPct)
	assert.Equal(t, 0.69, avg.UncontestedRebPct)
	assert.Equal(t, 0.1, avg.PassToAstRate)
	assert.True(t, avg.IsHighValue())
}

func TestSeasonAveragesTrackingUnavailable(t *testing.T) {
	server := newStatsServer(t)
	defer server.Close()
	c := newTestClient(server)

	avg, err := c.SeasonAverages(context.Background(), 1629029)
	require.NoError(t, err)
	assert.Equal(t, 35.6, avg.UsagePct)
	assert.Zero(t, avg.RebFrequency)
	assert.Equal(t, 0.1, avg.PassToAstRate)

	_, err = c.SeasonAverages(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrPlayerNotFound))
}

func TestRecentGames(t *testing.T) {
	server := newStatsServer(t)
	defer server.Close()
	c := newTestClient(server)

	logs, err := c.RecentGames(context.Background(), 1628369, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, "0022500601", logs[0].GameID, "newest first")
	assert.Equal(t, time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC), logs[0].GameDate)
	assert.Equal(t, 38.0, logs[0].Minutes)
	assert.Equal(t, 3.0, logs[0].Stats[models.ColTurnovers])
	assert.Equal(t, "0022500590", logs[1].GameID)

	pra, ok := models.StatPRA.Sum(logs[0].Stats)
	require.True(t, ok)
	assert.Equal(t, 41.0, pra)
}

func TestTeamDefense(t *testing.T) {
	server := newStatsServer(t)
	defer server.Close()
	c := newTestClient(server)

	d, err := c.TeamDefense(context.Background(), "Boston Celtics")
	require.NoError(t, err)
	assert.Equal(t, models.TeamDefense{Team: "BOS", DefRating: 108.4, Pace: 97.2, OrebPct: 0.28, DrebPct: 0.74}, d)

	_, err = c.TeamDefense(context.Background(), "SEA")
	assert.True(t, errors.Is(err, ErrTeamNotFound))
}

func TestScheduleContext(t *testing.T) {
	server := newStatsServer(t)
	defer server.Close()
	c := newTestClient(server)
	date := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		team string
		want models.ScheduleContext
	}{
		{"BOS", models.ScheduleContext{Team: "BOS", IsB2B: true, Is3In4: true, DaysRest: 0}},
		{"NYK", models.ScheduleContext{Team: "NYK", DaysRest: 2}},
		{"MIA", models.ScheduleContext{Team: "MIA", DaysRest: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.team, func(t *testing.T) {
			got, err := c.ScheduleContext(context.Background(), tt.team, date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeasonString(t *testing.T) {
	assert.Equal(t, "2025-26", SeasonString(time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-26", SeasonString(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2099-00", SeasonString(time.Date(2099, 11, 1, 0, 0, 0, 0, time.UTC)))
}

func TestResponseTable(t *testing.T) {
	resp := Response{ResultSet: &ResultSet{Name: "Only", Headers: []string{"A", "B"}, RowSet: [][]interface{}{{1.0}}}}

	rows, err := resp.Table("Only")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Int("A"))
	assert.Zero(t, rows[0].Float("B"))
	assert.Empty(t, rows[0].String("A"))

	_, err = resp.Table("Missing")
	assert.Error(t, err)
}

func TestUsePhaseReloadsTables(t *testing.T) {
	server := newStatsServer(t)
	defer server.Close()
	c := newTestClient(server)
	ctx := context.Background()

	c.UsePhase(models.SeasonRegular)
	_, err := c.FindPlayer(ctx, "Jayson Tatum")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&server.leagueCalls))

	c.UsePhase(models.SeasonCup)
	_, err = c.FindPlayer(ctx, "Jayson Tatum")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&server.leagueCalls), "cup games use regular season tables")

	c.UsePhase(models.SeasonPlayoffs)
	assert.Equal(t, SeasonTypePlayoff, c.seasonType)
	_, err = c.FindPlayer(ctx, "Jayson Tatum")
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&server.leagueCalls), "switching phase drops the cached tables")
}
