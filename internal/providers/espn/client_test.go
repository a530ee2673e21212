package espn

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
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

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T, injuryCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/basketball/nba/scoreboard", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20260114", r.URL.Query().Get("dates"))
		w.Write(fixture(t, "scoreboard.json"))
	})
	mux.HandleFunc("/basketball/nba/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("event") != "401585000" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(fixture(t, "summary.json"))
	})
	mux.HandleFunc("/basketball/nba/injuries", func(w http.ResponseWriter, r *http.Request) {
		if injuryCalls != nil {
			atomic.AddInt32(injuryCalls, 1)
		}
		w.Write(fixture(t, "injuries.json"))
	})
	return httptest.NewServer(mux)
}

func newTestClient(server *httptest.Server) *Client {
	hc := httpclient.New(httpclient.Config{
		Name:  "espn",
		Retry: retry.Policy{MaxAttempts: 1},
	}, nil, zerolog.Nop())
	return New(hc, server.URL, zerolog.Nop())
}

func TestBoxScores(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	day := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	boxes, err := newTestClient(server).BoxScores(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	final := boxes[0]
	assert.Equal(t, "401585000", final.GameID)
	assert.Equal(t, models.GameFinal, final.Status)
	assert.Equal(t, "BOS", final.HomeTeam)
	assert.Equal(t, "NYK", final.AwayTeam)
	assert.Equal(t, day, final.GameDate)
	require.Len(t, final.Players, 3)

	tatum := final.Players[0]
	assert.Equal(t, "Jayson Tatum", tatum.PlayerName)
	assert.Equal(t, "BOS", tatum.Team)
	assert.Equal(t, 37.0, tatum.Minutes)
	assert.Equal(t, 30.0, tatum.Stats[models.ColPoints])
	assert.Equal(t, 14.0, tatum.Stats[models.ColRebounds])
	assert.Equal(t, 4.0, tatum.Stats[models.ColThrees])
	assert.Equal(t, 11.0, tatum.Stats[models.ColFGM])
	pra, ok := tatum.Value(models.StatPRA)
	require.True(t, ok)
	assert.Equal(t, 50.0, pra)

	assert.True(t, final.Players[1].DNP)
	assert.False(t, final.Players[1].Played())

	brunson := final.Players[2]
	assert.Equal(t, "NYK", brunson.Team)
	assert.InDelta(t, 35.5, brunson.Minutes, 1e-9)

	postponed := boxes[1]
	assert.Equal(t, models.GamePostponed, postponed.Status)
	assert.True(t, postponed.Status.IsVoiding())
	assert.Empty(t, postponed.Players)
}

func TestBoxScoresKeepsFinalGameWhoseSummaryFails(t *testing.T) {
	scoreboard := bytes.Replace(fixture(t, "scoreboard.json"),
		[]byte(`"name": "STATUS_POSTPONED", "state": "post", "completed": false`),
		[]byte(`"name": "STATUS_FINAL", "state": "post", "completed": true`), 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/basketball/nba/scoreboard", func(w http.ResponseWriter, r *http.Request) {
		w.Write(scoreboard)
	})
	mux.HandleFunc("/basketball/nba/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("event") == "401585001" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(fixture(t, "summary.json"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	boxes, err := newTestClient(server).BoxScores(context.Background(), time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	assert.Equal(t, models.GameFinal, boxes[0].Status)
	assert.Equal(t, "401585001", boxes[1].GameID)
	assert.Equal(t, models.GameUnknown, boxes[1].Status)
	assert.Equal(t, "LAL", boxes[1].HomeTeam)
	assert.Empty(t, boxes[1].Players)
}

func TestBoxScoreNotFound(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	_, err := newTestClient(server).BoxScore(context.Background(), "999")
	assert.ErrorIs(t, err, httpclient.ErrDataUnavailable)
}

func TestInjuryStatus(t *testing.T) {
	var calls int32
	server := newTestServer(t, &calls)
	defer server.Close()

	c := newTestClient(server)
	ctx := context.Background()

	tests := []struct {
		player string
		want   models.InjuryStatus
	}{
		{"Kristaps Porzingis", models.InjuryOut},
		{"Jrue Holiday", models.InjuryDayToDay},
		{"Mitchell Robinson", models.InjurySuspended},
		{"Jayson Tatum", models.InjuryAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.player, func(t *testing.T) {
			got, err := c.Status(ctx, tt.player)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "report is cached between lookups")

	reports, err := c.Injuries(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 3)
}

func TestParseGameStatus(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]interface{}
		want models.GameStatus
	}{
		{"final", map[string]interface{}{"completed": true, "state": "post"}, models.GameFinal},
		{"live", map[string]interface{}{"state": "in"}, models.GameLive},
		{"scheduled", map[string]interface{}{"state": "pre"}, models.GameUpcoming},
		{"postponed", map[string]interface{}{"name": "STATUS_POSTPONED", "state": "post"}, models.GamePostponed},
		{"canceled", map[string]interface{}{"name": "STATUS_CANCELED"}, models.GameCancelled},
		{"empty", map[string]interface{}{}, models.GameUpcoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseGameStatus(tt.in))
		})
	}
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 0.0, parseMinutes("--"))
	assert.InDelta(t, 33.25, parseMinutes("33:15"), 1e-9)
	assert.Equal(t, 12.0, parseMade("12-24"))
	assert.Equal(t, 7.0, parseMade("7"))
	assert.Equal(t, 0.0, parseMade("-"))

	ts, err := parseCommenceTime("2026-01-15T00:30Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 30, 0, 0, time.UTC), ts)
}
