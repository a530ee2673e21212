package settler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

var gameDay = time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)

type fakeStore struct {
	parlays  []models.Parlay
	settled  map[string]models.Settlement
	legs     map[string][]models.Leg
	fetchErr error
	calls    int
}

func newFakeStore(parlays ...models.Parlay) *fakeStore {
	return &fakeStore{
		parlays: parlays,
		settled: make(map[string]models.Settlement),
		legs:    make(map[string][]models.Leg),
	}
}

func (f *fakeStore) UpsertParlay(context.Context, *models.Parlay) error { return nil }

func (f *fakeStore) GetUnsettledParlays(_ context.Context, before time.Time) ([]models.Parlay, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []models.Parlay
	for _, p := range f.parlays {
		if _, done := f.settled[p.ID]; !done && p.GameDate.Before(before) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) RecordSettlement(_ context.Context, s models.Settlement, legs []models.Leg) error {
	f.calls++
	f.settled[s.ParlayID] = s
	f.legs[s.ParlayID] = legs
	return nil
}

func (f *fakeStore) ClearSettlementsForDate(context.Context, time.Time) (int64, error) {
	n := int64(len(f.settled))
	f.settled = make(map[string]models.Settlement)
	return n, nil
}

type fakeBoxes struct {
	boxes []models.BoxScore
	err   error
}

func (f fakeBoxes) BoxScores(context.Context, time.Time) ([]models.BoxScore, error) {
	return f.boxes, f.err
}

func (f fakeBoxes) BoxScore(_ context.Context, id string) (models.BoxScore, error) {
	for _, b := range f.boxes {
		if b.GameID == id {
			return b, nil
		}
	}
	return models.BoxScore{}, errors.New("not found")
}

type recordingPublisher struct {
	settlements []models.Settlement
}

func (r *recordingPublisher) PublishParlay(context.Context, models.Parlay) error { return nil }

func (r *recordingPublisher) PublishSettlement(_ context.Context, _ models.Parlay, s models.Settlement) error {
	r.settlements = append(r.settlements, s)
	return nil
}

func row(name, team string, minutes float64, pts, reb, ast float64) models.PlayerLine {
	return models.PlayerLine{
		PlayerName: name,
		Team:       team,
		Minutes:    minutes,
		Stats: map[string]float64{
			models.ColPoints:   pts,
			models.ColRebounds: reb,
			models.ColAssists:  ast,
		},
	}
}

func leg(n int, player, team string, stat models.StatType, line float64, dir models.Direction) models.Leg {
	return models.Leg{
		ID:         "leg-" + player,
		ParlayID:   "p1",
		LegNumber:  n,
		PlayerName: player,
		Team:       team,
		StatType:   stat,
		Line:       line,
		Direction:  dir,
		Price:      -110,
		Result:     models.OutcomePending,
	}
}

func testParlay(legs ...models.Leg) models.Parlay {
	return models.Parlay{
		ID:            "p1",
		GameID:        "evt-1",
		GameDate:      gameDay,
		HomeTeam:      "BOS",
		AwayTeam:      "NYK",
		TotalLegs:     len(legs),
		CombinedPrice: 596,
		Legs:          legs,
	}
}

func finalBox(players ...models.PlayerLine) models.BoxScore {
	return models.BoxScore{
		GameID:   "401585000",
		GameDate: gameDay,
		HomeTeam: "BOS",
		AwayTeam: "NYK",
		Status:   models.GameFinal,
		Players:  players,
	}
}

func newTestSettler(store *fakeStore, boxes fakeBoxes, cfg Config) *Settler {
	return NewSettler(store, boxes, nil, cfg, nil, zerolog.Nop())
}

func TestSettleLeg(t *testing.T) {
	tests := []struct {
		name   string
		leg    models.Leg
		player *models.PlayerLine
		want   models.Outcome
		actual *float64
	}{
		{
			"rebounds over hits",
			leg(1, "Jayson Tatum", "BOS", models.StatRebounds, 11.5, models.DirectionOver),
			&models.PlayerLine{Minutes: 36, Stats: map[string]float64{models.ColRebounds: 14}},
			models.OutcomeWin, floatPtr(14),
		},
		{
			"zero minutes voids regardless of stats",
			leg(1, "Jayson Tatum", "BOS", models.StatRebounds, 11.5, models.DirectionOver),
			&models.PlayerLine{Minutes: 0, Stats: map[string]float64{models.ColRebounds: 14}},
			models.OutcomeVoid, floatPtr(0),
		},
		{
			"under misses",
			leg(1, "Jayson Tatum", "BOS", models.StatPoints, 24.5, models.DirectionUnder),
			&models.PlayerLine{Minutes: 30, Stats: map[string]float64{models.ColPoints: 31}},
			models.OutcomeLoss, floatPtr(31),
		},
		{
			"under hits",
			leg(1, "Jayson Tatum", "BOS", models.StatPoints, 24.5, models.DirectionUnder),
			&models.PlayerLine{Minutes: 30, Stats: map[string]float64{models.ColPoints: 19}},
			models.OutcomeWin, floatPtr(19),
		},
		{
			"whole number line pushes",
			leg(1, "Jayson Tatum", "BOS", models.StatAssists, 6, models.DirectionOver),
			&models.PlayerLine{Minutes: 30, Stats: map[string]float64{models.ColAssists: 6}},
			models.OutcomePush, floatPtr(6),
		},
		{
			"combo sums components",
			leg(1, "Jayson Tatum", "BOS", models.StatPRA, 40.5, models.DirectionOver),
			&models.PlayerLine{Minutes: 38, Stats: map[string]float64{models.ColPoints: 28, models.ColRebounds: 9, models.ColAssists: 5}},
			models.OutcomeWin, floatPtr(42),
		},
		{
			"missing column voids",
			leg(1, "Jayson Tatum", "BOS", models.StatThrees, 2.5, models.DirectionOver),
			&models.PlayerLine{Minutes: 30, Stats: map[string]float64{models.ColPoints: 20}},
			models.OutcomeVoid, nil,
		},
		{
			"unmatched player voids",
			leg(1, "Jayson Tatum", "BOS", models.StatPoints, 24.5, models.DirectionOver),
			nil,
			models.OutcomeVoid, nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SettleLeg(tt.leg, tt.player)
			assert.Equal(t, tt.want, got.Result)
			assert.Equal(t, tt.actual, got.ActualValue)
			if tt.want == models.OutcomeVoid {
				assert.NotEmpty(t, got.VoidReason)
			} else {
				assert.Empty(t, got.VoidReason)
			}
		})
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestRollUp(t *testing.T) {
	W, L, P, V := models.OutcomeWin, models.OutcomeLoss, models.OutcomePush, models.OutcomeVoid

	legsOf := func(results ...models.Outcome) []models.Leg {
		legs := make([]models.Leg, len(results))
		for i, r := range results {
			legs[i].Result = r
		}
		return legs
	}

	tests := []struct {
		name    string
		results []models.Outcome
		void    Policy
		push    Policy
		want    models.Outcome
	}{
		{"all win", []models.Outcome{W, W, W}, PolicyReduce, PolicyReduce, W},
		{"win with void reduces", []models.Outcome{W, W, V}, PolicyReduce, PolicyReduce, W},
		{"any loss loses", []models.Outcome{W, W, L}, PolicyReduce, PolicyReduce, L},
		{"loss beats void", []models.Outcome{V, V, L}, PolicyReduce, PolicyReduce, L},
		{"all void", []models.Outcome{V, V, V}, PolicyReduce, PolicyReduce, V},
		{"all void even under loss policy", []models.Outcome{V, V, V}, PolicyLoss, PolicyLoss, V},
		{"push reduces", []models.Outcome{W, P, W}, PolicyReduce, PolicyReduce, W},
		{"all push is void", []models.Outcome{P, P, P}, PolicyReduce, PolicyReduce, V},
		{"push and void only", []models.Outcome{P, V, V}, PolicyReduce, PolicyReduce, V},
		{"push loss policy", []models.Outcome{W, P, W}, PolicyReduce, PolicyLoss, L},
		{"void loss policy", []models.Outcome{W, W, V}, PolicyLoss, PolicyReduce, L},
		{"pending leg", []models.Outcome{W, models.OutcomePending, W}, PolicyReduce, PolicyReduce, models.OutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RollUp(legsOf(tt.results...), tt.void, tt.push))
		})
	}
}

func TestSettleParlay(t *testing.T) {
	s := newTestSettler(newFakeStore(), fakeBoxes{}, DefaultConfig())

	p := testParlay(
		leg(1, "Jayson Tatum", "BOS", models.StatRebounds, 11.5, models.DirectionOver),
		leg(2, "Jalen Brunson", "NYK", models.StatPoints, 27.5, models.DirectionOver),
		leg(3, "Kristaps Porzingis", "BOS", models.StatPoints, 18.5, models.DirectionUnder),
	)

	t.Run("all hit pays the combined price", func(t *testing.T) {
		box := finalBox(
			row("Jayson Tatum", "BOS", 37, 30, 14, 6),
			row("Jalen Brunson", "NYK", 35, 33, 3, 7),
			row("Kristaps Porzingis", "BOS", 28, 12, 8, 1),
		)
		settlement, legs, err := s.SettleParlay(p, &box)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeWin, settlement.Result)
		assert.Equal(t, 3, settlement.LegsHit)
		assert.Equal(t, 3, settlement.TotalLegs)
		assert.Equal(t, 596.0, settlement.Profit)
		assert.Equal(t, "p1", settlement.ParlayID)
		assert.NotEmpty(t, settlement.ID)
		require.Len(t, legs, 3)
		assert.Equal(t, models.OutcomePending, p.Legs[0].Result, "input legs must not change")
	})

	t.Run("void leg reduces the price", func(t *testing.T) {
		box := finalBox(
			row("Jayson Tatum", "BOS", 37, 30, 14, 6),
			row("Jalen Brunson", "NYK", 35, 33, 3, 7),
			row("Kristaps Porzingis", "BOS", 0, 0, 0, 0),
		)
		settlement, legs, err := s.SettleParlay(p, &box)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeWin, settlement.Result)
		assert.Equal(t, 2, settlement.LegsHit)
		assert.Equal(t, 264.0, settlement.Profit)
		assert.Equal(t, ReasonDidNotPlay, legs[2].VoidReason)
	})

	t.Run("a miss loses the stake", func(t *testing.T) {
		box := finalBox(
			row("Jayson Tatum", "BOS", 37, 30, 14, 6),
			row("Jalen Brunson", "NYK", 35, 21, 3, 7),
			row("Kristaps Porzingis", "BOS", 28, 12, 8, 1),
		)
		settlement, _, err := s.SettleParlay(p, &box)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeLoss, settlement.Result)
		assert.Equal(t, 2, settlement.LegsHit)
		assert.Equal(t, -100.0, settlement.Profit)
	})

	t.Run("postponed game voids every leg", func(t *testing.T) {
		box := finalBox()
		box.Status = models.GamePostponed
		settlement, legs, err := s.SettleParlay(p, &box)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeVoid, settlement.Result)
		assert.Equal(t, 0.0, settlement.Profit)
		for _, l := range legs {
			assert.Equal(t, models.OutcomeVoid, l.Result)
			assert.Equal(t, ReasonGameVoided, l.VoidReason)
		}
	})

	t.Run("live game is not settled", func(t *testing.T) {
		box := finalBox()
		box.Status = models.GameLive
		_, _, err := s.SettleParlay(p, &box)
		assert.True(t, errors.Is(err, ErrGameNotFinal))
	})

	t.Run("unreadable box score waits for a later run", func(t *testing.T) {
		box := finalBox()
		box.Status = models.GameUnknown
		box.Players = nil
		_, _, err := s.SettleParlay(p, &box)
		assert.True(t, errors.Is(err, ErrGameNotFinal))
	})

	t.Run("missing box score", func(t *testing.T) {
		_, _, err := s.SettleParlay(p, nil)
		assert.True(t, errors.Is(err, ErrNoBoxScore))
	})
}

func TestSettleDate(t *testing.T) {
	p := testParlay(
		leg(1, "Luka Doncic", "NYK", models.StatPoints, 30.5, models.DirectionOver),
		leg(2, "Jaren Jackson Jr.", "NYK", models.StatRebounds, 6.5, models.DirectionOver),
		leg(3, "Jayson Tatum", "BOS", models.StatAssists, 5.5, models.DirectionUnder),
	)
	box := finalBox(
		row("Luka Dončić", "NYK", 38, 35, 9, 10),
		row("Jaren Jackson", "NYK", 31, 18, 8, 1),
		row("Jayson Tatum", "BOS", 36, 26, 10, 4),
	)
	box.GameID = "401585123"

	store := newFakeStore(p)
	pub := &recordingPublisher{}
	s := NewSettler(store, fakeBoxes{boxes: []models.BoxScore{box}}, pub, DefaultConfig(), nil, zerolog.Nop())

	summary, err := s.SettleDate(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ParlaysFound)
	assert.Equal(t, 1, summary.ParlaysSettled)
	assert.Equal(t, 1, summary.Wins)
	assert.Empty(t, summary.Errors)
	require.Len(t, pub.settlements, 1)

	legs := store.legs["p1"]
	require.Len(t, legs, 3)
	assert.Equal(t, 35.0, *legs[0].ActualValue)
	assert.Equal(t, 8.0, *legs[1].ActualValue)

	// a second pass over the same data finds nothing left to settle
	again, err := s.SettleDate(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, 0, again.ParlaysFound)
	assert.Equal(t, 1, store.calls)
}

func TestSettleDateIsDeterministic(t *testing.T) {
	p := testParlay(
		leg(1, "Jayson Tatum", "BOS", models.StatRebounds, 11.5, models.DirectionOver),
		leg(2, "Jalen Brunson", "NYK", models.StatPoints, 27.5, models.DirectionOver),
		leg(3, "Kristaps Porzingis", "BOS", models.StatPoints, 18.5, models.DirectionUnder),
	)
	boxes := fakeBoxes{boxes: []models.BoxScore{finalBox(
		row("Jayson Tatum", "BOS", 37, 30, 14, 6),
		row("Jalen Brunson", "NYK", 35, 33, 3, 7),
	)}}

	store := newFakeStore(p)
	s := newTestSettler(store, boxes, DefaultConfig())

	_, err := s.SettleDate(context.Background(), gameDay)
	require.NoError(t, err)
	first := store.settled["p1"]
	firstLegs := store.legs["p1"]

	// corrective re-run replays identical input
	_, err = store.ClearSettlementsForDate(context.Background(), gameDay)
	require.NoError(t, err)
	_, err = s.SettleDate(context.Background(), gameDay)
	require.NoError(t, err)

	second := store.settled["p1"]
	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, first.LegsHit, second.LegsHit)
	assert.Equal(t, first.Profit, second.Profit)
	assert.Equal(t, firstLegs, store.legs["p1"])
	assert.Equal(t, ReasonPlayerNotFound, firstLegs[2].VoidReason)
}

func TestSettleDateErrors(t *testing.T) {
	t.Run("store failure is fatal", func(t *testing.T) {
		store := newFakeStore()
		store.fetchErr = errors.New("connection refused")
		_, err := newTestSettler(store, fakeBoxes{}, DefaultConfig()).SettleDate(context.Background(), gameDay)
		assert.Error(t, err)
	})

	t.Run("box score outage is reported and skipped", func(t *testing.T) {
		store := newFakeStore(testParlay(leg(1, "Jayson Tatum", "BOS", models.StatPoints, 24.5, models.DirectionOver)))
		summary, err := newTestSettler(store, fakeBoxes{err: errors.New("timeout")}, DefaultConfig()).SettleDate(context.Background(), gameDay)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.ParlaysFound)
		assert.Equal(t, 0, summary.ParlaysSettled)
		assert.Len(t, summary.Errors, 1)
	})

	t.Run("game not on the slate is reported", func(t *testing.T) {
		store := newFakeStore(testParlay(leg(1, "Jayson Tatum", "BOS", models.StatPoints, 24.5, models.DirectionOver)))
		other := finalBox()
		other.HomeTeam, other.AwayTeam = "LAL", "DEN"
		summary, err := newTestSettler(store, fakeBoxes{boxes: []models.BoxScore{other}}, DefaultConfig()).SettleDate(context.Background(), gameDay)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.ParlaysSettled)
		require.Len(t, summary.Errors, 1)
		assert.Contains(t, summary.Errors[0], "no box score")
	})

	t.Run("future parlays are left alone", func(t *testing.T) {
		future := testParlay(leg(1, "Jayson Tatum", "BOS", models.StatPoints, 24.5, models.DirectionOver))
		future.GameDate = gameDay.AddDate(0, 0, 1)
		store := newFakeStore(future)
		summary, err := newTestSettler(store, fakeBoxes{}, DefaultConfig()).SettleDate(context.Background(), gameDay)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.ParlaysFound)
	})
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.PushPolicy = "refund"
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Stake = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Interval = 0
	assert.Error(t, bad.Validate())
}
