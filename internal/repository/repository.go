package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// ErrNotFound is returned when a parlay does not exist
var ErrNotFound = errors.New("not found")

//go:embed schema.sql
var schema string

const dateLayout = "2006-01-02"

// Repository persists parlays, legs and settlements in Postgres
type Repository struct {
	db *sqlx.DB
}

// Open connects to Postgres and configures the pool
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(db), nil
}

// New wraps an existing connection
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tables if they do not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Ping checks the connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the pool
func (r *Repository) Close() error {
	return r.db.Close()
}

type parlayRow struct {
	ID                 string    `db:"id"`
	Type               string    `db:"parlay_type"`
	GameID             string    `db:"game_id"`
	GameDate           time.Time `db:"game_date"`
	HomeTeam           string    `db:"home_team"`
	AwayTeam           string    `db:"away_team"`
	GameSlot           string    `db:"game_slot"`
	TotalLegs          int       `db:"total_legs"`
	CombinedPrice      int       `db:"combined_price"`
	ImpliedProbability float64   `db:"implied_probability"`
	Narrative          string    `db:"narrative"`
	GameTotal          *float64  `db:"game_total"`
	Spread             *float64  `db:"spread"`
	Season             int       `db:"season"`
	SeasonType         string    `db:"season_type"`
	CreatedAt          time.Time `db:"created_at"`
}

func toParlayRow(p *models.Parlay) parlayRow {
	return parlayRow{
		ID:                 p.ID,
		Type:               string(p.Type),
		GameID:             p.GameID,
		GameDate:           p.GameDate,
		HomeTeam:           p.HomeTeam,
		AwayTeam:           p.AwayTeam,
		GameSlot:           p.GameSlot,
		TotalLegs:          p.TotalLegs,
		CombinedPrice:      p.CombinedPrice,
		ImpliedProbability: p.ImpliedProbability,
		Narrative:          p.Narrative,
		GameTotal:          p.GameTotal,
		Spread:             p.Spread,
		Season:             p.Season,
		SeasonType:         string(p.SeasonType),
		CreatedAt:          p.CreatedAt,
	}
}

func (row parlayRow) model() models.Parlay {
	return models.Parlay{
		ID:                 row.ID,
		Type:               models.ParlayType(row.Type),
		GameID:             row.GameID,
		GameDate:           time.Date(row.GameDate.Year(), row.GameDate.Month(), row.GameDate.Day(), 0, 0, 0, 0, time.UTC),
		HomeTeam:           row.HomeTeam,
		AwayTeam:           row.AwayTeam,
		GameSlot:           row.GameSlot,
		TotalLegs:          row.TotalLegs,
		CombinedPrice:      row.CombinedPrice,
		ImpliedProbability: row.ImpliedProbability,
		Narrative:          row.Narrative,
		GameTotal:          row.GameTotal,
		Spread:             row.Spread,
		Season:             row.Season,
		SeasonType:         models.SeasonType(row.SeasonType),
		CreatedAt:          row.CreatedAt,
	}
}

// legRow adds the JSON columns to the leg fields
type legRow struct {
	models.Leg
	SignalsJSON []byte `db:"signals"`
	ReasonsJSON []byte `db:"supporting_reasons"`
}

func toLegRow(l models.Leg) (legRow, error) {
	signals := l.Signals
	if signals == nil {
		signals = map[models.SignalType]float64{}
	}
	sj, err := json.Marshal(signals)
	if err != nil {
		return legRow{}, fmt.Errorf("marshal signals: %w", err)
	}
	reasons := l.SupportingReasons
	if reasons == nil {
		reasons = []string{}
	}
	rj, err := json.Marshal(reasons)
	if err != nil {
		return legRow{}, fmt.Errorf("marshal reasons: %w", err)
	}
	if l.Result == "" {
		l.Result = models.OutcomePending
	}
	return legRow{Leg: l, SignalsJSON: sj, ReasonsJSON: rj}, nil
}

func (row legRow) model() (models.Leg, error) {
	l := row.Leg
	if len(row.SignalsJSON) > 0 {
		if err := json.Unmarshal(row.SignalsJSON, &l.Signals); err != nil {
			return models.Leg{}, fmt.Errorf("unmarshal signals of leg %s: %w", l.ID, err)
		}
	}
	if len(row.ReasonsJSON) > 0 {
		if err := json.Unmarshal(row.ReasonsJSON, &l.SupportingReasons); err != nil {
			return models.Leg{}, fmt.Errorf("unmarshal reasons of leg %s: %w", l.ID, err)
		}
	}
	return l, nil
}

const (
	parlayColumns = `id, parlay_type, game_id, game_date, home_team, away_team, game_slot,
		total_legs, combined_price, implied_probability, narrative, game_total, spread,
		season, season_type, created_at`

	legColumns = `id, parlay_id, leg_number, player_name, player_id, team, stat_type, line,
		direction, price, edge_pct, confidence, confidence_tier, model_probability,
		market_probability, signals, primary_reason, supporting_reasons, actual_value,
		result, void_reason`
)

const upsertParlay = `
	INSERT INTO sgp_parlays (` + parlayColumns + `)
	VALUES (:id, :parlay_type, :game_id, :game_date, :home_team, :away_team, :game_slot,
		:total_legs, :combined_price, :implied_probability, :narrative, :game_total, :spread,
		:season, :season_type, :created_at)
	ON CONFLICT (season, season_type, parlay_type, game_id) DO UPDATE SET
		game_date = EXCLUDED.game_date,
		home_team = EXCLUDED.home_team,
		away_team = EXCLUDED.away_team,
		game_slot = EXCLUDED.game_slot,
		total_legs = EXCLUDED.total_legs,
		combined_price = EXCLUDED.combined_price,
		implied_probability = EXCLUDED.implied_probability,
		narrative = EXCLUDED.narrative,
		game_total = EXCLUDED.game_total,
		spread = EXCLUDED.spread
	RETURNING id`

const insertLeg = `
	INSERT INTO sgp_legs (` + legColumns + `)
	VALUES (:id, :parlay_id, :leg_number, :player_name, :player_id, :team, :stat_type, :line,
		:direction, :price, :edge_pct, :confidence, :confidence_tier, :model_probability,
		:market_probability, :signals, :primary_reason, :supporting_reasons, :actual_value,
		:result, :void_reason)`

// UpsertParlay writes p under its key (season, season type, parlay type,
// game). An existing parlay for the key keeps its id and creation time; its
// legs and any settlement are replaced. p.ID is set to the stored id.
func (r *Repository) UpsertParlay(ctx context.Context, p *models.Parlay) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	query, args, err := tx.BindNamed(upsertParlay, toParlayRow(p))
	if err != nil {
		return fmt.Errorf("bind parlay %s: %w", p.Key(), err)
	}
	var id string
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("upsert parlay %s: %w", p.Key(), err)
	}
	p.ID = id

	if _, err := tx.ExecContext(ctx, `DELETE FROM sgp_settlements WHERE parlay_id = $1`, id); err != nil {
		return fmt.Errorf("delete previous settlement %s: %w", p.Key(), err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sgp_legs WHERE parlay_id = $1`, id); err != nil {
		return fmt.Errorf("delete previous legs %s: %w", p.Key(), err)
	}

	for i := range p.Legs {
		if p.Legs[i].ID == "" {
			p.Legs[i].ID = uuid.New().String()
		}
		p.Legs[i].ParlayID = id
		row, err := toLegRow(p.Legs[i])
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertLeg, row); err != nil {
			return fmt.Errorf("insert leg %d of %s: %w", row.LegNumber, p.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// GetUnsettledParlays returns parlays dated before the given day that have
// no settlement, legs included
func (r *Repository) GetUnsettledParlays(ctx context.Context, before time.Time) ([]models.Parlay, error) {
	var rows []parlayRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+prefixed("p", parlayColumns)+`
		FROM sgp_parlays p
		LEFT JOIN sgp_settlements s ON s.parlay_id = p.id
		WHERE s.id IS NULL AND p.game_date < $1
		ORDER BY p.game_date, p.game_id`, before.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query unsettled parlays: %w", err)
	}
	return r.hydrate(ctx, rows, false)
}

// RecordSettlement writes leg results and the settlement in one transaction.
// Re-recording a parlay overwrites the previous settlement.
func (r *Repository) RecordSettlement(ctx context.Context, s models.Settlement, legs []models.Leg) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.SettledAt.IsZero() {
		s.SettledAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback()

	for _, l := range legs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE sgp_legs SET actual_value = $1, result = $2, void_reason = $3
			WHERE id = $4`,
			l.ActualValue, string(l.Result), l.VoidReason, l.ID,
		); err != nil {
			return fmt.Errorf("update leg %s: %w", l.ID, err)
		}
	}

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO sgp_settlements (id, parlay_id, legs_hit, total_legs, result, profit, settled_at)
		VALUES (:id, :parlay_id, :legs_hit, :total_legs, :result, :profit, :settled_at)
		ON CONFLICT (parlay_id) DO UPDATE SET
			legs_hit = EXCLUDED.legs_hit,
			total_legs = EXCLUDED.total_legs,
			result = EXCLUDED.result,
			profit = EXCLUDED.profit,
			settled_at = EXCLUDED.settled_at`, s,
	); err != nil {
		return fmt.Errorf("insert settlement %s: %w", s.ParlayID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}

// ClearSettlementsForDate deletes the settlements of a game date and resets
// its legs to pending. It returns the number of settlements removed.
func (r *Repository) ClearSettlementsForDate(ctx context.Context, date time.Time) (int64, error) {
	day := date.Format(dateLayout)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM sgp_settlements s
		USING sgp_parlays p
		WHERE s.parlay_id = p.id AND p.game_date = $1`, day)
	if err != nil {
		return 0, fmt.Errorf("delete settlements for %s: %w", day, err)
	}
	cleared, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared settlements: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sgp_legs l SET result = $1, actual_value = NULL, void_reason = ''
		FROM sgp_parlays p
		WHERE l.parlay_id = p.id AND p.game_date = $2`, string(models.OutcomePending), day,
	); err != nil {
		return 0, fmt.Errorf("reset legs for %s: %w", day, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clear: %w", err)
	}
	return cleared, nil
}

// GetParlaysByDate returns the parlays of one game date with legs and
// settlements
func (r *Repository) GetParlaysByDate(ctx context.Context, date time.Time) ([]models.Parlay, error) {
	var rows []parlayRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+parlayColumns+`
		FROM sgp_parlays
		WHERE game_date = $1
		ORDER BY game_id, parlay_type`, date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query parlays for %s: %w", date.Format(dateLayout), err)
	}
	return r.hydrate(ctx, rows, true)
}

// GetParlay returns one parlay or ErrNotFound
func (r *Repository) GetParlay(ctx context.Context, id string) (*models.Parlay, error) {
	var row parlayRow
	err := r.db.GetContext(ctx, &row, `SELECT `+parlayColumns+` FROM sgp_parlays WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query parlay %s: %w", id, err)
	}

	parlays, err := r.hydrate(ctx, []parlayRow{row}, true)
	if err != nil {
		return nil, err
	}
	return &parlays[0], nil
}

// PerformanceSummary aggregates settled parlays. Zero season or empty
// season type means all.
func (r *Repository) PerformanceSummary(ctx context.Context, season int, seasonType models.SeasonType) (models.PerformanceSummary, error) {
	var agg struct {
		Parlays     int     `db:"parlays"`
		Wins        int     `db:"wins"`
		Losses      int     `db:"losses"`
		Voids       int     `db:"voids"`
		LegsHit     int     `db:"legs_hit"`
		LegsTotal   int     `db:"legs_total"`
		TotalProfit float64 `db:"total_profit"`
	}
	err := r.db.GetContext(ctx, &agg, `
		SELECT
			COUNT(*) AS parlays,
			COUNT(*) FILTER (WHERE s.result = 'WIN') AS wins,
			COUNT(*) FILTER (WHERE s.result = 'LOSS') AS losses,
			COUNT(*) FILTER (WHERE s.result = 'VOID') AS voids,
			COALESCE(SUM(s.legs_hit), 0) AS legs_hit,
			COALESCE(SUM(s.total_legs), 0) AS legs_total,
			COALESCE(SUM(s.profit), 0) AS total_profit
		FROM sgp_settlements s
		JOIN sgp_parlays p ON p.id = s.parlay_id
		WHERE ($1 = 0 OR p.season = $1) AND ($2 = '' OR p.season_type = $2)`,
		season, string(seasonType))
	if err != nil {
		return models.PerformanceSummary{}, fmt.Errorf("query performance: %w", err)
	}

	summary := models.PerformanceSummary{
		Season:      season,
		SeasonType:  seasonType,
		Parlays:     agg.Parlays,
		Wins:        agg.Wins,
		Losses:      agg.Losses,
		Voids:       agg.Voids,
		LegsHit:     agg.LegsHit,
		LegsTotal:   agg.LegsTotal,
		TotalProfit: models.Round(agg.TotalProfit, 2),
	}
	if decided := agg.Wins + agg.Losses; decided > 0 {
		summary.WinRate = models.Round(float64(agg.Wins)/float64(decided), 4)
	}
	if agg.LegsTotal > 0 {
		summary.LegHitRate = models.Round(float64(agg.LegsHit)/float64(agg.LegsTotal), 4)
	}
	return summary, nil
}

// hydrate loads legs, and optionally settlements, for a page of parlays
func (r *Repository) hydrate(ctx context.Context, rows []parlayRow, withSettlements bool) ([]models.Parlay, error) {
	if len(rows) == 0 {
		return []models.Parlay{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var legRows []legRow
	if err := r.db.SelectContext(ctx, &legRows, `
		SELECT `+legColumns+`
		FROM sgp_legs
		WHERE parlay_id = ANY($1)
		ORDER BY parlay_id, leg_number`, pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("query legs: %w", err)
	}
	legs := make(map[string][]models.Leg, len(rows))
	for _, lr := range legRows {
		l, err := lr.model()
		if err != nil {
			return nil, err
		}
		legs[l.ParlayID] = append(legs[l.ParlayID], l)
	}

	settlements := make(map[string]models.Settlement)
	if withSettlements {
		var settled []models.Settlement
		if err := r.db.SelectContext(ctx, &settled, `
			SELECT id, parlay_id, legs_hit, total_legs, result, profit, settled_at
			FROM sgp_settlements
			WHERE parlay_id = ANY($1)`, pq.Array(ids),
		); err != nil {
			return nil, fmt.Errorf("query settlements: %w", err)
		}
		for _, s := range settled {
			settlements[s.ParlayID] = s
		}
	}

	parlays := make([]models.Parlay, 0, len(rows))
	for _, row := range rows {
		p := row.model()
		p.Legs = legs[p.ID]
		if s, ok := settlements[p.ID]; ok {
			s := s
			p.Settlement = &s
		}
		parlays = append(parlays, p)
	}
	return parlays, nil
}

// prefixed qualifies a column list with a table alias
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
