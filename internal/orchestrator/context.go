package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/contracts"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

type averagesEntry struct {
	avgs models.SeasonAverages
	err  error
}

type logsEntry struct {
	logs []models.GameLog
	err  error
}

type defenseEntry struct {
	def models.TeamDefense
	err error
}

type scheduleEntry struct {
	sched models.ScheduleContext
	err   error
}

type playerEntry struct {
	ref models.PlayerRef
	err error
}

// runCache memoizes provider lookups for the lifetime of one run. A player
// appears in several props of a game and a team in every prop of its side.
// Failures are cached too so a dead endpoint is not retried per prop.
type runCache struct {
	stats    contracts.StatsProvider
	injuries contracts.InjuryProvider

	players   map[string]playerEntry
	injury    map[string]models.InjuryStatus
	averages  map[int]averagesEntry
	logs      map[int]logsEntry
	defense   map[string]defenseEntry
	schedules map[string]scheduleEntry
}

func newRunCache(stats contracts.StatsProvider, injuries contracts.InjuryProvider) *runCache {
	return &runCache{
		stats:     stats,
		injuries:  injuries,
		players:   make(map[string]playerEntry),
		injury:    make(map[string]models.InjuryStatus),
		averages:  make(map[int]averagesEntry),
		logs:      make(map[int]logsEntry),
		defense:   make(map[string]defenseEntry),
		schedules: make(map[string]scheduleEntry),
	}
}

func (c *runCache) player(ctx context.Context, name string) (models.PlayerRef, error) {
	key := models.NormalizeName(name)
	if e, ok := c.players[key]; ok {
		return e.ref, e.err
	}
	ref, err := c.stats.FindPlayer(ctx, name)
	c.players[key] = playerEntry{ref: ref, err: err}
	return ref, err
}

// injuryStatus reports unknown when the injury source fails
func (c *runCache) injuryStatus(ctx context.Context, name string) (models.InjuryStatus, error) {
	key := models.NormalizeName(name)
	if s, ok := c.injury[key]; ok {
		return s, nil
	}
	if c.injuries == nil {
		return models.InjuryAvailable, nil
	}
	s, err := c.injuries.Status(ctx, name)
	if err != nil {
		s = models.InjuryUnknown
	}
	c.injury[key] = s
	return s, err
}

func (c *runCache) seasonAverages(ctx context.Context, id int) (models.SeasonAverages, error) {
	if e, ok := c.averages[id]; ok {
		return e.avgs, e.err
	}
	avgs, err := c.stats.SeasonAverages(ctx, id)
	c.averages[id] = averagesEntry{avgs: avgs, err: err}
	return avgs, err
}

func (c *runCache) recentGames(ctx context.Context, id, lookback int) ([]models.GameLog, error) {
	if e, ok := c.logs[id]; ok {
		return e.logs, e.err
	}
	logs, err := c.stats.RecentGames(ctx, id, lookback)
	c.logs[id] = logsEntry{logs: logs, err: err}
	return logs, err
}

func (c *runCache) teamDefense(ctx context.Context, team string) (models.TeamDefense, error) {
	if e, ok := c.defense[team]; ok {
		return e.def, e.err
	}
	def, err := c.stats.TeamDefense(ctx, team)
	c.defense[team] = defenseEntry{def: def, err: err}
	return def, err
}

func (c *runCache) schedule(ctx context.Context, team string, date time.Time) (models.ScheduleContext, error) {
	key := team + ":" + date.Format("2006-01-02")
	if e, ok := c.schedules[key]; ok {
		return e.sched, e.err
	}
	sched, err := c.stats.ScheduleContext(ctx, team, date)
	c.schedules[key] = scheduleEntry{sched: sched, err: err}
	return sched, err
}

// buildContext assembles the inputs of one prop. It returns false when the
// prop must not be scored: the player is out, suspended, unknown to the
// statistics provider or not on either team. Any other failed lookup only
// marks the dependent signals unavailable.
func (o *Orchestrator) buildContext(ctx context.Context, run *runCache, game models.Game, lines models.GameLines, prop models.PropLine, log zerolog.Logger) (models.PropContext, bool) {
	plog := log.With().Str("player", prop.PlayerName).Str("stat", string(prop.StatType)).Logger()

	status, err := run.injuryStatus(ctx, prop.PlayerName)
	if err != nil {
		plog.Warn().Err(err).Msg("injury status unavailable")
	}
	if status.IsExcluded() {
		plog.Debug().Str("injury", string(status)).Msg("player excluded")
		return models.PropContext{}, false
	}

	ref, err := run.player(ctx, prop.PlayerName)
	if err != nil {
		plog.Debug().Err(err).Msg("player not resolved")
		return models.PropContext{}, false
	}

	team := models.TeamAbbreviation(ref.Team)
	home := models.TeamAbbreviation(game.HomeTeam)
	away := models.TeamAbbreviation(game.AwayTeam)
	var opponent string
	switch team {
	case home:
		opponent = away
	case away:
		opponent = home
	default:
		plog.Debug().Str("team", ref.Team).Msg("player not on either team")
		return models.PropContext{}, false
	}

	gameDate := models.EasternDate(game.CommenceTime)
	pc := models.PropContext{
		PlayerID:     ref.ID,
		PlayerName:   prop.PlayerName,
		Team:         team,
		StatType:     prop.StatType,
		Line:         prop.Line,
		OverPrice:    prop.OverPrice,
		UnderPrice:   prop.UnderPrice,
		OpponentTeam: opponent,
		GameDate:     gameDate,
		IsHome:       team == home,
		GameTotal:    lines.Total,
		Spread:       lines.Spread,
		InjuryStatus: status,
		Unavailable:  make(map[models.SignalType]bool),
	}

	avgs, err := run.seasonAverages(ctx, ref.ID)
	if err != nil {
		plog.Warn().Err(err).Msg("season averages unavailable")
		pc.Unavailable[models.SignalLineValue] = true
		pc.Unavailable[models.SignalTrend] = true
		pc.Unavailable[models.SignalUsage] = true
	} else {
		pc.GamesPlayed = avgs.GamesPlayed
		pc.MinutesPerGame = avgs.MinutesPerGame
		pc.UsagePct = avgs.UsagePct
		pc.RebFrequency = avgs.RebFrequency
		pc.ContestedRebPct = avgs.ContestedRebPct
		pc.UncontestedRebPct = avgs.UncontestedRebPct
		pc.PassToAstRate = avgs.PassToAstRate
		pc.IsHighValue = avgs.IsHighValue()
		if v, ok := prop.StatType.Sum(avgs.Stats); ok {
			pc.SeasonAvg = v
		}
	}

	logs, err := run.recentGames(ctx, ref.ID, o.config.RecentGames)
	if err != nil {
		plog.Warn().Err(err).Msg("recent games unavailable")
		pc.Unavailable[models.SignalTrend] = true
		pc.Unavailable[models.SignalUsage] = true
	} else {
		pc.RecentAvg, pc.RecentMinutes, _ = models.RecentAverage(logs, prop.StatType, o.config.RecentGames)
		pc.StatStdDev = models.StdDev(logs, prop.StatType)
	}

	def, err := run.teamDefense(ctx, opponent)
	if err != nil {
		plog.Warn().Err(err).Str("opponent", opponent).Msg("team defense unavailable")
		pc.Unavailable[models.SignalMatchup] = true
	} else {
		pc.OpponentDefRating = def.DefRating
		pc.OpponentPace = def.Pace
		pc.OpponentOrebPct = def.OrebPct
		pc.OpponentDrebPct = def.DrebPct
	}

	sched, err := run.schedule(ctx, team, gameDate)
	if err != nil {
		plog.Warn().Err(err).Msg("schedule context unavailable")
		pc.Unavailable[models.SignalEnvironment] = true
	} else {
		pc.IsB2B = sched.IsB2B
		pc.Is3In4 = sched.Is3In4
	}

	return pc, true
}
