package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/orchestrator"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// runCmd executes one settle-then-generate pass
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Settle yesterday and generate parlays for a date",
	Long: `Run one pipeline pass: settle every pending parlay up to the previous
Eastern day, then score every prop of the date's games and store one parlay
per game. A second pass on the same date replaces the first.

Examples:
  sgp-engine run
  sgp-engine run --date 2026-01-14 --dry-run
  sgp-engine run --settle-only --resettle
  sgp-engine run --generate-only --season-type playoffs --force-refresh`,
	RunE: runPipeline,
}

var (
	runDate         string
	runDryRun       bool
	runForceRefresh bool
	runSettleOnly   bool
	runGenerateOnly bool
	runResettle     bool
	runSeasonType   string
	runJSON         bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "Eastern game date YYYY-MM-DD (default today)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Score and build without settling or writing")
	runCmd.Flags().BoolVar(&runForceRefresh, "force-refresh", false, "Refetch box scores and regenerate games that already started")
	runCmd.Flags().BoolVar(&runSettleOnly, "settle-only", false, "Only settle")
	runCmd.Flags().BoolVar(&runGenerateOnly, "generate-only", false, "Only generate")
	runCmd.Flags().BoolVar(&runResettle, "resettle", false, "Refetch box scores and clear the previous day's settlements before settling")
	runCmd.Flags().StringVar(&runSeasonType, "season-type", "", "Override the season phase (regular, cup, playin, playoffs)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run summary as JSON")
}

func runOptions() (orchestrator.Options, error) {
	opts := orchestrator.Options{
		DryRun:       runDryRun,
		ForceRefresh: runForceRefresh,
		SettleOnly:   runSettleOnly,
		GenerateOnly: runGenerateOnly,
		Resettle:     runResettle,
		SeasonType:   models.SeasonType(runSeasonType),
	}
	if runDate != "" {
		date, err := time.Parse("2006-01-02", runDate)
		if err != nil {
			return opts, fmt.Errorf("invalid --date %q: %w", runDate, err)
		}
		opts.Date = date
	}
	return opts, opts.Validate()
}

func runPipeline(cmd *cobra.Command, args []string) error {
	opts, err := runOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.orchestrator.Run(ctx, opts)
	if err != nil {
		return err
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(summary, opts.DryRun)
	return nil
}

func printSummary(s orchestrator.Summary, dryRun bool) {
	fmt.Printf("✓ %s  season %d (%s)\n", s.Date.Format("2006-01-02"), s.Season.Season, s.Season.Type)
	if s.ClearedSettlements > 0 {
		fmt.Printf("  Cleared settlements: %d\n", s.ClearedSettlements)
	}
	if st := s.Settlement; st != nil {
		fmt.Printf("  Settled: %d of %d (W %d / L %d / V %d)\n",
			st.ParlaysSettled, st.ParlaysFound, st.Wins, st.Losses, st.Voids)
	}
	fmt.Printf("  Games: %d found, %d skipped\n", s.GamesFound, s.GamesSkipped)
	fmt.Printf("  Props scored: %d\n", s.PropsEvaluated)
	fmt.Printf("  Parlays: %d (%d legs)\n", s.ParlaysGenerated, s.LegsGenerated)

	for _, p := range s.Parlays {
		fmt.Printf("\n  %s @ %s  [%s]  %+d\n", p.AwayTeam, p.HomeTeam, p.GameSlot, p.CombinedPrice)
		for _, l := range p.Legs {
			fmt.Printf("    %d. %s %s %.1f %s (%+d, edge %.1f%%, %s)\n",
				l.LegNumber, l.PlayerName, l.Direction, l.Line, l.StatType, l.Price, l.EdgePct, l.ConfidenceTier)
		}
		if p.Narrative != "" {
			fmt.Printf("    %s\n", p.Narrative)
		}
	}

	if dryRun {
		fmt.Println("\n  Dry run: nothing was written")
	}
	for _, e := range s.Errors {
		fmt.Printf("❌ %s\n", e)
	}
}
