package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// performanceCmd prints the settled record
var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Show win rate, leg hit rate and profit of settled parlays",
	Long: `Aggregate settled parlays from the database.

Examples:
  sgp-engine performance
  sgp-engine performance --season 2026 --season-type regular
  sgp-engine performance --format json`,
	RunE: runPerformance,
}

var (
	perfSeason     int
	perfSeasonType string
	perfFormat     string
)

func init() {
	rootCmd.AddCommand(performanceCmd)

	performanceCmd.Flags().IntVar(&perfSeason, "season", 0, "Season by ending year (default all)")
	performanceCmd.Flags().StringVar(&perfSeasonType, "season-type", "", "Season phase (default all)")
	performanceCmd.Flags().StringVar(&perfFormat, "format", "table", "Output format: table, json")
}

func runPerformance(cmd *cobra.Command, args []string) error {
	var seasonType models.SeasonType
	if perfSeasonType != "" {
		st, err := models.ParseSeasonType(perfSeasonType)
		if err != nil {
			return err
		}
		seasonType = st
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	summary, err := repo.PerformanceSummary(ctx, perfSeason, seasonType)
	if err != nil {
		return fmt.Errorf("failed to compute performance: %w", err)
	}

	switch perfFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case "table":
		return writePerformance(os.Stdout, summary)
	}
	return fmt.Errorf("unknown format %q", perfFormat)
}

func writePerformance(out io.Writer, s models.PerformanceSummary) error {
	scope := "all seasons"
	if s.Season != 0 {
		scope = fmt.Sprintf("season %d", s.Season)
	}
	if s.SeasonType != "" {
		scope += " " + string(s.SeasonType)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SGP performance (%s)\n", scope)
	fmt.Fprintf(w, "Parlays\t%d\n", s.Parlays)
	fmt.Fprintf(w, "Record\t%d-%d (%d void)\n", s.Wins, s.Losses, s.Voids)
	fmt.Fprintf(w, "Win rate\t%.1f%%\n", s.WinRate*100)
	fmt.Fprintf(w, "Legs hit\t%d of %d (%.1f%%)\n", s.LegsHit, s.LegsTotal, s.LegHitRate*100)
	fmt.Fprintf(w, "Profit\t$%.2f\n", s.TotalProfit)
	return w.Flush()
}
