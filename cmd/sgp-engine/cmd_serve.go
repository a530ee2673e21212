package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/orchestrator"
)

// serveCmd runs the scheduled pipeline and the read API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled pipeline and serve the read API",
	Long: `Serve the read-only HTTP API and run the pipeline on a schedule:
a full settle-then-generate pass every generation.interval and an extra
settlement pass every settlement.interval for games that end late.

Examples:
  sgp-engine serve
  sgp-engine serve --api-only
  SGP_SERVER_PORT=9000 sgp-engine serve --config config.yaml`,
	RunE: runServe,
}

var serveAPIOnly bool

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveAPIOnly, "api-only", false, "Serve the API without the scheduled pipeline")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := handlers.NewHandler(a.repo, a.repo, a.logger)
	server := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      handlers.NewRouter(handler, a.cfg.Server.AllowedOrigins, a.metrics.Handler()),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("✓ SGP engine API listening on %s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	if !serveAPIOnly {
		wg.Add(2)
		go func() {
			defer wg.Done()
			fmt.Printf("✓ Pipeline scheduled every %s\n", a.cfg.Generation.Interval)
			_ = a.orchestrator.Start(ctx, orchestrator.Options{})
		}()
		go func() {
			defer wg.Done()
			// Let the first pipeline pass settle before the hourly loop starts
			select {
			case <-time.After(time.Minute):
			case <-ctx.Done():
				return
			}
			// Settle-only passes share the pipeline's run lock
			fmt.Printf("✓ Settlement scheduled every %s\n", a.cfg.Settlement.Interval)
			_ = a.orchestrator.Every(ctx, a.cfg.Settlement.Interval, orchestrator.Options{SettleOnly: true})
		}()
	}

	select {
	case <-ctx.Done():
		fmt.Println("\n✓ Shutting down gracefully...")
	case err = <-errCh:
		fmt.Printf("❌ %v\n", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		fmt.Printf("❌ Shutdown error: %v\n", shutdownErr)
	}
	wg.Wait()

	fmt.Println("✓ SGP engine stopped")
	return err
}
