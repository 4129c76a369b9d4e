package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anna-farino/RiskAi-sub010/app"
	"github.com/anna-farino/RiskAi-sub010/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "riskctl",
	Short: "Discover and extract threat-intel articles from the command line",
	Long: `riskctl runs the scraping pipeline in-process, without the HTTP server.

Configuration comes from the same RISKAI_* environment variables the
server reads. Results are printed as JSON on stdout; logs go to stderr.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Log.Level = lvl
		}
		app.InitLogger(cfg.Log, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override RISKAI_LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(discoverCmd, extractCmd)
}

// withApp builds the pipeline, runs fn and tears it down. SIGINT cancels ctx.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	defer a.Close()

	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
