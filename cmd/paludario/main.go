// Command paludario manages paludarium records (water tests, the daily
// spray, fan and lighting plan, animals and air readings) and keeps them in
// sync with JSON documents in a GitHub repository.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tia2694/paludario/internal/config"
	"github.com/tia2694/paludario/internal/logging"
	"github.com/tia2694/paludario/internal/ui"
)

var (
	// Global flags
	configFile string
	verbose    bool
	jsonOutput bool

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "paludario",
	Short: "Paludarium records synced with GitHub",
	Long: `paludario keeps the records of a paludarium: water chemistry tests, the
daily spray, fan and lighting plan, the animal inventory and air readings.

Data is stored locally and mirrored to three JSON documents in a GitHub
repository, so the browser dashboard and this tool see the same data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Options{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			File:    cfg.Log.File,
			Verbose: verbose,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Records:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "account", Title: "Account:"},
	)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.paludario/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("✗"), err)
		os.Exit(1)
	}
}
