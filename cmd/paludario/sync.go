package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tia2694/paludario/internal/daemon"
	"github.com/tia2694/paludario/internal/model"
	syncstore "github.com/tia2694/paludario/internal/sync"
	"github.com/tia2694/paludario/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push local data, then reload from the remote",
	Long: `Force a full synchronisation with the GitHub repository.

This performs:
  1. Push the local copy of all three documents
  2. Reload the remote documents over the local copy`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.client.Configured() {
			return fmt.Errorf("remote not configured: set github.owner and github.repo, then run 'paludario login'")
		}

		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("🔄"), a.client.Repository())
		start := time.Now()
		if err := a.store.LoadLocal(cmd.Context()); err != nil {
			return err
		}
		out := a.store.ForceSync(cmd.Context())
		if out.Status != syncstore.Synced {
			printOutcome(out)
			return nil
		}
		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:     "pull",
	GroupID: "sync",
	Short:   "Overlay remote documents on the local copy",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := a.store.Load(cmd.Context())
		switch {
		case out.Err != nil:
			fmt.Printf("%s Remote not available: %v\n", ui.RenderWarn("⚠"), out.Err)
		case out.Status == syncstore.LocalOnly:
			fmt.Printf("%s No remote configured, nothing to pull\n", ui.RenderWarn("⚠"))
		case out.Changed:
			fmt.Printf("%s Pulled remote data\n", ui.RenderPass("✓"))
		default:
			fmt.Printf("%s Already up to date\n", ui.RenderPass("✓"))
		}
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:     "push",
	GroupID: "sync",
	Short:   "Push the local copy to the remote",
	Long: `Push the local copy to the GitHub repository without pulling first.
Remote changes made since the last sync are overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.LoadLocal(cmd.Context()); err != nil {
			return err
		}
		printOutcome(a.store.Save(cmd.Context()))
		return nil
	},
}

// statusReport is the JSON form of the status command.
type statusReport struct {
	Repository   string          `json:"repository,omitempty"`
	Branch       string          `json:"branch"`
	Token        bool            `json:"token"`
	Storage      string          `json:"storage"`
	ConfigFile   string          `json:"configFile,omitempty"`
	Water        int             `json:"water"`
	Animals      int             `json:"animals"`
	AirReadings  int             `json:"airReadings"`
	LastReading  model.Timestamp `json:"lastReading"`
	RemoteChange *bool           `json:"remoteChange,omitempty"`
}

var statusCheck bool

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show local data and sync configuration",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.LoadLocal(ctx); err != nil {
			return err
		}
		snap := a.store.Snapshot()
		report := statusReport{
			Branch:      cfg.GitHub.Branch,
			Token:       a.client.Token() != "",
			Storage:     a.db.Path(),
			ConfigFile:  cfg.File,
			Water:       len(snap.Water),
			Animals:     len(snap.Settings.Animals),
			AirReadings: len(snap.Settings.AirReadings),
		}
		if cfg.RemoteConfigured() {
			report.Repository = a.client.Repository()
		}
		if len(snap.Water) > 0 {
			report.LastReading = model.NewestFirst(snap.Water)[0].Timestamp
		}

		if statusCheck && a.client.Configured() {
			changed := remoteDiffers(ctx, a)
			report.RemoteChange = &changed
		}
	
		if jsonOutput {
			return printJSON(report)
		}

		fmt.Printf("\n%s %s\n\n", ui.RenderAccent(snap.Settings.Icon), ui.RenderBold(snap.Settings.Title))
		if report.Repository != "" {
			fmt.Printf("Repository: %s (%s)\n", report.Repository, report.Branch)
		} else {
			fmt.Printf("Repository: %s\n", ui.RenderMuted("not configured"))
		}
		if report.Token {
			fmt.Printf("Token: %s\n", ui.RenderPass("set"))
		} else {
			fmt.Printf("Token: %s\n", ui.RenderWarn("missing"))
		}
		fmt.Printf("Storage: %s\n", report.Storage)
		if report.ConfigFile != "" {
			fmt.Printf("Config: %s\n", report.ConfigFile)
		}
		fmt.Printf("Water readings: %d\n", report.Water)
		if !report.LastReading.IsZero() {
			fmt.Printf("Last reading: %s\n", report.LastReading.Format("2006-01-02 15:04"))
		}
		fmt.Printf("Animals: %d\n", report.Animals)
		fmt.Printf("Air readings: %d\n", report.AirReadings)
		if report.RemoteChange != nil {
			if *report.RemoteChange {
				fmt.Printf("Remote: %s\n", ui.RenderWarn("has changes, run 'paludario pull'"))
			} else {
				fmt.Printf("Remote: %s\n", ui.RenderPass("matches local data"))
			}
		}
		fmt.Println()
		return nil
	},
}

// remoteDiffers loads the remote overlay into a second store over the same
// local data and reports whether anything changed, leaving the local copy
// untouched.
func remoteDiffers(ctx context.Context, a *app) bool {
	base := syncstore.Digest(a.store.Snapshot())
	probe := syncstore.New(readOnly{a.local}, a.client, syncstore.Config{
		Paths: syncstore.DefaultPaths(cfg.GitHub.DataDir),
	}, logger.Named("status"))
	probe.Load(ctx)
	return syncstore.Digest(probe.Snapshot()) != base
}

// readOnly drops writes so a probe load cannot touch the local copy.
type readOnly struct {
	syncstore.Local
}

func (readOnly) SaveAggregate(context.Context, model.Aggregate) error { return nil }

var daemonPort int

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run auto-sync and the live dashboard feed (foreground)",
	Long: `Run the sync daemon in the foreground.

The daemon will:
  1. Load local data and overlay the remote documents
  2. Check the remote for changes every sync.interval
  3. Serve a WebSocket feed of changes when notify.port is set
  4. Publish changes to MQTT when notify.mqtt_broker is set
  5. Reload the config file when it changes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		dcfg := daemon.FromAppConfig(cfg, logger.Named("daemon"))
		if cmd.Flags().Changed("port") {
			dcfg.ServeDashboard = daemonPort >= 0
			dcfg.Port = daemonPort
		}

		d, err := daemon.New(a.store, a.client, dcfg)
		if err != nil {
			return err
		}

		fmt.Printf("%s Starting paludario daemon...\n", ui.RenderAccent("🚀"))
		if a.client.Configured() {
			fmt.Printf("   Repository: %s\n", a.client.Repository())
		} else {
			fmt.Printf("   Repository: %s\n", ui.RenderMuted("not configured, local only"))
		}
		fmt.Printf("   Interval: %s\n", cfg.Sync.Interval)
		fmt.Printf("   Storage: %s\n", a.db.Path())
		go func() {
			select {
			case <-d.Started():
				if addr := d.Addr(); addr != "" {
					fmt.Printf("   Dashboard: ws://%s/ws\n", addr)
				}
				fmt.Printf("\nPress Ctrl+C to stop\n\n")
			case <-cmd.Context().Done():
			}
		}()

		return d.Start(cmd.Context())
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "compare with the remote documents")
	daemonCmd.Flags().IntVar(&daemonPort, "port", 0, "dashboard port (0 picks a free port, -1 disables)")

	rootCmd.AddCommand(syncCmd, pullCmd, pushCmd, statusCmd, daemonCmd)
}
