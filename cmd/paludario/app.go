package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tia2694/paludario/internal/localstore"
	"github.com/tia2694/paludario/internal/remote"
	syncstore "github.com/tia2694/paludario/internal/sync"
	"github.com/tia2694/paludario/internal/ui"
)

// app is the set of components every command works with.
type app struct {
	db     *localstore.DB
	local  *localstore.Store
	client *remote.Client
	store  *syncstore.Store
}

// openApp opens the local database and builds the remote client and store.
// The token comes from the config, else from the one saved by login.
func openApp(ctx context.Context) (*app, error) {
	db, err := localstore.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	local := localstore.New(db, logger.Named("local"))

	token := cfg.GitHub.Token
	if token == "" {
		token, err = local.Token(ctx)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	client := remote.New(remote.Config{
		Owner:   cfg.GitHub.Owner,
		Repo:    cfg.GitHub.Repo,
		Branch:  cfg.GitHub.Branch,
		Token:   token,
		BaseURL: cfg.GitHub.APIURL,
	}, logger.Named("remote"))

	store := syncstore.New(local, client, syncstore.Config{
		Paths:           syncstore.DefaultPaths(cfg.GitHub.DataDir),
		Interval:        cfg.Sync.Interval,
		ConflictRetries: cfg.Sync.ConflictRetries,
		Backoff:         cfg.Sync.Backoff,
	}, logger.Named("sync"))

	return &app{db: db, local: local, client: client, store: store}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// withStore opens the app, loads the aggregate and runs fn.
func withStore(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := a.store.Load(ctx)
	if out.Err != nil {
		fmt.Fprintf(os.Stderr, "%s Remote not available, using local data: %v\n", ui.RenderWarn("⚠"), out.Err)
	}
	return fn(ctx, a)
}

// printOutcome reports where a change was saved.
func printOutcome(out syncstore.Outcome) {
	switch out.Status {
	case syncstore.Synced:
		fmt.Printf("%s Saved and synced\n", ui.RenderPass("✓"))
	case syncstore.LocalOnly:
		if out.Err != nil {
			fmt.Printf("%s Saved locally, remote not updated: %v\n", ui.RenderWarn("⚠"), out.Err)
		} else {
			fmt.Printf("%s Saved locally %s\n", ui.RenderPass("✓"), ui.RenderMuted("(no remote configured)"))
		}
	case syncstore.Skipped:
		fmt.Printf("%s Saved locally, a sync was already running\n", ui.RenderWarn("⚠"))
	case syncstore.Failed:
		fmt.Printf("%s Save failed: %v\n", ui.RenderFail("✗"), out.Err)
	}
}

// printJSON writes v to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
