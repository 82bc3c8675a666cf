package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tia2694/paludario/internal/config"
	"github.com/tia2694/paludario/internal/ui"
)

var (
	loginToken string
	loginOwner string
	loginRepo  string
)

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "account",
	Short:   "Validate and store a GitHub token",
	Long: `Validate a GitHub personal access token against the configured
repository and store it in the local database.

The token needs read and write access to the repository contents. It is
read from --token, from PALUDARIO_GITHUB_TOKEN, or prompted for when the
terminal is interactive.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if loginOwner != "" || loginRepo != "" {
			if loginOwner != "" {
				if err := config.Set(configFile, "github.owner", loginOwner); err != nil {
					return err
				}
				cfg.GitHub.Owner = loginOwner
			}
			if loginRepo != "" {
				if err := config.Set(configFile, "github.repo", loginRepo); err != nil {
					return err
				}
				cfg.GitHub.Repo = loginRepo
			}
		}
		if !cfg.RemoteConfigured() {
			return fmt.Errorf("repository not configured: pass --owner and --repo")
		}

		token := strings.TrimSpace(loginToken)
		if token == "" {
			token = cfg.GitHub.Token
		}
		if token == "" {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("no token given: pass --token or set PALUDARIO_GITHUB_TOKEN")
			}
			err := huh.NewInput().
				Title("GitHub token").
				Description(fmt.Sprintf("Personal access token with contents access to %s/%s", cfg.GitHub.Owner, cfg.GitHub.Repo)).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("token cannot be empty")
					}
					return nil
				}).
				Value(&token).
				Run()
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			token = strings.TrimSpace(token)
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		a.client.SetToken(token)
		if err := a.client.ValidateToken(ctx); err != nil {
			return fmt.Errorf("token rejected: %w", err)
		}
		if err := a.local.SetToken(ctx, token); err != nil {
			return err
		}

		fmt.Printf("%s Logged in to %s\n", ui.RenderPass("✓"), a.client.Repository())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "account",
	Short:   "Remove the stored GitHub token",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.local.ClearToken(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("%s Token removed\n", ui.RenderPass("✓"))
		if cfg.GitHub.Token != "" {
			fmt.Printf("%s A token is still set in the config or environment\n", ui.RenderWarn("⚠"))
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "GitHub personal access token")
	loginCmd.Flags().StringVar(&loginOwner, "owner", "", "repository owner, saved to the config file")
	loginCmd.Flags().StringVar(&loginRepo, "repo", "", "repository name, saved to the config file")

	rootCmd.AddCommand(loginCmd, logoutCmd)
}
