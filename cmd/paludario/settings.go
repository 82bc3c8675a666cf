package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/ui"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	GroupID: "data",
	Short:   "Dashboard settings and water thresholds",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			s := a.store.Snapshot().Settings
			if jsonOutput {
				return printJSON(s)
			}
			fmt.Printf("\n%s %s\n", s.Icon, ui.RenderBold(s.Title))
			fmt.Printf("%s\n\n", ui.RenderMuted(s.Subtitle))
			if s.Liters > 0 {
				fmt.Printf("Volume: %s L\n", s.Liters)
			}
			fmt.Printf("Dark mode: %t\n", s.DarkMode)
			fmt.Printf("Mobile mode: %t\n", s.MobileMode)
			fmt.Printf("Locked: %t\n\n", s.LockedMode)

			rows := make([][]string, 0, len(model.Params))
			for _, p := range model.Params {
				th, ok := s.WaterThresholds[p]
				if !ok {
					continue
				}
				rows = append(rows, []string{strings.ToUpper(string(p)), formatValue(&th.Min), formatValue(&th.Max)})
			}
			fmt.Println(ui.Table([]string{"Param", "Min", "Max"}, rows))
			return nil
		})
	},
}

// settingKeys lists the keys accepted by 'settings set'.
var settingKeys = []string{"title", "subtitle", "icon", "liters", "dark", "mobile", "locked"}

// applySetting sets one named field from its string form.
func applySetting(s *model.Settings, key, value string) error {
	switch key {
	case "title":
		s.Title = value
	case "subtitle":
		s.Subtitle = value
	case "icon":
		s.Icon = value
	case "liters":
		l, err := model.ParseLiters(value)
		if err != nil {
			return err
		}
		s.Liters = l
	case "dark", "mobile", "locked":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not true or false", key, value)
		}
		switch key {
		case "dark":
			s.DarkMode = b
		case "mobile":
			s.MobileMode = b
		default:
			s.LockedMode = b
		}
	default:
		return fmt.Errorf("unknown setting %q: expected one of %s", key, strings.Join(settingKeys, ", "))
	}
	return nil
}

var settingsSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Change a setting (" + strings.Join(settingKeys, ", ") + ")",
	Example: `  paludario settings set title "Vasca del salotto"` + "\n" + `  paludario settings set dark true`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate before loading.
		probe := model.DefaultSettings()
		if err := applySetting(&probe, args[0], args[1]); err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.UpdateSettings(ctx, func(s *model.Settings) error {
				return applySetting(s, args[0], args[1])
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s Set %s\n", ui.RenderPass("✓"), args[0])
			printOutcome(out)
			return nil
		})
	},
}

var settingsThresholdsCmd = &cobra.Command{
	Use:     "thresholds <param> <min> <max>",
	Short:   "Set the acceptable range of a water parameter",
	Example: `  paludario settings thresholds ph 6.5 7.5`,
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := model.ParseParam(args[0])
		if err != nil {
			return err
		}
		minimum, err := parseRequired("min", args[1])
		if err != nil {
			return err
		}
		maximum, err := parseRequired("max", args[2])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.SetThresholds(ctx, p, *minimum, *maximum)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s range is now %s–%s\n", ui.RenderPass("✓"), strings.ToUpper(string(p)), args[1], args[2])
			printOutcome(out)
			return nil
		})
	},
}

var settingsResetThresholdsCmd = &cobra.Command{
	Use:   "reset-thresholds",
	Short: "Restore the default water thresholds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out := a.store.ResetThresholds(ctx)
			fmt.Printf("%s Thresholds reset\n", ui.RenderPass("✓"))
			printOutcome(out)
			return nil
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsThresholdsCmd, settingsResetThresholdsCmd)
	rootCmd.AddCommand(settingsCmd)
}
