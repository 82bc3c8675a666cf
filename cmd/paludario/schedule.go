package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/schedule"
	syncstore "github.com/tia2694/paludario/internal/sync"
	"github.com/tia2694/paludario/internal/ui"
)

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	GroupID: "data",
	Short:   "Daily spray, fan and lighting plan",
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the day plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			tpl := a.store.Snapshot().DayTemplate
			if jsonOutput {
				return printJSON(tpl)
			}

			fmt.Printf("\n%s Spray\n", ui.RenderAccent("💧"))
			fmt.Println(renderIntervals(tpl.Spray))
			fmt.Printf("\n%s Fan\n", ui.RenderAccent("🌀"))
			fmt.Println(renderIntervals(tpl.Fan))
			fmt.Printf("\n%s Lights\n", ui.RenderAccent("💡"))
			if len(tpl.Lights) == 0 {
				fmt.Println(ui.RenderMuted("  none"))
			} else {
				headers := []string{"Time"}
				for _, c := range model.Channels {
					headers = append(headers, fmt.Sprintf("Ch%d", c))
				}
				rows := make([][]string, 0, len(tpl.Lights))
				for _, k := range tpl.Lights {
					row := []string{k.Time.String()}
					for _, c := range model.Channels {
						row = append(row, formatValue(k.Get(c)))
					}
					rows = append(rows, row)
				}
				fmt.Println(ui.Table(headers, rows))
			}
			fmt.Println()
			return nil
		})
	},
}

func renderIntervals(items []model.Interval) string {
	if len(items) == 0 {
		return ui.RenderMuted("  none")
	}
	rows := make([][]string, len(items))
	for i, iv := range items {
		rows[i] = []string{strconv.Itoa(i + 1), iv.Start.String(), iv.End.String()}
	}
	return ui.Table([]string{"#", "Start", "End"}, rows)
}

func intervalCmd(kind syncstore.IntervalKind, short string) *cobra.Command {
	return &cobra.Command{
		Use:     fmt.Sprintf("%s <start> <end>", kind),
		Short:   short,
		Example: fmt.Sprintf("  paludario schedule %s 08:00 08:05", kind),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				var (
					out syncstore.Outcome
					err error
				)
				if kind == syncstore.Spray {
					out, err = a.store.AddSprayInterval(ctx, args[0], args[1])
				} else {
					out, err = a.store.AddFanInterval(ctx, args[0], args[1])
				}
				if err != nil {
					return err
				}
				fmt.Printf("%s Added %s %s-%s\n", ui.RenderPass("✓"), kind, args[0], args[1])
				printOutcome(out)
				return nil
			})
		},
	}
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <spray|fan> <position>",
	Short: "Remove an interval by its position in 'schedule show'",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseIndex(args[1])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.RemoveInterval(ctx, syncstore.IntervalKind(args[0]), idx)
			if err != nil {
				return err
			}
			fmt.Printf("%s Removed %s interval %s\n", ui.RenderPass("✓"), args[0], args[1])
			printOutcome(out)
			return nil
		})
	},
}

var scheduleChannelCmd = &cobra.Command{
	Use:   "channel <1-5> [HH:MM=percent...]",
	Short: "Replace the keyframes of a lighting channel",
	Long: `Replace every keyframe of one lighting channel. Values are clamped to
0-100. With no keyframes the channel is cleared.`,
	Example: `  paludario schedule channel 1 07:00=0 08:00=80 20:00=80 21:00=0`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || !model.Channel(n).Valid() {
			return fmt.Errorf("invalid channel %q: expected 1-%d", args[0], model.ChannelCount)
		}
		items, err := parseKeyframes(args[1:])
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.SetChannel(ctx, model.Channel(n), items)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Printf("%s Cleared channel %d\n", ui.RenderPass("✓"), n)
			} else {
				fmt.Printf("%s Set %d keyframes on channel %d\n", ui.RenderPass("✓"), len(items), n)
			}
			printOutcome(out)
			return nil
		})
	},
}

var scheduleSunCmd = &cobra.Command{
	Use:   "sun",
	Short: "Show sunrise and sunset derived from the lighting plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			sun := schedule.ComputeSun(a.store.Snapshot().DayTemplate.Lights)
			if jsonOutput {
				return printJSON(sun)
			}
			fmt.Printf("Sunrise: %s\n", formatMinute(sun.Sunrise))
			fmt.Printf("Sunset:  %s\n", formatMinute(sun.Sunset))
			fmt.Printf("Noon:    %s\n", formatMinute(sun.Noon))
			fmt.Printf("Moon:    %s\n", formatMinute(sun.Moon))
			return nil
		})
	},
}

func formatMinute(m *int) string {
	if m == nil {
		return ui.RenderMuted("-")
	}
	return model.ClockTime(*m % model.MinutesPerDay).String()
}

func init() {
	scheduleCmd.AddCommand(
		scheduleShowCmd,
		intervalCmd(syncstore.Spray, "Add a spray interval"),
		intervalCmd(syncstore.Fan, "Add a fan interval"),
		scheduleRemoveCmd,
		scheduleChannelCmd,
		scheduleSunCmd,
	)
	rootCmd.AddCommand(scheduleCmd)
}
