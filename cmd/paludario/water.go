package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/ui"
)

var waterCmd = &cobra.Command{
	Use:     "water",
	GroupID: "data",
	Short:   "Water chemistry tests",
}

var (
	waterAt     string
	waterValues = map[model.Param]*string{}
	waterLimit  int
	waterYes    bool
)

var waterAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a water test",
	Example: `  paludario water add --ph 6.8 --kh 4 --temp 24.5
  paludario water add --at "yesterday 9pm" --no3 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := parseWhen(waterAt, time.Now())
		if err != nil {
			return err
		}
		values := map[model.Param]*float64{}
		for _, p := range model.Params {
			if !cmd.Flags().Changed(string(p)) {
				continue
			}
			v, err := parseRequired(string(p), *waterValues[p])
			if err != nil {
				return err
			}
			values[p] = v
		}
		if len(values) == 0 {
			return fmt.Errorf("no values given: set at least one of --%s", joinParams("/--"))
		}

		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			r, out, err := a.store.AddWaterReading(ctx, ts, values)
			if err != nil {
				return err
			}
			fmt.Printf("%s Added reading %s at %s\n", ui.RenderPass("✓"), r.ID, r.Timestamp.Format("2006-01-02 15:04"))
			printOutcome(out)
			return nil
		})
	},
}

var waterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List water tests, newest first, with the change from the previous test",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			snap := a.store.Snapshot()
			if jsonOutput {
				return printJSON(model.NewestFirst(snap.Water))
			}
			if len(snap.Water) == 0 {
				fmt.Println("No water readings yet")
				return nil
			}
			fmt.Println(renderWater(snap.Water, snap.Settings.WaterThresholds, waterLimit))
			return nil
		})
	},
}

// renderWater builds the reading table. Out-of-range values are highlighted
// and each value carries its trend against the previous reading.
func renderWater(water []model.WaterReading, thresholds model.Thresholds, limit int) string {
	chrono := model.Chronological(water)
	headers := []string{"ID", "Date"}
	for _, p := range model.Params {
		headers = append(headers, strings.ToUpper(string(p)))
	}

	var rows [][]string
	for i := len(chrono) - 1; i >= 0; i-- {
		if limit > 0 && len(rows) == limit {
			break
		}
		r := chrono[i]
		row := []string{string(r.ID), r.Timestamp.Format("2006-01-02 15:04")}
		for _, p := range model.Params {
			row = append(row, renderCell(chrono, i, p, thresholds))
		}
		rows = append(rows, row)
	}
	return ui.Table(headers, rows)
}

func renderCell(chrono []model.WaterReading, idx int, p model.Param, thresholds model.Thresholds) string {
	v := chrono[idx].Value(p)
	if v == nil {
		return ui.RenderMuted("-")
	}
	cell := formatValue(v)
	if thresholds.IsOutOfRange(p, v) {
		cell = ui.RenderWarn(cell)
	}
	variation, ok := model.ComputeVariation(chrono, idx, p)
	if !ok {
		return cell
	}
	arrow := "→"
	switch {
	case variation.Percent > 0:
		arrow = "↑"
	case variation.Percent < 0:
		arrow = "↓"
	}
	label := fmt.Sprintf("%s%.1f%%", arrow, variation.Percent)
	switch thresholds.Direction(p, *v, variation.Previous, variation.Percent) {
	case model.TrendPositive:
		label = ui.RenderPass(label)
	case model.TrendNegative:
		label = ui.RenderFail(label)
	default:
		label = ui.RenderMuted(label)
	}
	return cell + " " + label
}

var waterEditCmd = &cobra.Command{
	Use:   "edit <id> <param> [value]",
	Short: "Change or clear one value of a reading",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := model.ParseParam(args[1])
		if err != nil {
			return err
		}
		var v *float64
		if len(args) == 3 {
			if v, err = parseRequired(string(p), args[2]); err != nil {
				return err
			}
		}
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.EditWaterReading(ctx, model.ID(args[0]), p, v)
			if err != nil {
				return err
			}
			fmt.Printf("%s Updated %s of %s\n", ui.RenderPass("✓"), p, args[0])
			printOutcome(out)
			return nil
		})
	},
}

var waterDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a reading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.DeleteWaterReading(ctx, model.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("%s Deleted reading %s\n", ui.RenderPass("✓"), args[0])
			printOutcome(out)
			return nil
		})
	},
}

var waterClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every reading",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !waterYes {
			return fmt.Errorf("this deletes every water reading, pass --yes to confirm")
		}
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			n := len(a.store.Snapshot().Water)
			out := a.store.ClearWater(ctx)
			fmt.Printf("%s Deleted %d readings\n", ui.RenderPass("✓"), n)
			printOutcome(out)
			return nil
		})
	},
}

func joinParams(sep string) string {
	names := make([]string, len(model.Params))
	for i, p := range model.Params {
		names[i] = string(p)
	}
	return strings.Join(names, sep)
}

func init() {
	waterAddCmd.Flags().StringVar(&waterAt, "at", "", `time of the test, e.g. "2025-03-14T18:30" or "yesterday 9pm" (default now)`)
	for _, p := range model.Params {
		waterValues[p] = waterAddCmd.Flags().String(string(p), "", fmt.Sprintf("%s value", strings.ToUpper(string(p))))
	}
	waterListCmd.Flags().IntVarP(&waterLimit, "limit", "n", 0, "show at most n readings")
	waterClearCmd.Flags().BoolVar(&waterYes, "yes", false, "confirm deletion")

	waterCmd.AddCommand(waterAddCmd, waterListCmd, waterEditCmd, waterDeleteCmd, waterClearCmd)
	rootCmd.AddCommand(waterCmd)
}
