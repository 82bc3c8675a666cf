package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/ui"
)

var airCmd = &cobra.Command{
	Use:     "air",
	GroupID: "data",
	Short:   "Air temperature and humidity log",
}

var (
	airAt                          string
	airTempMin, airTempMax         string
	airHumidityMin, airHumidityMax string
)

var airAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Record min/max temperature and humidity",
	Example: `  paludario air add --tmin 21 --tmax 26.5 --hmin 70 --hmax 95`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseWhen(airAt, time.Now())
		if err != nil {
			return err
		}
		tmin := parseValue(airTempMin)
		tmax := parseValue(airTempMax)
		hmin := parseValue(airHumidityMin)
		hmax := parseValue(airHumidityMax)

		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			r, out, err := a.store.AddAirReading(ctx, at, tmin, tmax, hmin, hmax)
			if err != nil {
				return err
			}
			fmt.Printf("%s Added air reading %s\n", ui.RenderPass("✓"), r.ID)
			printOutcome(out)
			return nil
		})
	},
}

var airListCmd = &cobra.Command{
	Use:   "list",
	Short: "List air readings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			readings := a.store.Snapshot().Settings.AirReadings
			if jsonOutput {
				return printJSON(readings)
			}
			if len(readings) == 0 {
				fmt.Println("No air readings yet")
				return nil
			}
			rows := make([][]string, len(readings))
			for i, r := range readings {
				rows[i] = []string{
					string(r.ID),
					r.Datetime.Format("2006-01-02 15:04"),
					fmt.Sprintf("%s–%s °C", formatValue(&r.TempMin), formatValue(&r.TempMax)),
					fmt.Sprintf("%s–%s %%", formatValue(&r.HumidityMin), formatValue(&r.HumidityMax)),
				}
			}
			fmt.Println(ui.Table([]string{"ID", "Date", "Temperature", "Humidity"}, rows))
			return nil
		})
	},
}

var airRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an air reading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.RemoveAirReading(ctx, model.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("%s Removed %s\n", ui.RenderPass("✓"), args[0])
			printOutcome(out)
			return nil
		})
	},
}

func init() {
	f := airAddCmd.Flags()
	f.StringVar(&airAt, "at", "", "time of the reading (default now)")
	f.StringVar(&airTempMin, "tmin", "", "minimum temperature °C")
	f.StringVar(&airTempMax, "tmax", "", "maximum temperature °C")
	f.StringVar(&airHumidityMin, "hmin", "", "minimum humidity %")
	f.StringVar(&airHumidityMax, "hmax", "", "maximum humidity %")

	airCmd.AddCommand(airAddCmd, airListCmd, airRemoveCmd)
	rootCmd.AddCommand(airCmd)
}
