package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tia2694/paludario/internal/model"
	"github.com/tia2694/paludario/internal/ui"
)

var animalsCmd = &cobra.Command{
	Use:     "animals",
	GroupID: "data",
	Short:   "Animal inventory",
}

var animalInput model.AnimalInput

var animalsAddCmd = &cobra.Command{
	Use:     "add <species>",
	Short:   "Add animals of one species",
	Example: `  paludario animals add "Neocaridina davidi" --type crustacean --count 10`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := animalInput
		in.Species = args[0]
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			animal, out, err := a.store.AddAnimal(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("%s Added %d × %s (%s)\n", ui.RenderPass("✓"), animal.Count, animal.Species, animal.ID)
			printOutcome(out)
			return nil
		})
	},
}

var animalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the animals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			animals := a.store.Snapshot().Settings.Animals
			if jsonOutput {
				return printJSON(animals)
			}
			if len(animals) == 0 {
				fmt.Println("No animals yet")
				return nil
			}
			rows := make([][]string, len(animals))
			total := 0
			for i, an := range animals {
				rows[i] = []string{
					string(an.ID), an.Species, string(an.Type), strconv.Itoa(an.Count),
					strconv.Itoa(an.Males), strconv.Itoa(an.Females), an.PurchaseDate, renderStatus(an.Status),
				}
				total += an.Count
			}
			fmt.Println(ui.Table([]string{"ID", "Species", "Type", "Count", "♂", "♀", "Purchased", "Status"}, rows))
			fmt.Printf("Total: %d\n", total)
			return nil
		})
	},
}

func renderStatus(s model.AnimalStatus) string {
	switch s {
	case model.StatusDead:
		return ui.RenderFail(string(s))
	case model.StatusSick:
		return ui.RenderWarn(string(s))
	case model.StatusPregnant:
		return ui.RenderAccent(string(s))
	}
	return string(s)
}

var animalsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an animal entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.RemoveAnimal(ctx, model.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("%s Removed %s\n", ui.RenderPass("✓"), args[0])
			printOutcome(out)
			return nil
		})
	},
}

var animalsStatusCmd = &cobra.Command{
	Use:   "status <id> <alive|dead|sick|pregnant>",
	Short: "Change the status of an animal entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			out, err := a.store.SetAnimalStatus(ctx, model.ID(args[0]), args[1])
			if err != nil {
				return err
			}
			fmt.Printf("%s %s is now %s\n", ui.RenderPass("✓"), args[0], args[1])
			printOutcome(out)
			return nil
		})
	},
}

func init() {
	f := animalsAddCmd.Flags()
	f.StringVar(&animalInput.Type, "type", "", "fish, mollusk or crustacean (default fish)")
	f.IntVar(&animalInput.Count, "count", 0, "number of animals (default 1)")
	f.IntVar(&animalInput.Males, "males", 0, "number of males")
	f.IntVar(&animalInput.Females, "females", 0, "number of females")
	f.StringVar(&animalInput.PurchaseDate, "date", "", "purchase date YYYY-MM-DD (default today)")
	f.StringVar(&animalInput.Status, "status", "", "alive, dead, sick or pregnant (default alive)")

	animalsCmd.AddCommand(animalsAddCmd, animalsListCmd, animalsRemoveCmd, animalsStatusCmd)
	rootCmd.AddCommand(animalsCmd)
}
