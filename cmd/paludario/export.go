package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tia2694/paludario/internal/export"
	"github.com/tia2694/paludario/internal/ui"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "data",
	Short:   "Export all records as JSON, YAML, TOML or an Excel workbook",
	Example: `  paludario export --format yaml
  paludario export -o paludario.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := exportFormat
		if name == "" {
			name = "json"
			if exportOutput != "" {
				name = filepath.Ext(exportOutput)
			}
		}
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		if format == export.FormatXLSX && exportOutput == "" {
			return fmt.Errorf("xlsx export needs an output file, pass -o")
		}

		return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
			var w io.Writer = os.Stdout
			if exportOutput != "" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", exportOutput, err)
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, a.store.Snapshot(), format); err != nil {
				return err
			}
			if exportOutput != "" {
				fmt.Fprintf(os.Stderr, "%s Exported %s to %s\n", ui.RenderPass("✓"), format, exportOutput)
			}
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "json, yaml, toml or xlsx (default from the output extension, else json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
