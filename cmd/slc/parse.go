package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/franz/scorelib/internal/catalog"
	"github.com/franz/scorelib/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var parseCmd = &cobra.Command{
	Use:   "parse <catalog.txt>...",
	Short: "Parse catalog files and print the normalized records",
	Long: `Parse one or more catalog files without touching the database.

Records are printed in input order after composer, editor, voice and year
normalization. The text format is the catalog format itself, so its output
can be parsed again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
}

func runParse(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	sources, err := catalog.LoadFiles(afero.NewOsFs(), args)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	var prints []catalog.Print
	for _, src := range sources {
		util.DebugLog("%s: %d prints", src.Path, len(src.Prints))
		prints = append(prints, src.Prints...)
	}

	return writePrints(os.Stdout, prints, format)
}

// writePrints renders prints in the requested output format
func writePrints(w io.Writer, prints []catalog.Print, format string) error {
	switch format {
	case "text":
		return catalog.FormatAll(w, prints)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(prints)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(prints); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown format %q (want text, json or yaml)", util.ErrInvalidConfig, format)
	}
}
