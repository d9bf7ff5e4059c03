package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/KaramelBytes/appforge-cli/internal/ai"
	"github.com/spf13/cobra"
)

var modelsFile string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and their context windows",
	Long: `Lists the built-in model catalog used for prompt-size warnings.
Any OpenRouter model id can be passed to --model; unknown ids are not checked.`,
	Example: `  appforge models
  appforge models --file ./models.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsFile != "" {
			m, err := ai.LoadCatalogFromJSON(modelsFile)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			ai.MergeCatalog(m)
		}
		current := ""
		if cfg != nil {
			current = cfg.Model
		}
		return printModels(cmd.OutOrStdout(), ai.SortedCatalog(), current)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsFile, "file", "", "merge a JSON catalog file before listing")
}

func printModels(w io.Writer, list []ai.ModelInfo, current string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tCONTEXT")
	for _, m := range list {
		name := m.Name
		if name == current {
			name += " (configured)"
		}
		fmt.Fprintf(tw, "%s\t%d\n", name, m.ContextTokens)
	}
	return tw.Flush()
}
