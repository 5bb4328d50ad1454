package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maximbilan/orchat/internal/config"
	"github.com/maximbilan/orchat/internal/openrouter"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the built-in model catalogue",
		Long: `List the models offered by the chat screen's model picker.

The current model is marked with "*". Any other OpenRouter model ID can be
used with: orchat config set model <id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, m := range openrouter.Models {
				marker := " "
				if m.ID == cfg.Model {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", marker, m.ID, m.Name)
			}
			if _, known := openrouter.LookupModel(cfg.Model); !known {
				fmt.Fprintf(w, "*\t%s\t(custom)\n", cfg.Model)
			}
			return w.Flush()
		},
	}
}
