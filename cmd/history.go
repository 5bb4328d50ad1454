package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/maximbilan/orchat/internal/history"
	"github.com/maximbilan/orchat/internal/openrouter"
)

const shortIDLength = 8

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved conversations",
		Long: `Browse saved conversations in ~/.orchat/history.

Conversations are addressed by ID or by any unique ID prefix, as printed by
"orchat history list". Resume one in the chat screen with: orchat --resume <id>`,
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistoryPruneCmd())
	return cmd
}

// openHistory is setup plus the history store, which must be enabled.
func openHistory(cmd *cobra.Command) (*app, *history.Store, error) {
	a, err := setup(false, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	hist, err := a.history()
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	if hist == nil {
		a.Close()
		return nil, nil, errors.New("history is disabled; enable it with: orchat config set history_enabled true")
	}
	return a, hist, nil
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, hist, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			convs, err := hist.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(convs) == 0 {
				fmt.Fprintln(out, "No saved conversations")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, c := range convs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					c.ID[:shortIDLength],
					c.UpdatedAt.Local().Format(time.DateTime),
					openrouter.DisplayName(c.Model),
					c.Title)
			}
			return w.Flush()
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, hist, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := loadConversation(hist, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  %s\n", conv.ID, openrouter.DisplayName(conv.Model), conv.UpdatedAt.Local().Format(time.DateTime))
			for _, m := range conv.Messages {
				label := "You"
				switch m.Role {
				case openrouter.RoleAssistant:
					label = openrouter.DisplayName(conv.Model)
				case openrouter.RoleSystem:
					label = "System"
				}
				fmt.Fprintf(out, "\n%s:\n%s\n", label, m.Content)
			}
			return nil
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete a saved conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, hist, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := hist.Resolve(args[0])
			if err != nil {
				return fmt.Errorf("conversation %q: %w", args[0], err)
			}
			if err := hist.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
}

func newHistoryPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, hist, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := hist.Prune()
			if err != nil {
				return err
			}
			a.logger.Debug("pruned history", "removed", n, "dir", hist.Dir())
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired conversation(s)\n", n)
			return nil
		},
	}
}
