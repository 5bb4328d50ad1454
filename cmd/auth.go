package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/maximbilan/orchat/internal/credential"
	"github.com/maximbilan/orchat/internal/validation"
)

const authSetLongDesc = `Store an OpenRouter API key in the credential store.

The key is read from the terminal without echo, or from the first line of
stdin when it is piped. The store is chosen by the credential_store setting:
"file" keeps it in ~/.orchat/credentials.toml, "dotenv" in ~/.orchat/.env.

Examples:
  orchat auth set
  echo "$KEY" | orchat auth set`

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the OpenRouter API key",
	}

	cmd.AddCommand(newAuthSetCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthClearCmd())
	return cmd
}

func newAuthSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store an API key",
		Long:  authSetLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			key, err := readAPIKey(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := validation.ValidateAPIKey(key); err != nil {
				return err
			}
			if err := a.store.Save(key); err != nil {
				return fmt.Errorf("failed to save API key: %w", err)
			}

			a.logger.Debug("api key stored", "backend", a.cfg.CredentialStore)
			fmt.Fprintf(cmd.OutOrStdout(), "API key saved (%s store)\n", a.cfg.CredentialStore)
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the API key comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if env := strings.TrimSpace(os.Getenv(credential.EnvVar)); env != "" {
				fmt.Fprintf(out, "Using %s from the environment: %s\n", credential.EnvVar, maskSecret(env))
			}

			key, err := a.store.Get()
			switch {
			case errors.Is(err, credential.ErrNotFound):
				fmt.Fprintf(out, "No API key stored (%s store). Run: orchat auth set\n", a.cfg.CredentialStore)
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(out, "Stored API key (%s store): %s\n", a.cfg.CredentialStore, maskSecret(key))
			return nil
		},
	}
}

func newAuthClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "clear",
		Aliases: []string{"logout"},
		Short:   "Remove the stored API key",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Clear(); err != nil {
				return fmt.Errorf("failed to remove API key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
			return nil
		},
	}
}

// readAPIKey prompts without echo on a terminal and otherwise reads the
// first line of in.
func readAPIKey(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "OpenRouter API key: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return "", errors.New("no API key provided on stdin")
}
