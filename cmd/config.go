package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maximbilan/orchat/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			path, err := config.Path()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration initialized at %s\n", path)
			fmt.Fprintln(out, "Set your API key with: orchat auth set")
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			value := args[1]

			if isSensitiveConfigKey(key) {
				return errors.New("API keys are not stored in config.yaml; use: orchat auth set")
			}
			if !config.IsKnownKey(key) {
				return fmt.Errorf("unknown config key %q; run \"orchat config list\" to see the available keys", key)
			}

			previous := config.Get(key)
			if err := config.Set(key, value); err != nil {
				return err
			}
			if _, err := config.Load(); err != nil {
				if previous != nil {
					_ = config.Set(key, fmt.Sprint(previous))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			value := config.Get(key)
			if value == nil {
				return fmt.Errorf("config key %q is not set", key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, displayValue(key, value))
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all config values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, d := range config.Defaults {
				fmt.Fprintf(out, "%s = %s\n", d.Key, displayValue(d.Key, config.Get(d.Key)))
			}
			return nil
		},
	}
}

func displayValue(key string, value any) string {
	s := fmt.Sprint(value)
	if isSensitiveConfigKey(key) {
		return maskSecret(s)
	}
	return s
}
