package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lumen-med/whitecard/internal/ai"
	"github.com/lumen-med/whitecard/internal/config"
	"github.com/lumen-med/whitecard/internal/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage provider configs and language",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all provider configs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		active := current.store.ActiveConfig()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tMODEL\tBASE URL")
		for _, p := range domain.Providers {
			cfg, _ := current.store.Config(p)
			marker := ""
			if p == active.Provider {
				marker = " *"
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\n", p, marker, cfg.ModelName, cfg.BaseURL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		cmd.Printf("\nLanguage: %s\n", current.store.Language())
		return nil
	},
}

var (
	configSetBaseURL string
	configSetModel   string
)

var configSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Update a provider's base URL or model name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := parseProvider(args[0])
		if err != nil {
			return err
		}
		patch := domain.ConfigPatch{}
		if cmd.Flags().Changed("base-url") {
			patch.BaseURL = &configSetBaseURL
		}
		if cmd.Flags().Changed("model") {
			patch.ModelName = &configSetModel
		}
		if patch.BaseURL == nil && patch.ModelName == nil {
			return errors.New("nothing to set; pass --base-url or --model")
		}
		current.store.UpdateConfig(provider, patch)
		return saveSettings()
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <provider>",
	Short: "Make a provider the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := parseProvider(args[0])
		if err != nil {
			return err
		}
		current.store.SetActiveProvider(provider)
		return saveSettings()
	},
}

var configTestCmd = &cobra.Command{
	Use:   "test [provider]",
	Short: "Probe a provider's connectivity",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mc := current.store.ActiveConfig()
		if len(args) == 1 {
			provider, err := parseProvider(args[0])
			if err != nil {
				return err
			}
			var ok bool
			if mc, ok = current.store.Config(provider); !ok {
				return domain.ErrProviderNotConfigured
			}
		}

		client, err := ai.ForConfig(mc, current.credentials())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), config.ConnectionTestTimeout)
		defer cancel()
		if !client.TestConnection(ctx) {
			return fmt.Errorf("%s is not reachable", mc.Provider)
		}
		cmd.Printf("%s OK\n", mc.Provider)
		return nil
	},
}

var configLangCmd = &cobra.Command{
	Use:   "lang <zh|en>",
	Short: "Set the interpretation language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch strings.ToUpper(args[0]) {
		case string(domain.LanguageZH):
			current.store.SetLanguage(domain.LanguageZH)
		case string(domain.LanguageEN):
			current.store.SetLanguage(domain.LanguageEN)
		default:
			return errors.New("language must be zh or en")
		}
		return saveSettings()
	},
}

func parseProvider(s string) (domain.Provider, error) {
	p := domain.Provider(strings.ToUpper(s))
	for _, known := range domain.Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

func init() {
	configSetCmd.Flags().StringVar(&configSetBaseURL, "base-url", "", "API base URL")
	configSetCmd.Flags().StringVar(&configSetModel, "model", "", "model name")
	configCmd.AddCommand(configListCmd, configSetCmd, configUseCmd, configTestCmd, configLangCmd)
}
