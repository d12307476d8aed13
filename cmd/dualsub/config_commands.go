package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"dualsub/internal/config"
	"dualsub/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create, check and inspect the dualsub configuration",
	}
	configCmd.AddCommand(
		newConfigInitCommand(),
		newConfigValidateCommand(ctx),
		newConfigShowCommand(ctx),
	)
	return configCmd
}

// configTarget resolves --path, falling back to the default location.
func configTarget(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(flagValue)
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configTarget(targetPath)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "config init", "Cannot resolve the config path", err)
			}
			switch _, err := os.Stat(target); {
			case err == nil && !overwrite:
				return services.Wrap(services.ErrValidation, "cli", "config init",
					fmt.Sprintf("%s already exists (use --overwrite to replace it)", target), nil)
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("check %s: %w", target, err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set translation.azure.api_key (or export AZURE_KEY) before enabling the azure engine.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report the effective pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if _, err := os.Stat(ctx.configPath); err != nil {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Languages:   %s -> %s\n", cfg.Pipeline.SourceLanguage, cfg.Pipeline.TargetLanguage)
			fmt.Fprintf(out, "Engines:     %s\n", strings.Join(cfg.Pipeline.Engines, ", "))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// newConfigShowCommand prints the effective configuration after defaults,
// environment fallbacks and flag overrides. Secrets are masked.
func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Translation.Azure.APIKey != "" {
				shown.Translation.Azure.APIKey = "********"
			}
			data, err := toml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
