package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dualsub/internal/deps"
	"dualsub/internal/preflight"
	"dualsub/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and translation engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Configuration", colorize)
			lines = append(lines,
				renderStatusLine("Config file", statusInfo, ctx.configPath, colorize),
				renderStatusLine("Languages", statusInfo, fmt.Sprintf("%s -> %s", cfg.Pipeline.SourceLanguage, cfg.Pipeline.TargetLanguage), colorize),
				renderStatusLine("Engines", statusInfo, strings.Join(cfg.Pipeline.Engines, ", "), colorize),
			)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Binaries", colorize)...)
			statuses := preflight.CheckSystemDeps(cfg)
			for _, s := range statuses {
				lines = append(lines, dependencyLine(s, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			failed := 0
			for _, r := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !r.Passed {
					kind = statusError
					failed++
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))

			missing := deps.MissingRequired(statuses)
			if len(missing) > 0 || failed > 0 {
				return services.Wrap(services.ErrConfiguration, "doctor", "", fmt.Sprintf("%d required binaries missing, %d checks failed", len(missing), failed), nil)
			}
			return nil
		},
	}
}

func dependencyLine(s deps.Status, colorize bool) string {
	if s.Available {
		detail := s.Command
		if s.Detail != "" {
			detail = s.Detail
		}
		return renderStatusLine(s.Name, statusOK, detail, colorize)
	}
	kind := statusError
	if s.Optional {
		kind = statusWarn
	}
	message := s.Detail
	if s.Description != "" {
		message = fmt.Sprintf("%s (%s)", s.Detail, s.Description)
	}
	return renderStatusLine(s.Name, kind, message, colorize)
}
