package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "dualsub",
		Short:         "Build dual-language subtitles for media files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.lang, "lang", "", "Language spoken in the media (overrides pipeline.source_language)")
	pf.StringVar(&flags.model, "model", "", "Whisper model (overrides whisper.model)")
	pf.StringVar(&flags.color, "color", "", "Color of the secondary subtitle lines (overrides pipeline.secondary_color)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newCombineCommand(ctx))
	rootCmd.AddCommand(newSimpleCommand(ctx))
	rootCmd.AddCommand(newTranscribeCommand(ctx))
	rootCmd.AddCommand(newTranslateCommand(ctx))
	rootCmd.AddCommand(newTranslateSRTCommand(ctx))
	rootCmd.AddCommand(newAutoCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
