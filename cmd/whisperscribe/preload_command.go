package main

import (
	"strings"

	"github.com/spf13/cobra"

	"whisperscribe/internal/engine"
	"whisperscribe/internal/logger"
)

func newPreloadCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "preload [model...]",
		Short: "Download whisper model weights ahead of time",
		Long: "Download whisper model weights into the models directory so later\n" +
			"transcription runs start without network access. With no arguments the\n" +
			"configured model is preloaded. Supported models: " +
			strings.Join(engine.SupportedModels, ", ") + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd, flags)
			if err != nil {
				return err
			}

			log, err := logger.NewLoggerForVerbosity(cfg.GetVerbose())
			if err != nil {
				return err
			}
			defer log.Sync()

			models := args
			if len(models) == 0 {
				models = []string{cfg.GetModelSize()}
			}

			return newEngines(log, cfg).Preload(cmd.Context(), models)
		},
	}
}
