package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whisperscribe/internal/audio"
	"whisperscribe/internal/batch"
	"whisperscribe/internal/config"
	"whisperscribe/internal/engine"
	"whisperscribe/internal/logger"
	"whisperscribe/internal/pipeline"
)

type rootFlags struct {
	configFile   string
	audioPath    string
	batchDir     string
	model        string
	language     string
	device       string
	outputFormat string
	outputDir    string
	minSpeakers  int
	maxSpeakers  int
	force        bool
	verbose      bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "whisperscribe",
		Short:         "Transcribe audio with word alignment and speaker diarization",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.Flags().StringVarP(&flags.audioPath, "audio", "a", "", "Audio file to transcribe")
	rootCmd.Flags().StringVarP(&flags.batchDir, "batch", "b", "", "Directory of audio files to transcribe")
	rootCmd.Flags().StringVarP(&flags.model, "model", "m", "", "Whisper model size (tiny, base, small, medium, large-v2, large-v3)")
	rootCmd.Flags().StringVarP(&flags.language, "language", "l", "", "Language code override (default: auto-detect)")
	rootCmd.Flags().StringVar(&flags.device, "device", "", "Inference device (cpu, cuda; default: auto-detect)")
	rootCmd.Flags().StringVarP(&flags.outputFormat, "output-format", "f", "", "Output format (txt, json, srt, vtt, all)")
	rootCmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for transcript outputs")
	rootCmd.Flags().IntVar(&flags.minSpeakers, "min-speakers", 0, "Minimum number of speakers for diarization")
	rootCmd.Flags().IntVar(&flags.maxSpeakers, "max-speakers", 0, "Maximum number of speakers for diarization")
	rootCmd.Flags().BoolVar(&flags.force, "force", false, "Reprocess files already recorded in the run index")

	rootCmd.AddCommand(newPreloadCommand(flags))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfiguration layers CLI flags over the config file (or defaults) and
// environment variables. Only flags the user actually set override.
func loadConfiguration(cmd *cobra.Command, flags *rootFlags) (*config.Configuration, error) {
	var cfg *config.Configuration
	var err error

	if flags.configFile != "" {
		cfg, err = config.NewConfigurationFromFile(flags.configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.NewConfiguration()
	}

	overrides := map[string]interface{}{
		"model.size":               flags.model,
		"model.language":           flags.language,
		"model.device":             flags.device,
		"output.format":            flags.outputFormat,
		"output.dir":               flags.outputDir,
		"diarization.min_speakers": flags.minSpeakers,
		"diarization.max_speakers": flags.maxSpeakers,
		"verbose":                  flags.verbose,
	}
	flagNames := map[string]string{
		"model.size":               "model",
		"model.language":           "language",
		"model.device":             "device",
		"output.format":            "output-format",
		"output.dir":               "output-dir",
		"diarization.min_speakers": "min-speakers",
		"diarization.max_speakers": "max-speakers",
		"verbose":                  "verbose",
	}
	for key, value := range overrides {
		if cmd.Flags().Changed(flagNames[key]) {
			cfg.Set(key, value)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEngines(log *zap.Logger, cfg *config.Configuration) *engine.Engines {
	return engine.NewEngines(log, engine.Config{
		Command:   cfg.GetEngineCommand(),
		Model:     cfg.GetModelSize(),
		Device:    cfg.GetDevice(),
		HFToken:   cfg.GetHFToken(),
		ModelsDir: cfg.GetModelsDir(),
	}, engine.NewModelCache())
}

func runTranscribe(cmd *cobra.Command, flags *rootFlags) error {
	if flags.audioPath == "" && flags.batchDir == "" {
		return errors.New("either --audio or --batch is required")
	}
	if flags.audioPath != "" && flags.batchDir != "" {
		return errors.New("--audio and --batch are mutually exclusive")
	}

	cfg, err := loadConfiguration(cmd, flags)
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerForVerbosity(cfg.GetVerbose())
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.GetHFToken() == "" {
		log.Warn("no HuggingFace token configured, speaker diarization will be skipped")
	}

	engines := newEngines(log, cfg)
	pipe := pipeline.New(log, audio.NewFFmpegLoader(log), engines.ASR(), engines.Aligner(), engines.Diarizer(), pipeline.Options{
		Model:        cfg.GetModelSize(),
		Language:     cfg.GetLanguage(),
		MinSpeakers:  cfg.GetMinSpeakers(),
		MaxSpeakers:  cfg.GetMaxSpeakers(),
		StageTimeout: cfg.GetStageTimeout(),
	})

	store, err := batch.OpenStore(cfg.GetIndexPath())
	if err != nil {
		log.Warn("run index unavailable, duplicate detection disabled", zap.Error(err))
		store = nil
	}
	defer store.Close()

	writer := batch.NewWriter(log, cfg.GetOutputDir())
	processor := batch.NewProcessor(log, pipe, writer, store, cfg.GetOutputFormat(), cfg.GetModelSize(), flags.force)

	ctx := cmd.Context()

	if flags.batchDir != "" {
		summary, err := processor.ProcessDirectory(ctx, flags.batchDir)
		if summary != nil && len(summary.Results) > 0 {
			batch.RenderSummary(os.Stdout, summary)
		}
		if err != nil {
			return err
		}
		if summary.Failed() > 0 {
			return fmt.Errorf("%d file(s) failed", summary.Failed())
		}
		return nil
	}

	result := processor.ProcessFile(ctx, flags.audioPath)
	if result.Status == batch.FileFailed {
		return errors.New(result.Error)
	}
	batch.RenderSummary(os.Stdout, &batch.Summary{Results: []batch.FileResult{result}})
	return nil
}
