package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"dualsub/internal/artifacts"
	"dualsub/internal/captions"
	"dualsub/internal/config"
	"dualsub/internal/pipeline"
	"dualsub/internal/services"
	"dualsub/internal/services/argos"
	"dualsub/internal/services/azure"
	"dualsub/internal/services/clipboard"
	"dualsub/internal/services/ffmpeg"
	"dualsub/internal/services/mkvmerge"
	"dualsub/internal/services/whisper"
	"dualsub/internal/staging"
	"dualsub/internal/translate"
)

func newWhisperService(cfg *config.Config, logger *slog.Logger) *whisper.Service {
	return whisper.NewService(whisper.Config{
		Command:                 cfg.Whisper.Command,
		Model:                   cfg.Whisper.Model,
		ComputeType:             cfg.Whisper.ComputeType,
		Threads:                 cfg.Whisper.Threads,
		InitialPrompt:           cfg.Whisper.InitialPrompt,
		ConditionOnPreviousText: cfg.Whisper.ConditionOnPreviousText,
		Timeout:                 time.Duration(cfg.Whisper.TimeoutMinutes) * time.Minute,
		WorkDir:                 cfg.Pipeline.WorkDir,
	}, logger)
}

func newExtractor(cfg *config.Config, logger *slog.Logger) *ffmpeg.Extractor {
	return ffmpeg.NewExtractor(cfg.Tools.FFprobe, cfg.Tools.FFmpeg, logger)
}

// newTextEngine builds the batch engine behind a text translation stage.
func newTextEngine(cfg *config.Config, name string, logger *slog.Logger, prompt io.Writer) (translate.TextTranslator, error) {
	switch name {
	case azure.EngineName:
		return azure.NewClient(azure.Config{
			APIKey:            cfg.Translation.Azure.APIKey,
			Endpoint:          cfg.Translation.Azure.Endpoint,
			Region:            cfg.Translation.Azure.Region,
			RequestsPerMinute: cfg.Translation.Azure.RequestsPerMinute,
			TimeoutSeconds:    cfg.Translation.Azure.TimeoutSeconds,
		}), nil
	case argos.EngineName:
		return argos.New(cfg.Translation.Argos.Command, cfg.Translation.Argos.Args, logger), nil
	case clipboard.EngineName:
		return clipboard.New(clipboard.Config{
			CharsLimit:   cfg.Translation.Clipboard.CharsLimit,
			PollInterval: time.Duration(cfg.Translation.Clipboard.PollIntervalMS) * time.Millisecond,
		}, logger, clipboard.WithPrompt(prompt)), nil
	case artifacts.DefaultEngine:
		return nil, services.Wrap(services.ErrValidation, "cli", "translate",
			"The whisper engine translates speech, not subtitle text; pick azure, argos or clipboard", nil)
	}
	return nil, services.Wrap(services.ErrConfiguration, "cli", "translate", fmt.Sprintf("Unknown engine %q", name), nil)
}

// newTranslator wraps a text engine with the configured memo cache and
// registers its cleanup.
func (c *commandContext) newTranslator(cfg *config.Config, name string, logger *slog.Logger, prompt io.Writer) (*translate.Translator, error) {
	engine, err := newTextEngine(cfg, name, logger, prompt)
	if err != nil {
		return nil, err
	}
	tr := translate.New(engine, translate.WithLogger(logger), translate.WithCachePath(cfg.CachePathFor))
	c.onClose(tr.Close)
	return tr, nil
}

// newProducers wires every external collaborator the configured engines need.
func (c *commandContext) newProducers(cfg *config.Config, logger *slog.Logger, prompt io.Writer) (pipeline.Producers, error) {
	producers := pipeline.Producers{
		Transcriber: newWhisperService(cfg, logger),
		Extractor:   newExtractor(cfg, logger),
		Muxer:       mkvmerge.NewMuxer(cfg.Tools.Mkvmerge, logger),
		Translators: make(map[string]pipeline.Translator),
	}
	for _, engine := range cfg.Pipeline.Engines {
		if engine == artifacts.DefaultEngine {
			continue
		}
		tr, err := c.newTranslator(cfg, engine, logger, prompt)
		if err != nil {
			return pipeline.Producers{}, err
		}
		producers.Translators[engine] = tr
	}
	return producers, nil
}

func newPlanner(cfg *config.Config, sourceTrack *staging.TrackRef, transcribe bool) (*staging.Planner, error) {
	planner, err := staging.NewPlanner(staging.Config{
		SourceLanguage: cfg.Pipeline.SourceLanguage,
		TargetLanguage: cfg.Pipeline.TargetLanguage,
		Engines:        cfg.Pipeline.Engines,
		SourceTrack:    sourceTrack,
		Transcribe:     transcribe,
	}, artifacts.FS{})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "planner", "", err)
	}
	return planner, nil
}

func newExecutor(cfg *config.Config, producers pipeline.Producers, logger *slog.Logger) *pipeline.Executor {
	return pipeline.NewExecutor(pipeline.Config{
		SourceLanguage: cfg.Pipeline.SourceLanguage,
		Workers:        cfg.Pipeline.Workers,
		Style:          captions.Style{Color: cfg.Pipeline.SecondaryColor},
	}, producers, logger)
}
