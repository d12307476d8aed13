package config

import (
	"fmt"
	"os"
	"strings"

	langpkg "dualsub/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePipeline(); err != nil {
		return err
	}
	c.normalizeWhisper()
	c.normalizeTools()
	if err := c.normalizeTranslation(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizePipeline() error {
	var err error
	if c.Pipeline.SourceLanguage, err = normalizeLanguage(c.Pipeline.SourceLanguage, defaultSourceLanguage); err != nil {
		return fmt.Errorf("pipeline.source_language: %w", err)
	}
	if c.Pipeline.TargetLanguage, err = normalizeLanguage(c.Pipeline.TargetLanguage, defaultTargetLanguage); err != nil {
		return fmt.Errorf("pipeline.target_language: %w", err)
	}

	engines := make([]string, 0, len(c.Pipeline.Engines))
	seen := make(map[string]struct{}, len(c.Pipeline.Engines))
	for _, engine := range c.Pipeline.Engines {
		engine = strings.ToLower(strings.TrimSpace(engine))
		if engine == "" {
			continue
		}
		if _, ok := seen[engine]; ok {
			continue
		}
		seen[engine] = struct{}{}
		engines = append(engines, engine)
	}
	if len(engines) == 0 {
		engines = []string{whisperEngine}
	}
	c.Pipeline.Engines = engines

	if c.Pipeline.Workers < 1 {
		c.Pipeline.Workers = defaultWorkers
	}
	c.Pipeline.SecondaryColor = strings.TrimSpace(c.Pipeline.SecondaryColor)
	if c.Pipeline.SecondaryColor == "" {
		c.Pipeline.SecondaryColor = defaultSecondaryColor
	}
	if strings.TrimSpace(c.Pipeline.LockDir) == "" {
		c.Pipeline.LockDir = defaultLockDir()
	}
	if c.Pipeline.LockDir, err = expandPath(c.Pipeline.LockDir); err != nil {
		return fmt.Errorf("pipeline.lock_dir: %w", err)
	}
	if c.Pipeline.WorkDir, err = expandPath(strings.TrimSpace(c.Pipeline.WorkDir)); err != nil {
		return fmt.Errorf("pipeline.work_dir: %w", err)
	}
	return nil
}

func normalizeLanguage(value, fallback string) (string, error) {
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	return langpkg.Canonical(value)
}

func (c *Config) normalizeWhisper() {
	c.Whisper.Command = strings.TrimSpace(c.Whisper.Command)
	if c.Whisper.Command == "" {
		c.Whisper.Command = defaultWhisperCommand
	}
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	c.Whisper.ComputeType = strings.TrimSpace(c.Whisper.ComputeType)
	if c.Whisper.ComputeType == "" {
		c.Whisper.ComputeType = defaultWhisperCompute
	}
	if c.Whisper.Threads <= 0 {
		c.Whisper.Threads = defaultWhisperThreads
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFprobe = fallbackString(c.Tools.FFprobe, defaultFFprobe)
	c.Tools.FFmpeg = fallbackString(c.Tools.FFmpeg, defaultFFmpeg)
	c.Tools.Mkvmerge = fallbackString(c.Tools.Mkvmerge, defaultMkvmerge)
}

func (c *Config) normalizeTranslation() error {
	cachePath := strings.TrimSpace(c.Translation.CachePath)
	if cachePath != "" && !strings.HasPrefix(cachePath, "@/") {
		expanded, err := expandPath(cachePath)
		if err != nil {
			return fmt.Errorf("translation.cache_path: %w", err)
		}
		cachePath = expanded
	}
	c.Translation.CachePath = cachePath

	c.Translation.Azure.APIKey = strings.TrimSpace(c.Translation.Azure.APIKey)
	if c.Translation.Azure.APIKey == "" {
		if value, ok := os.LookupEnv(azureKeyEnv); ok {
			c.Translation.Azure.APIKey = strings.TrimSpace(value)
		}
	}
	c.Translation.Azure.Endpoint = strings.TrimRight(fallbackString(c.Translation.Azure.Endpoint, defaultAzureEndpoint), "/")
	c.Translation.Azure.Region = strings.TrimSpace(c.Translation.Azure.Region)
	if c.Translation.Azure.TimeoutSeconds <= 0 {
		c.Translation.Azure.TimeoutSeconds = defaultAzureTimeout
	}

	c.Translation.Argos.Command = fallbackString(c.Translation.Argos.Command, defaultArgosCommand)

	if c.Translation.Clipboard.CharsLimit == 0 {
		c.Translation.Clipboard.CharsLimit = defaultClipboardLimit
	}
	if c.Translation.Clipboard.PollIntervalMS <= 0 {
		c.Translation.Clipboard.PollIntervalMS = defaultClipboardPollMS
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(fallbackString(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(fallbackString(c.Logging.Level, defaultLogLevel))
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func fallbackString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
