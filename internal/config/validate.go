package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{6}|#[0-9a-fA-F]{3}|[a-zA-Z]+)$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.SourceLanguage == c.Pipeline.TargetLanguage {
		return fmt.Errorf("pipeline.source_language and pipeline.target_language must differ (both %q)", c.Pipeline.SourceLanguage)
	}
	for _, engine := range c.Pipeline.Engines {
		if !slices.Contains(KnownEngines, engine) {
			return fmt.Errorf("pipeline.engines: unknown engine %q (known: %s)", engine, strings.Join(KnownEngines, ", "))
		}
	}
	if c.HasEngine(whisperEngine) && c.Pipeline.TargetLanguage != whisperTranslationTarget {
		return fmt.Errorf("pipeline.engines: whisper only translates to %q, target is %q", whisperTranslationTarget, c.Pipeline.TargetLanguage)
	}
	if !colorPattern.MatchString(c.Pipeline.SecondaryColor) {
		return fmt.Errorf("pipeline.secondary_color: invalid color %q", c.Pipeline.SecondaryColor)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.HasEngine("azure") && c.Translation.Azure.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("translation.azure.api_key is required for the azure engine. Set %s env var or edit %s (create with 'dualsub config init')", azureKeyEnv, defaultPath)
	}
	if c.Translation.Azure.RequestsPerMinute < 0 {
		return errors.New("translation.azure.requests_per_minute must be >= 0")
	}
	if c.Translation.Clipboard.CharsLimit < minClipboardCharsLimit {
		return fmt.Errorf("translation.clipboard.chars_limit must be >= %d", minClipboardCharsLimit)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// HasEngine reports whether the named translation engine is enabled.
func (c *Config) HasEngine(name string) bool {
	return slices.Contains(c.Pipeline.Engines, name)
}
