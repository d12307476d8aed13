package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dualsub/internal/config"
	"dualsub/internal/logging"
	"dualsub/internal/services"
)

type globalFlags struct {
	config   string
	lang     string
	model    string
	color    string
	logLevel string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	closers []func() error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the configuration once and applies the global flag
// overrides on top of it.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", "", err)
			return
		}
		if c.applyOverrides(cfg) {
			if err := cfg.Finalize(); err != nil {
				c.configErr = services.Wrap(services.ErrConfiguration, "cli", "apply flags", "", err)
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "ensure directories", "", err)
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) applyOverrides(cfg *config.Config) bool {
	changed := false
	set := func(dst *string, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
			changed = true
		}
	}
	set(&cfg.Pipeline.SourceLanguage, c.flags.lang)
	set(&cfg.Whisper.Model, c.flags.model)
	set(&cfg.Pipeline.SecondaryColor, c.flags.color)
	set(&cfg.Logging.Level, c.flags.logLevel)
	return changed
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
		if c.loggerErr != nil {
			c.loggerErr = fmt.Errorf("setup logging: %w", c.loggerErr)
		}
	})
	return c.logger, c.loggerErr
}

// onClose registers cleanup run after the command finishes.
func (c *commandContext) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// release runs the registered cleanups in reverse order. Commands defer it
// so caches close even when the command fails.
func (c *commandContext) release() {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if err := errors.Join(errs...); err != nil && c.logger != nil {
		c.logger.Warn("cleanup failed",
			logging.String(logging.FieldEventType, "cleanup_failed"),
			logging.String(logging.FieldImpact, "translation cache may not be flushed"),
			logging.Error(err),
		)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
