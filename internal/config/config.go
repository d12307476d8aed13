package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Pipeline contains the language pair and staging settings used for every media file.
type Pipeline struct {
	SourceLanguage string   `toml:"source_language"`
	TargetLanguage string   `toml:"target_language"`
	Engines        []string `toml:"engines"`
	Workers        int      `toml:"workers"`
	SecondaryColor string   `toml:"secondary_color"`
	LockDir        string   `toml:"lock_dir"`
	WorkDir        string   `toml:"work_dir"`
}

// Whisper contains settings for the whisper-ctranslate2 transcriber.
type Whisper struct {
	Command                 string `toml:"command"`
	Model                   string `toml:"model"`
	ComputeType             string `toml:"compute_type"`
	Threads                 int    `toml:"threads"`
	InitialPrompt           string `toml:"initial_prompt"`
	ConditionOnPreviousText bool   `toml:"condition_on_previous_text"`
	TimeoutMinutes          int    `toml:"timeout_minutes"`
}

// Tools names the external media binaries.
type Tools struct {
	FFprobe  string `toml:"ffprobe"`
	FFmpeg   string `toml:"ffmpeg"`
	Mkvmerge string `toml:"mkvmerge"`
}

// Azure contains credentials for the Azure Translator API.
type Azure struct {
	APIKey            string `toml:"api_key"`
	Endpoint          string `toml:"endpoint"`
	Region            string `toml:"region"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Argos contains the command line of the Argos translation pipe.
type Argos struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Clipboard contains settings for clipboard-mediated manual translation.
type Clipboard struct {
	CharsLimit     int `toml:"chars_limit"`
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// Translation contains text translation engines and the memo cache.
type Translation struct {
	CachePath string    `toml:"cache_path"`
	Azure     Azure     `toml:"azure"`
	Argos     Argos     `toml:"argos"`
	Clipboard Clipboard `toml:"clipboard"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for dualsub.
//
// Configuration sections by subsystem:
//   - Pipeline: language pair, translation engines, concurrency, styling
//   - Whisper: speech-to-text model and invocation
//   - Tools: ffprobe/ffmpeg/mkvmerge binaries
//   - Translation: text translation engines and memo cache
//   - Logging: log format, level, and optional log directory
type Config struct {
	Pipeline    Pipeline    `toml:"pipeline"`
	Whisper     Whisper     `toml:"whisper"`
	Tools       Tools       `toml:"tools"`
	Translation Translation `toml:"translation"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// Finalize normalizes and validates the configuration. Callers that mutate a
// loaded config (CLI flag overrides) run it again before use.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the lock and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Pipeline.LockDir, c.Logging.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CachePathFor resolves the translation cache path for a media file. A leading
// "@/" is relative to the directory holding the media file. Returns an empty
// string when caching is disabled.
func (c *Config) CachePathFor(mediaPath string) string {
	raw := strings.TrimSpace(c.Translation.CachePath)
	if raw == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(raw, "@/"); ok {
		return filepath.Join(filepath.Dir(mediaPath), rest)
	}
	return raw
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
