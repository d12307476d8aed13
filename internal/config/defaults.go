package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath        = "~/.config/dualsub/config.toml"
	projectConfigName        = "dualsub.toml"
	defaultSourceLanguage    = "fi"
	defaultTargetLanguage    = "en"
	defaultWorkers           = 1
	defaultSecondaryColor    = "#87cefa"
	defaultWhisperCommand    = "whisper-ctranslate2"
	defaultWhisperModel      = "large-v3"
	defaultWhisperCompute    = "float32"
	defaultWhisperThreads    = 8
	defaultWhisperPrompt     = "Hello, and welcome to day 3 of our lecture.  Today, we will discuss various topics."
	defaultFFprobe           = "ffprobe"
	defaultFFmpeg            = "ffmpeg"
	defaultMkvmerge          = "mkvmerge"
	defaultAzureEndpoint     = "https://api.cognitive.microsofttranslator.com"
	defaultAzureRPM          = 60
	defaultAzureTimeout      = 30
	defaultArgosCommand      = "argospipe"
	defaultClipboardLimit    = 4990
	defaultClipboardPollMS   = 1000
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	minClipboardCharsLimit   = 100
	azureKeyEnv              = "AZURE_KEY"
	whisperEngine            = "whisper"
	whisperTranslationTarget = "en"
)

// KnownEngines lists the translation engines the pipeline can drive. The
// whisper engine translates speech directly and only produces English.
var KnownEngines = []string{"whisper", "azure", "argos", "clipboard"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			SourceLanguage: defaultSourceLanguage,
			TargetLanguage: defaultTargetLanguage,
			Engines:        []string{whisperEngine},
			Workers:        defaultWorkers,
			SecondaryColor: defaultSecondaryColor,
			LockDir:        defaultLockDir(),
		},
		Whisper: Whisper{
			Command:       defaultWhisperCommand,
			Model:         defaultWhisperModel,
			ComputeType:   defaultWhisperCompute,
			Threads:       defaultWhisperThreads,
			InitialPrompt: defaultWhisperPrompt,
		},
		Tools: Tools{
			FFprobe:  defaultFFprobe,
			FFmpeg:   defaultFFmpeg,
			Mkvmerge: defaultMkvmerge,
		},
		Translation: Translation{
			Azure: Azure{
				Endpoint:          defaultAzureEndpoint,
				RequestsPerMinute: defaultAzureRPM,
				TimeoutSeconds:    defaultAzureTimeout,
			},
			Argos: Argos{
				Command: defaultArgosCommand,
			},
			Clipboard: Clipboard{
				CharsLimit:     defaultClipboardLimit,
				PollIntervalMS: defaultClipboardPollMS,
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultLockDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "dualsub", "locks")
	}
	return "~/.cache/dualsub/locks"
}
