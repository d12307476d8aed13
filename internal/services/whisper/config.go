package whisper

import "time"

// Config captures runtime settings for whisper-ctranslate2 runs.
type Config struct {
	// Command is the whisper-ctranslate2 executable.
	Command string
	// Model is the Whisper model to use (e.g., "large-v3").
	Model       string
	ComputeType string
	Threads     int
	// InitialPrompt primes punctuation and casing.
	InitialPrompt           string
	ConditionOnPreviousText bool
	// Timeout bounds one run; zero disables the limit.
	Timeout time.Duration
	// WorkDir hosts temporary output directories; empty uses the system default.
	WorkDir string
}

// Whisper configuration constants.
const (
	DefaultCommand     = "whisper-ctranslate2"
	DefaultModel       = "large-v3"
	DefaultComputeType = "float32"
	OutputFormat       = "srt"
	TaskTranslate      = "translate"
	// TranslationTarget is the only language speech translation produces.
	TranslationTarget = "en"
)
