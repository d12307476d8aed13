package argos

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"unicode"

	langpkg "dualsub/internal/language"
	"dualsub/internal/logging"
	"dualsub/internal/services"
)

// EngineName is the engine key used in configuration and artifact names.
const EngineName = "argos"

// Process is a running translation pipe. Each request is one JSON string
// written as a line; each reply is one JSON string read as a line.
type Process struct {
	Stdin  io.WriteCloser
	Stdout io.Reader
	Wait   func() error
}

// StartFunc launches the pipe command.
type StartFunc func(ctx context.Context, name string, args ...string) (*Process, error)

// Translator drives an Argos translation pipe over stdin/stdout.
type Translator struct {
	command string
	args    []string
	start   StartFunc
	logger  *slog.Logger
}

// Option customizes the translator.
type Option func(*Translator)

// WithStarter overrides how the pipe process is launched.
func WithStarter(start StartFunc) Option {
	return func(t *Translator) {
		if start != nil {
			t.start = start
		}
	}
}

// New constructs a translator. The pipe is invoked as
// "command args... <source> <target>".
func New(command string, args []string, logger *slog.Logger, opts ...Option) *Translator {
	t := &Translator{
		command: strings.TrimSpace(command),
		args:    append([]string(nil), args...),
		start:   startProcess,
		logger:  logging.NewComponentLogger(logger, "argos"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the engine name.
func (t *Translator) Name() string { return EngineName }

// TranslateTexts sends every speaker part of every text through one pipe
// process. Parts are rejoined with two spaces, keeping their dash prefixes.
func (t *Translator) TranslateTexts(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if t.command == "" {
		return nil, services.Wrap(services.ErrConfiguration, "argos", "translate", "Argos command not configured", nil)
	}
	if len(texts) == 0 {
		return nil, nil
	}
	args := append(append([]string(nil), t.args...), pipeLanguage(source), pipeLanguage(target))
	proc, err := t.start(ctx, t.command, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "argos", "start", "Failed to launch Argos pipe", err)
	}

	reader := bufio.NewReader(proc.Stdout)
	encoder := json.NewEncoder(proc.Stdin)
	memo := make(map[string]string)
	out := make([]string, len(texts))
	var translateErr error
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			translateErr = err
			break
		}
		var result []string
		for _, part := range SplitSpeakers(text) {
			body := strings.ReplaceAll(part.Text, "\n", " ")
			if strings.TrimSpace(body) == "" {
				continue
			}
			translated, ok := memo[body]
			if !ok {
				translated, err = exchange(encoder, reader, body)
				if err != nil {
					translateErr = err
					break
				}
				memo[body] = translated
			}
			result = append(result, part.Delim+translated)
		}
		if translateErr != nil {
			break
		}
		out[i] = strings.Join(result, "  ")
	}

	_ = proc.Stdin.Close()
	waitErr := proc.Wait()
	if translateErr != nil {
		if errors.Is(translateErr, context.Canceled) || errors.Is(translateErr, context.DeadlineExceeded) {
			return nil, translateErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "argos", "translate", "Argos pipe exchange failed", errors.Join(translateErr, waitErr))
	}
	if waitErr != nil {
		t.logger.Warn("argos pipe exited with error",
			logging.String(logging.FieldEventType, "argos_exit_error"),
			logging.String(logging.FieldErrorHint, "check the argos command output"),
			logging.String(logging.FieldImpact, "translations were received; exit status ignored"),
			logging.Error(waitErr),
		)
	}
	t.logger.Debug("argos translation complete",
		logging.Int("texts", len(texts)),
		logging.Int("requests", len(memo)),
	)
	return out, nil
}

func exchange(encoder *json.Encoder, reader *bufio.Reader, text string) (string, error) {
	if err := encoder.Encode(text); err != nil {
		return "", fmt.Errorf("write request: %w", err)
	}
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return "", fmt.Errorf("read reply: %w", err)
	}
	var reply string
	if err := json.Unmarshal(line, &reply); err != nil {
		return "", fmt.Errorf("decode reply %q: %w", strings.TrimSpace(string(line)), err)
	}
	return reply, nil
}

// SpeakerPart is one speaker's text with the dash that introduced it. The
// first part has an empty Delim unless the text starts with a dash.
type SpeakerPart struct {
	Delim string
	Text  string
}

// SplitSpeakers splits text at dashes that start a line or follow whitespace
// and are directly followed by a word character.
func SplitSpeakers(text string) []SpeakerPart {
	runes := []rune(text)
	parts := []SpeakerPart{{}}
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '-' || i+1 >= len(runes) || !isWord(runes[i+1]) {
			continue
		}
		delimStart := i
		if i > 0 {
			if !unicode.IsSpace(runes[i-1]) {
				continue
			}
			delimStart = i - 1
		}
		parts[len(parts)-1].Text = string(runes[start:delimStart])
		parts = append(parts, SpeakerPart{Delim: string(runes[delimStart : i+1])})
		start = i + 1
	}
	parts[len(parts)-1].Text = string(runes[start:])
	return parts
}

// pipeLanguage prefers the two-letter code Argos models are named by.
func pipeLanguage(code string) string {
	if iso2 := langpkg.ToISO2(code); iso2 != "" {
		return iso2
	}
	return code
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func startProcess(ctx context.Context, name string, args ...string) (*Process, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Process{
		Stdin:  stdin,
		Stdout: stdout,
		Wait: func() error {
			if err := cmd.Wait(); err != nil {
				if msg := strings.TrimSpace(stderr.String()); msg != "" {
					return fmt.Errorf("%w: %s", err, msg)
				}
				return err
			}
			return nil
		},
	}, nil
}
