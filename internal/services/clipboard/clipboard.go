package clipboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	langpkg "dualsub/internal/language"
	"dualsub/internal/logging"
	"dualsub/internal/services"
)

const (
	// EngineName is the engine key used in configuration and artifact names.
	EngineName = "clipboard"

	// separator follows the line number in every exchanged line.
	separator           = "—"
	defaultCharsLimit   = 4990
	defaultPollInterval = time.Second
)

// Board is the system clipboard.
type Board interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemBoard struct{}

func (systemBoard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemBoard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Config tunes the exchange.
type Config struct {
	CharsLimit   int
	PollInterval time.Duration
}

// Translator hands batches of numbered lines to a human through the
// clipboard and waits for the translated batch to be copied back.
type Translator struct {
	cfg    Config
	board  Board
	prompt io.Writer
	logger *slog.Logger
}

// Option customizes the translator.
type Option func(*Translator)

// WithBoard replaces the system clipboard.
func WithBoard(board Board) Option {
	return func(t *Translator) {
		if board != nil {
			t.board = board
		}
	}
}

// WithPrompt sets where operator instructions are printed.
func WithPrompt(w io.Writer) Option {
	return func(t *Translator) {
		if w != nil {
			t.prompt = w
		}
	}
}

// New constructs a clipboard translator.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Translator {
	if cfg.CharsLimit <= 0 {
		cfg.CharsLimit = defaultCharsLimit
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	t := &Translator{
		cfg:    cfg,
		board:  systemBoard{},
		prompt: os.Stderr,
		logger: logging.NewComponentLogger(logger, "clipboard"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the engine name.
func (t *Translator) Name() string { return EngineName }

// TranslateTexts exchanges texts batch by batch. A reply that cannot be
// parsed, or that misses a line of its batch, is asked for again.
func (t *Translator) TranslateTexts(ctx context.Context, texts []string, source, target string) ([]string, error) {
	out := make([]string, len(texts))
	for _, batch := range t.batches(texts) {
		if err := t.exchange(ctx, batch, out, source, target); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type entry struct {
	index int
	text  string
}

// batches packs numbered lines under the character limit. A single line
// longer than the limit is sent alone.
func (t *Translator) batches(texts []string) [][]entry {
	var out [][]entry
	var current []entry
	size := 0
	for i, text := range texts {
		line := formatLine(i, text)
		if len(current) > 0 && size+len(line)+1 > t.cfg.CharsLimit {
			out = append(out, current)
			current, size = nil, 0
		}
		current = append(current, entry{index: i, text: text})
		size += len(line) + 1
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func formatLine(i int, text string) string {
	return fmt.Sprintf("%d%s %s", i, separator, strings.ReplaceAll(text, "\n", " "))
}

func (t *Translator) exchange(ctx context.Context, batch []entry, out []string, source, target string) error {
	lines := make([]string, len(batch))
	for i, e := range batch {
		lines[i] = formatLine(e.index, e.text)
	}
	request := strings.Join(lines, "\n")

	for attempt := 1; ; attempt++ {
		if err := t.board.WriteAll(request); err != nil {
			return services.Wrap(services.ErrExternalTool, "clipboard", "write", "Failed to write clipboard", err)
		}
		fmt.Fprintf(t.prompt, "Copied %d lines (%d bytes). Paste into a translator %s→%s and copy the result back.\n",
			len(batch), len(request), langpkg.DisplayName(source), langpkg.DisplayName(target))

		reply, err := t.awaitChange(ctx, request)
		if err != nil {
			return err
		}
		translated, err := parseReply(reply, batch)
		if err == nil {
			for idx, text := range translated {
				out[idx] = text
			}
			return nil
		}
		t.logger.Warn("clipboard reply rejected",
			logging.String(logging.FieldEventType, "clipboard_reply_rejected"),
			logging.Int("attempt", attempt),
			logging.String(logging.FieldErrorHint, "copy the complete translated text, keeping the numbered lines"),
			logging.Error(err),
		)
		fmt.Fprintf(t.prompt, "Could not use the copied text (%v); try again.\n", err)
	}
}

func (t *Translator) awaitChange(ctx context.Context, request string) (string, error) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		current, err := t.board.ReadAll()
		if err != nil {
			return "", services.Wrap(services.ErrExternalTool, "clipboard", "read", "Failed to read clipboard", err)
		}
		if current != request {
			return current, nil
		}
	}
}

// parseReply maps "N— text" lines back to their indexes. Every index of the
// batch must be present.
func parseReply(reply string, batch []entry) (map[int]string, error) {
	expected := make(map[int]struct{}, len(batch))
	for _, e := range batch {
		expected[e.index] = struct{}{}
	}
	got := make(map[int]string, len(batch))
	for line := range strings.SplitSeq(strings.ReplaceAll(reply, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		num, text, ok := strings.Cut(line, separator)
		if !ok {
			return nil, fmt.Errorf("line %q has no %s separator", line, separator)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("line %q: bad number: %w", line, err)
		}
		if _, ok := expected[idx]; !ok {
			return nil, fmt.Errorf("line %q: unexpected number %d", line, idx)
		}
		got[idx] = strings.TrimSpace(text)
	}
	if len(got) != len(expected) {
		return nil, fmt.Errorf("got %d of %d lines", len(got), len(expected))
	}
	return got, nil
}
