package clipboard

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeBoard answers every write with replies[n] on the next read.
type fakeBoard struct {
	mu      sync.Mutex
	content string
	writes  []string
	replies []func(request string) string
}

func (b *fakeBoard) WriteAll(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = text
	b.writes = append(b.writes, text)
	return nil
}

func (b *fakeBoard) ReadAll() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.writes) - 1
	if n >= 0 && n < len(b.replies) && b.replies[n] != nil {
		b.content = b.replies[n](b.writes[n])
		b.replies[n] = nil
	}
	return b.content, nil
}

func upper(request string) string { return strings.ToUpper(request) }

func newTestTranslator(board Board, limit int) (*Translator, *bytes.Buffer) {
	var prompt bytes.Buffer
	return New(Config{CharsLimit: limit, PollInterval: time.Millisecond}, nil, WithBoard(board), WithPrompt(&prompt)), &prompt
}

func TestTranslateTextsRoundTrip(t *testing.T) {
	board := &fakeBoard{replies: []func(string) string{upper}}
	tr, prompt := newTestTranslator(board, 0)

	got, err := tr.TranslateTexts(context.Background(), []string{"moi", "kaksi\nriviä"}, "fi", "en")
	if err != nil {
		t.Fatalf("TranslateTexts: %v", err)
	}
	if !slices.Equal(got, []string{"MOI", "KAKSI RIVIÄ"}) {
		t.Fatalf("got %q", got)
	}
	if board.writes[0] != "0— moi\n1— kaksi riviä" {
		t.Fatalf("request = %q", board.writes[0])
	}
	if !strings.Contains(prompt.String(), "Finnish→English") {
		t.Fatalf("prompt = %q", prompt.String())
	}
}

func TestTranslateTextsBatchesByLimit(t *testing.T) {
	board := &fakeBoard{replies: []func(string) string{upper, upper}}
	tr, _ := newTestTranslator(board, 14)

	got, err := tr.TranslateTexts(context.Background(), []string{"aaaa", "bbbb"}, "fi", "en")
	if err != nil {
		t.Fatalf("TranslateTexts: %v", err)
	}
	if len(board.writes) != 2 || !slices.Equal(got, []string{"AAAA", "BBBB"}) {
		t.Fatalf("writes=%q got=%q", board.writes, got)
	}
}

func TestTranslateTextsRetriesIncompleteReply(t *testing.T) {
	board := &fakeBoard{replies: []func(string) string{
		func(string) string { return "0— ONLY ONE" },
		upper,
	}}
	tr, _ := newTestTranslator(board, 0)

	got, err := tr.TranslateTexts(context.Background(), []string{"a", "b"}, "fi", "en")
	if err != nil {
		t.Fatalf("TranslateTexts: %v", err)
	}
	if len(board.writes) != 2 || !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("writes=%d got=%q", len(board.writes), got)
	}
}

func TestTranslateTextsHonoursCancel(t *testing.T) {
	board := &fakeBoard{}
	tr, _ := newTestTranslator(board, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := tr.TranslateTexts(ctx, []string{"moi"}, "fi", "en"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestParseReplyRejectsStrangers(t *testing.T) {
	batch := []entry{{index: 3, text: "x"}}
	if _, err := parseReply("4— X", batch); err == nil {
		t.Fatal("expected unexpected-number error")
	}
	if _, err := parseReply("no separator", batch); err == nil {
		t.Fatal("expected separator error")
	}
	got, err := parseReply("\r\n 3— X \r\n", batch)
	if err != nil || got[3] != "X" {
		t.Fatalf("got %v, %v", got, err)
	}
}
