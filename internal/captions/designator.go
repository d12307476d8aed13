package captions

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Designator names a caption source: either an SRT file or a subtitle stream
// inside a media container.
type Designator struct {
	Path string
	// Embedded is true when Path is a media container.
	Embedded bool
	// Language filters the container's subtitle streams; empty selects among all.
	Language string
	// Index selects among the matching streams; negative counts from the end.
	Index int
}

var streamSuffix = regexp.MustCompile(`:([a-zA-Z]+(?:-[a-zA-Z0-9]+)?):(-?[0-9]+)$`)

// ParseDesignator interprets "file.srt", "media.mkv:LANG:N" or "media.mkv"
// (first subtitle stream).
func ParseDesignator(value string) (Designator, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Designator{}, fmt.Errorf("empty subtitle designator")
	}
	if strings.EqualFold(filepath.Ext(value), ".srt") {
		return Designator{Path: value}, nil
	}
	if loc := streamSuffix.FindStringSubmatchIndex(value); loc != nil {
		index, err := strconv.Atoi(value[loc[4]:loc[5]])
		if err != nil {
			return Designator{}, fmt.Errorf("subtitle designator %q: %w", value, err)
		}
		path := value[:loc[0]]
		if path == "" {
			return Designator{}, fmt.Errorf("subtitle designator %q: missing media path", value)
		}
		return Designator{Path: path, Embedded: true, Language: value[loc[2]:loc[3]], Index: index}, nil
	}
	return Designator{Path: value, Embedded: true}, nil
}

func (d Designator) String() string {
	if !d.Embedded {
		return d.Path
	}
	if d.Language == "" && d.Index == 0 {
		return d.Path
	}
	return fmt.Sprintf("%s:%s:%d", d.Path, d.Language, d.Index)
}
