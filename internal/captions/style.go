package captions

import (
	"fmt"
	"strings"
)

// Style is the visual treatment applied to secondary cues. The zero Style
// leaves text untouched.
type Style struct {
	Color string
}

// IsZero reports whether the style changes nothing.
func (s Style) IsZero() bool {
	return strings.TrimSpace(s.Color) == ""
}

// Apply wraps every display line of text in a font color tag.
func (s Style) Apply(text string) string {
	if s.IsZero() {
		return text
	}
	lines := textLines(text)
	for i, line := range lines {
		lines[i] = fmt.Sprintf(`<font color="%s">%s</font>`, s.Color, line)
	}
	return strings.Join(lines, "\n")
}
