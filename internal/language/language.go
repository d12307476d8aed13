package language

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnsupported reports a code that cannot name a single concrete language.
var ErrUnsupported = errors.New("unsupported language code")

// reserved codes never name a single concrete language.
var reserved = map[string]struct{}{
	"und": {},
	"mul": {},
	"zxx": {},
	"mis": {},
}

// Canonical converts a BCP 47 or ISO 639 code to its shortest lowercase form,
// keeping an explicit script and region ("fin" -> "fi", "pt_BR" -> "pt-br",
// "zh-Hant-TW" -> "zh-hant-tw"). Private-use q-codes and the reserved
// und/mul/zxx/mis codes are rejected because they collide with artifact naming
// segments. Variants and extensions are rejected since the result would drop
// them.
func Canonical(code string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsupported)
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnsupported, code, err)
	}
	if len(tag.Variants()) > 0 || len(tag.Extensions()) > 0 {
		return "", fmt.Errorf("%w: variants and extensions are not supported in %q", ErrUnsupported, code)
	}
	base, script, region := tag.Raw()
	name := strings.ToLower(base.String())
	if _, ok := reserved[name]; ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, code)
	}
	if len(name) == 3 && name[0] == 'q' {
		return "", fmt.Errorf("%w: private-use code %q", ErrUnsupported, code)
	}
	if sc := script.String(); sc != "Zzzz" && sc != "" {
		name += "-" + strings.ToLower(sc)
	}
	if r := region.String(); r != "ZZ" && r != "" {
		name += "-" + strings.ToLower(r)
	}
	return name, nil
}

// ToISO2 returns the ISO 639-1 code for a recognized language or an empty
// string when no two-letter code exists.
func ToISO2(code string) string {
	canonical, err := Canonical(code)
	if err != nil {
		return ""
	}
	base, _, _ := strings.Cut(canonical, "-")
	if len(base) != 2 {
		return ""
	}
	return base
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	canonical, err := Canonical(code)
	if err != nil {
		return "und"
	}
	base, err := language.ParseBase(strings.SplitN(canonical, "-", 2)[0])
	if err != nil {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns the English language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

// ExtractFromTags extracts and normalizes the language from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}

// Matches reports whether two codes name the same language, ignoring region
// and the 2/3-letter spelling.
func Matches(a, b string) bool {
	left, right := ToISO3(a), ToISO3(b)
	return left != "und" && left == right
}
