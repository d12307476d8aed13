package language

import (
	"errors"
	"testing"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"fi", "fi"},
		{"FI", "fi"},
		{"fin", "fi"},
		{"eng", "en"},
		{" sv ", "sv"},
		{"pt-BR", "pt-br"},
		{"pt_BR", "pt-br"},
		{"en-US", "en-us"},
		{"zh-Hant", "zh-hant"},
		{"zh-Hans", "zh-hans"},
		{"zh_Hant_TW", "zh-hant-tw"},
		{"sr-Latn", "sr-latn"},
		{"sr-Cyrl", "sr-cyrl"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Canonical(tt.input)
			if err != nil {
				t.Fatalf("Canonical(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("Canonical(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalRejectsReservedCodes(t *testing.T) {
	for _, input := range []string{"", "  ", "und", "mul", "zxx", "qen", "qaa", "not a code", "ca-valencia", "de-u-co-phonebk"} {
		t.Run(input, func(t *testing.T) {
			if _, err := Canonical(input); !errors.Is(err, ErrUnsupported) {
				t.Fatalf("Canonical(%q) error = %v, want ErrUnsupported", input, err)
			}
		})
	}
}

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"fin", "fi"},
		{"deu", "de"},
		{"pt-BR", "pt"},
		{"", ""},
		{"mul", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ToISO2(tt.input); result != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "eng"},
		{"fi", "fin"},
		{"FIN", "fin"},
		{"sv", "swe"},
		{"de", "deu"},
		{"", "und"},
		{"qen", "und"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ToISO3(tt.input); result != tt.expected {
				t.Errorf("ToISO3(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fi", "Finnish"},
		{"eng", "English"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := DisplayName(tt.input); result != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestExtractFromTags(t *testing.T) {
	if got := ExtractFromTags(map[string]string{"LANGUAGE": " FIN\u0000"}); got != "fin" {
		t.Fatalf("ExtractFromTags = %q, want fin", got)
	}
	if got := ExtractFromTags(nil); got != "" {
		t.Fatalf("ExtractFromTags(nil) = %q, want empty", got)
	}
}

func TestMatches(t *testing.T) {
	if !Matches("fi", "fin") {
		t.Fatal("expected fi to match fin")
	}
	if Matches("fi", "sv") {
		t.Fatal("expected fi not to match sv")
	}
	if Matches("", "") {
		t.Fatal("expected empty codes not to match")
	}
}
