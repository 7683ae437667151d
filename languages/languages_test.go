package languages

import "testing"

func TestSupportedTable(t *testing.T) {
	if len(Supported) != 10 {
		t.Errorf("Expected 10 supported languages, got %d", len(Supported))
	}
	if Supported["en"] != "English" {
		t.Errorf("Expected English, got %s", Supported["en"])
	}
	if Supported["es"] != "Spanish" {
		t.Errorf("Expected Spanish, got %s", Supported["es"])
	}
}

func TestName(t *testing.T) {
	if got := Name("hi"); got != "Hindi" {
		t.Errorf("Expected Hindi, got %s", got)
	}
	// Unknown codes fall back to English
	if got := Name("xx"); got != "English" {
		t.Errorf("Expected English fallback, got %s", got)
	}
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"ES", "es"},
		{"pt-BR", "pt"},
		{"zh-Hans", "zh"},
		{"fr-FR", "fr"},
		{"", "en"},
		{"  ", "en"},
		{"not-a-language!", "en"},
		{"tlh", "en"}, // parseable but unsupported
	}

	for _, tc := range testCases {
		if got := Normalize(tc.input); got != tc.expected {
			t.Errorf("Normalize(%q): expected %q, got %q", tc.input, tc.expected, got)
		}
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("ja") {
		t.Error("Expected ja to be supported")
	}
	if IsSupported("xx") {
		t.Error("Expected xx to be unsupported")
	}
}
