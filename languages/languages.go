// Package languages holds the static table of languages supported for medical
// explanations and the normalization of user-supplied language codes.
package languages

import (
	"strings"

	"golang.org/x/text/language"
)

// Supported maps ISO-639-1 codes to language names for explanation output.
var Supported = map[string]string{
	"en": "English",
	"es": "Spanish",
	"hi": "Hindi",
	"ar": "Arabic",
	"zh": "Chinese",
	"fr": "French",
	"de": "German",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
}

// Default is the explanation language used when none is requested.
const Default = "en"

// Name returns the display name for a supported code, falling back to English
// for anything unknown.
func Name(code string) string {
	if name, ok := Supported[code]; ok {
		return name
	}
	return Supported[Default]
}

// IsSupported reports whether the code is in the supported table.
func IsSupported(code string) bool {
	_, ok := Supported[code]
	return ok
}

// Normalize canonicalizes a user-supplied language code ("ES", "pt-BR",
// "zh-Hans") to its supported base code. Unknown or empty input falls back to
// the default language.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return Default
	}

	tag, err := language.Parse(code)
	if err != nil {
		return Default
	}

	base, confidence := tag.Base()
	if confidence == language.No {
		return Default
	}

	if IsSupported(base.String()) {
		return base.String()
	}
	return Default
}
