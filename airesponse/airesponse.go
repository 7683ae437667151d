// Package airesponse turns untrusted free-text model replies into loose JSON
// mappings with a guaranteed key set. It strips markdown formatting artifacts,
// parses the remainder as a JSON object, and injects per-kind defaults for
// missing keys.
package airesponse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse is returned when a sanitized reply is empty or is not a valid JSON
// object.
var ErrParse = errors.New("invalid model response")

// Kind selects which required-key/default table applies during validation.
type Kind string

const (
	KindExtraction  Kind = "extraction"
	KindExplanation Kind = "explanation"
	KindInteraction Kind = "interaction"
)

// Canned fallback texts, kept verbatim across all response kinds.
const (
	DefaultExtractedText        = "No text extracted"
	DefaultDetectedLanguage     = "unknown"
	DefaultDetectedLanguageName = "Unknown"

	DefaultPlainExplanation     = "This medication is prescribed for your health. Please consult your doctor for specific information."
	DefaultWhyTimingMatters     = "Taking medication at the right time helps maintain consistent levels in your body for optimal effectiveness."
	DefaultDosageSafetyReminder = "Always follow the prescribed dosage exactly."
)

// kindDefaults maps each response kind to its required keys and the value
// injected when a key is absent. Interaction responses have no defaults;
// missing keys surface later as a construction error.
var kindDefaults = map[Kind]map[string]any{
	KindExtraction: {
		"extracted_text":         DefaultExtractedText,
		"medications":            []any{},
		"detected_language":      DefaultDetectedLanguage,
		"detected_language_name": DefaultDetectedLanguageName,
	},
	KindExplanation: {
		"plain_explanation":      DefaultPlainExplanation,
		"why_timing_matters":     DefaultWhyTimingMatters,
		"dosage_safety_reminder": DefaultDosageSafetyReminder,
	},
	KindInteraction: {},
}

// Sanitize strips markdown fencing and narrows arbitrary model output down to
// what looks like a JSON object. It never fails: if no object-like span
// exists, the trimmed input is returned as-is and parsing fails downstream.
//
// Fences are matched first-opening/next-closing, so a fence inside the JSON
// payload itself will truncate the result. Likewise the first-'{'/last-'}'
// narrowing can pick up a JSON-like snippet preceding the real payload. Both
// are known accuracy limits of the heuristic.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)

	if idx := strings.Index(text, "```json"); idx != -1 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end != -1 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	} else if idx := strings.Index(text, "```"); idx != -1 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end != -1 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start != -1 && end != -1 && end > start {
			text = text[start : end+1]
		}
	}

	return strings.TrimSpace(text)
}

// Validate parses a sanitized reply as a JSON object and fills the required
// keys for the given kind with their defaults when absent. Values that are
// present keep whatever type the model produced; type errors surface at
// assembly time, not here.
func Validate(sanitized string, kind Kind) (map[string]any, error) {
	if strings.TrimSpace(sanitized) == "" {
		return nil, fmt.Errorf("%w: empty response after sanitization", ErrParse)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(sanitized), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrParse)
	}

	defaults, ok := kindDefaults[kind]
	if !ok {
		return nil, fmt.Errorf("unknown response kind: %q", kind)
	}
	for key, value := range defaults {
		if _, present := result[key]; !present {
			result[key] = value
		}
	}

	return result, nil
}
