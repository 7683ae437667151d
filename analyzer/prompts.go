package analyzer

import (
	"fmt"
	"strings"

	"github.com/pillguide/pillguide-api/languages"
)

// prompts.go defines the prompts sent to the model for prescription
// extraction, adherence explanations, and interaction checks. Keeping them in
// a separate file makes them easy to tweak without touching the rest of the
// code.

const extractionSystemPrompt = "You are a multilingual medical prescription analysis expert. " +
	"You can read prescriptions in any language and extract medication information accurately. " +
	"Always return valid JSON without markdown."

const extractionPrompt = `Analyze this prescription image. It may be in ANY language (English, Spanish, Hindi, Arabic, Chinese, French, etc.).

IMPORTANT: Read the prescription in its original language first, then provide the information.

Return ONLY valid JSON (no markdown):
{
    "detected_language": "language code (en/es/hi/ar/zh/fr/de/pt/ru/ja)",
    "detected_language_name": "language name",
    "extracted_text": "full original text from prescription in original language",
    "medications": [
        {
            "name": "medication name in original language",
            "name_english": "medication name in English",
            "dosage": "dosage in original format",
            "frequency": "frequency in original language",
            "timing": ["timing indicators"],
            "duration": "duration if specified",
            "with_food": true/false
        }
    ]
}

If unclear, return: {"detected_language": "unknown", "detected_language_name": "Unknown", "extracted_text": "Unable to read", "medications": []}`

func explanationSystemPrompt(language string) string {
	return fmt.Sprintf("You are a multilingual healthcare communication expert. "+
		"Explain medical information in %s using simple, plain language. "+
		"Always return valid JSON.", languages.Name(language))
}

// explanationPrompt asks for a plain-language explanation plus a Nudge Theory
// framing of why timing matters, to increase adherence.
func explanationPrompt(name, dosage, frequency, language string) string {
	return fmt.Sprintf(`For the medication '%s' (dosage: '%s', frequency: %s):

Provide explanation in %s language:
1. Explain what this medication does in simple, plain language (2-3 sentences)
2. Explain why timing matters (using Nudge Theory - explain the 'why' to increase adherence)
3. Add a safety reminder about dosage accuracy

Return ONLY valid JSON:
{
    "plain_explanation": "simple explanation",
    "why_timing_matters": "why timing is important",
    "dosage_safety_reminder": "brief dosage safety reminder"
}`, name, dosage, frequency, languages.Name(language))
}

func interactionSystemPrompt(language string) string {
	return fmt.Sprintf("You are a multilingual medical safety expert. "+
		"Provide contraindication information in %s. "+
		"Always return valid JSON.", languages.Name(language))
}

func interactionPrompt(medicationName string, currentMedications []string, language string) string {
	return fmt.Sprintf(`Check if '%s' has any basic contraindications or interactions with these current medications: %s.

Provide response in %s language.

Return ONLY valid JSON:
{
    "has_contraindications": true/false,
    "warnings": ["list of warnings or empty array"],
    "recommendations": "brief recommendation or 'No known contraindications'"
}`, medicationName, strings.Join(currentMedications, ", "), languages.Name(language))
}
