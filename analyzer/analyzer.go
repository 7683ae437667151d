// Package analyzer orchestrates the prescription analysis pipeline: prompt
// construction, model invocation, response sanitization/validation, and
// assembly of the strict domain records.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pillguide/pillguide-api/airesponse"
	"github.com/pillguide/pillguide-api/entities"
	"github.com/pillguide/pillguide-api/interfaces"
	"github.com/pillguide/pillguide-api/logging"
)

// Stored-record fallbacks applied when an extracted candidate omits a field.
const (
	defaultDosage    = "As prescribed"
	defaultFrequency = "As prescribed"
)

// Analyzer runs the model-backed analysis operations.
type Analyzer struct {
	model interfaces.ModelClient

	// Maximum explanation calls in flight for one prescription. Explanation
	// calls are independent, so they fan out with this bound instead of
	// running one O(n) sequential round-trip chain per upload.
	explanationConcurrency int
}

// New creates an analyzer backed by the given model client.
func New(model interfaces.ModelClient, explanationConcurrency int) *Analyzer {
	if explanationConcurrency < 1 {
		explanationConcurrency = 1
	}
	return &Analyzer{
		model:                  model,
		explanationConcurrency: explanationConcurrency,
	}
}

// AnalyzePrescription sends the prescription image to the model and returns
// the validated extraction mapping. The mapping always carries the four
// extraction keys; values keep whatever types the model produced.
func (a *Analyzer) AnalyzePrescription(ctx context.Context, imageBase64 string) (map[string]any, error) {
	reply, err := a.model.Generate(ctx, extractionSystemPrompt, extractionPrompt, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("prescription analysis failed: %w", err)
	}

	result, err := airesponse.Validate(airesponse.Sanitize(reply), airesponse.KindExtraction)
	if err != nil {
		logging.Error("Failed to parse extraction response", "error", err)
		return nil, err
	}

	return result, nil
}

// ExplainMedication asks the model for a plain-language explanation of one
// medication in the target language. Failures are masked: a transport or
// parse error yields the canned default texts so one bad explanation never
// aborts a whole prescription upload.
func (a *Analyzer) ExplainMedication(ctx context.Context, name, dosage, frequency, language string) entities.Explanation {
	fallback := entities.Explanation{
		PlainExplanation:     airesponse.DefaultPlainExplanation,
		WhyTimingMatters:     airesponse.DefaultWhyTimingMatters,
		DosageSafetyReminder: airesponse.DefaultDosageSafetyReminder,
	}

	reply, err := a.model.Generate(ctx, explanationSystemPrompt(language), explanationPrompt(name, dosage, frequency, language), "")
	if err != nil {
		logging.Warn("Explanation generation failed, using defaults", "medication", name, "error", err)
		return fallback
	}

	result, err := airesponse.Validate(airesponse.Sanitize(reply), airesponse.KindExplanation)
	if err != nil {
		logging.Warn("Explanation response unparseable, using defaults", "medication", name, "error", err)
		return fallback
	}

	return entities.Explanation{
		PlainExplanation:     stringOr(result, "plain_explanation", airesponse.DefaultPlainExplanation),
		WhyTimingMatters:     stringOr(result, "why_timing_matters", airesponse.DefaultWhyTimingMatters),
		DosageSafetyReminder: stringOr(result, "dosage_safety_reminder", airesponse.DefaultDosageSafetyReminder),
	}
}

// CheckInteractions asks the model whether a medication interacts with the
// patient's current medications. Unlike extraction, this path is strict: a
// partially-specified interaction warning is not safe to show, so parse and
// construction errors propagate.
func (a *Analyzer) CheckInteractions(ctx context.Context, medicationName string, currentMedications []string, language string) (entities.InteractionResult, error) {
	reply, err := a.model.Generate(ctx, interactionSystemPrompt(language), interactionPrompt(medicationName, currentMedications, language), "")
	if err != nil {
		return entities.InteractionResult{}, fmt.Errorf("interaction check failed: %w", err)
	}

	result, err := airesponse.Validate(airesponse.Sanitize(reply), airesponse.KindInteraction)
	if err != nil {
		return entities.InteractionResult{}, err
	}

	return entities.NewInteractionResult(result)
}

// candidate is one medication entry retained from the extraction mapping.
type candidate struct {
	name      string
	dosage    string
	frequency string
	timing    []string
	duration  string
	withFood  bool

	// values passed to the explanation prompt; these keep the raw extracted
	// text rather than the stored-record fallbacks
	promptDosage    string
	promptFrequency string
}

// BuildMedications assembles Medication records from a validated extraction
// mapping. Candidates without a name are skipped, never persisted; the
// English name is preferred when present. Explanations are generated in the
// preferred language with a bounded fan-out that preserves candidate order;
// an individual explanation failure falls back to the canned defaults
// without failing the batch.
func (a *Analyzer) BuildMedications(ctx context.Context, extraction map[string]any, preferredLanguage string) ([]entities.Medication, error) {
	rawMedications, ok := extraction["medications"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: medications is not an array", entities.ErrConstruction)
	}

	detectedLanguage := stringOr(extraction, "detected_language", airesponse.DefaultDetectedLanguage)

	candidates := make([]candidate, 0, len(rawMedications))
	for _, raw := range rawMedications {
		med, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		name := strings.TrimSpace(stringOr(med, "name", ""))
		if name == "" {
			// Unnamed candidates are dropped, not errored: a partially
			// readable prescription is still useful.
			continue
		}
		if english := strings.TrimSpace(stringOr(med, "name_english", "")); english != "" {
			name = english
		}

		candidates = append(candidates, candidate{
			name:            name,
			dosage:          stringOr(med, "dosage", defaultDosage),
			frequency:       stringOr(med, "frequency", defaultFrequency),
			timing:          stringsOf(med["timing"]),
			duration:        stringOr(med, "duration", ""),
			withFood:        boolOr(med, "with_food"),
			promptDosage:    stringOr(med, "dosage", "Unknown"),
			promptFrequency: stringOr(med, "frequency", "as prescribed"),
		})
	}

	explanations := a.explainAll(ctx, candidates, preferredLanguage)

	medications := make([]entities.Medication, 0, len(candidates))
	for i, c := range candidates {
		medications = append(medications, assembleMedication(c, explanations[i], detectedLanguage, preferredLanguage))
	}

	return medications, nil
}

// explainAll fans the explanation calls out with bounded concurrency and
// collects results in candidate order. A failing call only affects its own
// slot; siblings keep running.
func (a *Analyzer) explainAll(ctx context.Context, candidates []candidate, language string) []entities.Explanation {
	explanations := make([]entities.Explanation, len(candidates))

	sem := make(chan struct{}, a.explanationConcurrency)
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			explanations[i] = a.ExplainMedication(ctx, c.name, c.promptDosage, c.promptFrequency, language)
		}(i, c)
	}
	wg.Wait()

	return explanations
}

// assembleMedication builds the persisted record for one candidate.
func assembleMedication(c candidate, explanation entities.Explanation, detectedLanguage, preferredLanguage string) entities.Medication {
	return entities.Medication{
		ID:                       entities.NewID(),
		Name:                     c.name,
		Dosage:                   c.dosage,
		Frequency:                c.frequency,
		Timing:                   c.timing,
		Duration:                 c.duration,
		PlainLanguageExplanation: FullExplanation(explanation),
		WhyTimingMatters:         explanation.WhyTimingMatters,
		WithFood:                 c.withFood,
		Warnings:                 []string{explanation.DosageSafetyReminder},
		OriginalLanguage:         detectedLanguage,
		TranslatedTo:             preferredLanguage,
		CreatedAt:                entities.Now(),
	}
}

// BuildManualMedication assembles a Medication for the manual-add path. The
// caller supplies every field; only the explanation comes from the model, in
// the requested language, with the same masked-failure behavior as uploads.
func (a *Analyzer) BuildManualMedication(ctx context.Context, name, dosage, frequency string, timing []string, duration string, withFood bool, language string) entities.Medication {
	explanation := a.ExplainMedication(ctx, name, dosage, frequency, language)

	return entities.Medication{
		ID:                       entities.NewID(),
		Name:                     name,
		Dosage:                   dosage,
		Frequency:                frequency,
		Timing:                   timing,
		Duration:                 duration,
		PlainLanguageExplanation: FullExplanation(explanation),
		WhyTimingMatters:         explanation.WhyTimingMatters,
		WithFood:                 withFood,
		Warnings:                 []string{explanation.DosageSafetyReminder},
		TranslatedTo:             language,
		CreatedAt:                entities.Now(),
	}
}

// FullExplanation composes the stored explanation text: the plain explanation,
// the warning glyph, and the dosage safety reminder, in that order.
func FullExplanation(e entities.Explanation) string {
	return e.PlainExplanation + " ⚠️ " + e.DosageSafetyReminder
}

func stringOr(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func boolOr(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func stringsOf(v any) []string {
	out := []string{}
	if raw, ok := v.([]any); ok {
		for _, entry := range raw {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
