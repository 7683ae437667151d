// Package entities defines the domain records persisted by the PillGuide API:
// medications with their AI-generated adherence explanations, complete
// prescriptions, and drug-interaction results.
package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrConstruction is returned when a strict record cannot be built because a
// required field is missing or has the wrong type.
var ErrConstruction = errors.New("record construction failed")

// Medication is a single medication with its explanations. Records are
// immutable after creation; no exposed operation updates or deletes them.
type Medication struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	Dosage                   string    `json:"dosage"`
	Frequency                string    `json:"frequency"`
	Timing                   []string  `json:"timing"`
	Duration                 string    `json:"duration,omitempty"`
	PlainLanguageExplanation string    `json:"plain_language_explanation"`
	WhyTimingMatters         string    `json:"why_timing_matters"`
	WithFood                 bool      `json:"with_food"`
	Warnings                 []string  `json:"warnings"`
	OriginalLanguage         string    `json:"original_language,omitempty"`
	TranslatedTo             string    `json:"translated_to,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
}

// Prescription is a complete analyzed prescription with embedded medications.
type Prescription struct {
	ID                string       `json:"id"`
	PatientID         string       `json:"patient_id,omitempty"`
	ImageData         string       `json:"image_data"`
	ExtractedText     string       `json:"extracted_text"`
	DetectedLanguage  string       `json:"detected_language"`
	PreferredLanguage string       `json:"preferred_language"`
	Medications       []Medication `json:"medications"`
	AnalysisComplete  bool         `json:"analysis_complete"`
	CreatedAt         time.Time    `json:"created_at"`
}

// Explanation holds the plain-language adherence texts for one medication.
type Explanation struct {
	PlainExplanation     string `json:"plain_explanation"`
	WhyTimingMatters     string `json:"why_timing_matters"`
	DosageSafetyReminder string `json:"dosage_safety_reminder"`
}

// InteractionResult is the outcome of a contraindication check.
type InteractionResult struct {
	HasContraindications bool     `json:"has_contraindications"`
	Warnings             []string `json:"warnings"`
	Recommendations      string   `json:"recommendations"`
}

// NewID generates a unique record identifier.
func NewID() string {
	return uuid.NewString()
}

// Now returns the record creation timestamp in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// NewInteractionResult builds an InteractionResult from a validated mapping.
// All three keys are required with the right types; a partially-specified
// interaction warning is not safe to show, so any omission fails the whole
// operation.
func NewInteractionResult(m map[string]any) (InteractionResult, error) {
	var result InteractionResult

	hasContra, ok := m["has_contraindications"].(bool)
	if !ok {
		return result, fmt.Errorf("%w: has_contraindications missing or not a boolean", ErrConstruction)
	}

	rawWarnings, ok := m["warnings"].([]any)
	if !ok {
		return result, fmt.Errorf("%w: warnings missing or not an array", ErrConstruction)
	}
	warnings := make([]string, 0, len(rawWarnings))
	for _, w := range rawWarnings {
		s, ok := w.(string)
		if !ok {
			return result, fmt.Errorf("%w: warnings contains a non-string entry", ErrConstruction)
		}
		warnings = append(warnings, s)
	}

	recommendations, ok := m["recommendations"].(string)
	if !ok {
		return result, fmt.Errorf("%w: recommendations missing or not a string", ErrConstruction)
	}

	result.HasContraindications = hasContra
	result.Warnings = warnings
	result.Recommendations = recommendations
	return result, nil
}

// ToDocument converts a medication to its stored form. Timestamps are
// serialized as RFC3339 strings, matching the wire format of the records.
func (m Medication) ToDocument() bson.M {
	return bson.M{
		"id":                         m.ID,
		"name":                       m.Name,
		"dosage":                     m.Dosage,
		"frequency":                  m.Frequency,
		"timing":                     m.Timing,
		"duration":                   m.Duration,
		"plain_language_explanation": m.PlainLanguageExplanation,
		"why_timing_matters":         m.WhyTimingMatters,
		"with_food":                  m.WithFood,
		"warnings":                   m.Warnings,
		"original_language":          m.OriginalLanguage,
		"translated_to":              m.TranslatedTo,
		"created_at":                 m.CreatedAt.Format(time.RFC3339),
	}
}

// ToDocument converts a prescription and its embedded medications to the
// stored form.
func (p Prescription) ToDocument() bson.M {
	meds := make([]bson.M, 0, len(p.Medications))
	for _, m := range p.Medications {
		meds = append(meds, m.ToDocument())
	}
	return bson.M{
		"id":                 p.ID,
		"patient_id":         p.PatientID,
		"image_data":         p.ImageData,
		"extracted_text":     p.ExtractedText,
		"detected_language":  p.DetectedLanguage,
		"preferred_language": p.PreferredLanguage,
		"medications":        meds,
		"analysis_complete":  p.AnalysisComplete,
		"created_at":         p.CreatedAt.Format(time.RFC3339),
	}
}

// MedicationFromDocument rebuilds a medication from its stored form.
func MedicationFromDocument(doc bson.M) Medication {
	return Medication{
		ID:                       docString(doc, "id"),
		Name:                     docString(doc, "name"),
		Dosage:                   docString(doc, "dosage"),
		Frequency:                docString(doc, "frequency"),
		Timing:                   docStrings(doc, "timing"),
		Duration:                 docString(doc, "duration"),
		PlainLanguageExplanation: docString(doc, "plain_language_explanation"),
		WhyTimingMatters:         docString(doc, "why_timing_matters"),
		WithFood:                 docBool(doc, "with_food"),
		Warnings:                 docStrings(doc, "warnings"),
		OriginalLanguage:         docString(doc, "original_language"),
		TranslatedTo:             docString(doc, "translated_to"),
		CreatedAt:                docTime(doc, "created_at"),
	}
}

// PrescriptionFromDocument rebuilds a prescription from its stored form.
func PrescriptionFromDocument(doc bson.M) Prescription {
	var meds []Medication
	switch raw := doc["medications"].(type) {
	case bson.A:
		for _, entry := range raw {
			if medDoc, ok := asDocument(entry); ok {
				meds = append(meds, MedicationFromDocument(medDoc))
			}
		}
	case []any:
		for _, entry := range raw {
			if medDoc, ok := asDocument(entry); ok {
				meds = append(meds, MedicationFromDocument(medDoc))
			}
		}
	}
	if meds == nil {
		meds = []Medication{}
	}

	return Prescription{
		ID:                docString(doc, "id"),
		PatientID:         docString(doc, "patient_id"),
		ImageData:         docString(doc, "image_data"),
		ExtractedText:     docString(doc, "extracted_text"),
		DetectedLanguage:  docString(doc, "detected_language"),
		PreferredLanguage: docString(doc, "preferred_language"),
		Medications:       meds,
		AnalysisComplete:  docBool(doc, "analysis_complete"),
		CreatedAt:         docTime(doc, "created_at"),
	}
}

func asDocument(v any) (bson.M, bool) {
	switch doc := v.(type) {
	case bson.M:
		return doc, true
	case map[string]any:
		return bson.M(doc), true
	case bson.D:
		return doc.Map(), true
	}
	return nil, false
}

func docString(doc bson.M, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func docBool(doc bson.M, key string) bool {
	if b, ok := doc[key].(bool); ok {
		return b
	}
	return false
}

func docStrings(doc bson.M, key string) []string {
	out := []string{}
	switch raw := doc[key].(type) {
	case []string:
		return raw
	case bson.A:
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	case []any:
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func docTime(doc bson.M, key string) time.Time {
	if s, ok := doc[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	if t, ok := doc[key].(time.Time); ok {
		return t
	}
	return time.Time{}
}
