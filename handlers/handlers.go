// Package handlers provides HTTP request handlers for the PillGuide API
// endpoints: prescription upload and listing, manual medication entry,
// contraindication checks, the language table, and health checks.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pillguide/pillguide-api/airesponse"
	"github.com/pillguide/pillguide-api/analyzer"
	"github.com/pillguide/pillguide-api/entities"
	"github.com/pillguide/pillguide-api/interfaces"
	"github.com/pillguide/pillguide-api/languages"
	"github.com/pillguide/pillguide-api/logging"
	"github.com/pillguide/pillguide-api/storage"
	"github.com/pillguide/pillguide-api/validation"
)

// apiBanner is returned by the root endpoint.
const apiBanner = "PillGuide API v2.0 - Multi-Language Prescription Adherence System"

// parseErrorMessage is the upload-specific message for unparseable model
// replies.
const parseErrorMessage = "Failed to parse AI response. The prescription image may be unclear or invalid."

// imageDataPrefixLen is how much of the uploaded image encoding is stored for
// reference. The full image is never persisted.
const imageDataPrefixLen = 100

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response with a human-readable message
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// PrescriptionCreate is the request body for prescription upload.
type PrescriptionCreate struct {
	ImageBase64       string `json:"image_base64"`
	PatientID         string `json:"patient_id,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
}

// MedicationCreate is the request body for manual medication addition.
type MedicationCreate struct {
	Name              string   `json:"name"`
	Dosage            string   `json:"dosage"`
	Frequency         string   `json:"frequency"`
	Timing            []string `json:"timing"`
	Duration          string   `json:"duration,omitempty"`
	WithFood          bool     `json:"with_food,omitempty"`
	PreferredLanguage string   `json:"preferred_language,omitempty"`
}

// ContraindicationCheck is the request body for drug interaction checking.
type ContraindicationCheck struct {
	MedicationName     string   `json:"medication_name"`
	CurrentMedications []string `json:"current_medications"`
	PreferredLanguage  string   `json:"preferred_language,omitempty"`
}

// Root returns the API banner
func Root() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"message": apiBanner})
	}
}

// Languages returns the static supported-language table
func Languages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]any{"languages": languages.Supported})
	}
}

// UploadPrescription runs the full analysis pipeline: extract medications
// from the image, explain each one in the preferred language, persist the
// assembled prescription.
func UploadPrescription(store interfaces.DocumentStore, an *analyzer.Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PrescriptionCreate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		imageBase64, err := validation.ValidateImageBase64(req.ImageBase64)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := validation.ValidatePatientID(req.PatientID); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		preferredLanguage := languages.Normalize(req.PreferredLanguage)

		extraction, err := an.AnalyzePrescription(r.Context(), imageBase64)
		if err != nil {
			respondWithAnalysisError(w, err)
			return
		}

		medications, err := an.BuildMedications(r.Context(), extraction, preferredLanguage)
		if err != nil {
			respondWithAnalysisError(w, err)
			return
		}

		imageData := imageBase64
		if len(imageData) > imageDataPrefixLen {
			imageData = imageData[:imageDataPrefixLen]
		}

		prescription := entities.Prescription{
			ID:                entities.NewID(),
			PatientID:         req.PatientID,
			ImageData:         imageData,
			ExtractedText:     extractionText(extraction),
			DetectedLanguage:  extractionLanguage(extraction),
			PreferredLanguage: preferredLanguage,
			Medications:       medications,
			AnalysisComplete:  true,
			CreatedAt:         entities.Now(),
		}

		if err := store.Insert(r.Context(), storage.CollectionPrescriptions, prescription.ToDocument()); err != nil {
			logging.Error("Failed to persist prescription", "error", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to save prescription")
			return
		}

		logging.Info("Prescription analyzed",
			"prescription_id", prescription.ID,
			"detected_language", prescription.DetectedLanguage,
			"medication_count", len(medications))

		RespondWithJSON(w, http.StatusOK, prescription)
	}
}

// ListPrescriptions returns stored prescriptions, optionally filtered by
// patient
func ListPrescriptions(store interfaces.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := bson.M{}
		if patientID := r.URL.Query().Get("patient_id"); patientID != "" {
			if err := validation.ValidatePatientID(patientID); err != nil {
				RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			filter["patient_id"] = patientID
		}

		docs, err := store.Find(r.Context(), storage.CollectionPrescriptions, filter)
		if err != nil {
			logging.Error("Failed to list prescriptions", "error", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve prescriptions")
			return
		}

		prescriptions := make([]entities.Prescription, 0, len(docs))
		for _, doc := range docs {
			prescriptions = append(prescriptions, entities.PrescriptionFromDocument(doc))
		}

		RespondWithJSON(w, http.StatusOK, prescriptions)
	}
}

// AddMedication stores a manually entered medication with a generated
// explanation
func AddMedication(store interfaces.DocumentStore, an *analyzer.Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MedicationCreate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validateMedicationCreate(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		preferredLanguage := languages.Normalize(req.PreferredLanguage)

		medication := an.BuildManualMedication(r.Context(),
			req.Name, req.Dosage, req.Frequency, req.Timing, req.Duration, req.WithFood, preferredLanguage)

		if err := store.Insert(r.Context(), storage.CollectionMedications, medication.ToDocument()); err != nil {
			logging.Error("Failed to persist medication", "error", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to add medication")
			return
		}

		RespondWithJSON(w, http.StatusOK, medication)
	}
}

// ListMedications returns all manually added medications
func ListMedications(store interfaces.DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := store.Find(r.Context(), storage.CollectionMedications, bson.M{})
		if err != nil {
			logging.Error("Failed to list medications", "error", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve medications")
			return
		}

		medications := make([]entities.Medication, 0, len(docs))
		for _, doc := range docs {
			medications = append(medications, entities.MedicationFromDocument(doc))
		}

		RespondWithJSON(w, http.StatusOK, medications)
	}
}

// CheckContraindications runs a drug interaction check
func CheckContraindications(an *analyzer.Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContraindicationCheck
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validation.ValidateMedicationName(req.MedicationName); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := validation.ValidateCurrentMedications(req.CurrentMedications); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		preferredLanguage := languages.Normalize(req.PreferredLanguage)

		result, err := an.CheckInteractions(r.Context(), req.MedicationName, req.CurrentMedications, preferredLanguage)
		if err != nil {
			logging.Error("Contraindication check failed", "error", err)
			RespondWithError(w, http.StatusInternalServerError, "Failed to check contraindications")
			return
		}

		RespondWithJSON(w, http.StatusOK, result)
	}
}

// HealthCheck reports system health
func HealthCheck(checker interfaces.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, details, httpStatus := checker.HealthCheck(r.Context())

		payload := map[string]any{"status": status}
		for k, v := range details {
			payload[k] = v
		}

		RespondWithJSON(w, httpStatus, payload)
	}
}

// respondWithAnalysisError maps pipeline errors onto the error contract: a
// parse failure gets the unclear-image message, everything else a generic
// server failure.
func respondWithAnalysisError(w http.ResponseWriter, err error) {
	logging.Error("Prescription analysis failed", "error", err)

	if errors.Is(err, airesponse.ErrParse) {
		RespondWithError(w, http.StatusInternalServerError, parseErrorMessage)
		return
	}
	RespondWithError(w, http.StatusInternalServerError, "Failed to analyze prescription")
}

func validateMedicationCreate(req *MedicationCreate) error {
	if err := validation.ValidateMedicationName(req.Name); err != nil {
		return err
	}
	if err := validation.ValidateShortField(req.Dosage, "dosage"); err != nil {
		return err
	}
	if err := validation.ValidateShortField(req.Frequency, "frequency"); err != nil {
		return err
	}
	if err := validation.ValidateShortField(req.Duration, "duration"); err != nil {
		return err
	}
	return validation.ValidateTiming(req.Timing)
}

func extractionText(extraction map[string]any) string {
	if s, ok := extraction["extracted_text"].(string); ok {
		return s
	}
	return airesponse.DefaultExtractedText
}

func extractionLanguage(extraction map[string]any) string {
	if s, ok := extraction["detected_language"].(string); ok {
		return s
	}
	return airesponse.DefaultDetectedLanguage
}
