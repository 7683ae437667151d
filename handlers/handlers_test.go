package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pillguide/pillguide-api/airesponse"
	"github.com/pillguide/pillguide-api/analyzer"
	"github.com/pillguide/pillguide-api/entities"
	"github.com/pillguide/pillguide-api/storage"
)

type fakeModel struct {
	generate func(systemPrompt, userPrompt, imageBase64 string) (string, error)
}

func (f *fakeModel) Generate(ctx context.Context, systemPrompt, userPrompt, imageBase64 string) (string, error) {
	return f.generate(systemPrompt, userPrompt, imageBase64)
}

type fakeStore struct {
	mu       sync.Mutex
	inserted map[string][]bson.M
	findDocs []bson.M
	findErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{inserted: make(map[string][]bson.M)}
}

func (f *fakeStore) Insert(ctx context.Context, collection string, document bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted[collection] = append(f.inserted[collection], document)
	return nil
}

func (f *fakeStore) Find(ctx context.Context, collection string, filter bson.M) ([]bson.M, error) {
	return f.findDocs, f.findErr
}

func (f *fakeStore) Count(ctx context.Context, collection string) (int64, error) {
	return int64(len(f.findDocs)), nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

const extractionReply = "```json\n" + `{
  "extracted_text": "Metformin 500mg twice daily, Lisinopril 10mg once daily",
  "medications": [
    {"name": "Metformin", "dosage": "500mg", "frequency": "twice daily", "timing": ["morning", "evening"], "with_food": true},
    {"name": "Lisinopril", "dosage": "10mg", "frequency": "once daily", "timing": ["morning"]}
  ],
  "detected_language": "en",
  "detected_language_name": "English"
}` + "\n```"

func explanationReply(name string) string {
	return `{"plain_explanation": "` + name + ` helps your condition.",
		"why_timing_matters": "Steady levels work best.",
		"dosage_safety_reminder": "Never double a dose of ` + name + `."}`
}

// pipelineModel answers the extraction prompt when an image is attached and
// explanation prompts otherwise, keyed by the medication name in the prompt.
func pipelineModel() *fakeModel {
	return &fakeModel{generate: func(system, user, image string) (string, error) {
		if image != "" {
			return extractionReply, nil
		}
		for _, name := range []string{"Metformin", "Lisinopril", "Aspirin"} {
			if strings.Contains(user, name) {
				return explanationReply(name), nil
			}
		}
		return "", errors.New("unexpected prompt")
	}}
}

func testImage(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("img"), 64))
}

func postJSON(t *testing.T, handler http.HandlerFunc, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestRoot(t *testing.T) {
	rr := httptest.NewRecorder()
	Root()(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), apiBanner) {
		t.Errorf("Expected banner in response, got %s", rr.Body.String())
	}
}

func TestLanguages(t *testing.T) {
	rr := httptest.NewRecorder()
	Languages()(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}

	var payload struct {
		Languages map[string]string `json:"languages"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(payload.Languages) != 10 {
		t.Errorf("Expected 10 languages, got %d", len(payload.Languages))
	}
	if payload.Languages["es"] != "Spanish" {
		t.Errorf("Expected Spanish, got %s", payload.Languages["es"])
	}
}

func TestUploadPrescription(t *testing.T) {
	store := newFakeStore()
	an := analyzer.New(pipelineModel(), 2)
	image := testImage(t)

	rr := postJSON(t, UploadPrescription(store, an), PrescriptionCreate{
		ImageBase64:       image,
		PatientID:         "patient-1",
		PreferredLanguage: "es",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var prescription entities.Prescription
	if err := json.Unmarshal(rr.Body.Bytes(), &prescription); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if prescription.ID == "" {
		t.Error("Expected generated prescription ID")
	}
	if prescription.PatientID != "patient-1" {
		t.Errorf("Expected patient-1, got %s", prescription.PatientID)
	}
	if prescription.DetectedLanguage != "en" {
		t.Errorf("Expected detected language en, got %s", prescription.DetectedLanguage)
	}
	if !prescription.AnalysisComplete {
		t.Error("Expected analysis_complete true")
	}
	if len(prescription.ImageData) != imageDataPrefixLen {
		t.Errorf("Expected %d-char image prefix, got %d", imageDataPrefixLen, len(prescription.ImageData))
	}
	if prescription.ImageData != image[:imageDataPrefixLen] {
		t.Error("Expected image prefix to match uploaded encoding")
	}

	if len(prescription.Medications) != 2 {
		t.Fatalf("Expected 2 medications, got %d", len(prescription.Medications))
	}
	if prescription.Medications[0].Name != "Metformin" || prescription.Medications[1].Name != "Lisinopril" {
		t.Errorf("Expected extraction order preserved, got %s, %s",
			prescription.Medications[0].Name, prescription.Medications[1].Name)
	}
	for _, med := range prescription.Medications {
		if med.TranslatedTo != "es" {
			t.Errorf("Expected translated_to es, got %s", med.TranslatedTo)
		}
		if med.OriginalLanguage != "en" {
			t.Errorf("Expected original_language en, got %s", med.OriginalLanguage)
		}
		expected := med.Name + " helps your condition. ⚠️ Never double a dose of " + med.Name + "."
		if med.PlainLanguageExplanation != expected {
			t.Errorf("Expected %q, got %q", expected, med.PlainLanguageExplanation)
		}
		if len(med.Warnings) != 1 || !strings.HasPrefix(med.Warnings[0], "Never double a dose") {
			t.Errorf("Expected safety reminder warning, got %v", med.Warnings)
		}
	}

	if len(store.inserted[storage.CollectionPrescriptions]) != 1 {
		t.Errorf("Expected 1 stored prescription, got %d", len(store.inserted[storage.CollectionPrescriptions]))
	}
}

func TestUploadPrescriptionParseError(t *testing.T) {
	store := newFakeStore()
	model := &fakeModel{generate: func(system, user, image string) (string, error) {
		return "I cannot read this image, sorry.", nil
	}}
	an := analyzer.New(model, 2)

	rr := postJSON(t, UploadPrescription(store, an), PrescriptionCreate{ImageBase64: testImage(t)})

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), parseErrorMessage) {
		t.Errorf("Expected parse error message, got %s", rr.Body.String())
	}
	if len(store.inserted[storage.CollectionPrescriptions]) != 0 {
		t.Error("Expected nothing persisted on parse failure")
	}
}

func TestUploadPrescriptionMaskedExplanationFailure(t *testing.T) {
	store := newFakeStore()
	model := &fakeModel{generate: func(system, user, image string) (string, error) {
		if image != "" {
			return extractionReply, nil
		}
		if strings.Contains(user, "Lisinopril") {
			return "", errors.New("model unavailable")
		}
		return explanationReply("Metformin"), nil
	}}
	an := analyzer.New(model, 2)

	rr := postJSON(t, UploadPrescription(store, an), PrescriptionCreate{ImageBase64: testImage(t)})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 despite one failed explanation, got %d", rr.Code)
	}

	var prescription entities.Prescription
	if err := json.Unmarshal(rr.Body.Bytes(), &prescription); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(prescription.Medications) != 2 {
		t.Fatalf("Expected 2 medications, got %d", len(prescription.Medications))
	}

	masked := prescription.Medications[1]
	expected := airesponse.DefaultPlainExplanation + " ⚠️ " + airesponse.DefaultDosageSafetyReminder
	if masked.PlainLanguageExplanation != expected {
		t.Errorf("Expected canned explanation, got %q", masked.PlainLanguageExplanation)
	}
}

func TestUploadPrescriptionBadRequest(t *testing.T) {
	store := newFakeStore()
	an := analyzer.New(pipelineModel(), 2)
	handler := UploadPrescription(store, an)

	testCases := []struct {
		name string
		body PrescriptionCreate
	}{
		{"missing image", PrescriptionCreate{}},
		{"invalid base64", PrescriptionCreate{ImageBase64: "not base64!!!"}},
		{"bad patient id", PrescriptionCreate{ImageBase64: testImage(t), PatientID: "../etc/passwd"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postJSON(t, handler, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestUploadPrescriptionInvalidBody(t *testing.T) {
	store := newFakeStore()
	an := analyzer.New(pipelineModel(), 2)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	UploadPrescription(store, an)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestListPrescriptions(t *testing.T) {
	store := newFakeStore()
	store.findDocs = []bson.M{
		{
			"id":         "p1",
			"patient_id": "patient-1",
			"medications": bson.A{
				bson.M{"id": "m1", "name": "Metformin", "dosage": "500mg"},
			},
			"analysis_complete": true,
			"created_at":        "2025-03-14T09:26:53Z",
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/?patient_id=patient-1", nil)
	rr := httptest.NewRecorder()
	ListPrescriptions(store)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var prescriptions []entities.Prescription
	if err := json.Unmarshal(rr.Body.Bytes(), &prescriptions); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(prescriptions) != 1 {
		t.Fatalf("Expected 1 prescription, got %d", len(prescriptions))
	}
	if prescriptions[0].ID != "p1" {
		t.Errorf("Expected p1, got %s", prescriptions[0].ID)
	}
	if len(prescriptions[0].Medications) != 1 || prescriptions[0].Medications[0].Name != "Metformin" {
		t.Errorf("Expected nested Metformin, got %v", prescriptions[0].Medications)
	}
}

func TestListPrescriptionsBadPatientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?patient_id=..%2Fetc", nil)
	rr := httptest.NewRecorder()
	ListPrescriptions(newFakeStore())(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestListPrescriptionsStoreError(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("store down")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	ListPrescriptions(store)(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestAddMedication(t *testing.T) {
	store := newFakeStore()
	an := analyzer.New(pipelineModel(), 2)

	rr := postJSON(t, AddMedication(store, an), MedicationCreate{
		Name:              "Aspirin",
		Dosage:            "100mg",
		Frequency:         "once daily",
		Timing:            []string{"morning"},
		WithFood:          true,
		PreferredLanguage: "fr",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var medication entities.Medication
	if err := json.Unmarshal(rr.Body.Bytes(), &medication); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if medication.Name != "Aspirin" {
		t.Errorf("Expected Aspirin, got %s", medication.Name)
	}
	if medication.TranslatedTo != "fr" {
		t.Errorf("Expected translated_to fr, got %s", medication.TranslatedTo)
	}
	if !strings.Contains(medication.PlainLanguageExplanation, " ⚠️ ") {
		t.Errorf("Expected composed explanation, got %q", medication.PlainLanguageExplanation)
	}

	if len(store.inserted[storage.CollectionMedications]) != 1 {
		t.Errorf("Expected 1 stored medication, got %d", len(store.inserted[storage.CollectionMedications]))
	}
}

func TestAddMedicationInvalidName(t *testing.T) {
	store := newFakeStore()
	an := analyzer.New(pipelineModel(), 2)

	rr := postJSON(t, AddMedication(store, an), MedicationCreate{Name: "<script>x</script>"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
	if len(store.inserted[storage.CollectionMedications]) != 0 {
		t.Error("Expected nothing persisted for invalid input")
	}
}

func TestListMedications(t *testing.T) {
	store := newFakeStore()
	store.findDocs = []bson.M{
		{"id": "m1", "name": "Metformin", "created_at": "2025-03-14T09:26:53Z"},
		{"id": "m2", "name": "Aspirin"},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	ListMedications(store)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var medications []entities.Medication
	if err := json.Unmarshal(rr.Body.Bytes(), &medications); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(medications) != 2 {
		t.Errorf("Expected 2 medications, got %d", len(medications))
	}
}

func TestCheckContraindications(t *testing.T) {
	model := &fakeModel{generate: func(system, user, image string) (string, error) {
		return `{"has_contraindications": true,
			"warnings": ["Ibuprofen reduces the effect of Lisinopril"],
			"recommendations": "Ask your doctor before combining these."}`, nil
	}}
	an := analyzer.New(model, 2)

	rr := postJSON(t, CheckContraindications(an), ContraindicationCheck{
		MedicationName:     "Ibuprofen",
		CurrentMedications: []string{"Lisinopril"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result entities.InteractionResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !result.HasContraindications {
		t.Error("Expected has_contraindications true")
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Expected 1 warning, got %v", result.Warnings)
	}
	if !strings.HasPrefix(result.Recommendations, "Ask your doctor") {
		t.Errorf("Unexpected recommendations: %q", result.Recommendations)
	}
}

func TestCheckContraindicationsStrictFailure(t *testing.T) {
	model := &fakeModel{generate: func(system, user, image string) (string, error) {
		// missing required keys
		return `{"has_contraindications": true}`, nil
	}}
	an := analyzer.New(model, 2)

	rr := postJSON(t, CheckContraindications(an), ContraindicationCheck{
		MedicationName:     "Ibuprofen",
		CurrentMedications: []string{"Lisinopril"},
	})

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for incomplete interaction reply, got %d", rr.Code)
	}
}

func TestCheckContraindicationsBadRequest(t *testing.T) {
	an := analyzer.New(pipelineModel(), 2)
	handler := CheckContraindications(an)

	testCases := []struct {
		name string
		body ContraindicationCheck
	}{
		{"missing name", ContraindicationCheck{CurrentMedications: []string{"Aspirin"}}},
		{"empty current medications", ContraindicationCheck{MedicationName: "Ibuprofen"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postJSON(t, handler, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

type fakeChecker struct {
	status     string
	details    map[string]interface{}
	httpStatus int
}

func (f *fakeChecker) HealthCheck(ctx context.Context) (string, map[string]interface{}, int) {
	return f.status, f.details, f.httpStatus
}

func TestHealthCheckHandler(t *testing.T) {
	checker := &fakeChecker{
		status:     "healthy",
		details:    map[string]interface{}{"prescription_count": int64(3)},
		httpStatus: http.StatusOK,
	}

	rr := httptest.NewRecorder()
	HealthCheck(checker)(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"healthy"`) {
		t.Errorf("Expected healthy status, got %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"prescription_count":3`) {
		t.Errorf("Expected stats in payload, got %s", rr.Body.String())
	}
}
