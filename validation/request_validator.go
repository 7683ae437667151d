// Package validation provides request validation for the PillGuide API.
package validation

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Field size limits. Prescriptions photos arrive base64-encoded, so the image
// bound is generous; text fields stay short.
const (
	maxImageBase64Bytes = 8 * 1024 * 1024
	maxNameLength       = 200
	maxFieldLength      = 100
	maxTimingEntries    = 10
	maxCurrentMeds      = 50
)

// dangerousPatterns rejects obvious injection attempts in free-text fields.
// strings.Contains is faster than regex for plain substring checks.
var dangerousPatterns = []string{
	"<script", "</script>", "javascript:", "onload=", "onerror=",
	"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:",
	"../", "..\\",
}

// ValidateImageBase64 checks that the uploaded prescription image is
// well-formed base64 within size bounds. Data-URI prefixes are stripped so
// clients can send either form; the returned string is the bare payload.
func ValidateImageBase64(image string) (string, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return "", fmt.Errorf("image_base64 is required")
	}

	if idx := strings.Index(image, ";base64,"); idx != -1 && strings.HasPrefix(image, "data:") {
		image = image[idx+len(";base64,"):]
	}

	if len(image) > maxImageBase64Bytes {
		return "", fmt.Errorf("image too large: %d bytes (max %d)", len(image), maxImageBase64Bytes)
	}

	if _, err := base64.StdEncoding.DecodeString(image); err != nil {
		return "", fmt.Errorf("image_base64 is not valid base64: %w", err)
	}

	return image, nil
}

// ValidateMedicationName checks a user-supplied medication name.
func ValidateMedicationName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name too long: %d characters (max %d)", len(name), maxNameLength)
	}
	return checkDangerous(name, "name")
}

// ValidateShortField checks optional short text fields like dosage and
// frequency.
func ValidateShortField(value, field string) error {
	if len(value) > maxFieldLength {
		return fmt.Errorf("%s too long: %d characters (max %d)", field, len(value), maxFieldLength)
	}
	return checkDangerous(value, field)
}

// ValidateTiming checks the timing token list.
func ValidateTiming(timing []string) error {
	if len(timing) > maxTimingEntries {
		return fmt.Errorf("too many timing entries: %d (max %d)", len(timing), maxTimingEntries)
	}
	for _, t := range timing {
		if err := ValidateShortField(t, "timing"); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCurrentMedications checks the current-medication list for an
// interaction check.
func ValidateCurrentMedications(medications []string) error {
	if len(medications) == 0 {
		return fmt.Errorf("current_medications is required")
	}
	if len(medications) > maxCurrentMeds {
		return fmt.Errorf("too many current medications: %d (max %d)", len(medications), maxCurrentMeds)
	}
	for _, m := range medications {
		if err := ValidateMedicationName(m); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePatientID checks the optional patient identifier.
func ValidatePatientID(patientID string) error {
	if patientID == "" {
		return nil
	}
	if len(patientID) > maxFieldLength {
		return fmt.Errorf("patient_id too long: %d characters (max %d)", len(patientID), maxFieldLength)
	}
	return checkDangerous(patientID, "patient_id")
}

func checkDangerous(value, field string) error {
	lower := strings.ToLower(value)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%s contains disallowed content", field)
		}
	}
	return nil
}
