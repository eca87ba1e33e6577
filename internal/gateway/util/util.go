package util

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"acadgrade/internal/ingest"
	"acadgrade/internal/store"
	"acadgrade/internal/validate"
)

// JSONResponse structure for successful responses
type JSONResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// JSONError structure for error responses
type JSONError struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// WriteJSON is a helper to write JSON responses
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// A map with a "success" key is already a complete response body.
	var response interface{}
	if responseMap, ok := payload.(map[string]interface{}); ok && responseMap["success"] != nil {
		response = payload
	} else {
		response = JSONResponse{Success: true, Data: payload}
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// WriteJSONWarnings writes a success response that carries warnings, for
// writes that landed but whose aggregation step failed.
func WriteJSONWarnings(w http.ResponseWriter, status int, payload interface{}, warnings []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := JSONResponse{Success: true, Data: payload, Warnings: warnings}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// WriteJSONError is a helper to write standardized error JSON responses
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	log.Printf("HTTP Error %d: %s", status, message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResponse := JSONError{
		Success: false,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("Error writing JSON error response: %v", err)
	}
}

// HandleEngineError translates engine errors to HTTP responses. Validation
// failures carry their code; everything unrecognized is an internal error.
func HandleEngineError(w http.ResponseWriter, err error) {
	if verr, ok := validate.AsValidation(err); ok {
		status := http.StatusUnprocessableEntity
		switch verr.Code {
		case validate.CodeAssessmentLocked:
			status = http.StatusConflict
		case validate.CodeNotEnrolled:
			status = http.StatusUnprocessableEntity
		case validate.CodeMalformedScore, validate.CodeOutOfRange:
			status = http.StatusUnprocessableEntity
		}
		log.Printf("HTTP Error %d: %s", status, verr.Error())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if encErr := json.NewEncoder(w).Encode(JSONError{Code: string(verr.Code), Message: verr.Message}); encErr != nil {
			log.Printf("Error writing JSON error response: %v", encErr)
		}
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ingest.ErrUnauthenticated):
		WriteJSONError(w, http.StatusUnauthorized, err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// ExtractToken extracts the token from the Authorization header (Bearer <token>)
func ExtractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}

	// Expect header: "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}
