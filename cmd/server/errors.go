package main

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type apiError struct {
	Message string `json:"message,omitempty"`
}

func sendError(w http.ResponseWriter, status int, msg string) {
	err := apiError{
		Message: msg,
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(err)
}

// errorValidation is the body of a 400 Bad Request caused by a query
// parameter.
type errorValidation struct {
	// Field is the field that caused the validation error
	Field string `json:"field"`

	// Reason is the reason the field is invalid.
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (e errorValidation) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type validationResponse struct {
	apiError
	Errors []errorValidation `json:"errors"`
}

func sendValidation(w http.ResponseWriter, errs ...errorValidation) {
	resp := validationResponse{
		apiError: apiError{Message: "invalid print options"},
		Errors:   errs,
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(resp)
}
