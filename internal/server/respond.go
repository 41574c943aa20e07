package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// envelope is the uniform response wrapper for every API endpoint.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: status < 400, Data: data, Timestamp: time.Now()}); err != nil {
		log.Printf("ERROR: encoding response: %v", err)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: status < 400, Data: data, Message: message, Timestamp: time.Now()}); err != nil {
		log.Printf("ERROR: encoding response: %v", err)
	}
}

// respondError maps domain error codes onto HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var domainErr *types.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case types.ErrCodeValidation:
			status = http.StatusBadRequest
		case types.ErrCodeEmployeeNotFound, types.ErrCodeEmployeeNoData:
			status = http.StatusNotFound
		case types.ErrCodeQuotaInterrupted:
			status = http.StatusServiceUnavailable
		}
	}
	// Internal failures carry driver and store detail that belongs in the
	// log, not on the wire.
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: request failed: %v", err)
		respondMessage(w, status, "internal server error", nil)
		return
	}
	respondMessage(w, status, err.Error(), nil)
}

func methodNotAllowed(w http.ResponseWriter) {
	respondMessage(w, http.StatusMethodNotAllowed, "method not allowed", nil)
}
