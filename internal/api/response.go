package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aura-systems/aura/internal/domain"
)

// SuccessResponse wraps every successful payload under a "data" key.
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse carries a single human-readable error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes data as a JSON body with the given status. A nil data writes
// headers only.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes data wrapped in a SuccessResponse.
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes message wrapped in an ErrorResponse.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

var statusByCode = map[string]int{
	domain.ErrCodeValidation:      http.StatusBadRequest,
	domain.ErrCodeUnsupportedFile: http.StatusBadRequest,
	domain.ErrCodeNotFound:        http.StatusNotFound,
	domain.ErrCodeUnauthorized:    http.StatusUnauthorized,
	domain.ErrCodeForbidden:       http.StatusForbidden,
	domain.ErrCodeExtraction:      http.StatusUnprocessableEntity,
	domain.ErrCodeProvider:        http.StatusBadGateway,
	domain.ErrCodeInternalError:   http.StatusInternalServerError,
}

// DomainErrorToHTTP maps a domain error, possibly wrapped, to an HTTP status.
// Anything that is not a DomainError is a 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[domainErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError translates err and writes it as the response.
func HandleError(w http.ResponseWriter, err error) {
	Error(w, DomainErrorToHTTP(err), err.Error())
}
