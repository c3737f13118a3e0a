package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	customError "github.com/segyhp/fleet-charges/pkg/errors"

	"go.uber.org/zap"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool                     `json:"success"`
	Code      string                   `json:"code,omitempty"`
	Error     string                   `json:"error"`
	Message   string                   `json:"message,omitempty"`
	Fields    []customError.FieldError `json:"fields,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// NoContent sends an empty 204 response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	writeError(w, statusCode, ErrorResponse{Message: message}, err)
}

func writeError(w http.ResponseWriter, statusCode int, response ErrorResponse, err error) {
	response.Success = false
	response.Timestamp = time.Now()
	if err != nil {
		response.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		zap.L().Error("failed to encode error response", zap.Error(encodeErr))
	}
}

// FromError maps an error of the charge engine to its HTTP status:
// validation → 400, unknown charge or installment → 404, anything else → 500.
func FromError(w http.ResponseWriter, err error) {
	var verr *customError.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Code:    customError.ErrCodeInvalidCharge,
			Message: "Invalid charge",
			Fields:  verr.Fields,
		}, err)
		return
	}

	var bizErr *customError.BusinessError
	if errors.As(err, &bizErr) {
		status := http.StatusInternalServerError
		if customError.IsNotFound(err) {
			status = http.StatusNotFound
		}
		writeError(w, status, ErrorResponse{Code: bizErr.Code, Message: bizErr.Message}, bizErr.Err)
		return
	}

	InternalServerError(w, "Internal server error", err)
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusBadRequest, message, err)
}

// NotFound sends a 404 not found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, nil)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusInternalServerError, message, err)
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
