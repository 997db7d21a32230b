package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tourbook/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every JSON response.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Count   *int              `json:"count,omitempty"`
	Message string            `json:"message,omitempty"`
	Code    string            `json:"code,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

const (
	codeValidation   = "VALIDATION_ERROR"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeNotFound     = "NOT_FOUND"
	codeConflict     = "CONFLICT"
	codeReference    = "REFERENCE_ERROR"
	codeRateLimited  = "RATE_LIMITED"
	codeMethod       = "METHOD_NOT_ALLOWED"
	codeInternal     = "INTERNAL_ERROR"
)

func statusFor(kind domain.Kind) (int, string) {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest, codeValidation
	case domain.KindUnauthorized:
		return http.StatusUnauthorized, codeUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden, codeForbidden
	case domain.KindNotFound:
		return http.StatusNotFound, codeNotFound
	case domain.KindConflict:
		return http.StatusConflict, codeConflict
	case domain.KindReference:
		return http.StatusUnprocessableEntity, codeReference
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, envelope{Success: true, Data: data})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: items, Count: &n})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

func writeFailure(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, envelope{Success: false, Code: code, Message: message})
}

// writeError maps a service error to its status code. Internal errors are
// logged and replaced by a generic message.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	statusCode, code := statusFor(kind)

	body := envelope{Success: false, Code: code, Message: err.Error()}
	var derr *domain.Error
	if errors.As(err, &derr) {
		body.Message = derr.Message
		body.Errors = derr.Fields
	}

	if statusCode == http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		body.Message = "internal server error"
		body.Errors = nil
	}

	writeJSON(w, statusCode, body)
}

// decodeJSON reads a JSON body of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validation("request body is required", nil)
		}
		return domain.Validation("invalid JSON body", nil)
	}
	return nil
}
