// Package httpjson holds the JSON request/response helpers shared by the
// HTTP handlers.
package httpjson

import (
	"encoding/json"
	"net/http"
	"strconv"

	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func Write(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes err as {error} with the status of its kind. Server errors are
// logged with the request logger and never shown to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := svcErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), nil).Error("request failed", "path", r.URL.Path, "err", err)
	}
	Write(w, status, ErrorResponse{Error: svcErr.PublicMessage(err)})
}

// Decode reads a JSON body into dst.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return svcErr.InvalidArgument("Invalid request body")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return svcErr.InvalidArgument("Invalid request body")
	}
	return nil
}

// ParseID parses an opaque user id from a path or body field.
func ParseID(field, value string) (uint64, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument(field + " must be a valid user id")
	}
	return id, nil
}

// FormatID renders a user id the way clients send it back.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// QueryInt reads an optional positive integer query parameter.
func QueryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, svcErr.InvalidArgument(name + " must be a non-negative integer")
	}
	return n, nil
}

// QueryString returns a pointer to a query parameter, or nil when absent.
func QueryString(r *http.Request, name string) *string {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}
