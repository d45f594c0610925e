package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dataquerypro/dataquery/internal/errs"
)

const maxBodyBytes = 4 << 20

// writeJSON writes a JSON response and returns any encoding error.
func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes {"error": code, "message": msg}.
func writeError(w http.ResponseWriter, status int, code, msg string) error {
	body := map[string]string{"error": code}
	if msg != "" {
		body["message"] = msg
	}
	return writeJSON(w, status, body)
}

// writeErr maps err to a status code by its errs kind.
func writeErr(w http.ResponseWriter, err error) error {
	kind := errs.KindOf(err)
	msg := err.Error()
	var e *errs.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return writeError(w, status, kind.String(), msg)
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConflict:
		return http.StatusConflict
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-limited JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.New(errs.ErrKindInvalidInput, "request body is empty")
		}
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid JSON body", err)
	}
	return nil
}
