package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5/middleware"
)

// WriteEnvelope encodes a success envelope and writes it with the given status.
func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, message string, payload interface{}) {
	writeJSON(w, r, status, Envelope{Code: CodeOK, Message: message, Payload: payload})
}

// ErrorEnvelope maps a domain error to an HTTP status and envelope code.
// Unknown errors degrade to a generic 500; the raw error is logged, never
// echoed to the client.
func ErrorEnvelope(w http.ResponseWriter, r *http.Request, err error, message string) {
	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case errors.Is(err, ErrBadRequest):
		status, code = http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, ErrNotFound):
		status, code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrConflict):
		status, code = http.StatusConflict, CodeConflict
	case errors.Is(err, ErrUnauthenticated):
		status, code = http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, ErrForbidden):
		status, code = http.StatusForbidden, CodeForbidden
	case errors.Is(err, ErrUpstream):
		status, code = http.StatusBadGateway, CodeUpstream
	}
	if status == http.StatusInternalServerError {
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Unhandled error in handler",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		if message == "" {
			message = "Internal server error"
		}
	}
	writeJSON(w, r, status, Envelope{Code: code, Message: message, Payload: nil})
}

// ErrorStatus writes an error envelope with an explicit status and code.
// Used by the chat relay to mirror upstream statuses.
func ErrorStatus(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	writeJSON(w, r, status, Envelope{Code: code, Message: message, Payload: nil})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body", slog.Any("error", err))
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q (wanted %s)", unmarshalTypeError.Field, unmarshalTypeError.Type)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

		case errors.As(err, &invalidUnmarshalError):
			panic(fmt.Errorf("developer error: invalid argument passed to json.Unmarshal: %w", err))

		default:
			return fmt.Errorf("error decoding JSON body: %w", err)
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// Slugify lowers the name and reduces it to hyphen-separated alphanumeric
// runs, the same rule slugify(lower, strict) applied on the old clients.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
