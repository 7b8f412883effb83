package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"webHostingPortal/internal/apperrors"
)

const maxBodyBytes = 1 << 20

// formState is the envelope every response carries so form pages can render
// a banner and per-field errors without inspecting status codes.
type formState struct {
	Message string            `json:"message"`
	IsError bool              `json:"isError"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOK merges payload keys next to the form state.
func writeOK(w http.ResponseWriter, code int, message string, payload map[string]any) {
	body := map[string]any{"message": message, "isError": false}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, code, body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperrors.As(err)
	if !ok {
		ae = apperrors.Internal("An unexpected error occurred. Please try again later.", err)
	}
	if ae.Code == apperrors.CodeUnknown || ae.Code == apperrors.CodeExternal {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, ae.Code.HTTPStatus(), formState{Message: ae.Message, IsError: true, Fields: ae.Fields})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.Validation("Could not read the request body.", nil)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperrors.Validation("Request body is empty.", nil)
	}
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperrors.Validation("Invalid JSON payload.", map[string]string{typeErr.Field: "Invalid value."})
		}
		return apperrors.Validation("Invalid JSON payload.", nil)
	}
	return nil
}

// readRaw returns the body for handlers that validate the JSON themselves.
func readRaw(r *http.Request) (json.RawMessage, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.Validation("Could not read the request body.", nil)
	}
	if !json.Valid(body) {
		return nil, apperrors.Validation("Invalid JSON payload.", nil)
	}
	return body, nil
}
