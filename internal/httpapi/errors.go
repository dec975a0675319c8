package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arbengine/fundarb/internal/apperr"
)

// errorBody is the JSON shape every non-2xx response carries.
type errorBody struct {
	Error     apperr.Kind `json:"error"`
	Message   string      `json:"message"`
	ErrorID   string      `json:"errorId"`
	Timestamp time.Time   `json:"timestamp"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := err.(*apperr.E)
	if !ok {
		ae = apperr.Internalf("unexpected error", err)
	}

	status := ae.Kind.HTTPStatus()
	body := errorBody{
		Error:     ae.Kind,
		Message:   ae.Message,
		ErrorID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}

	logger.Warn().
		Str("request_id", requestIDFrom(r.Context())).
		Str("error_id", body.ErrorID).
		Str("kind", string(ae.Kind)).
		Err(ae).
		Msg("request failed")

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func apperrUnauthenticated(msg string) error { return apperr.Unauthenticated(msg, nil) }
func apperrForbidden(msg string) error       { return apperr.Forbidden(msg, nil) }
func apperrLimited() error                   { return apperr.Limited("rate limit exceeded", nil) }
