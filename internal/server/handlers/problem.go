package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AlexTLDR/charter/internal/signup"
)

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
	// Extension fields
	Kind signup.Kind `json:"kind,omitempty"`
}

// FieldError is one message shown to the student; Field is set when the
// message concerns a single request field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem details as JSON response
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NewUnauthorizedError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   "/problems/unauthorized",
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: detail,
	}
}

func NewForbiddenError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   "/problems/forbidden",
		Title:  "Forbidden",
		Status: http.StatusForbidden,
		Detail: detail,
	}
}

func NewNotFoundError(resource string) *ProblemDetails {
	return &ProblemDetails{
		Type:   "/problems/not-found",
		Title:  "Not Found",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("%s not found", resource),
	}
}

func NewBadRequestError(field, message string) *ProblemDetails {
	return &ProblemDetails{
		Type:   "/problems/bad-request",
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
		Detail: fmt.Sprintf("%s: %s", field, message),
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

func NewInternalError() *ProblemDetails {
	return &ProblemDetails{
		Type:   "/problems/internal",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: "Something went wrong. Please try again later.",
	}
}

var rejectionStatus = map[signup.Kind]struct {
	status int
	title  string
}{
	signup.KindValidation:  {http.StatusUnprocessableEntity, "Validation Error"},
	signup.KindPermission:  {http.StatusForbidden, "Not Allowed"},
	signup.KindWindow:      {http.StatusForbidden, "Signup Window Closed"},
	signup.KindCapacity:    {http.StatusConflict, "Capacity Reached"},
	signup.KindDuplicate:   {http.StatusConflict, "Duplicate Submission"},
	signup.KindConsistency: {http.StatusConflict, "Room Mismatch"},
}

// NewRejectionError converts an admission rejection into a problem.
func NewRejectionError(r *signup.Rejection) *ProblemDetails {
	m, ok := rejectionStatus[r.Kind]
	if !ok {
		m.status, m.title = http.StatusUnprocessableEntity, "Rejected"
	}
	return &ProblemDetails{
		Type:   "/problems/" + string(r.Kind),
		Title:  m.title,
		Status: m.status,
		Detail: r.Message,
		Errors: []FieldError{{Message: r.Message}},
		Kind:   r.Kind,
	}
}

// problemFor maps an engine error onto its problem document.
func problemFor(err error) *ProblemDetails {
	var p *ProblemDetails
	if errors.As(err, &p) {
		return p
	}
	if r, ok := signup.AsRejection(err); ok {
		return NewRejectionError(r)
	}
	switch {
	case errors.Is(err, signup.ErrEventNotFound):
		return NewNotFoundError("Event")
	case errors.Is(err, signup.ErrEntryNotFound):
		return NewNotFoundError("Entry")
	}
	return NewInternalError()
}

// WriteError writes err as a problem document. Errors that are not part of
// the engine's vocabulary are logged.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	p := problemFor(err)
	if p.Status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	p.Instance = r.URL.Path
	p.WriteJSON(w)
}
