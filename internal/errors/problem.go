package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapError converts a domain error into the matching ProblemDetails response.
// Unrecognized errors map to a generic 500 without leaking internal detail.
func MapError(err error, instance, traceID string) *ProblemDetails {
	var problem *ProblemDetails

	switch {
	case errors.Is(err, ErrInvalidInput):
		problem = NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-input",
			"Invalid Input",
			err.Error(),
			instance,
		)
	case errors.Is(err, ErrLicenseNotFound):
		problem = NewProblemDetails(
			http.StatusNotFound,
			"/errors/license-not-found",
			"License Not Found",
			"No license matches the supplied key.",
			instance,
		)
	case errors.Is(err, ErrStorageUnavailable):
		problem = NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/storage-unavailable",
			"Storage Unavailable",
			"The license store could not be reached. Please try again.",
			instance,
		)
	default:
		problem = NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-server-error",
			"Internal Server Error",
			"An unexpected error occurred.",
			instance,
		)
	}

	return problem.WithExtension("trace_id", traceID)
}
