package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	licenseErrors "keymint/internal/errors"
	"keymint/internal/infrastructure"
	"keymint/internal/license"
	"keymint/internal/services"
)

// LicenseHandler handles license issue and verify requests.
type LicenseHandler struct {
	service  services.LicenseService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:  service,
		logger:   logger.With(slog.String("handler", "license")),
		validate: validator.New(),
	}
}

// Routes returns the chi router for license endpoints, mounted under /api.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/verify-license", h.Verify)
	r.Route("/licenses", func(r chi.Router) {
		r.Post("/", h.Issue)
		r.Get("/count", h.Count)
	})

	return r
}

// VerifyRequest is the wire format of a validation request.
type VerifyRequest struct {
	Key      string `json:"key"`
	DeviceID string `json:"deviceId"`
}

// VerifyResponse is the wire format of an admission decision. Reason is null
// on a grant; the quota fields appear on grants and quota denials.
type VerifyResponse struct {
	Valid        bool    `json:"valid"`
	Reason       *string `json:"reason"`
	CustomerName string  `json:"customerName,omitempty"`
	ExpiresAt    string  `json:"expiresAt,omitempty"`
	MaxDevices   int     `json:"maxDevices,omitempty"`
	UsedDevices  int     `json:"usedDevices,omitempty"`
}

// newVerifyResponse maps a Decision onto the wire format.
func newVerifyResponse(d license.Decision) VerifyResponse {
	resp := VerifyResponse{
		Valid:        d.Valid,
		CustomerName: d.CustomerName,
		ExpiresAt:    d.ExpiresAt,
		MaxDevices:   d.MaxDevices,
		UsedDevices:  d.UsedDevices,
	}
	if !d.Valid {
		reason := d.Reason
		resp.Reason = &reason
	}
	return resp
}

// Verify handles POST /api/verify-license.
//
// Policy denials are 200 responses carrying the decision; a request missing
// key or deviceId is a 400 whose body is still the decision shape, matching
// what legacy clients expect.
func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &VerifyRequest{}
	if err := render.Decode(r, req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode verify request",
			slog.String("error", err.Error()))
		reason := license.ReasonNoKey
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, VerifyResponse{Valid: false, Reason: &reason})
		return
	}

	decision, err := h.service.Validate(ctx, req.Key, req.DeviceID)
	if err != nil {
		problem := licenseErrors.MapError(err, r.URL.Path, infrastructure.GetTraceID(ctx))
		render.Render(w, r, problem)
		return
	}

	switch decision.Reason {
	case license.ReasonNoKey, license.ReasonNoDeviceID:
		render.Status(r, http.StatusBadRequest)
	}
	render.JSON(w, r, newVerifyResponse(decision))
}

// IssueRequest is the wire format for creating a license.
type IssueRequest struct {
	CustomerName string `json:"customerName" validate:"required"`
	DaysValid    int    `json:"daysValid" validate:"required,gt=0"`
	MaxDevices   int    `json:"maxDevices" validate:"omitempty,gt=0"`
}

// IssueResponse wraps the created record.
type IssueResponse struct {
	License   license.Record `json:"license"`
	Timestamp time.Time      `json:"timestamp"`
}

// Issue handles POST /api/licenses.
func (h *LicenseHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	req := &IssueRequest{}
	if err := render.Decode(r, req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode issue request",
			slog.String("error", err.Error()))
		problem := licenseErrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-request",
			"Invalid Request",
			err.Error(),
			r.URL.Path,
		).WithExtension("trace_id", traceID)
		render.Render(w, r, problem)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		problem := licenseErrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/invalid-input",
			"Invalid Input",
			err.Error(),
			r.URL.Path,
		).WithExtension("trace_id", traceID)
		render.Render(w, r, problem)
		return
	}

	record, err := h.service.Issue(ctx, license.IssueRequest{
		CustomerName: req.CustomerName,
		DaysValid:    req.DaysValid,
		MaxDevices:   req.MaxDevices,
	})
	if err != nil {
		problem := licenseErrors.MapError(err, r.URL.Path, traceID)
		render.Render(w, r, problem)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, IssueResponse{License: *record, Timestamp: time.Now().UTC()})
}

// Count handles GET /api/licenses/count.
func (h *LicenseHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.service.Count(ctx)
	if err != nil {
		problem := licenseErrors.MapError(
			licenseErrors.StorageUnavailable(err), r.URL.Path, infrastructure.GetTraceID(ctx))
		render.Render(w, r, problem)
		return
	}

	render.JSON(w, r, map[string]int{"count": count})
}
