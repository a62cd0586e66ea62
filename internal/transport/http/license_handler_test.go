package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	licenseErrors "keymint/internal/errors"
	"keymint/internal/license"
)

// MockLicenseService is a mock implementation of services.LicenseService.
type MockLicenseService struct {
	mock.Mock
}

func (m *MockLicenseService) Issue(ctx context.Context, req license.IssueRequest) (*license.Record, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*license.Record), args.Error(1)
}

func (m *MockLicenseService) Validate(ctx context.Context, key, deviceID string) (license.Decision, error) {
	args := m.Called(ctx, key, deviceID)
	return args.Get(0).(license.Decision), args.Error(1)
}

func (m *MockLicenseService) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeVerify(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestVerify_Grant(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Validate", mock.Anything, "SD-AAAA-BBBB-CCCC", "laptop-1").
		Return(license.Decision{
			Valid:        true,
			CustomerName: "Acme Corp",
			ExpiresAt:    "2030-06-15T12:00:00Z",
			MaxDevices:   3,
			UsedDevices:  1,
		}, nil)
	handler := NewLicenseHandler(svc, testLogger())

	rec := postJSON(t, handler.Routes(), "/verify-license",
		`{"key":"SD-AAAA-BBBB-CCCC","deviceId":"laptop-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeVerify(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Nil(t, body["reason"], "grants carry an explicit null reason")
	assert.Contains(t, rec.Body.String(), `"reason":null`)
	assert.Equal(t, "Acme Corp", body["customerName"])
	assert.Equal(t, float64(3), body["maxDevices"])
	assert.Equal(t, float64(1), body["usedDevices"])
	svc.AssertExpectations(t)
}

func TestVerify_PolicyDenialsAre200(t *testing.T) {
	tests := []struct {
		name     string
		decision license.Decision
	}{
		{"not found", license.Decision{Reason: license.ReasonNotFound}},
		{"expired", license.Decision{Reason: license.ReasonExpired, CustomerName: "Acme Corp"}},
		{"quota", license.Decision{Reason: license.ReasonMaxDevicesReached, MaxDevices: 2, UsedDevices: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLicenseService)
			svc.On("Validate", mock.Anything, mock.Anything, mock.Anything).
				Return(tt.decision, nil)
			handler := NewLicenseHandler(svc, testLogger())

			rec := postJSON(t, handler.Routes(), "/verify-license",
				`{"key":"SD-AAAA-BBBB-CCCC","deviceId":"laptop-1"}`)

			assert.Equal(t, http.StatusOK, rec.Code)
			body := decodeVerify(t, rec)
			assert.Equal(t, false, body["valid"])
			assert.Equal(t, tt.decision.Reason, body["reason"])
		})
	}
}

func TestVerify_MissingFieldsAre400(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		decision   license.Decision
		wantReason string
	}{
		{
			name:       "missing key",
			body:       `{"deviceId":"laptop-1"}`,
			decision:   license.Decision{Reason: license.ReasonNoKey},
			wantReason: license.ReasonNoKey,
		},
		{
			name:       "missing device id",
			body:       `{"key":"SD-AAAA-BBBB-CCCC"}`,
			decision:   license.Decision{Reason: license.ReasonNoDeviceID},
			wantReason: license.ReasonNoDeviceID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLicenseService)
			svc.On("Validate", mock.Anything, mock.Anything, mock.Anything).
				Return(tt.decision, nil)
			handler := NewLicenseHandler(svc, testLogger())

			rec := postJSON(t, handler.Routes(), "/verify-license", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeVerify(t, rec)
			assert.Equal(t, false, body["valid"])
			assert.Equal(t, tt.wantReason, body["reason"])
		})
	}
}

func TestVerify_MalformedJSONIs400NoKey(t *testing.T) {
	svc := new(MockLicenseService)
	handler := NewLicenseHandler(svc, testLogger())

	rec := postJSON(t, handler.Routes(), "/verify-license", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeVerify(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, license.ReasonNoKey, body["reason"])
	svc.AssertNotCalled(t, "Validate")
}

func TestVerify_StorageFailureIs503Problem(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Validate", mock.Anything, mock.Anything, mock.Anything).
		Return(license.Decision{}, licenseErrors.ErrStorageUnavailable)
	handler := NewLicenseHandler(svc, testLogger())

	rec := postJSON(t, handler.Routes(), "/verify-license",
		`{"key":"SD-AAAA-BBBB-CCCC","deviceId":"laptop-1"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeVerify(t, rec)
	assert.Equal(t, "/errors/storage-unavailable", body["type"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), body["status"])
}

func TestIssue_Created(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Issue", mock.Anything, license.IssueRequest{
		CustomerName: "Acme Corp",
		DaysValid:    30,
		MaxDevices:   2,
	}).Return(&license.Record{
		Key:          "SD-AAAA-BBBB-CCCC",
		CustomerName: "Acme Corp",
		ExpiresAt:    "2026-09-30T12:00:00Z",
		MaxDevices:   2,
		Devices:      []string{},
	}, nil)
	handler := NewLicenseHandler(svc, testLogger())

	rec := postJSON(t, handler.Routes(), "/licenses",
		`{"customerName":"Acme Corp","daysValid":30,"maxDevices":2}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		License license.Record `json:"license"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SD-AAAA-BBBB-CCCC", body.License.Key)
	assert.Equal(t, []string{}, body.License.Devices)
	svc.AssertExpectations(t)
}

func TestIssue_DefaultsMaxDevicesToZero(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Issue", mock.Anything, license.IssueRequest{
		CustomerName: "Acme Corp",
		DaysValid:    365,
	}).Return(&license.Record{Key: "SD-AAAA-BBBB-CCCC", Devices: []string{}}, nil)
	handler := NewLicenseHandler(svc, testLogger())

	rec := postJSON(t, handler.Routes(), "/licenses",
		`{"customerName":"Acme Corp","daysValid":365}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestIssue_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{broken`},
		{"missing customer", `{"daysValid":30}`},
		{"zero days", `{"customerName":"Acme","daysValid":0}`},
		{"negative days", `{"customerName":"Acme","daysValid":-5}`},
		{"negative max devices", `{"customerName":"Acme","daysValid":30,"maxDevices":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLicenseService)
			handler := NewLicenseHandler(svc, testLogger())

			rec := postJSON(t, handler.Routes(), "/licenses", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeVerify(t, rec)
			assert.Equal(t, float64(http.StatusBadRequest), body["status"])
			svc.AssertNotCalled(t, "Issue")
		})
	}
}

func TestIssue_StorageFailureIs503(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Issue", mock.Anything, mock.Anything).
		Return(nil, licenseErrors.StorageUnavailable(io.ErrUnexpectedEOF))
	handler := NewLicenseHandler(svc, testLogger())

	rec := postJSON(t, handler.Routes(), "/licenses",
		`{"customerName":"Acme Corp","daysValid":30}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCount(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("Count", mock.Anything).Return(7, nil)
	handler := NewLicenseHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/licenses/count", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":7}`, rec.Body.String())
}
