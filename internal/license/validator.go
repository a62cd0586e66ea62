package license

import (
	"context"
	"log/slog"
	"strings"
	"time"

	licenseErrors "keymint/internal/errors"
)

// Decision reason codes. These are the machine-readable contract with
// clients; Reason is empty on a grant.
const (
	ReasonNoKey             = "NO_KEY"
	ReasonNoDeviceID        = "NO_DEVICE_ID"
	ReasonNotFound          = "NOT_FOUND"
	ReasonExpired           = "EXPIRED"
	ReasonMaxDevicesReached = "MAX_DEVICES_REACHED"
)

// Decision is the structured outcome of a validation request. Policy denials
// (not found, expired, quota exhausted) are Decision values, never errors.
type Decision struct {
	Valid  bool
	Reason string

	// Populated on grants and quota denials so callers can show remaining
	// quota.
	CustomerName string
	ExpiresAt    string
	MaxDevices   int
	UsedDevices  int

	// NewBinding is true when this grant consumed a unit of quota.
	NewBinding bool
}

// granted builds a grant decision from a record and its current device count.
func granted(rec *Record, usedDevices int) Decision {
	return Decision{
		Valid:        true,
		CustomerName: rec.CustomerName,
		ExpiresAt:    rec.ExpiresAt,
		MaxDevices:   rec.EffectiveMaxDevices(),
		UsedDevices:  usedDevices,
	}
}

// denied builds a denial decision with the given reason.
func denied(reason string) Decision {
	return Decision{Valid: false, Reason: reason}
}

// Validator decides admission for (key, deviceID) pairs and durably binds new
// devices to their license's quota.
type Validator struct {
	store  Store
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewValidator creates a validator backed by the given store.
func NewValidator(store Store, logger *slog.Logger) *Validator {
	return &Validator{
		store:  store,
		logger: logger.With(slog.String("component", "validator")),
		nowFn:  time.Now,
	}
}

// WithNow overrides the validator's clock. Test hook.
func (v *Validator) WithNow(now func() time.Time) *Validator {
	v.nowFn = now
	return v
}

// Validate applies the admission policy for key and deviceID.
//
// The whole decision runs inside Store.Update so the load-check-append-save
// cycle on the binding path is one critical section. A store-load failure is
// handled fail-open: the request is answered NOT_FOUND instead of surfacing a
// fault, keeping validation available while the store is unreadable (the
// issuance path stays fail-closed). A save failure on the binding path is a
// genuine fault: the grant is withdrawn and StorageUnavailable returned,
// because the binding was never durably recorded.
func (v *Validator) Validate(ctx context.Context, key, deviceID string) (Decision, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return denied(ReasonNoKey), nil
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return denied(ReasonNoDeviceID), nil
	}

	var decision Decision
	ran := false

	err := v.store.Update(ctx, func(records []Record) ([]Record, bool, error) {
		ran = true
		idx := findRecord(records, key)
		if idx < 0 {
			decision = denied(ReasonNotFound)
			return records, false, nil
		}
		rec := &records[idx]

		// Expiration is checked before the quota on purpose: an expired
		// license with a full device list reports EXPIRED.
		exp, parseErr := rec.ExpiresAtTime()
		if parseErr != nil || !v.nowFn().UTC().Before(exp) {
			decision = denied(ReasonExpired)
			return records, false, nil
		}

		devices := rec.NormalizedDevices()
		maxDevices := rec.EffectiveMaxDevices()

		// Already-bound devices are granted without mutation, even when the
		// quota was later lowered below the current device count.
		if rec.HasDevice(deviceID) {
			decision = granted(rec, len(devices))
			return records, false, nil
		}

		if len(devices) >= maxDevices {
			decision = denied(ReasonMaxDevicesReached)
			decision.MaxDevices = maxDevices
			decision.UsedDevices = len(devices)
			return records, false, nil
		}

		rec.Devices = append(devices, deviceID)
		decision = granted(rec, len(rec.Devices))
		decision.NewBinding = true
		return records, true, nil
	})
	if err != nil {
		if !ran {
			// Load failure: fail open to NOT_FOUND rather than going dark.
			v.logger.WarnContext(ctx, "license store unreadable, failing open",
				slog.String("error", err.Error()))
			return denied(ReasonNotFound), nil
		}
		v.logger.ErrorContext(ctx, "device binding not persisted",
			slog.String("key", maskKey(key)),
			slog.String("error", err.Error()))
		return Decision{}, licenseErrors.StorageUnavailable(err)
	}

	return decision, nil
}

// findRecord returns the index of the record with the given key, or -1.
// Matching is exact and case-sensitive.
func findRecord(records []Record, key string) int {
	for i := range records {
		if records[i].Key == key {
			return i
		}
	}
	return -1
}
