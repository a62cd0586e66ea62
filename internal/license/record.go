package license

import (
	"strings"
	"time"
)

// Record is the sole persistent entity: a license key bound to a customer,
// an expiration instant, and a capped set of device identifiers.
//
// The JSON field names are the durable contract shared with the issuing CLI
// and any admin tooling; readers must ignore unknown fields. ExpiresAt is
// kept as the serialized ISO-8601 string rather than a time.Time so that one
// corrupt timestamp surfaces as an EXPIRED decision for that record instead
// of failing the whole store load.
type Record struct {
	Key          string   `json:"key"`
	CustomerName string   `json:"customerName"`
	ExpiresAt    string   `json:"expiresAt"`
	MaxDevices   int      `json:"maxDevices,omitempty"`
	Devices      []string `json:"devices"`
}

// ExpiresAtTime parses the record's expiration timestamp. RFC 3339 with or
// without fractional seconds is accepted, which covers both this issuer and
// the JavaScript Date#toISOString output of legacy tooling.
func (r *Record) ExpiresAtTime() (time.Time, error) {
	return time.Parse(time.RFC3339, r.ExpiresAt)
}

// EffectiveMaxDevices resolves the device quota, falling back to
// LegacyMaxDevices for records that predate the field.
func (r *Record) EffectiveMaxDevices() int {
	if r.MaxDevices > 0 {
		return r.MaxDevices
	}
	return LegacyMaxDevices
}

// NormalizedDevices returns the device list with empty and duplicate entries
// dropped, preserving first-seen order. Sanitation only; the persisted list
// is rewritten solely on the binding path.
func (r *Record) NormalizedDevices() []string {
	devices := make([]string, 0, len(r.Devices))
	seen := make(map[string]struct{}, len(r.Devices))
	for _, d := range r.Devices {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		devices = append(devices, d)
	}
	return devices
}

// HasDevice reports whether deviceID is already bound to the record.
func (r *Record) HasDevice(deviceID string) bool {
	for _, d := range r.Devices {
		if strings.TrimSpace(d) == deviceID {
			return true
		}
	}
	return false
}
