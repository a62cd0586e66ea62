package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_ExpiresAtTime(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt string
		wantErr   bool
	}{
		{name: "rfc3339", expiresAt: "2030-06-15T12:00:00Z"},
		{name: "javascript toISOString", expiresAt: "2030-06-15T12:00:00.000Z"},
		{name: "with offset", expiresAt: "2030-06-15T12:00:00+03:00"},
		{name: "garbage", expiresAt: "not-a-date", wantErr: true},
		{name: "empty", expiresAt: "", wantErr: true},
		{name: "date only", expiresAt: "2030-06-15", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{ExpiresAt: tt.expiresAt}
			got, err := rec.ExpiresAtTime()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2030, got.UTC().Year())
			assert.Equal(t, time.June, got.UTC().Month())
		})
	}
}

func TestRecord_EffectiveMaxDevices(t *testing.T) {
	assert.Equal(t, 5, (&Record{MaxDevices: 5}).EffectiveMaxDevices())
	// Legacy records without the field fall back to the policy constant.
	assert.Equal(t, LegacyMaxDevices, (&Record{}).EffectiveMaxDevices())
	assert.Equal(t, LegacyMaxDevices, (&Record{MaxDevices: -2}).EffectiveMaxDevices())
}

func TestRecord_NormalizedDevices(t *testing.T) {
	rec := Record{Devices: []string{"dev1", "", "  ", "dev2", "dev1", " dev3 "}}
	assert.Equal(t, []string{"dev1", "dev2", "dev3"}, rec.NormalizedDevices())

	empty := Record{}
	assert.Empty(t, empty.NormalizedDevices())
}

func TestRecord_HasDevice(t *testing.T) {
	rec := Record{Devices: []string{"dev1", " dev2 "}}
	assert.True(t, rec.HasDevice("dev1"))
	assert.True(t, rec.HasDevice("dev2"))
	assert.False(t, rec.HasDevice("dev3"))
}
