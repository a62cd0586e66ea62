package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(store Store) *Issuer {
	return NewIssuer(store, testLogger()).WithNow(func() time.Time { return fixedNow })
}

func TestIssuer_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  IssueRequest
	}{
		{"empty customer", IssueRequest{CustomerName: "", DaysValid: 30}},
		{"whitespace customer", IssueRequest{CustomerName: "   ", DaysValid: 30}},
		{"zero days", IssueRequest{CustomerName: "Acme", DaysValid: 0}},
		{"negative days", IssueRequest{CustomerName: "Acme", DaysValid: -5}},
		{"negative max devices", IssueRequest{CustomerName: "Acme", DaysValid: 30, MaxDevices: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			issuer := newTestIssuer(store)

			_, err := issuer.Issue(context.Background(), tt.req)
			require.Error(t, err)

			records, loadErr := store.LoadAll(context.Background())
			require.NoError(t, loadErr)
			assert.Empty(t, records, "invalid request must not persist anything")
		})
	}
}

func TestIssuer_IssuesWithDefaults(t *testing.T) {
	store := newTestStore()
	issuer := newTestIssuer(store)

	record, err := issuer.Issue(context.Background(), IssueRequest{
		CustomerName: "  Acme Corp  ",
		DaysValid:    30,
	})
	require.NoError(t, err)

	assert.Regexp(t, keyPattern, record.Key)
	assert.Equal(t, "Acme Corp", record.CustomerName)
	assert.Equal(t, DefaultMaxDevices, record.MaxDevices)
	assert.Empty(t, record.Devices)
	assert.NotNil(t, record.Devices, "devices must serialize as [] not null")

	wantExpiry := fixedNow.UTC().Add(30 * 24 * time.Hour).Format(time.RFC3339)
	assert.Equal(t, wantExpiry, record.ExpiresAt)

	records, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.Key, records[0].Key)
}

func TestIssuer_HonorsExplicitMaxDevices(t *testing.T) {
	store := newTestStore()
	issuer := newTestIssuer(store)

	record, err := issuer.Issue(context.Background(), IssueRequest{
		CustomerName: "Acme",
		DaysValid:    365,
		MaxDevices:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, record.MaxDevices)
}

func TestIssuer_AppendsWithoutDisturbingExistingRecords(t *testing.T) {
	existing := futureRecord("SD-AAAA-BBBB-CCCC", 2, "dev1")
	store := newTestStore(existing)
	issuer := newTestIssuer(store)

	_, err := issuer.Issue(context.Background(), IssueRequest{CustomerName: "Acme", DaysValid: 30})
	require.NoError(t, err)

	records, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, existing.Key, records[0].Key)
	assert.Equal(t, existing.Devices, records[0].Devices)
}

func TestIssuer_StoreFailureIsAFault(t *testing.T) {
	store := newTestStore()
	store.saveErr = errors.New("disk full")
	issuer := newTestIssuer(store)

	_, err := issuer.Issue(context.Background(), IssueRequest{CustomerName: "Acme", DaysValid: 30})
	require.Error(t, err)
}

func TestIssuer_KeysAreUniqueAcrossIssuances(t *testing.T) {
	store := newTestStore()
	issuer := newTestIssuer(store)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		record, err := issuer.Issue(context.Background(), IssueRequest{CustomerName: "Acme", DaysValid: 30})
		require.NoError(t, err)
		_, dup := seen[record.Key]
		assert.False(t, dup, "duplicate key %s", record.Key)
		seen[record.Key] = struct{}{}
	}

	records, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 50)
}
