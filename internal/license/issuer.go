package license

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	licenseErrors "keymint/internal/errors"
)

// maxKeyAttempts bounds key regeneration when a freshly minted key collides
// with an existing record. With 48 random bits per key a single retry is
// already astronomically unlikely.
const maxKeyAttempts = 5

// IssueRequest carries the caller-supplied parameters for a new license.
type IssueRequest struct {
	CustomerName string
	DaysValid    int
	// MaxDevices of 0 means "use the policy default"; negative values are
	// rejected.
	MaxDevices int
}

// Issuer creates new license records and appends them to the store.
type Issuer struct {
	store  Store
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewIssuer creates an issuer backed by the given store.
func NewIssuer(store Store, logger *slog.Logger) *Issuer {
	return &Issuer{
		store:  store,
		logger: logger.With(slog.String("component", "issuer")),
		nowFn:  time.Now,
	}
}

// WithNow overrides the issuer's clock. Test hook.
func (i *Issuer) WithNow(now func() time.Time) *Issuer {
	i.nowFn = now
	return i
}

// Issue validates the request, mints a unique key, and appends the new record
// to the store. The whole load-append-save cycle runs inside Store.Update; a
// store failure aborts issuance with a fault so a write is never silently
// lost.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (*Record, error) {
	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		return nil, licenseErrors.InvalidInput("customerName must not be empty")
	}
	if req.DaysValid <= 0 {
		return nil, licenseErrors.InvalidInput("daysValid must be a positive integer, got %d", req.DaysValid)
	}
	maxDevices := req.MaxDevices
	if maxDevices == 0 {
		maxDevices = DefaultMaxDevices
	}
	if maxDevices < 0 {
		return nil, licenseErrors.InvalidInput("maxDevices must be a positive integer, got %d", req.MaxDevices)
	}

	expiresAt := i.nowFn().UTC().Add(time.Duration(req.DaysValid) * 24 * time.Hour)

	record := Record{
		CustomerName: customerName,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
		MaxDevices:   maxDevices,
		Devices:      []string{},
	}

	err := i.store.Update(ctx, func(records []Record) ([]Record, bool, error) {
		// Key uniqueness is checked inside the critical section so two
		// concurrent issuances cannot both insert the same key.
		key, err := uniqueKey(records)
		if err != nil {
			return nil, false, err
		}
		record.Key = key
		return append(records, record), true, nil
	})
	if err != nil {
		i.logger.ErrorContext(ctx, "license issuance failed",
			slog.String("customer", customerName),
			slog.String("error", err.Error()))
		return nil, licenseErrors.StorageUnavailable(err)
	}

	i.logger.InfoContext(ctx, "license issued",
		slog.String("customer", customerName),
		slog.String("key", maskKey(record.Key)),
		slog.String("expires_at", record.ExpiresAt),
		slog.Int("max_devices", record.MaxDevices))

	return &record, nil
}

// uniqueKey generates a key not present in records, retrying on collision.
func uniqueKey(records []Record) (string, error) {
	existing := make(map[string]struct{}, len(records))
	for _, r := range records {
		existing[r.Key] = struct{}{}
	}

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := GenerateKey()
		if err != nil {
			return "", err
		}
		if _, taken := existing[key]; !taken {
			return key, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique key after %d attempts", maxKeyAttempts)
}

// maskKey redacts the middle of a key for logging.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
