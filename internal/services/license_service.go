package services

import (
	"context"
	"log/slog"
	"time"

	"keymint/internal/license"
)

// LicenseService provides business logic for license operations. The
// interface exists so transport handlers can be tested against a mock.
type LicenseService interface {
	// Issue creates and persists a new license record.
	Issue(ctx context.Context, req license.IssueRequest) (*license.Record, error)

	// Validate decides admission for a (key, deviceID) pair, binding the
	// device when the decision grants a fresh slot.
	Validate(ctx context.Context, key, deviceID string) (license.Decision, error)

	// Count returns the number of records in the store.
	Count(ctx context.Context) (int, error)
}

type licenseService struct {
	issuer    *license.Issuer
	validator *license.Validator
	store     license.Store
	logger    *slog.Logger
	metrics   *license.Metrics
}

// NewLicenseService wires the issuer and validator over a shared store.
// metrics may be nil (the CLI runs without a meter provider).
func NewLicenseService(store license.Store, logger *slog.Logger, metrics *license.Metrics) LicenseService {
	return &licenseService{
		issuer:    license.NewIssuer(store, logger),
		validator: license.NewValidator(store, logger),
		store:     store,
		logger:    logger.With(slog.String("service", "license")),
		metrics:   metrics,
	}
}

func (s *licenseService) Issue(ctx context.Context, req license.IssueRequest) (*license.Record, error) {
	if s.metrics != nil {
		s.metrics.IssueAttempts.Add(ctx, 1)
	}

	record, err := s.issuer.Issue(ctx, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IssueFailures.Add(ctx, 1)
		}
		return nil, err
	}
	return record, nil
}

func (s *licenseService) Validate(ctx context.Context, key, deviceID string) (license.Decision, error) {
	start := time.Now()

	decision, err := s.validator.Validate(ctx, key, deviceID)
	if err != nil {
		return license.Decision{}, err
	}

	s.metrics.RecordDecision(ctx, decision, time.Since(start).Seconds())

	s.logger.InfoContext(ctx, "validation decided",
		slog.Bool("valid", decision.Valid),
		slog.String("reason", decision.Reason),
		slog.Int("used_devices", decision.UsedDevices),
		slog.Bool("new_binding", decision.NewBinding),
		slog.Duration("latency", time.Since(start)))

	return decision, nil
}

func (s *licenseService) Count(ctx context.Context) (int, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
