// Package service orchestrates registration writes: it gathers collaborator
// facts, runs the validation rule set, and persists the aggregate together
// with its history and payment rows in one transaction.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"compreg/internal/registration/metrics"
	"compreg/internal/registration/models"
	"compreg/internal/registration/ports"
	"compreg/internal/registration/rules"
	"compreg/internal/registration/store"
	id "compreg/pkg/domain"
	dErrors "compreg/pkg/domain-errors"
)

// maxTxAttempts bounds optimistic concurrency retries. The final conflict
// surfaces to the caller, who is expected to re-read and resubmit.
const maxTxAttempts = 3

type Service struct {
	store        store.RegistrationStore
	competitions ports.CompetitionGateway
	users        ports.UserGateway
	cache        ports.CacheInvalidator
	stream       ports.StreamPublisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

type Option func(*Service)

func WithCache(cache ports.CacheInvalidator) Option {
	return func(s *Service) { s.cache = cache }
}

func WithStream(stream ports.StreamPublisher) Option {
	return func(s *Service) { s.stream = stream }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(regStore store.RegistrationStore, competitions ports.CompetitionGateway, users ports.UserGateway, opts ...Option) (*Service, error) {
	if regStore == nil {
		return nil, fmt.Errorf("registration store is required")
	}
	if competitions == nil {
		return nil, fmt.Errorf("competition gateway is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user gateway is required")
	}

	svc := &Service{
		store:        regStore,
		competitions: competitions,
		users:        users,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Get loads a registration.
func (s *Service) Get(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.Get(ctx, registrationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "registration not found")
	}
	return reg, nil
}

// WaitlistPosition resolves the 1-based waiting list rank. Requesting it
// for a non-waitlisted registration is a caller bug, not user error.
func (s *Service) WaitlistPosition(ctx context.Context, registrationID id.RegistrationID) (int, error) {
	reg, err := s.Get(ctx, registrationID)
	if err != nil {
		return 0, err
	}
	if err := reg.EnsureWaitlistEligibility(); err != nil {
		return 0, err
	}
	return s.competitions.WaitlistPosition(ctx, reg.CompetitionID, reg.ID)
}

// DetailedView builds the admin/API export. The waitlist position is
// resolved only for waitlisted registrations and only when the admin
// section is requested.
func (s *Service) DetailedView(ctx context.Context, registrationID id.RegistrationID, opts models.ViewOptions) (*models.DetailedView, error) {
	reg, err := s.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	competition, err := s.competitions.Get(ctx, reg.CompetitionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load competition")
	}

	var user *models.User
	if reg.UserID != nil {
		user, err = s.users.Get(ctx, *reg.UserID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
		}
	}

	waitlistPosition := 0
	if opts.Admin && reg.Waitlisted() {
		waitlistPosition, err = s.competitions.WaitlistPosition(ctx, reg.CompetitionID, reg.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve waitlist position")
		}
	}
	return models.BuildDetailedView(reg, competition, user, waitlistPosition, opts)
}

// WCIF exports the registration in the public interchange format.
func (s *Service) WCIF(ctx context.Context, registrationID id.RegistrationID, authorized bool) (models.WCIF, error) {
	reg, err := s.Get(ctx, registrationID)
	if err != nil {
		return models.WCIF{}, err
	}
	return reg.ToWCIF(authorized), nil
}

// postSave fires the best-effort side effects after a committed write.
// Failures are logged and never propagated: losing a cache flag or a
// mirror event must not fail a registration that is already persisted.
func (s *Service) postSave(ctx context.Context, reg *models.Registration, action string) {
	if s.cache != nil && reg.UserID != nil {
		if err := s.cache.InvalidateProcessing(ctx, reg.CompetitionID, *reg.UserID); err != nil {
			s.logger.ErrorContext(ctx, "processing-flag invalidation failed",
				"registration_id", reg.ID,
				"competition_id", reg.CompetitionID,
				"error", err,
			)
		}
	}
	if s.stream != nil {
		event := ports.LifecycleEvent{
			RegistrationID: reg.ID.String(),
			CompetitionID:  string(reg.CompetitionID),
			Action:         action,
			Status:         string(reg.CompetingStatus),
			Timestamp:      s.now(),
		}
		if reg.UserID != nil {
			event.UserID = reg.UserID.String()
		}
		if err := s.stream.Publish(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "lifecycle event publish failed",
				"registration_id", reg.ID,
				"action", action,
				"error", err,
			)
		}
	}
}

func (s *Service) observeFailures(failures []rules.Failure) {
	for _, f := range failures {
		s.metrics.ObserveValidationFailure(string(f.Code))
	}
}
