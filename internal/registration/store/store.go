// Package store defines the persistence boundary for registrations.
// Implementations are interface-driven so the service layer stays testable
// against the in-memory store while production runs on postgres.
package store

import (
	"context"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
)

// RegistrationStore is the transactional repository for the aggregate.
//
// RunInTx provides the atomic boundary: field updates, history entries and
// payment rows written inside the callback commit or roll back as a unit.
// Implementations may wrap a database transaction or, in-memory, a coarse
// lock.
//
// Update carries the caller's expected version; a mismatch returns
// sentinel.ErrConflict and the losing writer must retry with fresh data.
type RegistrationStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	Get(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	Create(ctx context.Context, registration *models.Registration) error
	Update(ctx context.Context, registration *models.Registration, expectedVersion int64) error

	// AppendHistory and AppendPayment are append-only; nothing updates or
	// deletes these rows afterwards.
	AppendHistory(ctx context.Context, registrationID id.RegistrationID, entry models.HistoryEntry) error
	AppendPayment(ctx context.Context, registrationID id.RegistrationID, payment models.Payment) error

	// ListByUserAndCompetitions serves the series sibling query.
	ListByUserAndCompetitions(ctx context.Context, userID id.UserID, competitionIDs []id.CompetitionID) ([]*models.Registration, error)
}
