// Package memory provides the in-memory RegistrationStore used by unit
// tests and local development.
package memory

import (
	"context"
	"sync"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
	"compreg/pkg/platform/sentinel"
)

// InMemoryStore keeps registrations in a map guarded by a mutex. RunInTx
// serializes transactions with a coarse lock and rolls back by restoring a
// snapshot, which is enough fidelity for the service-layer tests.
type InMemoryStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	regs map[id.RegistrationID]*models.Registration
}

func New() *InMemoryStore {
	return &InMemoryStore{
		regs: make(map[id.RegistrationID]*models.Registration),
	}
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[id.RegistrationID]*models.Registration, len(s.regs))
	for key, reg := range s.regs {
		snapshot[key] = clone(reg)
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.regs = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.regs[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(reg), nil
}

func (s *InMemoryStore) Create(_ context.Context, registration *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.regs[registration.ID]; exists {
		return sentinel.ErrConflict
	}
	registration.Version = 1
	s.regs[registration.ID] = clone(registration)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, registration *models.Registration, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.regs[registration.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	registration.Version = expectedVersion + 1
	next := clone(registration)
	// History and payments are append-only and written via their own calls.
	next.History = stored.History
	next.Payments = stored.Payments
	s.regs[registration.ID] = next
	return nil
}

func (s *InMemoryStore) AppendHistory(_ context.Context, registrationID id.RegistrationID, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.regs[registrationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.History = append(stored.History, entry)
	return nil
}

func (s *InMemoryStore) AppendPayment(_ context.Context, registrationID id.RegistrationID, payment models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.regs[registrationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.Payments = append(stored.Payments, payment)
	return nil
}

func (s *InMemoryStore) ListByUserAndCompetitions(_ context.Context, userID id.UserID, competitionIDs []id.CompetitionID) ([]*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[id.CompetitionID]bool, len(competitionIDs))
	for _, competitionID := range competitionIDs {
		wanted[competitionID] = true
	}

	var results []*models.Registration
	for _, reg := range s.regs {
		if reg.UserID == nil || *reg.UserID != userID {
			continue
		}
		if wanted[reg.CompetitionID] {
			results = append(results, clone(reg))
		}
	}
	return results, nil
}

func clone(reg *models.Registration) *models.Registration {
	next := *reg
	if reg.UserID != nil {
		uid := *reg.UserID
		next.UserID = &uid
	}
	next.Roles = append(models.Roles(nil), reg.Roles...)
	next.EventIDs = append([]id.EventID(nil), reg.EventIDs...)
	next.Payments = append([]models.Payment(nil), reg.Payments...)
	next.History = make([]models.HistoryEntry, len(reg.History))
	for i, entry := range reg.History {
		entryCopy := entry
		entryCopy.Changes = append([]models.HistoryChange(nil), entry.Changes...)
		next.History[i] = entryCopy
	}
	return &next
}
