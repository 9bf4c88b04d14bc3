// Package postgres implements the RegistrationStore on database/sql.
//
// All statements resolve their executor from the context so writes issued
// inside RunInTx share one transaction: the aggregate row, its history
// entries and its payment rows commit or roll back as a unit.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
	"compreg/pkg/platform/sentinel"
	txcontext "compreg/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx opens a transaction, stores it in the context for downstream
// calls, and commits when fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, registration *models.Registration) error {
	roles, err := registration.Roles.Encode()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO registrations (
			id, competition_id, user_id, competing_status, is_competing,
			guests, comments, administrative_notes, registered_at, roles, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(registration.ID),
		string(registration.CompetitionID),
		nullableUserID(registration.UserID),
		string(registration.CompetingStatus),
		registration.IsCompeting,
		registration.Guests,
		registration.Comments,
		registration.AdministrativeNotes,
		registration.RegisteredAt,
		roles,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	registration.Version = 1

	if err := s.replaceEvents(ctx, registration.ID, registration.EventIDs); err != nil {
		return err
	}
	return nil
}

// Update writes the mutable aggregate fields with an optimistic version
// check. A losing writer gets sentinel.ErrConflict and must reload.
func (s *Store) Update(ctx context.Context, registration *models.Registration, expectedVersion int64) error {
	roles, err := registration.Roles.Encode()
	if err != nil {
		return err
	}

	query := `
		UPDATE registrations
		SET user_id = $1, competing_status = $2, is_competing = $3,
			guests = $4, comments = $5, administrative_notes = $6,
			roles = $7, version = version + 1
		WHERE id = $8 AND version = $9
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		nullableUserID(registration.UserID),
		string(registration.CompetingStatus),
		registration.IsCompeting,
		registration.Guests,
		registration.Comments,
		registration.AdministrativeNotes,
		roles,
		uuid.UUID(registration.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	registration.Version = expectedVersion + 1

	if err := s.replaceEvents(ctx, registration.ID, registration.EventIDs); err != nil {
		return err
	}
	return nil
}

func (s *Store) replaceEvents(ctx context.Context, registrationID id.RegistrationID, eventIDs []id.EventID) error {
	execer := s.execer(ctx)
	if _, err := execer.ExecContext(ctx,
		`DELETE FROM registration_events WHERE registration_id = $1`,
		uuid.UUID(registrationID),
	); err != nil {
		return fmt.Errorf("clear registration events: %w", err)
	}
	for _, eventID := range eventIDs {
		if _, err := execer.ExecContext(ctx,
			`INSERT INTO registration_events (registration_id, event_id) VALUES ($1, $2)`,
			uuid.UUID(registrationID),
			string(eventID),
		); err != nil {
			return fmt.Errorf("insert registration event: %w", err)
		}
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, registrationID id.RegistrationID, entry models.HistoryEntry) error {
	execer := s.execer(ctx)

	var entryID int64
	err := execer.QueryRowContext(ctx, `
		INSERT INTO registration_history_entries (registration_id, actor_type, actor_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		uuid.UUID(registrationID),
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.Timestamp,
	).Scan(&entryID)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	for _, change := range entry.Changes {
		if _, err := execer.ExecContext(ctx, `
			INSERT INTO registration_history_changes (entry_id, key, value)
			VALUES ($1, $2, $3)
		`, entryID, change.Key, change.Value); err != nil {
			return fmt.Errorf("insert history change: %w", err)
		}
	}
	return nil
}

func (s *Store) AppendPayment(ctx context.Context, registrationID id.RegistrationID, payment models.Payment) error {
	var refunded any
	if payment.RefundedPaymentID != nil {
		refunded = uuid.UUID(*payment.RefundedPaymentID)
	}

	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO registration_payments (
			id, registration_id, amount_lowest_denomination, currency_code,
			receipt_reference, payment_status, refunded_payment_id, user_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(payment.ID),
		uuid.UUID(registrationID),
		payment.AmountLowestDenomination,
		payment.CurrencyCode,
		payment.ReceiptReference,
		payment.PaymentStatus,
		refunded,
		uuid.UUID(payment.UserID),
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	execer := s.execer(ctx)

	var (
		reg      models.Registration
		regID    uuid.UUID
		compID   string
		userID   *uuid.UUID
		status   string
		rolesRaw string
	)
	err := execer.QueryRowContext(ctx, `
		SELECT id, competition_id, user_id, competing_status, is_competing,
			   guests, comments, administrative_notes, registered_at, roles, version
		FROM registrations
		WHERE id = $1
	`, uuid.UUID(registrationID)).Scan(
		&regID,
		&compID,
		&userID,
		&status,
		&reg.IsCompeting,
		&reg.Guests,
		&reg.Comments,
		&reg.AdministrativeNotes,
		&reg.RegisteredAt,
		&rolesRaw,
		&reg.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query registration: %w", err)
	}

	reg.ID = id.RegistrationID(regID)
	reg.CompetitionID = id.CompetitionID(compID)
	if userID != nil {
		uid := id.UserID(*userID)
		reg.UserID = &uid
	}
	reg.CompetingStatus = models.CompetingStatus(status)
	roles, err := models.DecodeRoles(rolesRaw)
	if err != nil {
		return nil, err
	}
	reg.Roles = roles

	if reg.EventIDs, err = s.loadEvents(ctx, registrationID); err != nil {
		return nil, err
	}
	if reg.Payments, err = s.loadPayments(ctx, registrationID); err != nil {
		return nil, err
	}
	if reg.History, err = s.loadHistory(ctx, registrationID); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *Store) loadEvents(ctx context.Context, registrationID id.RegistrationID) ([]id.EventID, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT event_id FROM registration_events WHERE registration_id = $1 ORDER BY event_id
	`, uuid.UUID(registrationID))
	if err != nil {
		return nil, fmt.Errorf("query registration events: %w", err)
	}
	defer rows.Close()

	var eventIDs []id.EventID
	for rows.Next() {
		var eventID string
		if err := rows.Scan(&eventID); err != nil {
			return nil, fmt.Errorf("scan registration event: %w", err)
		}
		eventIDs = append(eventIDs, id.EventID(eventID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registration events: %w", err)
	}
	return eventIDs, nil
}

func (s *Store) loadPayments(ctx context.Context, registrationID id.RegistrationID) ([]models.Payment, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, amount_lowest_denomination, currency_code, receipt_reference,
			   payment_status, refunded_payment_id, user_id, created_at
		FROM registration_payments
		WHERE registration_id = $1
		ORDER BY created_at, id
	`, uuid.UUID(registrationID))
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var (
			payment   models.Payment
			paymentID uuid.UUID
			refunded  *uuid.UUID
			payerID   uuid.UUID
		)
		if err := rows.Scan(
			&paymentID,
			&payment.AmountLowestDenomination,
			&payment.CurrencyCode,
			&payment.ReceiptReference,
			&payment.PaymentStatus,
			&refunded,
			&payerID,
			&payment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payment.ID = id.PaymentID(paymentID)
		payment.UserID = id.UserID(payerID)
		if refunded != nil {
			refundedID := id.PaymentID(*refunded)
			payment.RefundedPaymentID = &refundedID
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

func (s *Store) loadHistory(ctx context.Context, registrationID id.RegistrationID) ([]models.HistoryEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT e.id, e.actor_type, e.actor_id, e.action, e.created_at, c.key, c.value
		FROM registration_history_entries e
		LEFT JOIN registration_history_changes c ON c.entry_id = e.id
		WHERE e.registration_id = $1
		ORDER BY e.created_at, e.id, c.id
	`, uuid.UUID(registrationID))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var (
		entries     []models.HistoryEntry
		lastEntryID int64 = -1
	)
	for rows.Next() {
		var (
			entryID   int64
			actorType string
			actorID   string
			action    string
			createdAt time.Time
			key       *string
			value     *string
		)
		if err := rows.Scan(&entryID, &actorType, &actorID, &action, &createdAt, &key, &value); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if entryID != lastEntryID {
			entries = append(entries, models.HistoryEntry{
				ActorType: actorType,
				ActorID:   actorID,
				Action:    action,
				Timestamp: createdAt,
			})
			lastEntryID = entryID
		}
		if key != nil && value != nil {
			entry := &entries[len(entries)-1]
			entry.Changes = append(entry.Changes, models.HistoryChange{Key: *key, Value: *value})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func (s *Store) ListByUserAndCompetitions(ctx context.Context, userID id.UserID, competitionIDs []id.CompetitionID) ([]*models.Registration, error) {
	if len(competitionIDs) == 0 {
		return nil, nil
	}
	compIDs := make([]string, len(competitionIDs))
	for i, competitionID := range competitionIDs {
		compIDs[i] = string(competitionID)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id FROM registrations
		WHERE user_id = $1 AND competition_id = ANY($2)
		ORDER BY competition_id
	`, uuid.UUID(userID), pq.Array(compIDs))
	if err != nil {
		return nil, fmt.Errorf("query sibling registrations: %w", err)
	}
	defer rows.Close()

	var regIDs []id.RegistrationID
	for rows.Next() {
		var regID uuid.UUID
		if err := rows.Scan(&regID); err != nil {
			return nil, fmt.Errorf("scan sibling registration id: %w", err)
		}
		regIDs = append(regIDs, id.RegistrationID(regID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sibling registrations: %w", err)
	}

	registrations := make([]*models.Registration, 0, len(regIDs))
	for _, regID := range regIDs {
		reg, err := s.Get(ctx, regID)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}
	return registrations, nil
}

func nullableUserID(userID *id.UserID) any {
	if userID == nil {
		return nil
	}
	return uuid.UUID(*userID)
}
