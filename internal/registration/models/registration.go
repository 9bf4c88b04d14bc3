package models

import (
	"sort"
	"strconv"
	"time"

	id "compreg/pkg/domain"
	dErrors "compreg/pkg/domain-errors"
)

const (
	// CommentCharacterLimit caps comments and administrative notes.
	CommentCharacterLimit = 240
	// DefaultGuestLimit is the absolute guest ceiling applied even when the
	// competition leaves guests unrestricted.
	DefaultGuestLimit = 99
)

// Registration is the aggregate root for one competitor's (or staff
// member's) entry to a competition.
//
// Invariants (for a persisted registration):
//   - Guests within [0, guest limit] when the limit is enabled; exactly 0
//     when guests are disabled; never above DefaultGuestLimit.
//   - A competing registration holds at least one event association.
//   - RegisteredAt is immutable once set.
//   - At most one accepted registration per user across a competition series.
//
// The rule set (internal/registration/rules) enforces these on every write;
// the aggregate itself only carries state and the ledger operations.
type Registration struct {
	ID            id.RegistrationID
	CompetitionID id.CompetitionID
	// UserID is nil once the account is deleted; required at creation.
	UserID          *id.UserID
	CompetingStatus CompetingStatus
	// IsCompeting false marks staff/non-competing registrations.
	IsCompeting         bool
	Guests              int
	Comments            string
	AdministrativeNotes string
	RegisteredAt        time.Time
	Roles               Roles
	// EventIDs is the current non-destroyed event association set. Edits
	// arrive as a desired target set; ApplyEventSet computes the diff.
	EventIDs []id.EventID
	Payments []Payment
	History  []HistoryEntry
	// Version is the optimistic concurrency token. Zero means the
	// registration has not been persisted yet.
	Version int64
}

// NewRegistration builds a pending registration for a user. RegisteredAt is
// stamped with now unless explicitly supplied.
func NewRegistration(regID id.RegistrationID, competitionID id.CompetitionID, userID id.UserID, isCompeting bool, registeredAt time.Time, now time.Time) (*Registration, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registration requires a user at creation")
	}
	if competitionID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registration requires a competition")
	}
	if registeredAt.IsZero() {
		registeredAt = now
	}
	uid := userID
	return &Registration{
		ID:              regID,
		CompetitionID:   competitionID,
		UserID:          &uid,
		CompetingStatus: StatusPending,
		IsCompeting:     isCompeting,
		RegisteredAt:    registeredAt,
		Roles:           Roles{},
	}, nil
}

func (r *Registration) Pending() bool    { return r.CompetingStatus == StatusPending }
func (r *Registration) Accepted() bool   { return r.CompetingStatus == StatusAccepted }
func (r *Registration) Cancelled() bool  { return r.CompetingStatus == StatusCancelled }
func (r *Registration) Rejected() bool   { return r.CompetingStatus == StatusRejected }
func (r *Registration) Waitlisted() bool { return r.CompetingStatus == StatusWaitingList }

// IsNew reports whether the aggregate has been persisted yet.
func (r *Registration) IsNew() bool { return r.Version == 0 }

// MightAttend reports whether the competitor may show up on competition day.
func (r *Registration) MightAttend() bool { return r.CompetingStatus.MightAttend() }

// NewOrDeleted covers registrations that do not count toward competitor
// totals: unsaved, cancelled, or non-competing.
func (r *Registration) NewOrDeleted() bool {
	return r.IsNew() || r.Cancelled() || !r.IsCompeting
}

// WCIFStatus projects the lifecycle state onto the interchange status.
func (r *Registration) WCIFStatus() WCIFStatus {
	return DeriveWCIFStatus(r.CompetingStatus, r.IsCompeting)
}

// SortedEventIDs returns the event set in lexicographic order for exports.
func (r *Registration) SortedEventIDs() []id.EventID {
	sorted := make([]id.EventID, len(r.EventIDs))
	copy(sorted, r.EventIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

// ApplyEventSet replaces the event associations with the desired target set
// and returns the explicit additions and removals, preserving the target's
// order for retained entries.
func (r *Registration) ApplyEventSet(target []id.EventID) (added, removed []id.EventID) {
	current := make(map[id.EventID]bool, len(r.EventIDs))
	for _, eventID := range r.EventIDs {
		current[eventID] = true
	}
	next := make([]id.EventID, 0, len(target))
	seen := make(map[id.EventID]bool, len(target))
	for _, eventID := range target {
		if seen[eventID] {
			continue
		}
		seen[eventID] = true
		next = append(next, eventID)
		if !current[eventID] {
			added = append(added, eventID)
		}
	}
	for _, eventID := range r.EventIDs {
		if !seen[eventID] {
			removed = append(removed, eventID)
		}
	}
	r.EventIDs = next
	return added, removed
}

// EntryFee is the competition base fee plus the fee of each selected event.
func (r *Registration) EntryFee(competition *Competition) Money {
	sum := competition.BaseEntryFeeLowestDenomination
	for _, eventID := range r.EventIDs {
		sum += competition.EventFees[eventID]
	}
	return NewMoney(sum, competition.CurrencyCode)
}

// PaidEntryFees sums the materialized payment records. Refund rows are
// negative, so the sum is the net amount paid. Summing the loaded slice
// (not a live aggregate query) respects eager-loaded result sets.
func (r *Registration) PaidEntryFees(currencyCode string) Money {
	var sum int64
	for _, payment := range r.Payments {
		sum += payment.AmountLowestDenomination
	}
	return NewMoney(sum, currencyCode)
}

// OutstandingEntryFees may be negative on overpayment.
func (r *Registration) OutstandingEntryFees(competition *Competition) Money {
	return r.EntryFee(competition).Sub(r.PaidEntryFees(competition.CurrencyCode))
}

// LastPaymentDate returns the newest payment timestamp, or the zero time
// when no payments exist.
func (r *Registration) LastPaymentDate() time.Time {
	var latest time.Time
	for _, payment := range r.Payments {
		if payment.CreatedAt.After(latest) {
			latest = payment.CreatedAt
		}
	}
	return latest
}

// ToBePaidThroughSystem reports whether the outstanding balance should be
// collected via the integrated payment flow.
func (r *Registration) ToBePaidThroughSystem(competition *Competition) bool {
	return !r.IsNew() &&
		(r.Pending() || r.Accepted()) &&
		competition.UsingPaymentIntegrations &&
		r.OutstandingEntryFees(competition).IsPositive()
}

// PermitUserCancellation applies the competition's competitor-cancel policy.
func (r *Registration) PermitUserCancellation(competition *Competition) bool {
	switch competition.CompetitorCanCancel {
	case CancelAlways:
		return true
	case CancelNotAccepted:
		return !r.Accepted()
	case CancelUnpaid:
		return r.PaidEntryFees(competition.CurrencyCode).IsZero()
	}
	return false
}

// AddHistoryEntry appends one audit entry with a change record per key.
// Entries are append-only; this is the sole mutation path for the ledger.
func (r *Registration) AddHistoryEntry(changes map[string]string, actorType, actorID, action string, timestamp time.Time) {
	r.History = append(r.History, NewHistoryEntry(changes, actorType, actorID, action, timestamp))
}

// RecordPayment appends the history entry first, then the payment record.
// The two must be persisted atomically by the caller. Idempotency against
// double-payment is the caller's responsibility.
func (r *Registration) RecordPayment(amount int64, currencyCode string, receipt Receipt, actorUserID id.UserID, now time.Time) *Payment {
	r.AddHistoryEntry(map[string]string{
		"payment_status": receipt.DetermineStatus(),
		"iso_amount":     strconv.FormatInt(amount, 10),
	}, "user", actorUserID.String(), "Payment", now)

	payment := Payment{
		ID:                       id.NewPaymentID(),
		AmountLowestDenomination: amount,
		CurrencyCode:             currencyCode,
		ReceiptReference:         receipt.Reference(),
		PaymentStatus:            receipt.DetermineStatus(),
		UserID:                   actorUserID,
		CreatedAt:                now,
	}
	r.Payments = append(r.Payments, payment)
	return &r.Payments[len(r.Payments)-1]
}

// RecordRefund appends the history entry first, then a payment record with
// the amount stored as the negative absolute value, linked to the refunded
// payment. The logged iso_amount is the pre-existing paid total minus the
// refund amount, i.e. the balance that remains paid after the refund.
func (r *Registration) RecordRefund(amount int64, currencyCode string, receipt Receipt, refundedPaymentID id.PaymentID, actorUserID id.UserID, now time.Time) *Payment {
	paid := r.PaidEntryFees(currencyCode)
	r.AddHistoryEntry(map[string]string{
		"payment_status": "refund",
		"iso_amount":     strconv.FormatInt(paid.Amount-amount, 10),
	}, "user", actorUserID.String(), "Refund", now)

	if amount < 0 {
		amount = -amount
	}
	refunded := refundedPaymentID
	payment := Payment{
		ID:                       id.NewPaymentID(),
		AmountLowestDenomination: -amount,
		CurrencyCode:             currencyCode,
		ReceiptReference:         receipt.Reference(),
		PaymentStatus:            "refund",
		RefundedPaymentID:        &refunded,
		UserID:                   actorUserID,
		CreatedAt:                now,
	}
	r.Payments = append(r.Payments, payment)
	return &r.Payments[len(r.Payments)-1]
}

// RegistrationHistory returns the audit trail ordered by creation time with
// event_ids changes decoded as lists.
func (r *Registration) RegistrationHistory() []HistoryEntryView {
	views := make([]HistoryEntryView, 0, len(r.History))
	for _, entry := range r.History {
		views = append(views, entry.view())
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Timestamp.Before(views[j].Timestamp)
	})
	return views
}

// EnsureWaitlistEligibility guards waitlist-specific operations. A
// violation indicates a caller bug, not user error.
func (r *Registration) EnsureWaitlistEligibility() error {
	if r.CompetingStatus != StatusWaitingList {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"registration must have competing status 'waiting_list' to join the waiting list")
	}
	return nil
}
