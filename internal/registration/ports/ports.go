// Package ports defines the collaborator interfaces the registration core
// depends on. The competition and user systems own their entities' business
// rules; this core only reads the attributes these gateways expose.
package ports

import (
	"context"
	"time"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
)

// CompetitionGateway exposes the competition attributes and side effects
// the registration core consumes.
type CompetitionGateway interface {
	// Get loads the competition read model.
	Get(ctx context.Context, competitionID id.CompetitionID) (*models.Competition, error)

	// WaitlistPosition returns the registration's 1-based rank among the
	// waiting_list cohort. Ordering is owned by the competition's waitlist.
	WaitlistPosition(ctx context.Context, competitionID id.CompetitionID, registrationID id.RegistrationID) (int, error)

	// AttemptAutoClose asks the competition to close registration if its
	// own closing conditions are met. Called after any payment or refund
	// settles the outstanding balance.
	AttemptAutoClose(ctx context.Context, competitionID id.CompetitionID) error
}

// UserGateway exposes the user attributes feeding eligibility validation.
// These checks are essential: a gateway failure aborts the write.
type UserGateway interface {
	// Get loads the user read model. Returns sentinel.ErrNotFound once the
	// account has been deleted.
	Get(ctx context.Context, userID id.UserID) (*models.User, error)

	// BannedAtDate reports whether the user is banned as of the given date.
	BannedAtDate(ctx context.Context, userID id.UserID, date time.Time) (bool, error)

	// CannotRegisterReasons returns human-readable exclusions (age,
	// qualification, prior ban, account state); empty means eligible.
	CannotRegisterReasons(ctx context.Context, userID id.UserID, competitionID id.CompetitionID, isCompeting bool) ([]string, error)

	// QualifiedEventIDs marks the competition events the user qualifies for.
	QualifiedEventIDs(ctx context.Context, userID id.UserID, competitionID id.CompetitionID) (map[id.EventID]bool, error)
}

// CacheInvalidator drops the processing flag keyed by (competition, user)
// after every successful save. Best effort: failures are logged, never
// propagated into the write path.
type CacheInvalidator interface {
	InvalidateProcessing(ctx context.Context, competitionID id.CompetitionID, userID id.UserID) error
}

// LifecycleEvent mirrors a registration state change onto the event stream
// for downstream tooling. The history ledger in the database remains the
// authoritative audit trail.
type LifecycleEvent struct {
	RegistrationID string    `json:"registration_id"`
	CompetitionID  string    `json:"competition_id"`
	UserID         string    `json:"user_id,omitempty"`
	Action         string    `json:"action"`
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

// StreamPublisher emits lifecycle events. Best effort, like the cache.
type StreamPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}
