package models

import (
	"time"

	id "compreg/pkg/domain"
)

// CancelPolicy controls when a competitor may cancel their own registration.
type CancelPolicy string

const (
	CancelAlways      CancelPolicy = "always"
	CancelNotAccepted CancelPolicy = "not_accepted"
	CancelUnpaid      CancelPolicy = "unpaid"
)

// Competition is the read model of the competition attributes this core
// consumes. The competition's own business rules live with its owning
// system; only the policy knobs relevant to registrations appear here.
type Competition struct {
	ID        id.CompetitionID
	Name      string
	StartDate time.Time

	CurrencyCode                   string
	BaseEntryFeeLowestDenomination int64
	// EventFees maps each offered event to its additional fee in the
	// competition currency's lowest denomination.
	EventFees map[id.EventID]int64

	GuestsEnabled                     bool
	GuestsPerRegistrationLimitEnabled bool
	GuestsPerRegistrationLimit        int
	GuestEntryStatusRestricted        bool

	EventsPerRegistrationLimitEnabled bool
	EventsPerRegistrationLimit        int

	AllowRegistrationWithoutQualification bool
	ForceCommentInRegistration            bool
	UsingPaymentIntegrations              bool

	PartOfSeries     bool
	SeriesSiblingIDs []id.CompetitionID

	CompetitorCanCancel CancelPolicy
}

// GuestsUnrestricted reports whether no explicit guest policy applies, in
// which case only the absolute ceiling constrains the count.
func (c *Competition) GuestsUnrestricted() bool {
	return !c.GuestEntryStatusRestricted
}

// OffersEvent reports whether the competition holds the given event.
func (c *Competition) OffersEvent(eventID id.EventID) bool {
	_, ok := c.EventFees[eventID]
	return ok
}

// User is the read model of the account holding a registration. A loaded
// user is required for PII-bearing exports; once the account is deleted
// these fields are unavailable rather than silently blank.
type User struct {
	ID          id.UserID
	WCAID       string
	Name        string
	Gender      string
	CountryISO2 string
	Country     string
	DOB         time.Time
	Email       string
}
