package models

import (
	"sort"
	"time"

	dErrors "compreg/pkg/domain-errors"
)

// ViewOptions selects the sections of the detailed admin/API export.
type ViewOptions struct {
	Admin   bool
	History bool
	PII     bool
}

// UserView carries the user block of the detailed export. DOB and Email
// appear only when PII access was requested.
type UserView struct {
	ID          string  `json:"id"`
	WCAID       string  `json:"wca_id"`
	Name        string  `json:"name"`
	Gender      string  `json:"gender"`
	CountryISO2 string  `json:"country_iso2"`
	Country     string  `json:"country"`
	DOB         *string `json:"dob,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// CompetingView carries the competing block; the admin-only fields are
// pointers so they are omitted for unprivileged callers.
type CompetingView struct {
	EventIDs           []string   `json:"event_ids"`
	RegistrationStatus *string    `json:"registration_status,omitempty"`
	RegisteredOn       *time.Time `json:"registered_on,omitempty"`
	Comment            *string    `json:"comment,omitempty"`
	AdminComment       *string    `json:"admin_comment,omitempty"`
	WaitlistPosition   *int       `json:"waiting_list_position,omitempty"`
}

// PaymentView summarizes the ledger for competitions using integrated
// payments. Statuses are ordered most recent first.
type PaymentView struct {
	HasPaid                    bool      `json:"has_paid"`
	PaymentStatuses            []string  `json:"payment_statuses"`
	PaymentAmountISO           int64     `json:"payment_amount_iso"`
	PaymentAmountHumanReadable string    `json:"payment_amount_human_readable"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

// DetailedView is the structured admin/API export of a registration.
type DetailedView struct {
	User      UserView           `json:"user"`
	UserID    *string            `json:"user_id"`
	Competing CompetingView      `json:"competing"`
	Payment   *PaymentView       `json:"payment,omitempty"`
	Guests    *int               `json:"guests,omitempty"`
	History   []HistoryEntryView `json:"history,omitempty"`
}

// BuildDetailedView assembles the detailed export. It requires a loaded
// user: once the account is deleted the user fields are unavailable and
// the view cannot be rendered. waitlistPosition is consulted only when the
// registration is waitlisted.
func BuildDetailedView(r *Registration, competition *Competition, user *User, waitlistPosition int, opts ViewOptions) (*DetailedView, error) {
	if user == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "detailed view requires a loaded user")
	}

	sorted := r.SortedEventIDs()
	eventIDs := make([]string, len(sorted))
	for i, eventID := range sorted {
		eventIDs[i] = string(eventID)
	}

	userView := UserView{
		ID:          user.ID.String(),
		WCAID:       user.WCAID,
		Name:        user.Name,
		Gender:      user.Gender,
		CountryISO2: user.CountryISO2,
		Country:     user.Country,
	}
	if opts.PII {
		dob := user.DOB.Format("2006-01-02")
		email := user.Email
		userView.DOB = &dob
		userView.Email = &email
	}

	view := &DetailedView{
		User:      userView,
		Competing: CompetingView{EventIDs: eventIDs},
	}
	if r.UserID != nil {
		uid := r.UserID.String()
		view.UserID = &uid
	}

	if opts.Admin {
		if competition.UsingPaymentIntegrations {
			view.Payment = buildPaymentView(r, competition)
		}
		guests := r.Guests
		view.Guests = &guests

		status := string(r.CompetingStatus)
		if !r.IsCompeting {
			status = "non_competing"
		}
		registeredOn := r.RegisteredAt
		comment := r.Comments
		adminComment := r.AdministrativeNotes
		view.Competing.RegistrationStatus = &status
		view.Competing.RegisteredOn = &registeredOn
		view.Competing.Comment = &comment
		view.Competing.AdminComment = &adminComment

		if r.Waitlisted() {
			position := waitlistPosition
			view.Competing.WaitlistPosition = &position
		}
	}

	if opts.History {
		view.History = r.RegistrationHistory()
	}
	return view, nil
}

func buildPaymentView(r *Registration, competition *Competition) *PaymentView {
	paid := r.PaidEntryFees(competition.CurrencyCode)

	byNewest := make([]Payment, len(r.Payments))
	copy(byNewest, r.Payments)
	sort.SliceStable(byNewest, func(i, j int) bool {
		return byNewest[i].CreatedAt.After(byNewest[j].CreatedAt)
	})
	statuses := make([]string, len(byNewest))
	for i, payment := range byNewest {
		statuses[i] = payment.PaymentStatus
	}

	return &PaymentView{
		HasPaid:                    !r.OutstandingEntryFees(competition).IsPositive(),
		PaymentStatuses:            statuses,
		PaymentAmountISO:           paid.Amount,
		PaymentAmountHumanReadable: paid.HumanReadable(),
		UpdatedAt:                  r.LastPaymentDate(),
	}
}
