// Package rules holds the composable validation rules gating registration
// creates and updates.
//
// Rules are pure: every fact they need (competition policy, ban status,
// qualification, series siblings) arrives in the Context, gathered by the
// service inside the write transaction. All rules run and every failure is
// collected; nothing short-circuits, so the caller can render the full set.
package rules

import (
	"fmt"
	"strings"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
)

// Code is a stable machine-readable failure code consumed by API clients.
type Code string

const (
	CodeUserCannotRegister     Code = "USER_CANNOT_REGISTER"
	CodeUserIsBanned           Code = "USER_IS_BANNED"
	CodeMustRegisterForEvent   Code = "MUST_REGISTER_FOR_EVENT"
	CodeEventLimitExceeded     Code = "EVENT_LIMIT_EXCEEDED"
	CodeUnqualifiedForEvent    Code = "UNQUALIFIED_FOR_EVENT"
	CodeGuestLimitExceeded     Code = "GUEST_LIMIT_EXCEEDED"
	CodeUnreasonableGuestCount Code = "UNREASONABLE_GUEST_COUNT"
	CodeUserCommentTooLong     Code = "USER_COMMENT_TOO_LONG"
	CodeRequiredCommentMissing Code = "REQUIRED_COMMENT_MISSING"
	CodeSeriesAlreadyAccepted  Code = "ALREADY_ACCEPTED_IN_SERIES"
)

// Failure is one rule violation with field attribution. Ban and series
// conflicts attribute to user_id / competition_id so the API layer can
// surface them next to the relevant input.
type Failure struct {
	Code    Code   `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Context is the immutable snapshot a rule evaluation runs against.
type Context struct {
	Registration *models.Registration
	Competition  *models.Competition

	// IsCreate is true for the initial registration write.
	IsCreate bool
	// StatusChanged is true when the pending write changes CompetingStatus;
	// status-gated rules only re-run in that case.
	StatusChanged bool
	// EventsTouched is true when the event set or the competing flag is
	// part of the pending write.
	EventsTouched bool

	// CannotRegisterReasons are human-readable exclusions from the external
	// eligibility collaborator (age, prior ban, account state, ...).
	CannotRegisterReasons []string
	// UserBannedAtStart is the ban check as of the competition start date.
	UserBannedAtStart bool
	// QualifiedEvents marks the events the user holds a qualification for.
	QualifiedEvents map[id.EventID]bool
	// AcceptedSiblingCount counts the user's accepted registrations at
	// sibling competitions of the same series.
	AcceptedSiblingCount int
}

// Rule inspects a Context and returns zero or more failures.
type Rule func(Context) []Failure

// Default returns the ordered rule set applied to every registration write.
func Default() []Rule {
	return []Rule{
		ruleEligibility,
		ruleBanOnUndelete,
		ruleMinimumOneEvent,
		ruleEventLimit,
		ruleQualification,
		ruleGuestBounds,
		ruleComments,
		ruleSeriesExclusivity,
	}
}

// Evaluate runs the default rule set and merges all failures.
func Evaluate(ctx Context) []Failure {
	var failures []Failure
	for _, rule := range Default() {
		failures = append(failures, rule(ctx)...)
	}
	return failures
}

// ruleEligibility runs on create only and is skipped for registrations
// arriving already rejected. Any exclusion reason fails the write.
func ruleEligibility(ctx Context) []Failure {
	if !ctx.IsCreate || ctx.Registration.Rejected() {
		return nil
	}
	if len(ctx.CannotRegisterReasons) == 0 {
		return nil
	}
	return []Failure{{
		Code:    CodeUserCannotRegister,
		Field:   "user_id",
		Message: strings.Join(ctx.CannotRegisterReasons, ", "),
	}}
}

// ruleBanOnUndelete blocks moving a banned user into a might-attend status.
// It only applies when the status actually changed, so a no-op save of a
// cancelled registration still succeeds.
func ruleBanOnUndelete(ctx Context) []Failure {
	if !ctx.StatusChanged {
		return nil
	}
	if ctx.UserBannedAtStart && ctx.Registration.MightAttend() {
		return []Failure{{
			Code:    CodeUserIsBanned,
			Field:   "user_id",
			Message: "user is banned through the competition start date and cannot attend",
		}}
	}
	return nil
}

func ruleMinimumOneEvent(ctx Context) []Failure {
	if !ctx.IsCreate && !ctx.EventsTouched {
		return nil
	}
	if ctx.Registration.IsCompeting && len(ctx.Registration.EventIDs) == 0 {
		return []Failure{{
			Code:    CodeMustRegisterForEvent,
			Field:   "registration_competition_events",
			Message: "must register for at least one event",
		}}
	}
	return nil
}

func ruleEventLimit(ctx Context) []Failure {
	if !ctx.IsCreate && !ctx.EventsTouched {
		return nil
	}
	comp := ctx.Competition
	if !comp.EventsPerRegistrationLimitEnabled {
		return nil
	}
	if len(ctx.Registration.EventIDs) > comp.EventsPerRegistrationLimit {
		return []Failure{{
			Code:    CodeEventLimitExceeded,
			Field:   "registration_competition_events",
			Message: fmt.Sprintf("cannot register for more than %d events", comp.EventsPerRegistrationLimit),
		}}
	}
	return nil
}

func ruleQualification(ctx Context) []Failure {
	if !ctx.IsCreate && !ctx.EventsTouched {
		return nil
	}
	if ctx.Competition.AllowRegistrationWithoutQualification {
		return nil
	}
	for _, eventID := range ctx.Registration.EventIDs {
		if !ctx.QualifiedEvents[eventID] {
			return []Failure{{
				Code:    CodeUnqualifiedForEvent,
				Field:   "registration_competition_events",
				Message: "can only register for events the user is qualified for",
			}}
		}
	}
	return nil
}

// ruleGuestBounds applies all configured guest constraints independently;
// several may fire for the same count.
func ruleGuestBounds(ctx Context) []Failure {
	var failures []Failure
	guests := ctx.Registration.Guests
	comp := ctx.Competition

	if guests < 0 {
		failures = append(failures, Failure{
			Code:    CodeUnreasonableGuestCount,
			Field:   "guests",
			Message: "guest count must not be negative",
		})
	}
	if comp.GuestsPerRegistrationLimitEnabled && guests > comp.GuestsPerRegistrationLimit {
		failures = append(failures, Failure{
			Code:    CodeGuestLimitExceeded,
			Field:   "guests",
			Message: fmt.Sprintf("guest count exceeds the limit of %d", comp.GuestsPerRegistrationLimit),
		})
	}
	if !comp.GuestsEnabled && guests != 0 {
		failures = append(failures, Failure{
			Code:    CodeGuestLimitExceeded,
			Field:   "guests",
			Message: "guests are not allowed at this competition",
		})
	}
	if comp.GuestsUnrestricted() && guests > models.DefaultGuestLimit {
		failures = append(failures, Failure{
			Code:    CodeUnreasonableGuestCount,
			Field:   "guests",
			Message: fmt.Sprintf("guest count exceeds the absolute ceiling of %d", models.DefaultGuestLimit),
		})
	}
	return failures
}

func ruleComments(ctx Context) []Failure {
	var failures []Failure
	reg := ctx.Registration

	if len(reg.Comments) > models.CommentCharacterLimit {
		failures = append(failures, Failure{
			Code:    CodeUserCommentTooLong,
			Field:   "comments",
			Message: fmt.Sprintf("comment must be at most %d characters", models.CommentCharacterLimit),
		})
	}
	if ctx.Competition.ForceCommentInRegistration && strings.TrimSpace(reg.Comments) == "" {
		failures = append(failures, Failure{
			Code:    CodeRequiredCommentMissing,
			Field:   "comments",
			Message: "this competition requires a comment on registration",
		})
	}
	if len(reg.AdministrativeNotes) > models.CommentCharacterLimit {
		failures = append(failures, Failure{
			Code:    CodeUserCommentTooLong,
			Field:   "administrative_notes",
			Message: fmt.Sprintf("administrative notes must be at most %d characters", models.CommentCharacterLimit),
		})
	}
	return failures
}

// ruleSeriesExclusivity enforces at most one accepted registration per user
// across a competition series.
func ruleSeriesExclusivity(ctx Context) []Failure {
	if !ctx.Competition.PartOfSeries || !ctx.Registration.Accepted() {
		return nil
	}
	if ctx.AcceptedSiblingCount > 0 {
		return []Failure{{
			Code:    CodeSeriesAlreadyAccepted,
			Field:   "competition_id",
			Message: "another registration in this competition series is already accepted",
		}}
	}
	return nil
}
