package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"compreg/internal/registration/models"
	"compreg/internal/registration/rules"
	id "compreg/pkg/domain"
	dErrors "compreg/pkg/domain-errors"
	"compreg/pkg/platform/sentinel"
)

// errValidationFailed aborts the write transaction when rule failures were
// collected. It never escapes the service: callers receive the failures as
// data with a nil error.
var errValidationFailed = errors.New("validation failed")

// LaneUpdate is a partial update: nil fields are left untouched.
// RegisteredAt is deliberately absent; it is immutable after creation.
type LaneUpdate struct {
	RegistrationID id.RegistrationID

	Status              *models.CompetingStatus
	IsCompeting         *bool
	Guests              *int
	Comments            *string
	AdministrativeNotes *string
	EventIDs            *[]id.EventID
	Roles               *models.Roles

	ActorType string
	ActorID   string
}

// UpdateCompetingLanes applies a partial update under the full rule set.
// The event set arrives as a desired target; the diff is computed against
// the stored associations. Lost optimistic version checks retry with fresh
// state up to maxTxAttempts before surfacing the conflict.
func (s *Service) UpdateCompetingLanes(ctx context.Context, update LaneUpdate) (*models.Registration, []rules.Failure, error) {
	start := s.now()
	defer func() { s.metrics.ObserveOperation("update_lanes", time.Since(start)) }()

	if update.Status != nil && !update.Status.IsValid() {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "unknown competing status "+string(*update.Status))
	}

	current, err := s.Get(ctx, update.RegistrationID)
	if err != nil {
		return nil, nil, err
	}
	competition, err := s.competitions.Get(ctx, current.CompetitionID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load competition")
	}
	if update.EventIDs != nil {
		for _, eventID := range *update.EventIDs {
			if !competition.OffersEvent(eventID) {
				return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "event "+string(eventID)+" is not offered at this competition")
			}
		}
	}

	facts, err := s.gatherFacts(ctx, current.UserID, competition, false, current.IsCompeting)
	if err != nil {
		return nil, nil, err
	}

	var (
		reg        *models.Registration
		failures   []rules.Failure
		fromStatus models.CompetingStatus
	)
	for attempt := 1; ; attempt++ {
		reg, failures, err = s.applyLaneUpdate(ctx, update, competition, facts, &fromStatus)
		if err == nil || !errors.Is(err, sentinel.ErrConflict) {
			break
		}
		s.metrics.ObserveVersionConflict()
		if attempt >= maxTxAttempts {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeConflict, "registration was modified concurrently")
		}
		s.logger.WarnContext(ctx, "registration update lost version check, retrying",
			"registration_id", update.RegistrationID,
			"attempt", attempt,
		)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(failures) > 0 {
		s.observeFailures(failures)
		return nil, failures, nil
	}

	if fromStatus != reg.CompetingStatus {
		s.metrics.ObserveTransition(string(fromStatus), string(reg.CompetingStatus))
	}
	s.logger.InfoContext(ctx, "registration updated",
		"registration_id", reg.ID,
		"competition_id", reg.CompetitionID,
		"competing_status", reg.CompetingStatus,
	)
	s.postSave(ctx, reg, "update")
	return reg, nil, nil
}

// applyLaneUpdate runs one transactional attempt: reload, stage, validate,
// persist. Staging happens on the freshly loaded aggregate so a retry after
// a version conflict validates against the winner's state.
func (s *Service) applyLaneUpdate(ctx context.Context, update LaneUpdate, competition *models.Competition, facts *validationFacts, fromStatus *models.CompetingStatus) (*models.Registration, []rules.Failure, error) {
	var (
		reg      *models.Registration
		failures []rules.Failure
	)
	err := s.store.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		reg, err = s.store.Get(txCtx, update.RegistrationID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "registration not found")
		}
		*fromStatus = reg.CompetingStatus
		expectedVersion := reg.Version

		changes, statusChanged, eventsTouched := stageLaneUpdate(reg, update)
		if len(changes) == 0 {
			return nil
		}

		siblingCount, err := s.acceptedSiblingCount(txCtx, reg, competition)
		if err != nil {
			return err
		}
		failures = rules.Evaluate(rules.Context{
			Registration:         reg,
			Competition:          competition,
			StatusChanged:        statusChanged,
			EventsTouched:        eventsTouched,
			UserBannedAtStart:    facts.bannedAtStart,
			QualifiedEvents:      facts.qualifiedEvents,
			AcceptedSiblingCount: siblingCount,
		})
		if len(failures) > 0 {
			return errValidationFailed
		}

		if err := s.store.Update(txCtx, reg, expectedVersion); err != nil {
			return err
		}
		entry := models.NewHistoryEntry(changes, update.ActorType, update.ActorID, "Update", s.now())
		reg.History = append(reg.History, entry)
		if err := s.store.AppendHistory(txCtx, reg.ID, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append update history")
		}
		return nil
	})
	if errors.Is(err, errValidationFailed) {
		return nil, failures, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return reg, nil, nil
}

// stageLaneUpdate mutates the aggregate in place and returns the changed
// attributes in history form. Only attributes that actually differ are
// recorded, so a resubmission of current values yields no entry.
func stageLaneUpdate(reg *models.Registration, update LaneUpdate) (changes map[string]string, statusChanged, eventsTouched bool) {
	changes = make(map[string]string)

	if update.Status != nil && *update.Status != reg.CompetingStatus {
		reg.CompetingStatus = *update.Status
		changes["competing_status"] = string(reg.CompetingStatus)
		statusChanged = true
	}
	if update.IsCompeting != nil && *update.IsCompeting != reg.IsCompeting {
		reg.IsCompeting = *update.IsCompeting
		changes["is_competing"] = strconv.FormatBool(reg.IsCompeting)
		eventsTouched = true
	}
	if update.Guests != nil && *update.Guests != reg.Guests {
		reg.Guests = *update.Guests
		changes["guests"] = strconv.Itoa(reg.Guests)
	}
	if update.Comments != nil && *update.Comments != reg.Comments {
		reg.Comments = *update.Comments
		changes["comments"] = reg.Comments
	}
	if update.AdministrativeNotes != nil && *update.AdministrativeNotes != reg.AdministrativeNotes {
		reg.AdministrativeNotes = *update.AdministrativeNotes
		changes["administrative_notes"] = reg.AdministrativeNotes
	}
	if update.Roles != nil && !reg.Roles.Equal(*update.Roles) {
		reg.Roles = *update.Roles
		changes["roles"] = strings.Join(*update.Roles, ",")
	}
	if update.EventIDs != nil {
		added, removed := reg.ApplyEventSet(*update.EventIDs)
		if len(added) > 0 || len(removed) > 0 {
			changes["event_ids"] = encodeEventIDs(reg.SortedEventIDs())
			eventsTouched = true
		}
	}
	return changes, statusChanged, eventsTouched
}
