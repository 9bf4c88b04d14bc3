package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"compreg/internal/registration/models"
	"compreg/internal/registration/rules"
	id "compreg/pkg/domain"
	dErrors "compreg/pkg/domain-errors"
)

// RegisterRequest carries the initial registration write. ActorType and
// ActorID attribute the creation history entry; an empty ActorType defaults
// to the registering user acting on their own behalf.
type RegisterRequest struct {
	CompetitionID       id.CompetitionID
	UserID              id.UserID
	IsCompeting         bool
	Guests              int
	Comments            string
	AdministrativeNotes string
	EventIDs            []id.EventID
	Roles               models.Roles
	// RegisteredAt is optional; the current time applies when zero.
	RegisteredAt time.Time

	ActorType string
	ActorID   string
}

// Register creates a pending registration. Rule failures come back as data
// with a nil error and nothing persisted; the error channel is reserved for
// malformed input and infrastructure faults.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Registration, []rules.Failure, error) {
	start := s.now()
	defer func() { s.metrics.ObserveOperation("register", time.Since(start)) }()

	competition, err := s.competitions.Get(ctx, req.CompetitionID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeNotFound, "competition not found")
	}
	for _, eventID := range req.EventIDs {
		if !competition.OffersEvent(eventID) {
			return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "event "+string(eventID)+" is not offered at this competition")
		}
	}

	reg, err := models.NewRegistration(id.NewRegistrationID(), req.CompetitionID, req.UserID, req.IsCompeting, req.RegisteredAt, s.now())
	if err != nil {
		return nil, nil, err
	}
	reg.Guests = req.Guests
	reg.Comments = req.Comments
	reg.AdministrativeNotes = req.AdministrativeNotes
	if len(req.Roles) > 0 {
		reg.Roles = req.Roles
	}
	reg.ApplyEventSet(req.EventIDs)

	facts, err := s.gatherFacts(ctx, reg.UserID, competition, true, reg.IsCompeting)
	if err != nil {
		return nil, nil, err
	}

	actorType, actorID := req.ActorType, req.ActorID
	if actorType == "" {
		actorType, actorID = "user", req.UserID.String()
	}

	var failures []rules.Failure
	err = s.store.RunInTx(ctx, func(txCtx context.Context) error {
		siblingCount, err := s.acceptedSiblingCount(txCtx, reg, competition)
		if err != nil {
			return err
		}

		failures = rules.Evaluate(rules.Context{
			Registration:          reg,
			Competition:           competition,
			IsCreate:              true,
			StatusChanged:         true,
			EventsTouched:         true,
			CannotRegisterReasons: facts.cannotRegisterReasons,
			UserBannedAtStart:     facts.bannedAtStart,
			QualifiedEvents:       facts.qualifiedEvents,
			AcceptedSiblingCount:  siblingCount,
		})
		if len(failures) > 0 {
			return errValidationFailed
		}

		if err := s.store.Create(txCtx, reg); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create registration")
		}
		entry := creationHistoryEntry(reg, actorType, actorID, s.now())
		reg.History = append(reg.History, entry)
		if err := s.store.AppendHistory(txCtx, reg.ID, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append creation history")
		}
		return nil
	})
	if errors.Is(err, errValidationFailed) {
		s.observeFailures(failures)
		return nil, failures, nil
	}
	if err != nil {
		return nil, nil, err
	}

	s.metrics.ObserveTransition("", string(reg.CompetingStatus))
	s.logger.InfoContext(ctx, "registration created",
		"registration_id", reg.ID,
		"competition_id", reg.CompetitionID,
		"user_id", req.UserID,
		"is_competing", reg.IsCompeting,
	)
	s.postSave(ctx, reg, "create")
	return reg, nil, nil
}

// creationHistoryEntry records the initial attribute values so the trail
// starts with a complete snapshot rather than a bare "created" marker.
func creationHistoryEntry(reg *models.Registration, actorType, actorID string, now time.Time) models.HistoryEntry {
	changes := map[string]string{
		"competing_status": string(reg.CompetingStatus),
		"is_competing":     strconv.FormatBool(reg.IsCompeting),
		"guests":           strconv.Itoa(reg.Guests),
		"event_ids":        encodeEventIDs(reg.SortedEventIDs()),
	}
	if reg.Comments != "" {
		changes["comments"] = reg.Comments
	}
	return models.NewHistoryEntry(changes, actorType, actorID, "Create", now)
}

func encodeEventIDs(eventIDs []id.EventID) string {
	strs := make([]string, len(eventIDs))
	for i, eventID := range eventIDs {
		strs[i] = string(eventID)
	}
	encoded, _ := json.Marshal(strs)
	return string(encoded)
}
