package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
	dErrors "compreg/pkg/domain-errors"
)

// SeriesSiblingRegistrations lists the user's registrations at the other
// competitions of the series, ordered by sibling competition start date.
// An optional status narrows the result. Competitions outside a series, and
// registrations whose account is gone, yield an empty list.
func (s *Service) SeriesSiblingRegistrations(ctx context.Context, registrationID id.RegistrationID, status *models.CompetingStatus) ([]*models.Registration, error) {
	reg, err := s.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	competition, err := s.competitions.Get(ctx, reg.CompetitionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load competition")
	}
	if !competition.PartOfSeries || reg.UserID == nil {
		return nil, nil
	}

	siblings, err := s.store.ListByUserAndCompetitions(ctx, *reg.UserID, competition.SeriesSiblingIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list series registrations")
	}

	filtered := make([]*models.Registration, 0, len(siblings))
	for _, sibling := range siblings {
		if sibling.ID == reg.ID {
			continue
		}
		if status != nil && sibling.CompetingStatus != *status {
			continue
		}
		filtered = append(filtered, sibling)
	}

	startDates, err := s.siblingStartDates(ctx, competition.SeriesSiblingIDs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return startDates[filtered[i].CompetitionID].Before(startDates[filtered[j].CompetitionID])
	})
	return filtered, nil
}

// SeriesRegistrationInfo summarizes the user's standing across the series as
// "<accepted> + <pending>", the shorthand organizers read on admin panels.
func (s *Service) SeriesRegistrationInfo(ctx context.Context, registrationID id.RegistrationID) (string, error) {
	siblings, err := s.SeriesSiblingRegistrations(ctx, registrationID, nil)
	if err != nil {
		return "", err
	}
	accepted := models.CountByStatus(siblings, models.StatusAccepted)
	pending := models.CountByStatus(siblings, models.StatusPending)
	return fmt.Sprintf("%d + %d", accepted, pending), nil
}

func (s *Service) siblingStartDates(ctx context.Context, competitionIDs []id.CompetitionID) (map[id.CompetitionID]time.Time, error) {
	dates := make(map[id.CompetitionID]time.Time, len(competitionIDs))
	for _, competitionID := range competitionIDs {
		sibling, err := s.competitions.Get(ctx, competitionID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load series sibling competition")
		}
		dates[competitionID] = sibling.StartDate
	}
	return dates, nil
}
