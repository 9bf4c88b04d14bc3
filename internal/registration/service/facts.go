package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
	dErrors "compreg/pkg/domain-errors"
)

// validationFacts is the snapshot of collaborator state a rule evaluation
// needs. Checks are essential: any gateway failure aborts the write rather
// than validating against incomplete facts.
type validationFacts struct {
	bannedAtStart         bool
	cannotRegisterReasons []string
	qualifiedEvents       map[id.EventID]bool
}

// gatherFacts queries the user gateway concurrently for ban status,
// eligibility reasons and qualification. Registrations whose user account
// has been deleted skip the user checks entirely; their writes are
// admin-driven bookkeeping.
func (s *Service) gatherFacts(ctx context.Context, userID *id.UserID, competition *models.Competition, isCreate, isCompeting bool) (*validationFacts, error) {
	facts := &validationFacts{}
	if userID == nil {
		return facts, nil
	}
	uid := *userID

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		banned, err := s.users.BannedAtDate(gctx, uid, competition.StartDate)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "check ban status")
		}
		facts.bannedAtStart = banned
		return nil
	})

	if isCreate {
		g.Go(func() error {
			reasons, err := s.users.CannotRegisterReasons(gctx, uid, competition.ID, isCompeting)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "check registration eligibility")
			}
			facts.cannotRegisterReasons = reasons
			return nil
		})
	}

	if !competition.AllowRegistrationWithoutQualification {
		g.Go(func() error {
			qualified, err := s.users.QualifiedEventIDs(gctx, uid, competition.ID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "check event qualification")
			}
			facts.qualifiedEvents = qualified
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return facts, nil
}

// acceptedSiblingCount counts the user's accepted registrations at the other
// competitions of the series, excluding this registration itself. Zero when
// the competition is not part of a series or the account is gone.
func (s *Service) acceptedSiblingCount(ctx context.Context, reg *models.Registration, competition *models.Competition) (int, error) {
	if !competition.PartOfSeries || reg.UserID == nil {
		return 0, nil
	}
	siblings, err := s.store.ListByUserAndCompetitions(ctx, *reg.UserID, competition.SeriesSiblingIDs)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list series registrations")
	}
	count := 0
	for _, sibling := range siblings {
		if sibling.ID == reg.ID {
			continue
		}
		if sibling.Accepted() {
			count++
		}
	}
	return count, nil
}
