package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
)

func baseCompetition() *models.Competition {
	return &models.Competition{
		ID:                                    "GothenburgOpen2026",
		CurrencyCode:                          "USD",
		EventFees:                             map[id.EventID]int64{"333": 0, "444": 0, "555": 0},
		GuestsEnabled:                         true,
		GuestEntryStatusRestricted:            false,
		AllowRegistrationWithoutQualification: true,
	}
}

func baseRegistration() *models.Registration {
	uid, _ := id.ParseUserID("11111111-1111-1111-1111-111111111111")
	return &models.Registration{
		ID:              id.NewRegistrationID(),
		CompetitionID:   "GothenburgOpen2026",
		UserID:          &uid,
		CompetingStatus: models.StatusPending,
		IsCompeting:     true,
		EventIDs:        []id.EventID{"333"},
		Version:         1,
	}
}

func codes(failures []Failure) []Code {
	out := make([]Code, len(failures))
	for i, f := range failures {
		out[i] = f.Code
	}
	return out
}

func TestGuestBounds(t *testing.T) {
	t.Run("negative count is unreasonable", func(t *testing.T) {
		reg := baseRegistration()
		reg.Guests = -1
		failures := Evaluate(Context{Registration: reg, Competition: baseCompetition()})
		assert.Contains(t, codes(failures), CodeUnreasonableGuestCount)
	})

	t.Run("enabled limit is enforced", func(t *testing.T) {
		comp := baseCompetition()
		comp.GuestEntryStatusRestricted = true
		comp.GuestsPerRegistrationLimitEnabled = true
		comp.GuestsPerRegistrationLimit = 2

		reg := baseRegistration()
		reg.Guests = 2
		assert.Empty(t, Evaluate(Context{Registration: reg, Competition: comp}))

		reg.Guests = 3
		failures := Evaluate(Context{Registration: reg, Competition: comp})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeGuestLimitExceeded, failures[0].Code)
		assert.Equal(t, "guests", failures[0].Field)
	})

	t.Run("disabled guests require zero", func(t *testing.T) {
		comp := baseCompetition()
		comp.GuestsEnabled = false
		comp.GuestEntryStatusRestricted = true

		reg := baseRegistration()
		reg.Guests = 1
		failures := Evaluate(Context{Registration: reg, Competition: comp})
		assert.Contains(t, codes(failures), CodeGuestLimitExceeded)

		reg.Guests = 0
		assert.Empty(t, Evaluate(Context{Registration: reg, Competition: comp}))
	})

	t.Run("unrestricted guests hit the absolute ceiling", func(t *testing.T) {
		reg := baseRegistration()
		reg.Guests = 99
		assert.Empty(t, Evaluate(Context{Registration: reg, Competition: baseCompetition()}))

		reg.Guests = 100
		failures := Evaluate(Context{Registration: reg, Competition: baseCompetition()})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeUnreasonableGuestCount, failures[0].Code)
	})
}

func TestComments(t *testing.T) {
	t.Run("comment over the limit", func(t *testing.T) {
		reg := baseRegistration()
		reg.Comments = strings.Repeat("x", models.CommentCharacterLimit+1)
		failures := Evaluate(Context{Registration: reg, Competition: baseCompetition()})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeUserCommentTooLong, failures[0].Code)
		assert.Equal(t, "comments", failures[0].Field)
	})

	t.Run("comment exactly at the limit passes", func(t *testing.T) {
		reg := baseRegistration()
		reg.Comments = strings.Repeat("x", models.CommentCharacterLimit)
		assert.Empty(t, Evaluate(Context{Registration: reg, Competition: baseCompetition()}))
	})

	t.Run("forced comment missing", func(t *testing.T) {
		comp := baseCompetition()
		comp.ForceCommentInRegistration = true
		reg := baseRegistration()

		failures := Evaluate(Context{Registration: reg, Competition: comp})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeRequiredCommentMissing, failures[0].Code)

		// Whitespace does not satisfy the requirement.
		reg.Comments = "   "
		failures = Evaluate(Context{Registration: reg, Competition: comp})
		assert.Contains(t, codes(failures), CodeRequiredCommentMissing)

		reg.Comments = "will arrive by train"
		assert.Empty(t, Evaluate(Context{Registration: reg, Competition: comp}))
	})

	t.Run("administrative notes share the limit", func(t *testing.T) {
		reg := baseRegistration()
		reg.AdministrativeNotes = strings.Repeat("x", models.CommentCharacterLimit+1)
		failures := Evaluate(Context{Registration: reg, Competition: baseCompetition()})
		require.Len(t, failures, 1)
		assert.Equal(t, "administrative_notes", failures[0].Field)
	})
}

func TestEligibility(t *testing.T) {
	t.Run("exclusion reasons fail a create", func(t *testing.T) {
		failures := Evaluate(Context{
			Registration:          baseRegistration(),
			Competition:           baseCompetition(),
			IsCreate:              true,
			CannotRegisterReasons: []string{"too young", "incomplete profile"},
		})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeUserCannotRegister, failures[0].Code)
		assert.Equal(t, "user_id", failures[0].Field)
		assert.Equal(t, "too young, incomplete profile", failures[0].Message)
	})

	t.Run("skipped for registrations arriving rejected", func(t *testing.T) {
		reg := baseRegistration()
		reg.CompetingStatus = models.StatusRejected
		failures := Evaluate(Context{
			Registration:          reg,
			Competition:           baseCompetition(),
			IsCreate:              true,
			CannotRegisterReasons: []string{"too young"},
		})
		assert.Empty(t, failures)
	})

	t.Run("not re-checked on update", func(t *testing.T) {
		failures := Evaluate(Context{
			Registration:          baseRegistration(),
			Competition:           baseCompetition(),
			CannotRegisterReasons: []string{"too young"},
		})
		assert.Empty(t, failures)
	})
}

func TestBanOnUndelete(t *testing.T) {
	banned := func(status models.CompetingStatus, statusChanged bool) []Failure {
		reg := baseRegistration()
		reg.CompetingStatus = status
		return Evaluate(Context{
			Registration:      reg,
			Competition:       baseCompetition(),
			StatusChanged:     statusChanged,
			UserBannedAtStart: true,
		})
	}

	t.Run("banned user cannot move to accepted", func(t *testing.T) {
		failures := banned(models.StatusAccepted, true)
		require.Len(t, failures, 1)
		assert.Equal(t, CodeUserIsBanned, failures[0].Code)
		assert.Equal(t, "user_id", failures[0].Field)
	})

	t.Run("banned user cannot move to waiting list", func(t *testing.T) {
		failures := banned(models.StatusWaitingList, true)
		assert.Contains(t, codes(failures), CodeUserIsBanned)
	})

	t.Run("no-op save of a cancelled registration passes", func(t *testing.T) {
		assert.Empty(t, banned(models.StatusCancelled, false))
	})

	t.Run("unchanged accepted status is not re-checked", func(t *testing.T) {
		assert.Empty(t, banned(models.StatusAccepted, false))
	})
}

func TestEventRules(t *testing.T) {
	t.Run("competing registration needs at least one event", func(t *testing.T) {
		reg := baseRegistration()
		reg.EventIDs = nil
		failures := Evaluate(Context{Registration: reg, Competition: baseCompetition(), EventsTouched: true})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeMustRegisterForEvent, failures[0].Code)
	})

	t.Run("non-competing registration may hold no events", func(t *testing.T) {
		reg := baseRegistration()
		reg.IsCompeting = false
		reg.EventIDs = nil
		assert.Empty(t, Evaluate(Context{Registration: reg, Competition: baseCompetition(), EventsTouched: true}))
	})

	t.Run("event limit", func(t *testing.T) {
		comp := baseCompetition()
		comp.EventsPerRegistrationLimitEnabled = true
		comp.EventsPerRegistrationLimit = 2

		reg := baseRegistration()
		reg.EventIDs = []id.EventID{"333", "444", "555"}
		failures := Evaluate(Context{Registration: reg, Competition: comp, EventsTouched: true})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeEventLimitExceeded, failures[0].Code)
	})

	t.Run("qualification required", func(t *testing.T) {
		comp := baseCompetition()
		comp.AllowRegistrationWithoutQualification = false

		reg := baseRegistration()
		reg.EventIDs = []id.EventID{"333", "444"}
		failures := Evaluate(Context{
			Registration:    reg,
			Competition:     comp,
			EventsTouched:   true,
			QualifiedEvents: map[id.EventID]bool{"333": true},
		})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeUnqualifiedForEvent, failures[0].Code)
	})

	t.Run("event rules skipped when events untouched", func(t *testing.T) {
		reg := baseRegistration()
		reg.EventIDs = nil
		assert.Empty(t, Evaluate(Context{Registration: reg, Competition: baseCompetition()}))
	})
}

func TestSeriesExclusivity(t *testing.T) {
	seriesComp := func() *models.Competition {
		comp := baseCompetition()
		comp.PartOfSeries = true
		comp.SeriesSiblingIDs = []id.CompetitionID{"GothenburgOpen2026-II"}
		return comp
	}

	t.Run("accepting with an accepted sibling fails", func(t *testing.T) {
		reg := baseRegistration()
		reg.CompetingStatus = models.StatusAccepted
		failures := Evaluate(Context{
			Registration:         reg,
			Competition:          seriesComp(),
			StatusChanged:        true,
			AcceptedSiblingCount: 1,
		})
		require.Len(t, failures, 1)
		assert.Equal(t, CodeSeriesAlreadyAccepted, failures[0].Code)
		assert.Equal(t, "competition_id", failures[0].Field)
	})

	t.Run("pending with an accepted sibling passes", func(t *testing.T) {
		failures := Evaluate(Context{
			Registration:         baseRegistration(),
			Competition:          seriesComp(),
			AcceptedSiblingCount: 1,
		})
		assert.Empty(t, failures)
	})

	t.Run("accepting with no accepted siblings passes", func(t *testing.T) {
		reg := baseRegistration()
		reg.CompetingStatus = models.StatusAccepted
		failures := Evaluate(Context{
			Registration:  reg,
			Competition:   seriesComp(),
			StatusChanged: true,
		})
		assert.Empty(t, failures)
	})

	t.Run("not applied outside a series", func(t *testing.T) {
		reg := baseRegistration()
		reg.CompetingStatus = models.StatusAccepted
		failures := Evaluate(Context{
			Registration:         reg,
			Competition:          baseCompetition(),
			StatusChanged:        true,
			AcceptedSiblingCount: 1,
		})
		assert.Empty(t, failures)
	})
}

// TestAllFailuresCollected pins the collect-don't-short-circuit contract:
// one evaluation returns every violation at once.
func TestAllFailuresCollected(t *testing.T) {
	comp := baseCompetition()
	comp.ForceCommentInRegistration = true
	comp.GuestsEnabled = false
	comp.GuestEntryStatusRestricted = true

	reg := baseRegistration()
	reg.EventIDs = nil
	reg.Guests = 5

	failures := Evaluate(Context{
		Registration:          reg,
		Competition:           comp,
		IsCreate:              true,
		StatusChanged:         true,
		EventsTouched:         true,
		CannotRegisterReasons: []string{"incomplete profile"},
	})

	got := codes(failures)
	assert.Contains(t, got, CodeUserCannotRegister)
	assert.Contains(t, got, CodeMustRegisterForEvent)
	assert.Contains(t, got, CodeGuestLimitExceeded)
	assert.Contains(t, got, CodeRequiredCommentMissing)
	assert.Len(t, failures, 4)
}
