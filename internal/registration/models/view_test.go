package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "compreg/pkg/domain"
	dErrors "compreg/pkg/domain-errors"
)

func testUser(t *testing.T) *User {
	t.Helper()
	return &User{
		ID:          mustParse(t, "11111111-1111-1111-1111-111111111111"),
		WCAID:       "2015ABCD01",
		Name:        "Ada Example",
		Gender:      "f",
		CountryISO2: "SE",
		Country:     "Sweden",
		DOB:         time.Date(1999, 7, 14, 0, 0, 0, 0, time.UTC),
		Email:       "ada@example.com",
	}
}

func TestBuildDetailedView(t *testing.T) {
	comp := testCompetition()
	user := testUser(t)

	newReg := func() *Registration {
		reg := testRegistration(t)
		reg.Version = 1
		reg.EventIDs = []id.EventID{"444", "333"}
		reg.Guests = 1
		reg.Comments = "first comp"
		reg.AdministrativeNotes = "note"
		return reg
	}

	t.Run("requires a loaded user", func(t *testing.T) {
		_, err := BuildDetailedView(newReg(), comp, nil, 0, ViewOptions{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("base view has no admin or pii sections", func(t *testing.T) {
		view, err := BuildDetailedView(newReg(), comp, user, 0, ViewOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"333", "444"}, view.Competing.EventIDs)
		assert.Nil(t, view.Competing.RegistrationStatus)
		assert.Nil(t, view.Payment)
		assert.Nil(t, view.Guests)
		assert.Nil(t, view.User.DOB)
		assert.Nil(t, view.User.Email)
		require.NotNil(t, view.UserID)
		assert.Equal(t, user.ID.String(), *view.UserID)
	})

	t.Run("pii adds dob and email", func(t *testing.T) {
		view, err := BuildDetailedView(newReg(), comp, user, 0, ViewOptions{PII: true})
		require.NoError(t, err)
		require.NotNil(t, view.User.DOB)
		assert.Equal(t, "1999-07-14", *view.User.DOB)
		require.NotNil(t, view.User.Email)
		assert.Equal(t, "ada@example.com", *view.User.Email)
	})

	t.Run("admin adds status, comments and payment", func(t *testing.T) {
		reg := newReg()
		// Entry fee is 1000 base + 500 + 300 event fees.
		reg.RecordPayment(1800, "USD", stubReceipt{"re_1", "succeeded"}, user.ID, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

		view, err := BuildDetailedView(reg, comp, user, 0, ViewOptions{Admin: true})
		require.NoError(t, err)
		require.NotNil(t, view.Competing.RegistrationStatus)
		assert.Equal(t, "pending", *view.Competing.RegistrationStatus)
		require.NotNil(t, view.Guests)
		assert.Equal(t, 1, *view.Guests)

		require.NotNil(t, view.Payment)
		assert.True(t, view.Payment.HasPaid)
		assert.Equal(t, int64(1800), view.Payment.PaymentAmountISO)
		assert.Equal(t, "USD 18.00 (US Dollar)", view.Payment.PaymentAmountHumanReadable)
		assert.Equal(t, []string{"succeeded"}, view.Payment.PaymentStatuses)
	})

	t.Run("admin payment statuses are newest first", func(t *testing.T) {
		reg := newReg()
		base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		first := reg.RecordPayment(1500, "USD", stubReceipt{"re_1", "succeeded"}, user.ID, base)
		reg.RecordRefund(500, "USD", stubReceipt{"re_1_r", "refund"}, first.ID, user.ID, base.Add(time.Hour))

		view, err := BuildDetailedView(reg, comp, user, 0, ViewOptions{Admin: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"refund", "succeeded"}, view.Payment.PaymentStatuses)
	})

	t.Run("non-competing registration reads non_competing", func(t *testing.T) {
		reg := newReg()
		reg.IsCompeting = false
		view, err := BuildDetailedView(reg, comp, user, 0, ViewOptions{Admin: true})
		require.NoError(t, err)
		assert.Equal(t, "non_competing", *view.Competing.RegistrationStatus)
	})

	t.Run("waitlist position only for waitlisted registrations", func(t *testing.T) {
		reg := newReg()
		view, err := BuildDetailedView(reg, comp, user, 4, ViewOptions{Admin: true})
		require.NoError(t, err)
		assert.Nil(t, view.Competing.WaitlistPosition)

		reg.CompetingStatus = StatusWaitingList
		view, err = BuildDetailedView(reg, comp, user, 4, ViewOptions{Admin: true})
		require.NoError(t, err)
		require.NotNil(t, view.Competing.WaitlistPosition)
		assert.Equal(t, 4, *view.Competing.WaitlistPosition)
	})

	t.Run("no payment section without payment integration", func(t *testing.T) {
		manual := *comp
		manual.UsingPaymentIntegrations = false
		view, err := BuildDetailedView(newReg(), &manual, user, 0, ViewOptions{Admin: true})
		require.NoError(t, err)
		assert.Nil(t, view.Payment)
	})

	t.Run("history section decodes event_ids", func(t *testing.T) {
		reg := newReg()
		reg.AddHistoryEntry(map[string]string{"event_ids": `["333"]`}, "user", user.ID.String(), "Update", time.Now())
		view, err := BuildDetailedView(reg, comp, user, 0, ViewOptions{History: true})
		require.NoError(t, err)
		require.Len(t, view.History, 1)
		assert.Equal(t, []string{"333"}, view.History[0].ChangedAttributes["event_ids"])
	})
}
