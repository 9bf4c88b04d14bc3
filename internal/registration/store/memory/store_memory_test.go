package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compreg/internal/registration/models"
	id "compreg/pkg/domain"
	"compreg/pkg/platform/sentinel"
)

func newStoredRegistration(t *testing.T, store *InMemoryStore) *models.Registration {
	t.Helper()
	uid, err := id.ParseUserID("11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)

	reg, err := models.NewRegistration(id.NewRegistrationID(), "Comp2026", uid, true, time.Time{}, time.Now())
	require.NoError(t, err)
	reg.EventIDs = []id.EventID{"333"}
	require.NoError(t, store.Create(context.Background(), reg))
	return reg
}

func TestCreateAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()
	reg := newStoredRegistration(t, store)

	assert.Equal(t, int64(1), reg.Version)

	loaded, err := store.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, loaded.ID)
	assert.Equal(t, []id.EventID{"333"}, loaded.EventIDs)

	// The loaded copy is detached from the stored state.
	loaded.EventIDs[0] = "777"
	again, err := store.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, []id.EventID{"333"}, again.EventIDs)

	t.Run("duplicate create conflicts", func(t *testing.T) {
		err := store.Create(ctx, reg)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("missing registration", func(t *testing.T) {
		_, err := store.Get(ctx, id.NewRegistrationID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestUpdateVersionCheck(t *testing.T) {
	store := New()
	ctx := context.Background()
	reg := newStoredRegistration(t, store)

	reg.CompetingStatus = models.StatusAccepted
	require.NoError(t, store.Update(ctx, reg, 1))
	assert.Equal(t, int64(2), reg.Version)

	t.Run("stale version conflicts", func(t *testing.T) {
		stale := *reg
		err := store.Update(ctx, &stale, 1)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("update preserves appended ledgers", func(t *testing.T) {
		entry := models.NewHistoryEntry(map[string]string{"guests": "1"}, "user", "u-1", "Update", time.Now())
		require.NoError(t, store.AppendHistory(ctx, reg.ID, entry))

		reg.Guests = 1
		require.NoError(t, store.Update(ctx, reg, 2))

		loaded, err := store.Get(ctx, reg.ID)
		require.NoError(t, err)
		require.Len(t, loaded.History, 1)
		assert.Equal(t, 1, loaded.Guests)
	})
}

func TestRunInTxRollback(t *testing.T) {
	store := New()
	ctx := context.Background()
	reg := newStoredRegistration(t, store)

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(txCtx context.Context) error {
		entry := models.NewHistoryEntry(map[string]string{"guests": "5"}, "user", "u-1", "Update", time.Now())
		require.NoError(t, store.AppendHistory(txCtx, reg.ID, entry))
		reg.Guests = 5
		require.NoError(t, store.Update(txCtx, reg, 1))
		return boom
	})
	require.ErrorIs(t, err, boom)

	loaded, err := store.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.History, "appended entry rolled back")
	assert.Equal(t, 0, loaded.Guests)
	assert.Equal(t, int64(1), loaded.Version)
}

func TestListByUserAndCompetitions(t *testing.T) {
	store := New()
	ctx := context.Background()
	uid, err := id.ParseUserID("11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	otherUID, err := id.ParseUserID("22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)

	mk := func(user id.UserID, comp id.CompetitionID) {
		reg, err := models.NewRegistration(id.NewRegistrationID(), comp, user, true, time.Time{}, time.Now())
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, reg))
	}
	mk(uid, "CompA")
	mk(uid, "CompB")
	mk(uid, "CompC")
	mk(otherUID, "CompA")

	results, err := store.ListByUserAndCompetitions(ctx, uid, []id.CompetitionID{"CompA", "CompB"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = store.ListByUserAndCompetitions(ctx, uid, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
