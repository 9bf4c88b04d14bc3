package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "compreg/pkg/domain"
)

func TestToWCIF(t *testing.T) {
	reg := testRegistration(t)
	reg.EventIDs = []id.EventID{"444", "333"}
	reg.Guests = 2
	reg.Comments = "arriving late"
	reg.AdministrativeNotes = "paid cash"
	reg.CompetingStatus = StatusAccepted

	t.Run("unauthorized omits private fields", func(t *testing.T) {
		out := reg.ToWCIF(false)
		assert.Equal(t, reg.ID.String(), out.WCARegistrationID)
		assert.Equal(t, []string{"333", "444"}, out.EventIDs, "event ids are sorted")
		assert.Equal(t, "accepted", out.Status)
		assert.True(t, out.IsCompeting)
		assert.Nil(t, out.Guests)
		assert.Nil(t, out.Comments)
		assert.Nil(t, out.AdministrativeNotes)

		raw, err := json.Marshal(out)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "guests")
		assert.NotContains(t, string(raw), "comments")
	})

	t.Run("authorized includes private fields", func(t *testing.T) {
		out := reg.ToWCIF(true)
		require.NotNil(t, out.Guests)
		assert.Equal(t, 2, *out.Guests)
		require.NotNil(t, out.Comments)
		assert.Equal(t, "arriving late", *out.Comments)
		require.NotNil(t, out.AdministrativeNotes)
		assert.Equal(t, "paid cash", *out.AdministrativeNotes)
	})

	t.Run("authorized empty comment exports as empty string not null", func(t *testing.T) {
		blank := testRegistration(t)
		out := blank.ToWCIF(true)
		require.NotNil(t, out.Comments)
		assert.Equal(t, "", *out.Comments)
	})

	t.Run("export does not mutate the registration", func(t *testing.T) {
		before := append([]id.EventID(nil), reg.EventIDs...)
		_ = reg.ToWCIF(true)
		assert.Equal(t, before, reg.EventIDs)
	})
}

func TestWCIFJSONSchema(t *testing.T) {
	schema := WCIFJSONSchema([]id.EventID{"333", "444"})

	assert.Equal(t, []string{"object", "null"}, schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	events, ok := props["eventIds"].(map[string]any)
	require.True(t, ok)
	items, ok := events["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"333", "444"}, items["enum"])

	status, ok := props["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"accepted", "deleted", "pending"}, status["enum"])
}
