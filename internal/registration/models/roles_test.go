package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolesSet(t *testing.T) {
	roles := Roles{}
	roles = roles.Add("delegate")
	roles = roles.Add("organizer")
	roles = roles.Add("delegate")

	assert.Equal(t, Roles{"delegate", "organizer"}, roles)
	assert.True(t, roles.Contains("organizer"))
	assert.False(t, roles.Contains("trainee"))

	assert.True(t, roles.Equal(Roles{"delegate", "organizer"}))
	assert.False(t, roles.Equal(Roles{"organizer", "delegate"}), "order matters")
}

func TestRolesCodec(t *testing.T) {
	encoded, err := Roles{"delegate", "organizer"}.Encode()
	require.NoError(t, err)
	assert.Equal(t, `["delegate","organizer"]`, encoded)

	decoded, err := DecodeRoles(encoded)
	require.NoError(t, err)
	assert.Equal(t, Roles{"delegate", "organizer"}, decoded)

	t.Run("nil set encodes as empty array", func(t *testing.T) {
		encoded, err := Roles(nil).Encode()
		require.NoError(t, err)
		assert.Equal(t, "[]", encoded)
	})

	t.Run("empty input decodes to empty set", func(t *testing.T) {
		decoded, err := DecodeRoles("")
		require.NoError(t, err)
		assert.Empty(t, decoded)
	})

	t.Run("malformed input is rejected", func(t *testing.T) {
		_, err := DecodeRoles("delegate,organizer")
		require.Error(t, err)
	})
}
