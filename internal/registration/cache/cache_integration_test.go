//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "compreg/pkg/domain"
	"compreg/pkg/testutil/containers"
)

func TestInvalidateProcessing(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	invalidator := NewRedisInvalidator(rc.Client)

	uid, err := id.ParseUserID("11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	key := ProcessingKey("Comp2026", uid)

	require.NoError(t, rc.Client.Set(ctx, key, "1", time.Minute).Err())

	require.NoError(t, invalidator.InvalidateProcessing(ctx, "Comp2026", uid))

	exists, err := rc.Client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	// Deleting an absent flag is not an error.
	require.NoError(t, invalidator.InvalidateProcessing(ctx, "Comp2026", uid))
}

func TestProcessingKeyShape(t *testing.T) {
	uid, err := id.ParseUserID("11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	assert.Equal(t,
		"registration_processing:Comp2026:11111111-1111-1111-1111-111111111111",
		ProcessingKey("Comp2026", uid),
	)
}
