package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistoryEntryKeyOrder(t *testing.T) {
	entry := NewHistoryEntry(map[string]string{
		"guests":           "2",
		"competing_status": "accepted",
		"event_ids":        `["333"]`,
	}, "user", "u-1", "Update", time.Now())

	require.Len(t, entry.Changes, 3)
	assert.Equal(t, "competing_status", entry.Changes[0].Key)
	assert.Equal(t, "event_ids", entry.Changes[1].Key)
	assert.Equal(t, "guests", entry.Changes[2].Key)
}

func TestHistoryEntryViewDecoding(t *testing.T) {
	ts := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	entry := NewHistoryEntry(map[string]string{
		"event_ids": `["333","555"]`,
		"comments":  "see you there",
	}, "user", "u-1", "Update", ts)

	view := entry.view()
	assert.Equal(t, "user", view.ActorType)
	assert.Equal(t, "u-1", view.ActorID)
	assert.Equal(t, "Update", view.Action)
	assert.Equal(t, ts, view.Timestamp)
	assert.Equal(t, []string{"333", "555"}, view.ChangedAttributes["event_ids"])
	assert.Equal(t, "see you there", view.ChangedAttributes["comments"])

	t.Run("malformed event_ids falls back to the raw string", func(t *testing.T) {
		broken := NewHistoryEntry(map[string]string{"event_ids": "333,555"}, "user", "u-1", "Update", ts)
		view := broken.view()
		assert.Equal(t, "333,555", view.ChangedAttributes["event_ids"])
	})
}
