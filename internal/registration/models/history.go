package models

import (
	"encoding/json"
	"sort"
	"time"
)

// historyKeyEventIDs is stored as a JSON array and decoded back to a list
// when the history is read.
const historyKeyEventIDs = "event_ids"

// HistoryEntry is one immutable audit record: an actor-attributed action
// with one change record per mutated key. Entries are append-only; nothing
// in the system updates or deletes them once created.
type HistoryEntry struct {
	ActorType string
	ActorID   string
	Action    string
	Timestamp time.Time
	Changes   []HistoryChange
}

// HistoryChange is a single key/value pair within a history entry. Values
// are stored as strings; event_ids carries a JSON-encoded list.
type HistoryChange struct {
	Key   string
	Value string
}

// NewHistoryEntry builds an entry with its change records in stable key
// order, so persisted and read-back shapes do not depend on map iteration.
func NewHistoryEntry(changes map[string]string, actorType, actorID, action string, timestamp time.Time) HistoryEntry {
	entry := HistoryEntry{
		ActorType: actorType,
		ActorID:   actorID,
		Action:    action,
		Timestamp: timestamp,
	}
	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entry.Changes = append(entry.Changes, HistoryChange{Key: key, Value: changes[key]})
	}
	return entry
}

// HistoryEntryView is the decoded read-back shape of a history entry.
// The event_ids change is decoded as a list rather than a raw string.
type HistoryEntryView struct {
	ChangedAttributes map[string]any `json:"changed_attributes"`
	ActorType         string         `json:"actor_type"`
	ActorID           string         `json:"actor_id"`
	Timestamp         time.Time      `json:"timestamp"`
	Action            string         `json:"action"`
}

func (e HistoryEntry) view() HistoryEntryView {
	attrs := make(map[string]any, len(e.Changes))
	for _, change := range e.Changes {
		if change.Key == historyKeyEventIDs {
			var ids []string
			if err := json.Unmarshal([]byte(change.Value), &ids); err == nil {
				attrs[change.Key] = ids
				continue
			}
		}
		attrs[change.Key] = change.Value
	}
	return HistoryEntryView{
		ChangedAttributes: attrs,
		ActorType:         e.ActorType,
		ActorID:           e.ActorID,
		Timestamp:         e.Timestamp,
		Action:            e.Action,
	}
}
