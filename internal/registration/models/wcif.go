package models

import (
	id "compreg/pkg/domain"
)

// WCIF is the public interchange export of a registration. The authorized
// fields are only populated for callers allowed to see them; comments and
// administrative notes default to empty strings rather than null.
type WCIF struct {
	WCARegistrationID   string   `json:"wcaRegistrationId"`
	EventIDs            []string `json:"eventIds"`
	Status              string   `json:"status"`
	IsCompeting         bool     `json:"isCompeting"`
	Guests              *int     `json:"guests,omitempty"`
	Comments            *string  `json:"comments,omitempty"`
	AdministrativeNotes *string  `json:"administrativeNotes,omitempty"`
}

// ToWCIF exports the registration in the interchange format.
func (r *Registration) ToWCIF(authorized bool) WCIF {
	sorted := r.SortedEventIDs()
	eventIDs := make([]string, len(sorted))
	for i, eventID := range sorted {
		eventIDs[i] = string(eventID)
	}
	out := WCIF{
		WCARegistrationID: r.ID.String(),
		EventIDs:          eventIDs,
		Status:            string(r.WCIFStatus()),
		IsCompeting:       r.IsCompeting,
	}
	if authorized {
		guests := r.Guests
		comments := r.Comments
		notes := r.AdministrativeNotes
		out.Guests = &guests
		out.Comments = &comments
		out.AdministrativeNotes = &notes
	}
	return out
}

// WCIFJSONSchema declares the interchange field types for external
// validators. Event ids are restricted to the known identifiers and status
// to the three-valued enum.
func WCIFJSONSchema(knownEventIDs []id.EventID) map[string]any {
	eventEnum := make([]string, len(knownEventIDs))
	for i, eventID := range knownEventIDs {
		eventEnum[i] = string(eventID)
	}
	return map[string]any{
		// A WCIF person may exist without a registration.
		"type": []string{"object", "null"},
		"properties": map[string]any{
			"wcaRegistrationId": map[string]any{"type": "string"},
			"eventIds": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": eventEnum},
			},
			"status": map[string]any{
				"type": "string",
				"enum": []string{string(WCIFAccepted), string(WCIFDeleted), string(WCIFPending)},
			},
			"guests":              map[string]any{"type": "integer"},
			"comments":            map[string]any{"type": "string"},
			"administrativeNotes": map[string]any{"type": "string"},
			"isCompeting":         map[string]any{"type": "boolean"},
		},
	}
}
