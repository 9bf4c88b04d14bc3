package models

import (
	dErrors "compreg/pkg/domain-errors"
)

// CompetingStatus is the five-valued lifecycle state of a registration.
//
// Transitions are not enforced by a table: callers decide legal target
// states, and the rule set rejects unsafe ones (ban, series exclusivity).
type CompetingStatus string

const (
	StatusPending     CompetingStatus = "pending"
	StatusAccepted    CompetingStatus = "accepted"
	StatusCancelled   CompetingStatus = "cancelled"
	StatusRejected    CompetingStatus = "rejected"
	StatusWaitingList CompetingStatus = "waiting_list"
)

// AllStatuses enumerates the closed set of competing statuses.
var AllStatuses = []CompetingStatus{
	StatusPending,
	StatusAccepted,
	StatusCancelled,
	StatusRejected,
	StatusWaitingList,
}

// ParseCompetingStatus validates a raw status string at trust boundaries.
func ParseCompetingStatus(raw string) (CompetingStatus, error) {
	status := CompetingStatus(raw)
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown competing status: "+raw)
	}
	return status, nil
}

func (s CompetingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCancelled, StatusRejected, StatusWaitingList:
		return true
	}
	return false
}

// MightAttend reports whether this status implies the competitor may show up.
func (s CompetingStatus) MightAttend() bool {
	return s == StatusAccepted || s == StatusWaitingList
}

// WCIFStatus is the three-valued status projection used by the public
// interchange format.
type WCIFStatus string

const (
	WCIFAccepted WCIFStatus = "accepted"
	WCIFDeleted  WCIFStatus = "deleted"
	WCIFPending  WCIFStatus = "pending"
)

// DeriveWCIFStatus projects (competingStatus, isCompeting) onto the
// interchange status. The branch order is load-bearing: non-competing
// staff export as accepted even when cancelled or rejected.
func DeriveWCIFStatus(status CompetingStatus, isCompeting bool) WCIFStatus {
	switch {
	case status == StatusAccepted || !isCompeting:
		return WCIFAccepted
	case status == StatusCancelled || status == StatusRejected:
		return WCIFDeleted
	default:
		return WCIFPending
	}
}
