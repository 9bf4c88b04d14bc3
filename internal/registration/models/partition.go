package models

// CountByStatus counts registrations holding the given competing status.
func CountByStatus(regs []*Registration, status CompetingStatus) int {
	count := 0
	for _, reg := range regs {
		if reg.CompetingStatus == status {
			count++
		}
	}
	return count
}

// AcceptedAndPaidPendingCount counts registrations that hold a slot for
// capacity purposes: accepted ones, plus pending ones that have paid
// something toward their entry.
func AcceptedAndPaidPendingCount(regs []*Registration, currencyCode string) int {
	count := 0
	for _, reg := range regs {
		switch {
		case reg.Accepted():
			count++
		case reg.Pending() && reg.PaidEntryFees(currencyCode).IsPositive():
			count++
		}
	}
	return count
}
