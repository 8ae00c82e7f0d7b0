package observe

import "strconv"

type EventKind string

const (
	EventKindLoanRequested EventKind = "loanRequested"
	EventKindLoanRecovered EventKind = "loanRecovered"
	EventKindLoanExpired   EventKind = "loanExpired"
)

type EventSource string

const (
	EventSourceSubscription   EventSource = "subscription"
	EventSourceReconciliation EventSource = "reconciliation"
)

// Normalized event handed to the orchestrator. Both detection paths
// emit the same shape, deduplication happens downstream against the
// persisted deployment record, never against the source.
type Event struct {
	Kind   EventKind
	Source EventSource

	// Loan id as an opaque numeric string
	LoanID string

	// Set for loanRequested only
	Borrower        string
	Principal       uint64
	Duration        int64
	InterestRateBps uint16
	AdminFee        uint64

	// Where the event was detected, informational
	Slot      uint64
	Signature string
}

func formatLoanID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func ParseLoanID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
