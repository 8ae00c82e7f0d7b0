package report

import (
	"go.uber.org/atomic"
)

type ObserverErrors struct {
	SubscriptionDropped atomic.Uint64 `json:"subscription_dropped"`
	EventDecode         atomic.Uint64 `json:"event_decode"`
	LoanFetch           atomic.Uint64 `json:"loan_fetch"`
	QueueOverflow       atomic.Uint64 `json:"queue_overflow"`
}

type ObserverState struct {
	LastProcessedSlot atomic.Uint64 `json:"last_processed_slot"`

	EventsPushed     atomic.Uint64 `json:"events_pushed"`
	EventsReconciled atomic.Uint64 `json:"events_reconciled"`
	ExpiriesDetected atomic.Uint64 `json:"expiries_detected"`
}

type ObserverReport struct {
	State  ObserverState  `json:"state"`
	Errors ObserverErrors `json:"errors"`
}
