package vacation

import "time"

// =============================================================================
// EVENTS - Emitted after a state change commits
// =============================================================================

type EventType string

const (
	EventRequestSubmitted    EventType = "request.submitted"
	EventRequestTransitioned EventType = "request.transitioned"
	EventBalanceReconciled   EventType = "balance.reconciled"
	EventBalanceTotalsSet    EventType = "balance.totals_set"
	EventPolicyUpdated       EventType = "policy.updated"
	EventBlockedDateAdded    EventType = "blocked_date.added"
	EventBlockedDateRemoved  EventType = "blocked_date.removed"
)

// Event carries whichever entity changed. Unused fields are nil.
type Event struct {
	ID             string
	Type           EventType
	ActorID        string
	OccurredAt     time.Time
	Request        *Request
	PreviousStatus Status
	Balance        *Balance
	Policy         *Policy
	BlockedDate    *BlockedDate
}
