/*
Package notify delivers ledger events to the outside world.

PURPOSE:
  Every sink implements vacation.Notifier. The ledger calls Notify after a
  change commits and only logs failures, so a slow or broken sink never
  rolls back a request or a balance.

SINKS:
  - Webhook: POSTs the JSON message to a URL
  - SQS:     sends the JSON message to an AWS SQS queue
  - Hub:     broadcasts the JSON message to connected websocket clients
  - Multi:   fans out to several sinks and joins their errors
  - Nop:     discards everything

SEE ALSO:
  - vacation/events.go: Event types
*/
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

// =============================================================================
// WIRE MESSAGE
// =============================================================================

// Message is the JSON envelope every sink sends.
type Message struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	ActorID        string          `json:"actor_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Request        *RequestPayload `json:"request,omitempty"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	Balance        *BalancePayload `json:"balance,omitempty"`
	Policy         *PolicyPayload  `json:"policy,omitempty"`
	BlockedDate    *BlockedPayload `json:"blocked_date,omitempty"`
}

type RequestPayload struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      string            `json:"type"`
	DateFrom  generic.TimePoint `json:"date_from"`
	DateTo    generic.TimePoint `json:"date_to"`
	DaysCount generic.Amount    `json:"days_count"`
	Status    string            `json:"status"`
}

type BucketPayload struct {
	Total generic.Amount `json:"total"`
	Used  generic.Amount `json:"used"`
}

type BalancePayload struct {
	UserID  string                   `json:"user_id"`
	Year    int                      `json:"year"`
	Buckets map[string]BucketPayload `json:"buckets"`
	Version int64                    `json:"version"`
}

type PolicyPayload struct {
	MaxApprovedPerDay int  `json:"max_approved_per_day"`
	CountHolidays     bool `json:"count_holidays"`
	CountWeekends     bool `json:"count_weekends"`
}

type BlockedPayload struct {
	ID       string            `json:"id"`
	DateFrom generic.TimePoint `json:"date_from"`
	DateTo   generic.TimePoint `json:"date_to"`
	Reason   string            `json:"reason,omitempty"`
}

// NewMessage flattens an event into its wire form.
func NewMessage(e vacation.Event) Message {
	m := Message{
		ID:             e.ID,
		Type:           string(e.Type),
		ActorID:        e.ActorID,
		OccurredAt:     e.OccurredAt,
		PreviousStatus: string(e.PreviousStatus),
	}
	if r := e.Request; r != nil {
		m.Request = &RequestPayload{
			ID:        r.ID,
			UserID:    r.UserID,
			Type:      string(r.Category),
			DateFrom:  r.DateFrom,
			DateTo:    r.DateTo,
			DaysCount: r.DayCount,
			Status:    string(r.Status),
		}
	}
	if b := e.Balance; b != nil {
		buckets := make(map[string]BucketPayload, len(vacation.Categories))
		for _, c := range vacation.Categories {
			bk := b.Bucket(c)
			buckets[string(c)] = BucketPayload{Total: bk.Total, Used: bk.Used}
		}
		m.Balance = &BalancePayload{UserID: b.UserID, Year: b.Year, Buckets: buckets, Version: b.Version}
	}
	if p := e.Policy; p != nil {
		m.Policy = &PolicyPayload{
			MaxApprovedPerDay: p.MaxApprovedPerDay,
			CountHolidays:     p.CountHolidays,
			CountWeekends:     p.CountWeekends,
		}
	}
	if d := e.BlockedDate; d != nil {
		m.BlockedDate = &BlockedPayload{ID: d.ID, DateFrom: d.DateFrom, DateTo: d.DateTo, Reason: d.Reason}
	}
	return m
}

// =============================================================================
// COMBINATORS
// =============================================================================

// Multi sends every event to each sink in order.
type Multi []vacation.Notifier

var _ vacation.Notifier = Multi(nil)

func (m Multi) Notify(ctx context.Context, e vacation.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, vacation.Event) error { return nil }
