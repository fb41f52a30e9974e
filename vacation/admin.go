package vacation

import (
	"context"
	"fmt"

	"github.com/warp/vacation-ledger/generic"
)

// =============================================================================
// QUERIES
// =============================================================================

// GetRequest returns a single request or a NotFoundError.
// callerID is the verified caller, or "" when identity is not enforced.
// A non-admin caller may only read their own requests.
func (l *Ledger) GetRequest(ctx context.Context, callerID, id string) (*Request, error) {
	r, err := l.store.GetRequest(ctx, id)
	if err != nil {
		return nil, generic.Upstream("get request", err)
	}
	if r == nil {
		return nil, &generic.NotFoundError{Resource: "request", ID: id}
	}
	if callerID != "" && r.UserID != callerID {
		if err := l.requireAdmin(ctx, callerID); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ListRequests returns requests matching the filter. With a non-empty
// callerID, an unfiltered read is narrowed to the caller's own requests
// unless the caller is an admin, and reading another user's requests
// requires admin.
func (l *Ledger) ListRequests(ctx context.Context, callerID string, filter RequestFilter) ([]Request, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, &generic.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown category %q", filter.Category)}
	}
	for _, s := range filter.Statuses {
		if !s.Valid() {
			return nil, &generic.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
		}
	}
	if filter.Overlapping != nil {
		if err := filter.Overlapping.Validate(); err != nil {
			return nil, &generic.ValidationError{Field: "to", Reason: "must not be before from"}
		}
	}
	if callerID != "" && filter.UserID != callerID {
		admin, err := l.isAdmin(ctx, callerID)
		if err != nil {
			return nil, err
		}
		switch {
		case admin:
		case filter.UserID == "":
			filter.UserID = callerID
		default:
			return nil, &generic.ForbiddenError{UserID: callerID, Role: string(RoleEmployee)}
		}
	}
	requests, err := l.store.ListRequests(ctx, filter)
	if err != nil {
		return nil, generic.Upstream("list requests", err)
	}
	return requests, nil
}

// GetPolicy returns the active policy, or the default one.
func (l *Ledger) GetPolicy(ctx context.Context) (Policy, error) {
	return activePolicy(ctx, l.store)
}

// ListBlockedDates returns blocked ranges overlapping within (all when nil).
func (l *Ledger) ListBlockedDates(ctx context.Context, within *generic.Period) ([]BlockedDate, error) {
	dates, err := l.store.ListBlockedDates(ctx, within)
	if err != nil {
		return nil, generic.Upstream("list blocked dates", err)
	}
	return dates, nil
}

// =============================================================================
// ADMIN SETTINGS - Every call is role-checked
// =============================================================================

// UpdatePolicy replaces the active policy.
func (l *Ledger) UpdatePolicy(ctx context.Context, adminID string, p Policy) (*Policy, error) {
	if p.MaxApprovedPerDay < 1 {
		return nil, &generic.ValidationError{Field: "max_approved_per_day", Reason: "must be at least 1"}
	}
	if err := l.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	if p.ID == "" {
		p.ID = DefaultPolicyID
	}
	p.Active = true
	p.UpdatedAt = l.now()
	if err := l.store.SavePolicy(ctx, p); err != nil {
		return nil, generic.Upstream("save policy", err)
	}

	l.notify(ctx, Event{Type: EventPolicyUpdated, ActorID: adminID, Policy: &p})
	return &p, nil
}

// AddBlockedDate stores a new blocked range. Blocked dates only color the
// calendar; submissions inside them are still accepted.
func (l *Ledger) AddBlockedDate(ctx context.Context, adminID string, d BlockedDate) (*BlockedDate, error) {
	switch {
	case d.DateFrom.IsZero():
		return nil, &generic.ValidationError{Field: "date_from", Reason: "is required"}
	case d.DateTo.IsZero():
		return nil, &generic.ValidationError{Field: "date_to", Reason: "is required"}
	case d.DateTo.Before(d.DateFrom):
		return nil, &generic.ValidationError{Field: "date_to", Reason: "must not be before date_from"}
	}
	if err := l.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	d.ID = l.newID()
	d.CreatedAt = l.now()
	if err := l.store.SaveBlockedDate(ctx, d); err != nil {
		return nil, generic.Upstream("save blocked date", err)
	}

	l.notify(ctx, Event{Type: EventBlockedDateAdded, ActorID: adminID, BlockedDate: &d})
	return &d, nil
}

func (l *Ledger) RemoveBlockedDate(ctx context.Context, adminID, id string) error {
	if id == "" {
		return &generic.ValidationError{Field: "id", Reason: "is required"}
	}
	if err := l.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if err := l.store.DeleteBlockedDate(ctx, id); err != nil {
		return generic.Upstream("delete blocked date", err)
	}

	l.notify(ctx, Event{Type: EventBlockedDateRemoved, ActorID: adminID, BlockedDate: &BlockedDate{ID: id}})
	return nil
}

// SetTotals sets a user's yearly entitlement, creating the balance row if
// needed. Categories absent from totals keep their current value. This is
// how a balance comes to exist before the user's first submission.
func (l *Ledger) SetTotals(ctx context.Context, adminID, userID string, year int, totals Totals) (*Balance, error) {
	if userID == "" {
		return nil, &generic.ValidationError{Field: "user_id", Reason: "is required"}
	}
	if year < 1 {
		return nil, &generic.ValidationError{Field: "year", Reason: "must be a positive year"}
	}
	for c, total := range totals {
		if !c.Valid() {
			return nil, &generic.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown category %q", c)}
		}
		if total.IsNegative() {
			return nil, &generic.ValidationError{Field: c.Column() + "_total", Reason: "must not be negative"}
		}
	}
	if err := l.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	var saved *Balance
	err := l.store.WithTx(ctx, func(s Store) error {
		b, _, err := l.fetchOrCreateBalance(ctx, s, userID, year)
		if err != nil {
			return err
		}
		for c, total := range totals {
			b.SetTotal(c, total)
		}
		b.UpdatedAt = l.now()
		if err := s.SaveBalance(ctx, b); err != nil {
			return generic.Upstream("save balance", err)
		}
		saved = b
		return nil
	})
	if err != nil {
		return nil, generic.Upstream("set totals", err)
	}

	l.notify(ctx, Event{Type: EventBalanceTotalsSet, ActorID: adminID, Balance: saved.Clone()})
	return saved, nil
}
