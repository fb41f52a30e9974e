/*
ledger.go - Request submission and status transitions

PURPOSE:
  The write side of the vacation ledger. Submissions are validated against
  overlapping requests and the remaining entitlement; transitions keep the
  balance's "used" counter in step with the set of approved requests.

ATOMICITY:
  Each operation runs inside one TxStore.WithTx scope:
  - SubmitRequest: balance row lock + overlap check + balance check + insert
  - TransitionRequest: balance update + request update
  Balance writes are additionally guarded by the row version, so a
  concurrent transition on the same (user, year) fails with
  generic.ErrConcurrentModification instead of losing an update.

TRUST BOUNDARY:
  UserID and AdminID are trusted inputs. Callers exposing the ledger over
  a network must derive them from a verified identity (see api/middleware.go).

TRANSITION ARITHMETIC:
  into APPROVED (from anything else):  used += dayCount
  out of APPROVED (to anything else):  used = max(0, used - dayCount)
  everything else:                     used unchanged

SEE ALSO:
  - status.go: Read-and-reconcile
  - calendar.go: Team calendar
*/
package vacation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/warp/vacation-ledger/generic"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	store    TxStore
	dir      Directory
	notifier Notifier
	defaults Totals
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

type Option func(*Ledger)

// WithNotifier sets the notifier informed after each committed change.
func WithNotifier(n Notifier) Option { return func(l *Ledger) { l.notifier = n } }

// WithDefaults sets the totals used when a balance is created lazily.
func WithDefaults(t Totals) Option { return func(l *Ledger) { l.defaults = t } }

func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

func WithIDGenerator(newID func() string) Option { return func(l *Ledger) { l.newID = newID } }

func WithLogger(logger *slog.Logger) Option { return func(l *Ledger) { l.logger = logger } }

// New creates a ledger over the given store and directory.
func New(store TxStore, dir Directory, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		dir:      dir,
		defaults: DefaultTotals(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// =============================================================================
// SUBMIT
// =============================================================================

type SubmitInput struct {
	UserID   string
	Category Category
	DateFrom generic.TimePoint
	DateTo   generic.TimePoint
	DayCount generic.Amount
	Comment  string
}

func (in SubmitInput) validate() error {
	switch {
	case in.UserID == "":
		return &generic.ValidationError{Field: "user_id", Reason: "is required"}
	case in.Category == "":
		return &generic.ValidationError{Field: "type", Reason: "is required"}
	case !in.Category.Valid():
		return &generic.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown category %q", in.Category)}
	case in.DateFrom.IsZero():
		return &generic.ValidationError{Field: "date_from", Reason: "is required"}
	case in.DateTo.IsZero():
		return &generic.ValidationError{Field: "date_to", Reason: "is required"}
	case in.DateTo.Before(in.DateFrom):
		return &generic.ValidationError{Field: "date_to", Reason: "must not be before date_from"}
	case !in.DayCount.IsPositive():
		return &generic.ValidationError{Field: "days_count", Reason: "must be greater than zero"}
	}
	return nil
}

// SubmitRequest records a new PENDING request. No balance is mutated.
//
// Errors:
//   - ValidationError: missing or malformed input
//   - ConflictError: overlaps a PENDING/APPROVED request of the same user
//   - NotFoundError: no balance row exists for the request's year
//   - InsufficientBalanceError: capped category without enough days left
//     after subtracting the user's other pending requests
func (l *Ledger) SubmitRequest(ctx context.Context, in SubmitInput) (*Request, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := l.now()
	req := Request{
		ID:          l.newID(),
		UserID:      in.UserID,
		Category:    in.Category,
		DateFrom:    in.DateFrom,
		DateTo:      in.DateTo,
		DayCount:    in.DayCount,
		Status:      StatusPending,
		UserComment: in.Comment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	period := req.Period()

	err := l.store.WithTx(ctx, func(s Store) error {
		// Read the balance first: SQL stores lock the row inside a
		// transaction, which serializes submissions of the same user and
		// year before the overlap and reservation queries run.
		balance, err := s.GetBalance(ctx, in.UserID, req.Year())
		if err != nil {
			return generic.Upstream("get balance", err)
		}

		overlapping, err := s.ListRequests(ctx, RequestFilter{
			UserID:      in.UserID,
			Statuses:    ActiveStatuses,
			Overlapping: &period,
		})
		if err != nil {
			return generic.Upstream("list overlapping requests", err)
		}
		if len(overlapping) > 0 {
			existing := overlapping[0]
			return &generic.ConflictError{
				ExistingID: existing.ID,
				Existing:   existing.Period(),
				Requested:  period,
			}
		}

		if balance == nil {
			return &generic.NotFoundError{
				Resource: "balance",
				ID:       fmt.Sprintf("%s/%d", in.UserID, req.Year()),
				Reason:   "no entitlement bucket for this year",
			}
		}

		if in.Category.Capped() {
			if err := l.checkRemaining(ctx, s, balance, in); err != nil {
				return err
			}
		}

		if err := s.InsertRequest(ctx, req); err != nil {
			return generic.Upstream("insert request", err)
		}
		return nil
	})
	if err != nil {
		return nil, generic.Upstream("submit request", err)
	}

	l.notify(ctx, Event{Type: EventRequestSubmitted, ActorID: in.UserID, Request: &req})
	return &req, nil
}

func (l *Ledger) checkRemaining(ctx context.Context, s Store, balance *Balance, in SubmitInput) error {
	pending, err := s.ListRequests(ctx, RequestFilter{
		UserID:   in.UserID,
		Statuses: []Status{StatusPending},
		Category: in.Category,
	})
	if err != nil {
		return generic.Upstream("list pending requests", err)
	}

	reserved := generic.Days(0)
	for _, r := range pending {
		reserved = reserved.Add(r.DayCount)
	}
	available := balance.Available(in.Category)
	remaining := available.Sub(reserved)
	if remaining.LessThan(in.DayCount) {
		return &generic.InsufficientBalanceError{
			Category:  string(in.Category),
			Available: available,
			Reserved:  reserved,
			Remaining: remaining.ClampZero(),
			Requested: in.DayCount,
		}
	}
	return nil
}

// =============================================================================
// TRANSITION
// =============================================================================

type TransitionInput struct {
	AdminID      string
	RequestID    string
	NewStatus    Status
	AdminComment string
}

// TransitionRequest moves a request to a new status on behalf of an admin
// and adjusts the affected balance. Any status may move to any other;
// only moves into or out of APPROVED touch the balance.
//
// Errors:
//   - ValidationError: unknown status or missing identifiers
//   - NotFoundError: unknown admin profile or request
//   - ForbiddenError: caller is not an admin
func (l *Ledger) TransitionRequest(ctx context.Context, in TransitionInput) (*Request, error) {
	switch {
	case in.AdminID == "":
		return nil, &generic.ValidationError{Field: "admin_id", Reason: "is required"}
	case in.RequestID == "":
		return nil, &generic.ValidationError{Field: "id", Reason: "is required"}
	case !in.NewStatus.Valid():
		return nil, &generic.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", in.NewStatus)}
	}
	if err := l.requireAdmin(ctx, in.AdminID); err != nil {
		return nil, err
	}

	var (
		updated  Request
		previous Status
		balance  *Balance
	)
	err := l.store.WithTx(ctx, func(s Store) error {
		req, err := s.GetRequest(ctx, in.RequestID)
		if err != nil {
			return generic.Upstream("get request", err)
		}
		if req == nil {
			return &generic.NotFoundError{Resource: "request", ID: in.RequestID}
		}

		b, created, err := l.fetchOrCreateBalance(ctx, s, req.UserID, req.Year())
		if err != nil {
			return err
		}

		used := b.Bucket(req.Category).Used
		next := adjustUsed(used, req.DayCount, req.Status, in.NewStatus)
		if created || !next.Equal(used) {
			b.SetUsed(req.Category, next)
			b.UpdatedAt = l.now()
			if err := s.SaveBalance(ctx, b); err != nil {
				return generic.Upstream("save balance", err)
			}
		}

		previous = req.Status
		req.Status = in.NewStatus
		req.AdminComment = in.AdminComment
		req.AdminID = in.AdminID
		req.UpdatedAt = l.now()
		if err := s.UpdateRequest(ctx, *req); err != nil {
			return generic.Upstream("update request", err)
		}

		updated = *req
		balance = b
		return nil
	})
	if err != nil {
		return nil, generic.Upstream("transition request", err)
	}

	if violations := balance.Violations(); len(violations) > 0 {
		l.logger.Warn("balance exceeds entitlement",
			"user_id", balance.UserID, "year", balance.Year, "categories", violations)
	}
	l.notify(ctx, Event{
		Type:           EventRequestTransitioned,
		ActorID:        in.AdminID,
		Request:        &updated,
		PreviousStatus: previous,
		Balance:        balance.Clone(),
	})
	return &updated, nil
}

// adjustUsed applies the transition arithmetic to a category's used counter.
func adjustUsed(used, days generic.Amount, from, to Status) generic.Amount {
	switch {
	case to == StatusApproved && from != StatusApproved:
		return used.Add(days)
	case from == StatusApproved && to != StatusApproved:
		return used.Sub(days).ClampZero()
	default:
		return used
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// fetchOrCreateBalance returns the stored row or a fresh unsaved one with
// default totals. created reports whether the caller must persist it.
func (l *Ledger) fetchOrCreateBalance(ctx context.Context, s Store, userID string, year int) (*Balance, bool, error) {
	b, err := s.GetBalance(ctx, userID, year)
	if err != nil {
		return nil, false, generic.Upstream("get balance", err)
	}
	if b != nil {
		return b, false, nil
	}
	return NewBalance(userID, year, l.defaults, l.now()), true, nil
}

// isAdmin reports whether userID holds the admin role. Unknown users are not admins.
func (l *Ledger) isAdmin(ctx context.Context, userID string) (bool, error) {
	profile, err := l.dir.GetProfile(ctx, userID)
	if err != nil {
		return false, generic.Upstream("lookup role", err)
	}
	return profile != nil && profile.IsAdmin(), nil
}

func (l *Ledger) requireAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return &generic.ValidationError{Field: "admin_id", Reason: "is required"}
	}
	profile, err := l.dir.GetProfile(ctx, userID)
	if err != nil {
		return generic.Upstream("lookup role", err)
	}
	if profile == nil {
		return &generic.NotFoundError{Resource: "profile", ID: userID}
	}
	if !profile.IsAdmin() {
		return &generic.ForbiddenError{UserID: userID, Role: string(profile.Role)}
	}
	return nil
}

// notify is fire-and-forget: the change has already committed.
func (l *Ledger) notify(ctx context.Context, event Event) {
	if l.notifier == nil {
		return
	}
	event.ID = l.newID()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.now()
	}
	if err := l.notifier.Notify(ctx, event); err != nil {
		l.logger.Warn("notification failed", "event", event.Type, "event_id", event.ID, "error", err)
	}
}
