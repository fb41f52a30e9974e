/*
store.go - Persistence and collaborator contracts of the vacation ledger

PURPOSE:
  Defines what the ledger needs from the outside world. The ledger never
  reaches for a global client; every collaborator is handed to New().

KEY INTERFACES:
  Store:     Row-oriented persistence for balances, requests, policy, blocked dates
  TxStore:   Store plus a transactional read-modify-write scope
  Directory: Resolves a user to a profile (role check)
  Notifier:  Told about state changes; failures are logged, never returned

OPTIMISTIC LOCKING:
  SaveBalance is a compare-and-swap on Balance.Version. Version 0 inserts,
  any other value updates only if the stored version still matches. A lost
  race returns generic.ErrConcurrentModification and leaves the row alone.
  On success the store bumps b.Version in place.

IMPLEMENTATIONS:
  - store/sqlite: SQLite via database/sql
  - store/postgres: PostgreSQL via gorm
  - store/memory: In-memory for tests
*/
package vacation

import (
	"context"

	"github.com/warp/vacation-ledger/generic"
)

// =============================================================================
// STORE
// =============================================================================

// RequestFilter selects requests. Zero fields match everything.
type RequestFilter struct {
	UserID      string
	Statuses    []Status
	Category    Category
	Overlapping *generic.Period
}

// Matches applies the filter in memory. SQL stores translate it to a WHERE clause.
func (f RequestFilter) Matches(r Request) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Overlapping != nil && !r.Period().Overlaps(*f.Overlapping) {
		return false
	}
	return true
}

type Store interface {
	// GetBalance returns nil, nil when no row exists for (userID, year).
	GetBalance(ctx context.Context, userID string, year int) (*Balance, error)

	// ListBalances returns every balance row of a year.
	ListBalances(ctx context.Context, year int) ([]Balance, error)

	// SaveBalance inserts (Version 0) or compare-and-swaps the row.
	SaveBalance(ctx context.Context, b *Balance) error

	// GetRequest returns nil, nil when the request doesn't exist.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// ListRequests returns matches ordered by DateFrom, then CreatedAt.
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)

	InsertRequest(ctx context.Context, r Request) error
	UpdateRequest(ctx context.Context, r Request) error

	// GetActivePolicy returns nil, nil when no active policy row exists.
	GetActivePolicy(ctx context.Context) (*Policy, error)
	SavePolicy(ctx context.Context, p Policy) error

	// ListBlockedDates returns ranges overlapping within, or all when within is nil.
	ListBlockedDates(ctx context.Context, within *generic.Period) ([]BlockedDate, error)
	SaveBlockedDate(ctx context.Context, d BlockedDate) error

	// DeleteBlockedDate returns a *generic.NotFoundError when id is unknown.
	DeleteBlockedDate(ctx context.Context, id string) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Directory resolves users to profiles.
type Directory interface {
	// GetProfile returns nil, nil for unknown users.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// Notifier is informed of committed state changes.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
