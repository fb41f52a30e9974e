/*
Package vacation implements the vacation ledger.

PURPOSE:
  Tracks each employee's yearly day-off entitlement across three
  categories, validates new requests against entitlement and overlapping
  requests, and keeps the stored "used" counters consistent with the set
  of approved requests.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category: VACATION, PAID_LEAVE, UNPAID_LEAVE
  - Status: PENDING -> APPROVED | REJECTED | CANCELLED
  - Balance: One row per (user, year) with a (total, used) bucket per category
  - Request: A date range plus a caller-supplied day count
  - Policy: Single active row (max approved per day, counting flags)
  - BlockedDate: Range shown as unavailable on the team calendar

BALANCE LIFECYCLE:
  Created lazily with default totals and zero used the first time a
  status check or a transition needs it. Submitting a request does NOT
  create it. Only transitions and reconciliation mutate "used".

SEE ALSO:
  - ledger.go: SubmitRequest, TransitionRequest
  - status.go: GetStatus and self-healing reconciliation
  - calendar.go: GetCalendar
  - store.go: Persistence contract
*/
package vacation

import (
	"fmt"
	"time"

	"github.com/warp/vacation-ledger/generic"
)

// =============================================================================
// CATEGORY
// =============================================================================

type Category string

const (
	CategoryVacation    Category = "VACATION"
	CategoryPaidLeave   Category = "PAID_LEAVE"
	CategoryUnpaidLeave Category = "UNPAID_LEAVE"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryVacation, CategoryPaidLeave, CategoryUnpaidLeave}

func (c Category) Valid() bool {
	switch c {
	case CategoryVacation, CategoryPaidLeave, CategoryUnpaidLeave:
		return true
	}
	return false
}

// Capped reports whether requests are checked against the category's total.
// UNPAID_LEAVE is unlimited.
func (c Category) Capped() bool { return c != CategoryUnpaidLeave }

// Column is the column prefix used by the balances table.
func (c Category) Column() string {
	switch c {
	case CategoryVacation:
		return "vacaciones"
	case CategoryPaidLeave:
		return "permisos_retribuidos"
	case CategoryUnpaidLeave:
		return "permisos_no_retribuidos"
	}
	return ""
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", &generic.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown category %q", s)}
	}
	return c, nil
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// ActiveStatuses are the statuses that hold days: they block overlapping
// requests and count toward used/pending totals.
var ActiveStatuses = []Status{StatusPending, StatusApproved}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Active() bool { return s == StatusPending || s == StatusApproved }

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", &generic.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
	return st, nil
}

// =============================================================================
// BALANCE - Yearly entitlement per user
// =============================================================================

// Bucket is the (total, used) pair of one category.
type Bucket struct {
	Total generic.Amount
	Used  generic.Amount
}

// Totals maps each category to its yearly entitlement.
type Totals map[Category]generic.Amount

// DefaultTotals seeds lazily created balances. UNPAID_LEAVE is uncapped,
// so its total is informational only.
func DefaultTotals() Totals {
	return Totals{
		CategoryVacation:    generic.Days(22),
		CategoryPaidLeave:   generic.Days(4),
		CategoryUnpaidLeave: generic.Days(0),
	}
}

type Balance struct {
	UserID    string
	Year      int
	Buckets   map[Category]Bucket
	Version   int64 // optimistic lock token; 0 means not yet persisted
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBalance builds an unsaved balance with the given totals and zero used.
func NewBalance(userID string, year int, totals Totals, now time.Time) *Balance {
	b := &Balance{
		UserID:    userID,
		Year:      year,
		Buckets:   make(map[Category]Bucket, len(Categories)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, c := range Categories {
		b.Buckets[c] = Bucket{Total: totals[c], Used: generic.Days(0)}
	}
	return b
}

func (b *Balance) Bucket(c Category) Bucket {
	bucket, ok := b.Buckets[c]
	if !ok {
		return Bucket{Total: generic.Days(0), Used: generic.Days(0)}
	}
	return bucket
}

func (b *Balance) SetUsed(c Category, used generic.Amount) {
	bucket := b.Bucket(c)
	bucket.Used = used
	b.setBucket(c, bucket)
}

func (b *Balance) SetTotal(c Category, total generic.Amount) {
	bucket := b.Bucket(c)
	bucket.Total = total
	b.setBucket(c, bucket)
}

func (b *Balance) setBucket(c Category, bucket Bucket) {
	if b.Buckets == nil {
		b.Buckets = make(map[Category]Bucket, len(Categories))
	}
	b.Buckets[c] = bucket
}

// Available is total minus used, or generic.Unlimited for uncapped categories.
func (b *Balance) Available(c Category) generic.Amount {
	if !c.Capped() {
		return generic.Unlimited
	}
	bucket := b.Bucket(c)
	return bucket.Total.Sub(bucket.Used)
}

// Violations returns the capped categories whose used exceeds total.
// Transitions never block on this; it exists so callers can detect drift.
func (b *Balance) Violations() []Category {
	var out []Category
	for _, c := range Categories {
		if !c.Capped() {
			continue
		}
		bucket := b.Bucket(c)
		if bucket.Used.GreaterThan(bucket.Total) {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy.
func (b *Balance) Clone() *Balance {
	cp := *b
	cp.Buckets = make(map[Category]Bucket, len(b.Buckets))
	for c, bucket := range b.Buckets {
		cp.Buckets[c] = bucket
	}
	return &cp
}

// =============================================================================
// REQUEST
// =============================================================================

type Request struct {
	ID           string
	UserID       string
	Category     Category
	DateFrom     generic.TimePoint
	DateTo       generic.TimePoint
	DayCount     generic.Amount // caller-supplied, not derived from the range
	Status       Status
	UserComment  string
	AdminComment string
	AdminID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r Request) Period() generic.Period {
	return generic.Period{Start: r.DateFrom, End: r.DateTo}
}

// Year is the balance year the request is charged to.
func (r Request) Year() int { return r.DateFrom.Year() }

// =============================================================================
// POLICY
// =============================================================================

const DefaultPolicyID = "default"

type Policy struct {
	ID                string
	MaxApprovedPerDay int
	CountHolidays     bool // informational
	CountWeekends     bool // informational
	Active            bool
	UpdatedAt         time.Time
}

// DefaultPolicy applies when no active policy row exists.
func DefaultPolicy() Policy {
	return Policy{
		ID:                DefaultPolicyID,
		MaxApprovedPerDay: 1,
		Active:            true,
	}
}

// Capacity is MaxApprovedPerDay with a floor of 1.
func (p Policy) Capacity() int {
	if p.MaxApprovedPerDay < 1 {
		return 1
	}
	return p.MaxApprovedPerDay
}

// =============================================================================
// BLOCKED DATES
// =============================================================================

type BlockedDate struct {
	ID        string
	DateFrom  generic.TimePoint
	DateTo    generic.TimePoint
	Reason    string
	CreatedAt time.Time
}

func (d BlockedDate) Period() generic.Period {
	return generic.Period{Start: d.DateFrom, End: d.DateTo}
}

// =============================================================================
// PROFILES
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

type Profile struct {
	UserID      string
	DisplayName string
	Role        Role
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }
