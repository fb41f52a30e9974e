/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP contract. Domain types in package vacation carry
  no JSON tags; everything crossing the wire is converted here.

NAMING CONVENTION:
  - *DTO:  Response types returned to clients
  - *Body: Request body types from clients

VALIDATION:
  DTOs are pure data carriers. Field validation happens in the ledger,
  which reports the wire field name in ValidationError.Field.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

// =============================================================================
// REQUESTS
// =============================================================================

// SubmitBody is the body of POST /api/vacations/requests.
type SubmitBody struct {
	UserID    string            `json:"user_id"`
	Type      string            `json:"type"`
	DateFrom  generic.TimePoint `json:"date_from"`
	DateTo    generic.TimePoint `json:"date_to"`
	DaysCount generic.Amount    `json:"days_count"`
	Comment   string            `json:"comment,omitempty"`
}

// TransitionBody is the body of POST /api/vacations/requests/{id}/status.
type TransitionBody struct {
	AdminID string `json:"admin_id"`
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

type RequestDTO struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Type         string            `json:"type"`
	DateFrom     generic.TimePoint `json:"date_from"`
	DateTo       generic.TimePoint `json:"date_to"`
	DaysCount    generic.Amount    `json:"days_count"`
	Status       string            `json:"status"`
	CommentUser  string            `json:"comment_user,omitempty"`
	CommentAdmin string            `json:"comment_admin,omitempty"`
	AdminID      string            `json:"admin_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func toRequestDTO(r vacation.Request) RequestDTO {
	return RequestDTO{
		ID:           r.ID,
		UserID:       r.UserID,
		Type:         string(r.Category),
		DateFrom:     r.DateFrom,
		DateTo:       r.DateTo,
		DaysCount:    r.DayCount,
		Status:       string(r.Status),
		CommentUser:  r.UserComment,
		CommentAdmin: r.AdminComment,
		AdminID:      r.AdminID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// =============================================================================
// STATUS
// =============================================================================

type CategoryStatusDTO struct {
	Total     generic.Amount  `json:"total"`
	Used      generic.Amount  `json:"used"`
	Pending   generic.Amount  `json:"pending"`
	Available *generic.Amount `json:"available"` // null when unlimited
	Unlimited bool            `json:"unlimited"`
}

type StatusDTO struct {
	UserID     string                       `json:"user_id"`
	Year       int                          `json:"year"`
	Categories map[string]CategoryStatusDTO `json:"categories"`
	Policy     PolicyDTO                    `json:"policy"`
	Reconciled bool                         `json:"reconciled"`
	Violations []string                     `json:"violations,omitempty"`
}

func toStatusDTO(s *vacation.Summary) StatusDTO {
	cats := make(map[string]CategoryStatusDTO, len(s.Categories))
	for c, cs := range s.Categories {
		dto := CategoryStatusDTO{Total: cs.Total, Used: cs.Used, Pending: cs.Pending, Unlimited: cs.Unlimited}
		if !cs.Unlimited {
			avail := cs.Available
			dto.Available = &avail
		}
		cats[string(c)] = dto
	}
	var violations []string
	for _, c := range s.Violations {
		violations = append(violations, string(c))
	}
	return StatusDTO{
		UserID:     s.UserID,
		Year:       s.Year,
		Categories: cats,
		Policy:     toPolicyDTO(s.Policy),
		Reconciled: s.Reconciled,
		Violations: violations,
	}
}

// =============================================================================
// CALENDAR, POLICY, BLOCKED DATES
// =============================================================================

type CalendarDayDTO struct {
	Color  string `json:"color"`
	Count  int    `json:"count"`
	Reason string `json:"reason,omitempty"`
}

type PolicyDTO struct {
	MaxApprovedPerDay int       `json:"max_approved_per_day"`
	CountHolidays     bool      `json:"count_holidays"`
	CountWeekends     bool      `json:"count_weekends"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

func toPolicyDTO(p vacation.Policy) PolicyDTO {
	return PolicyDTO{
		MaxApprovedPerDay: p.MaxApprovedPerDay,
		CountHolidays:     p.CountHolidays,
		CountWeekends:     p.CountWeekends,
		UpdatedAt:         p.UpdatedAt,
	}
}

// PolicyBody is the body of PUT /api/vacations/policy.
type PolicyBody struct {
	AdminID           string `json:"admin_id"`
	MaxApprovedPerDay int    `json:"max_approved_per_day"`
	CountHolidays     bool   `json:"count_holidays"`
	CountWeekends     bool   `json:"count_weekends"`
}

type BlockedDateDTO struct {
	ID       string            `json:"id"`
	DateFrom generic.TimePoint `json:"date_from"`
	DateTo   generic.TimePoint `json:"date_to"`
	Reason   string            `json:"reason,omitempty"`
}

func toBlockedDateDTO(d vacation.BlockedDate) BlockedDateDTO {
	return BlockedDateDTO{ID: d.ID, DateFrom: d.DateFrom, DateTo: d.DateTo, Reason: d.Reason}
}

// BlockedDateBody is the body of POST /api/vacations/blocked-dates.
type BlockedDateBody struct {
	AdminID  string            `json:"admin_id"`
	DateFrom generic.TimePoint `json:"date_from"`
	DateTo   generic.TimePoint `json:"date_to"`
	Reason   string            `json:"reason,omitempty"`
}

// =============================================================================
// BALANCES
// =============================================================================

// TotalsBody is the body of PUT /api/vacations/balances/{user_id}/{year}.
// Omitted categories keep their current total.
type TotalsBody struct {
	AdminID string                    `json:"admin_id"`
	Totals  map[string]generic.Amount `json:"totals"`
}

type BucketDTO struct {
	Total generic.Amount `json:"total"`
	Used  generic.Amount `json:"used"`
}

type BalanceDTO struct {
	UserID  string               `json:"user_id"`
	Year    int                  `json:"year"`
	Buckets map[string]BucketDTO `json:"buckets"`
	Version int64                `json:"version"`
}

func toBalanceDTO(b *vacation.Balance) BalanceDTO {
	buckets := make(map[string]BucketDTO, len(vacation.Categories))
	for _, c := range vacation.Categories {
		bk := b.Bucket(c)
		buckets[string(c)] = BucketDTO{Total: bk.Total, Used: bk.Used}
	}
	return BalanceDTO{UserID: b.UserID, Year: b.Year, Buckets: buckets, Version: b.Version}
}

type ReconcileDTO struct {
	Year      int `json:"year"`
	Corrected int `json:"corrected"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}
