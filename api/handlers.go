/*
handlers.go - HTTP API handlers for the vacation ledger

PURPOSE:
  Exposes the ledger via REST. Handlers parse the request, call exactly
  one ledger operation, and serialize the result. No business rules live
  here.

ENDPOINTS:
  Requests:
    POST   /api/vacations/requests              Submit a request
    GET    /api/vacations/requests              List (user_id, status, type, from, to)
    GET    /api/vacations/requests/{id}         Get one request
    POST   /api/vacations/requests/{id}/status  Admin transition

  Balances:
    GET    /api/vacations/status                Per-category status (user_id, year)
    PUT    /api/vacations/balances/{user_id}/{year}  Admin sets totals
    POST   /api/vacations/reconcile             Heal every balance of a year

  Calendar and settings:
    GET    /api/vacations/calendar              Day colors for a month
    GET    /api/vacations/policy                Active policy
    PUT    /api/vacations/policy                Admin replaces the policy
    GET    /api/vacations/blocked-dates         List blocked ranges
    POST   /api/vacations/blocked-dates         Admin adds a range
    DELETE /api/vacations/blocked-dates/{id}    Admin removes a range

IDENTITY:
  user_id and admin_id come from the body or query unless the Identity
  middleware is installed, in which case the token subject wins and
  request reads are limited to the subject's own rows for non-admins.

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error to status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

// Pinger reports database liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger   *vacation.Ledger
	DB       Pinger
	Profiles ProfileWriter // demo scenarios; nil disables them
}

func NewHandler(ledger *vacation.Ledger, db Pinger) *Handler {
	return &Handler{Ledger: ledger, DB: db}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body SubmitBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.Ledger.SubmitRequest(r.Context(), vacation.SubmitInput{
		UserID:   callerID(r.Context(), body.UserID),
		Category: vacation.Category(strings.ToUpper(body.Type)),
		DateFrom: body.DateFrom,
		DateTo:   body.DateTo,
		DayCount: body.DaysCount,
		Comment:  body.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*req))
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := vacation.RequestFilter{
		UserID:   q.Get("user_id"),
		Category: vacation.Category(strings.ToUpper(q.Get("type"))),
	}
	for _, s := range splitCSV(q.Get("status")) {
		filter.Statuses = append(filter.Statuses, vacation.Status(strings.ToUpper(s)))
	}

	period, err := periodParam(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.Overlapping = period

	requests, err := h.Ledger.ListRequests(r.Context(), callerID(r.Context(), ""), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Ledger.GetRequest(r.Context(), callerID(r.Context(), ""), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

func (h *Handler) TransitionRequest(w http.ResponseWriter, r *http.Request) {
	var body TransitionBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.Ledger.TransitionRequest(r.Context(), vacation.TransitionInput{
		AdminID:      callerID(r.Context(), body.AdminID),
		RequestID:    chi.URLParam(r, "id"),
		NewStatus:    vacation.Status(strings.ToUpper(body.Status)),
		AdminComment: body.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := callerID(r.Context(), q.Get("user_id"))
	if userID == "" {
		writeError(w, r, &generic.ValidationError{Field: "user_id", Reason: "is required"})
		return
	}
	year, err := yearParam(q.Get("year"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := h.Ledger.GetStatus(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(summary))
}

func (h *Handler) SetTotals(w http.ResponseWriter, r *http.Request) {
	var body TotalsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	year, err := yearParam(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	totals := make(vacation.Totals, len(body.Totals))
	for k, v := range body.Totals {
		totals[vacation.Category(strings.ToUpper(k))] = v
	}

	b, err := h.Ledger.SetTotals(r.Context(), callerID(r.Context(), body.AdminID), chi.URLParam(r, "user_id"), year, totals)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	corrected, err := h.Ledger.ReconcileYear(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileDTO{Year: year, Corrected: corrected})
}

// =============================================================================
// CALENDAR AND SETTINGS HANDLERS
// =============================================================================

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = generic.Today().Time.Format(generic.MonthLayout)
	}

	days, err := h.Ledger.GetCalendar(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make(map[string]CalendarDayDTO, len(days))
	for date, d := range days {
		out[date] = CalendarDayDTO{Color: string(d.Color), Count: d.Count, Reason: d.Reason}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Ledger.GetPolicy(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(p))
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var body PolicyBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.Ledger.UpdatePolicy(r.Context(), callerID(r.Context(), body.AdminID), vacation.Policy{
		MaxApprovedPerDay: body.MaxApprovedPerDay,
		CountHolidays:     body.CountHolidays,
		CountWeekends:     body.CountWeekends,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*p))
}

func (h *Handler) ListBlockedDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	within, err := periodParam(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	dates, err := h.Ledger.ListBlockedDates(r.Context(), within)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]BlockedDateDTO, len(dates))
	for i, d := range dates {
		dtos[i] = toBlockedDateDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AddBlockedDate(w http.ResponseWriter, r *http.Request) {
	var body BlockedDateBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.Ledger.AddBlockedDate(r.Context(), callerID(r.Context(), body.AdminID), vacation.BlockedDate{
		DateFrom: body.DateFrom,
		DateTo:   body.DateTo,
		Reason:   body.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBlockedDateDTO(*d))
}

func (h *Handler) RemoveBlockedDate(w http.ResponseWriter, r *http.Request) {
	adminID := callerID(r.Context(), r.URL.Query().Get("admin_id"))
	if err := h.Ledger.RemoveBlockedDate(r.Context(), adminID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness and, when a database is attached, its reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &generic.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func yearParam(s string) (int, error) {
	if s == "" {
		return generic.Today().Year(), nil
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1 {
		return 0, &generic.ValidationError{Field: "year", Reason: fmt.Sprintf("invalid year %q", s)}
	}
	return year, nil
}

// periodParam builds an optional date range. Both ends or neither.
func periodParam(from, to string) (*generic.Period, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, &generic.ValidationError{Field: "from", Reason: "from and to must be given together"}
	}
	start, err := generic.ParseDate(from)
	if err != nil {
		return nil, &generic.ValidationError{Field: "from", Reason: err.Error()}
	}
	end, err := generic.ParseDate(to)
	if err != nil {
		return nil, &generic.ValidationError{Field: "to", Reason: err.Error()}
	}
	p, err := generic.NewPeriod(start, end)
	if err != nil {
		return nil, &generic.ValidationError{Field: "to", Reason: "must not be before from"}
	}
	return &p, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
