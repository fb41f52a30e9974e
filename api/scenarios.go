/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Populates a store with a small team so the calendar and status views
  have something to show. Everything goes through the ledger, so the
  seeded data obeys the same rules as real traffic.

AVAILABLE SCENARIOS:
  small-team:   One admin, three employees with default and custom totals
  busy-summer:  small-team plus approved and pending August requests,
                so the calendar shows red, amber and green days

HOW SCENARIOS WORK:
  1. Upsert profiles (fixed ids)
  2. Set yearly totals through SetTotals
  3. Submit and transition requests

  Loading twice is harmless: profiles and totals are upserts, and a
  request that already exists is reported by the ledger as an overlap
  and skipped.

USAGE VIA API (only when scenarios are enabled):
  GET  /api/scenarios
  POST /api/scenarios/load  {"scenario_id": "busy-summer"}

SEE ALSO:
  - server.go: RouterOptions.Scenarios
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

// ProfileWriter stores directory entries for demo users.
type ProfileWriter interface {
	SaveProfile(ctx context.Context, p vacation.Profile) error
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioBody struct {
	ScenarioID string `json:"scenario_id"`
	Year       int    `json:"year,omitempty"`
}

type LoadScenarioDTO struct {
	ScenarioID string `json:"scenario_id"`
	Year       int    `json:"year"`
	Requests   int    `json:"requests"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "One admin and three employees with yearly totals",
	},
	{
		ID:          "busy-summer",
		Name:        "Busy Summer",
		Description: "Small team plus overlapping August vacations",
	},
}

const demoAdmin = "demo-admin"

var demoProfiles = []vacation.Profile{
	{UserID: demoAdmin, DisplayName: "Ana Admin", Role: vacation.RoleAdmin},
	{UserID: "demo-emp-1", DisplayName: "Bruno", Role: vacation.RoleEmployee},
	{UserID: "demo-emp-2", DisplayName: "Carla", Role: vacation.RoleEmployee},
	{UserID: "demo-emp-3", DisplayName: "Dani", Role: vacation.RoleEmployee},
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var body LoadScenarioBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Year == 0 {
		body.Year = generic.Today().Year()
	}

	n, err := h.loadScenario(r.Context(), body.ScenarioID, body.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoadScenarioDTO{ScenarioID: body.ScenarioID, Year: body.Year, Requests: n})
}

func (h *Handler) loadScenario(ctx context.Context, id string, year int) (int, error) {
	if h.Profiles == nil {
		return 0, &generic.ValidationError{Field: "scenario_id", Reason: "scenarios are disabled"}
	}
	switch id {
	case "small-team":
		return 0, h.loadSmallTeam(ctx, year)
	case "busy-summer":
		if err := h.loadSmallTeam(ctx, year); err != nil {
			return 0, err
		}
		return h.loadBusySummer(ctx, year)
	}
	return 0, &generic.ValidationError{Field: "scenario_id", Reason: fmt.Sprintf("unknown scenario %q", id)}
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) loadSmallTeam(ctx context.Context, year int) error {
	for _, p := range demoProfiles {
		if err := h.Profiles.SaveProfile(ctx, p); err != nil {
			return generic.Upstream("save profile", err)
		}
	}

	totals := map[string]vacation.Totals{
		"demo-emp-1": {vacation.CategoryVacation: generic.Days(22), vacation.CategoryPaidLeave: generic.Days(4)},
		"demo-emp-2": {vacation.CategoryVacation: generic.Days(25), vacation.CategoryPaidLeave: generic.Days(4)},
		"demo-emp-3": {vacation.CategoryVacation: generic.Days(11), vacation.CategoryPaidLeave: generic.Days(2)},
	}
	for userID, t := range totals {
		if _, err := h.Ledger.SetTotals(ctx, demoAdmin, userID, year, t); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadBusySummer(ctx context.Context, year int) (int, error) {
	aug := func(day int) generic.TimePoint { return generic.NewTimePoint(year, time.August, day) }

	plan := []struct {
		user     string
		from, to generic.TimePoint
		days     generic.Amount
		approve  bool
	}{
		{"demo-emp-1", aug(4), aug(8), generic.Days(5), true},
		{"demo-emp-2", aug(6), aug(12), generic.Days(5), true},
		{"demo-emp-3", aug(18), aug(19), generic.Days(2), false},
		{"demo-emp-1", aug(25), aug(25), generic.MustParseDays("0.5"), true},
	}

	created := 0
	for _, p := range plan {
		req, err := h.Ledger.SubmitRequest(ctx, vacation.SubmitInput{
			UserID:   p.user,
			Category: vacation.CategoryVacation,
			DateFrom: p.from,
			DateTo:   p.to,
			DayCount: p.days,
			Comment:  "demo",
		})
		if errors.Is(err, generic.ErrConflict) {
			continue // already loaded
		}
		if err != nil {
			return created, err
		}
		created++

		if !p.approve {
			continue
		}
		if _, err := h.Ledger.TransitionRequest(ctx, vacation.TransitionInput{
			AdminID:   demoAdmin,
			RequestID: req.ID,
			NewStatus: vacation.StatusApproved,
		}); err != nil {
			return created, err
		}
	}
	return created, nil
}
