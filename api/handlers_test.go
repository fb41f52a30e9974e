/*
handlers_test.go - HTTP tests for the vacation API

Tests for:
- Submit, transition and status round trip over SQLite
- Error mapping (400/401/403/404/409/422/502/503) and localized bodies
- Identity middleware overriding caller-supplied ids
- Calendar, policy, blocked dates and demo scenarios
- Reconciliation scheduler
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/i18n"
	"github.com/warp/vacation-ledger/store/sqlite"
	"github.com/warp/vacation-ledger/vacation"
)

var fixedNow = time.Date(2025, time.May, 20, 10, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testEnv struct {
	store  *sqlite.Store
	ledger *vacation.Ledger
	router http.Handler
}

func newTestEnv(t *testing.T, opts RouterOptions) *testEnv {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveProfile(ctx, vacation.Profile{UserID: "admin-1", Role: vacation.RoleAdmin}))
	require.NoError(t, store.SaveProfile(ctx, vacation.Profile{UserID: "emp-1", Role: vacation.RoleEmployee}))

	ledger := vacation.New(store, store, vacation.WithClock(func() time.Time { return fixedNow }))
	h := NewHandler(ledger, store)
	h.Profiles = store
	return &testEnv{store: store, ledger: ledger, router: NewRouter(h, opts)}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) setTotals(t *testing.T, userID string, vac float64) {
	t.Helper()
	rec := e.do(t, http.MethodPut, "/api/vacations/balances/"+userID+"/2025", map[string]any{
		"admin_id": "admin-1",
		"totals":   map[string]any{"VACATION": vac},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func submitBody(user, from, to string, days float64) map[string]any {
	return map[string]any{"user_id": user, "type": "VACATION", "date_from": from, "date_to": to, "days_count": days}
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestAPI_SubmitApproveStatus(t *testing.T) {
	// GIVEN: An employee with 22 vacation days
	env := newTestEnv(t, RouterOptions{})
	env.setTotals(t, "emp-1", 22)

	// WHEN: They submit 3 days and an admin approves
	rec := env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-06-02", "2025-06-04", 3))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RequestDTO](t, rec)
	assert.Equal(t, "PENDING", created.Status)
	assert.Equal(t, "2025-06-02", created.DateFrom.String())

	// THEN: Status shows the days as pending
	rec = env.do(t, http.MethodGet, "/api/vacations/status?user_id=emp-1&year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[map[string]any](t, rec)
	vac := status["categories"].(map[string]any)["VACATION"].(map[string]any)
	assert.Equal(t, 3.0, vac["pending"])
	assert.Equal(t, 19.0, vac["available"])

	rec = env.do(t, http.MethodPost, "/api/vacations/requests/"+created.ID+"/status", map[string]any{
		"admin_id": "admin-1", "status": "approved", "comment": "enjoy",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[RequestDTO](t, rec)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.Equal(t, "admin-1", approved.AdminID)

	// AND: The approved days are now used
	rec = env.do(t, http.MethodGet, "/api/vacations/status?user_id=emp-1&year=2025", nil)
	vac = decode[map[string]any](t, rec)["categories"].(map[string]any)["VACATION"].(map[string]any)
	assert.Equal(t, 3.0, vac["used"])
	assert.Equal(t, 0.0, vac["pending"])
	assert.Equal(t, 19.0, vac["available"])

	unpaid := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/vacations/status?user_id=emp-1&year=2025", nil))["categories"].(map[string]any)["UNPAID_LEAVE"].(map[string]any)
	assert.Nil(t, unpaid["available"])
	assert.Equal(t, true, unpaid["unlimited"])

	// AND: GET by id and list agree
	rec = env.do(t, http.MethodGet, "/api/vacations/requests/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]RequestDTO](t, env.do(t, http.MethodGet, "/api/vacations/requests?user_id=emp-1&status=APPROVED&from=2025-06-01&to=2025-06-30", nil))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_OverlapIs409(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	env.setTotals(t, "emp-1", 22)

	first := decode[RequestDTO](t, env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-06-02", "2025-06-04", 3)))

	rec := env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-06-04", "2025-06-05", 2))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "conflict", body.Code)
	assert.Equal(t, first.ID, body.Details["existing_id"])
}

func TestAPI_InsufficientBalanceIs422AndLocalized(t *testing.T) {
	// GIVEN: Only 2 vacation days
	env := newTestEnv(t, RouterOptions{})
	env.setTotals(t, "emp-1", 2)

	// WHEN: Requesting 3 with a Spanish browser
	rec := env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-06-02", "2025-06-04", 3),
		"Accept-Language", "es-ES,es;q=0.9")

	// THEN: 422 with the remaining quantity in the message
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "insufficient_balance", body.Code)
	assert.Equal(t, "Saldo insuficiente: solo quedan 2 días de vacaciones, solicitados 3", body.Error)
	assert.Equal(t, 2.0, body.Details["remaining"])

	rec = env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-06-02", "2025-06-04", 3))
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "only 2 days remaining")
}

func TestAPI_ClientErrors(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	env.setTotals(t, "emp-1", 22)
	req := decode[RequestDTO](t, env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-06-02", "2025-06-02", 1)))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed date", http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "02/06/2025", "2025-06-04", 1), 400, "validation"},
		{"unknown field", http.MethodPost, "/api/vacations/requests", map[string]any{"user": "x"}, 400, "validation"},
		{"zero days", http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-07-02", "2025-07-04", 0), 400, "validation"},
		{"no balance row", http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2026-07-02", "2026-07-04", 1), 404, "not_found"},
		{"non-admin transition", http.MethodPost, "/api/vacations/requests/" + req.ID + "/status", map[string]any{"admin_id": "emp-1", "status": "APPROVED"}, 403, "forbidden"},
		{"unknown request", http.MethodPost, "/api/vacations/requests/ghost/status", map[string]any{"admin_id": "admin-1", "status": "APPROVED"}, 404, "not_found"},
		{"bad status", http.MethodPost, "/api/vacations/requests/" + req.ID + "/status", map[string]any{"admin_id": "admin-1", "status": "MAYBE"}, 400, "validation"},
		{"get unknown", http.MethodGet, "/api/vacations/requests/ghost", nil, 404, "not_found"},
		{"status without user", http.MethodGet, "/api/vacations/status?year=2025", nil, 400, "validation"},
		{"bad year", http.MethodGet, "/api/vacations/status?user_id=emp-1&year=twenty", nil, 400, "validation"},
		{"bad month", http.MethodGet, "/api/vacations/calendar?month=2025-13", nil, 400, "validation"},
		{"half range", http.MethodGet, "/api/vacations/requests?from=2025-01-01", nil, 400, "validation"},
		{"policy zero", http.MethodPut, "/api/vacations/policy", map[string]any{"admin_id": "admin-1", "max_approved_per_day": 0}, 400, "validation"},
		{"remove unknown blocked date", http.MethodDelete, "/api/vacations/blocked-dates/ghost?admin_id=admin-1", nil, 404, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestErrorResponse_Infrastructure(t *testing.T) {
	ctx := context.Background()

	status, body := errorResponse(ctx, &generic.UpstreamError{Op: "save balance", Err: generic.ErrConcurrentModification})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "concurrent_modification", body.Code)

	status, body = errorResponse(ctx, &generic.UpstreamError{Op: "get profile", Err: errors.New("directory down")})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "upstream", body.Code)
	assert.NotContains(t, body.Error, "directory down", "internal detail must not leak")

	status, body = errorResponse(ctx, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", body.Code)
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestAPI_IdentityOverridesCallerIDs(t *testing.T) {
	secret := []byte("test-secret")
	env := newTestEnv(t, RouterOptions{JWTSecret: secret})

	token := func(sub string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString(secret)
		require.NoError(t, err)
		return "Bearer " + s
	}

	// GIVEN: No token
	rec := env.do(t, http.MethodGet, "/api/vacations/status?user_id=emp-1&year=2025", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[ErrorResponse](t, rec).Code)

	// GIVEN: A token signed with another key
	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin-1"}).SignedString([]byte("other"))
	rec = env.do(t, http.MethodGet, "/api/vacations/policy", nil, "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// WHEN: An employee claims to be the admin in the body
	rec = env.do(t, http.MethodPut, "/api/vacations/balances/emp-1/2025",
		map[string]any{"admin_id": "admin-1", "totals": map[string]any{"VACATION": 30}},
		"Authorization", token("emp-1"))

	// THEN: The token subject is used, and it is not an admin
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/vacations/balances/emp-1/2025",
		map[string]any{"totals": map[string]any{"VACATION": 30}},
		"Authorization", token("admin-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// AND: user_id in the query is ignored in favor of the subject
	rec = env.do(t, http.MethodGet, "/api/vacations/status?user_id=someone-else&year=2025", nil, "Authorization", token("emp-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "emp-1", decode[StatusDTO](t, rec).UserID)

	// AND: Request reads are limited to the subject for employees
	_, err := env.ledger.SetTotals(context.Background(), "admin-1", "admin-1", 2025, vacation.Totals{vacation.CategoryVacation: generic.Days(22)})
	require.NoError(t, err)
	rec = env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("admin-1", "2025-08-04", "2025-08-05", 2), "Authorization", token("admin-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	adminReq := decode[RequestDTO](t, rec)
	rec = env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-09-01", "2025-09-01", 1), "Authorization", token("emp-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/vacations/requests?user_id=admin-1", nil, "Authorization", token("emp-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/vacations/requests", nil, "Authorization", token("emp-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	own := decode[[]RequestDTO](t, rec)
	require.Len(t, own, 1)
	assert.Equal(t, "emp-1", own[0].UserID)

	rec = env.do(t, http.MethodGet, "/api/vacations/requests/"+adminReq.ID, nil, "Authorization", token("emp-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/vacations/requests", nil, "Authorization", token("admin-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]RequestDTO](t, rec), 2)

	// AND: health stays public
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
}

func TestAPI_CORSCredentialsOnlyForListedOrigins(t *testing.T) {
	// GIVEN: The default wildcard origin list
	env := newTestEnv(t, RouterOptions{})
	rec := env.do(t, http.MethodGet, "/health", nil, "Origin", "https://evil.example")

	// THEN: Credentials are never allowed
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	// GIVEN: An explicit origin list
	env = newTestEnv(t, RouterOptions{CORSOrigins: []string{"https://app.example"}})
	rec = env.do(t, http.MethodGet, "/health", nil, "Origin", "https://app.example")

	// THEN: That origin gets credentialed access
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	// AND: Others get no CORS headers at all
	rec = env.do(t, http.MethodGet, "/health", nil, "Origin", "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// =============================================================================
// CALENDAR AND SETTINGS
// =============================================================================

func TestAPI_CalendarPolicyAndBlockedDates(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})

	rec := env.do(t, http.MethodPut, "/api/vacations/policy", map[string]any{"admin_id": "admin-1", "max_approved_per_day": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[PolicyDTO](t, env.do(t, http.MethodGet, "/api/vacations/policy", nil)).MaxApprovedPerDay)

	rec = env.do(t, http.MethodPost, "/api/vacations/blocked-dates", map[string]any{
		"admin_id": "admin-1", "date_from": "2025-08-15", "date_to": "2025-08-15", "reason": "Asunción",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	blocked := decode[BlockedDateDTO](t, rec)

	env.setTotals(t, "emp-1", 22)
	req := decode[RequestDTO](t, env.do(t, http.MethodPost, "/api/vacations/requests", submitBody("emp-1", "2025-08-04", "2025-08-05", 2)))
	env.do(t, http.MethodPost, "/api/vacations/requests/"+req.ID+"/status", map[string]any{"admin_id": "admin-1", "status": "APPROVED"})

	days := decode[map[string]CalendarDayDTO](t, env.do(t, http.MethodGet, "/api/vacations/calendar?month=2025-08", nil))
	assert.Len(t, days, 31)
	assert.Equal(t, CalendarDayDTO{Color: "amber", Count: 1}, days["2025-08-04"])
	assert.Equal(t, "green", days["2025-08-06"].Color)
	assert.Equal(t, CalendarDayDTO{Color: "red", Reason: "Asunción"}, days["2025-08-15"])

	list := decode[[]BlockedDateDTO](t, env.do(t, http.MethodGet, "/api/vacations/blocked-dates?from=2025-08-01&to=2025-08-31", nil))
	require.Len(t, list, 1)

	rec = env.do(t, http.MethodDelete, "/api/vacations/blocked-dates/"+blocked.ID+"?admin_id=admin-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	days = decode[map[string]CalendarDayDTO](t, env.do(t, http.MethodGet, "/api/vacations/calendar?month=2025-08", nil))
	assert.Equal(t, "green", days["2025-08-15"].Color)
}

func TestAPI_ReconcileEndpoint(t *testing.T) {
	// GIVEN: A balance whose stored used counter drifted
	env := newTestEnv(t, RouterOptions{})
	b := vacation.NewBalance("emp-1", 2025, vacation.DefaultTotals(), fixedNow)
	b.SetUsed(vacation.CategoryVacation, generic.Days(5))
	require.NoError(t, env.store.SaveBalance(context.Background(), b))

	// WHEN: Reconciling the year twice
	first := decode[ReconcileDTO](t, env.do(t, http.MethodPost, "/api/vacations/reconcile?year=2025", nil))
	second := decode[ReconcileDTO](t, env.do(t, http.MethodPost, "/api/vacations/reconcile?year=2025", nil))

	// THEN: Only the first pass corrects anything
	assert.Equal(t, 1, first.Corrected)
	assert.Equal(t, 0, second.Corrected)
}

func TestAPI_Scenarios(t *testing.T) {
	env := newTestEnv(t, RouterOptions{Scenarios: true})

	list := decode[[]ScenarioDTO](t, env.do(t, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, 2)

	rec := env.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "busy-summer", "year": 2025})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decode[LoadScenarioDTO](t, rec).Requests)

	// Loading again adds nothing
	rec = env.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "busy-summer", "year": 2025})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, decode[LoadScenarioDTO](t, rec).Requests)

	status := decode[StatusDTO](t, env.do(t, http.MethodGet, "/api/vacations/status?user_id=demo-emp-1&year=2025", nil))
	assert.Equal(t, "5.5", status.Categories["VACATION"].Used.String())

	rec = env.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ScenariosNotMountedByDefault(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/scenarios", nil).Code)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestScheduler_RunNowHealsDueYears(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	ctx := context.Background()

	for _, year := range []int{2024, 2025} {
		b := vacation.NewBalance("emp-1", year, vacation.DefaultTotals(), fixedNow)
		b.SetUsed(vacation.CategoryPaidLeave, generic.Days(2))
		require.NoError(t, env.store.SaveBalance(ctx, b))
	}

	rs := NewReconciliationScheduler(env.ledger, nil)

	// In May only the current year is due
	rs.Now = func() time.Time { return fixedNow }
	assert.Equal(t, 1, rs.RunNow(ctx))

	// In January the previous year is due as well
	rs.Now = func() time.Time { return time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, 1, rs.RunNow(ctx), "2024 healed, 2025 already clean")
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	env := newTestEnv(t, RouterOptions{})
	rs := NewReconciliationScheduler(env.ledger, nil)
	rs.CheckInterval = 0
	rs.Start()
	rs.Stop() // no-op, must not block
	assert.Nil(t, rs.ticker)
}
