package vacation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

// =============================================================================
// GET STATUS
// =============================================================================

func TestGetStatus_CreatesBalanceWithDefaults(t *testing.T) {
	// GIVEN: A user with no balance row and no requests
	// WHEN: Asking for their 2025 status
	// THEN: A row is created with default totals and zero used

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	summary, err := ledger.GetStatus(ctx, employeeID, 2025)
	require.NoError(t, err)

	vac := summary.Categories[vacation.CategoryVacation]
	assert.Equal(t, "22", vac.Total.String())
	assert.Equal(t, "0", vac.Used.String())
	assert.Equal(t, "22", vac.Available.String())
	assert.Equal(t, "4", summary.Categories[vacation.CategoryPaidLeave].Total.String())
	assert.True(t, summary.Categories[vacation.CategoryUnpaidLeave].Unlimited)
	assert.False(t, summary.Reconciled, "creating a row is not a correction")
	assert.Equal(t, vacation.DefaultPolicy(), summary.Policy)

	b, err := store.GetBalance(ctx, employeeID, 2025)
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, 1, store.balanceWrites)
}

func TestGetStatus_CustomDefaults(t *testing.T) {
	ledger, _ := newTestLedger(t, vacation.WithDefaults(vacation.Totals{
		vacation.CategoryVacation:  generic.Days(25),
		vacation.CategoryPaidLeave: generic.Days(3),
	}))

	summary, err := ledger.GetStatus(context.Background(), employeeID, 2025)

	require.NoError(t, err)
	assert.Equal(t, "25", summary.Categories[vacation.CategoryVacation].Total.String())
	assert.Equal(t, "3", summary.Categories[vacation.CategoryPaidLeave].Total.String())
}

func TestGetStatus_ReconciliationIsIdempotent(t *testing.T) {
	// GIVEN: A stored used=7 while APPROVED requests only sum to 3
	// WHEN: Calling GetStatus twice
	// THEN: The first call heals used to 3 (one write)
	// AND:  The second call returns the same output and writes nothing

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	seedBalance(t, store.Store, employeeID, 2025, "22", "7")
	seedRequest(t, store.Store, "a1", employeeID, vacation.CategoryVacation, "2025-03-03", "2025-03-04", "2", vacation.StatusApproved)
	seedRequest(t, store.Store, "a2", employeeID, vacation.CategoryVacation, "2025-04-07", "2025-04-07", "1", vacation.StatusApproved)
	seedRequest(t, store.Store, "p1", employeeID, vacation.CategoryVacation, "2025-08-04", "2025-08-05", "2", vacation.StatusPending)
	store.balanceWrites = 0

	first, err := ledger.GetStatus(ctx, employeeID, 2025)
	require.NoError(t, err)
	assert.True(t, first.Reconciled)
	assert.Equal(t, "3", first.Categories[vacation.CategoryVacation].Used.String())
	assert.Equal(t, "2", first.Categories[vacation.CategoryVacation].Pending.String())
	assert.Equal(t, "17", first.Categories[vacation.CategoryVacation].Available.String())
	assert.Equal(t, 1, store.balanceWrites)

	second, err := ledger.GetStatus(ctx, employeeID, 2025)
	require.NoError(t, err)
	assert.False(t, second.Reconciled)
	assert.Equal(t, 1, store.balanceWrites, "second call must not write")

	first.Reconciled = false
	assert.Equal(t, first, second)
}

func TestGetStatus_NoDoubleCounting(t *testing.T) {
	// GIVEN: Requests approved, rejected, cancelled and pending through the ledger
	// WHEN: Reconciling
	// THEN: used equals the sum of APPROVED day counts per category

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	seedBalance(t, store.Store, employeeID, 2025, "22", "0")
	seedRequest(t, store.Store, "r1", employeeID, vacation.CategoryVacation, "2025-02-03", "2025-02-05", "3", vacation.StatusPending)
	seedRequest(t, store.Store, "r2", employeeID, vacation.CategoryVacation, "2025-03-03", "2025-03-04", "2", vacation.StatusPending)
	seedRequest(t, store.Store, "r3", employeeID, vacation.CategoryPaidLeave, "2025-04-01", "2025-04-01", "1", vacation.StatusPending)
	seedRequest(t, store.Store, "r4", employeeID, vacation.CategoryVacation, "2025-05-05", "2025-05-05", "0.5", vacation.StatusPending)

	for _, step := range []struct {
		id     string
		status vacation.Status
	}{
		{"r1", vacation.StatusApproved},
		{"r2", vacation.StatusApproved},
		{"r2", vacation.StatusCancelled},
		{"r2", vacation.StatusApproved},
		{"r3", vacation.StatusApproved},
		{"r1", vacation.StatusRejected},
		{"r1", vacation.StatusApproved},
	} {
		_, err := ledger.TransitionRequest(ctx, transition(step.id, step.status))
		require.NoError(t, err)
	}

	summary, err := ledger.GetStatus(ctx, employeeID, 2025)
	require.NoError(t, err)
	assert.False(t, summary.Reconciled, "transitions kept used in step")
	assert.Equal(t, "5", summary.Categories[vacation.CategoryVacation].Used.String())
	assert.Equal(t, "0.5", summary.Categories[vacation.CategoryVacation].Pending.String())
	assert.Equal(t, "1", summary.Categories[vacation.CategoryPaidLeave].Used.String())
}

func TestGetStatus_ScansAllYears(t *testing.T) {
	// GIVEN: An APPROVED request in 2024 and none in 2025
	// WHEN: Asking for 2025
	// THEN: The 2024 days are counted too (existing cross-year behavior)

	ledger, store := newTestLedger(t)
	seedBalance(t, store.Store, employeeID, 2025, "22", "0")
	seedRequest(t, store.Store, "old", employeeID, vacation.CategoryVacation, "2024-12-02", "2024-12-04", "3", vacation.StatusApproved)

	summary, err := ledger.GetStatus(context.Background(), employeeID, 2025)

	require.NoError(t, err)
	assert.Equal(t, "3", summary.Categories[vacation.CategoryVacation].Used.String())
}

func TestGetStatus_ReportsActivePolicyAndViolations(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, store.SavePolicy(ctx, vacation.Policy{ID: "p", MaxApprovedPerDay: 3, CountWeekends: true, Active: true}))
	seedBalance(t, store.Store, employeeID, 2025, "2", "0")
	seedRequest(t, store.Store, "big", employeeID, vacation.CategoryVacation, "2025-06-02", "2025-06-06", "5", vacation.StatusApproved)

	summary, err := ledger.GetStatus(ctx, employeeID, 2025)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Policy.MaxApprovedPerDay)
	assert.True(t, summary.Policy.CountWeekends)
	assert.Equal(t, []vacation.Category{vacation.CategoryVacation}, summary.Violations)
	assert.Equal(t, "-3", summary.Categories[vacation.CategoryVacation].Available.String())
}

func TestGetStatus_Validation(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.GetStatus(context.Background(), "", 2025)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = ledger.GetStatus(context.Background(), employeeID, 0)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

// =============================================================================
// RECONCILE YEAR
// =============================================================================

func TestReconcileYear_CorrectsOnlyDriftedRows(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	seedBalance(t, store.Store, employeeID, 2025, "22", "9")
	seedBalance(t, store.Store, "emp-2", 2025, "22", "0")
	seedBalance(t, store.Store, "emp-3", 2024, "22", "5")

	corrected, err := ledger.ReconcileYear(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)
	assert.Equal(t, "0", vacationUsed(t, store.Store, employeeID, 2025))
	assert.Equal(t, "5", vacationUsed(t, store.Store, "emp-3", 2024), "other years untouched")

	corrected, err = ledger.ReconcileYear(ctx, 2025)
	require.NoError(t, err)
	assert.Zero(t, corrected)
}
