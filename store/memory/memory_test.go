package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/store/memory"
	"github.com/warp/vacation-ledger/vacation"
)

var now = time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)

func TestMemory_SaveBalanceCompareAndSwap(t *testing.T) {
	// GIVEN: Two readers holding version 1 of the same balance
	// WHEN: Both write
	// THEN: The first wins, the second gets ErrConcurrentModification

	m := memory.New()
	ctx := context.Background()

	b := vacation.NewBalance("emp-1", 2025, vacation.DefaultTotals(), now)
	require.NoError(t, m.SaveBalance(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	dup := vacation.NewBalance("emp-1", 2025, vacation.DefaultTotals(), now)
	assert.ErrorIs(t, m.SaveBalance(ctx, dup), generic.ErrConcurrentModification, "second insert")

	reader1, _ := m.GetBalance(ctx, "emp-1", 2025)
	reader2, _ := m.GetBalance(ctx, "emp-1", 2025)

	reader1.SetUsed(vacation.CategoryVacation, generic.Days(3))
	require.NoError(t, m.SaveBalance(ctx, reader1))

	reader2.SetUsed(vacation.CategoryVacation, generic.Days(5))
	assert.ErrorIs(t, m.SaveBalance(ctx, reader2), generic.ErrConcurrentModification)

	stored, _ := m.GetBalance(ctx, "emp-1", 2025)
	assert.Equal(t, "3", stored.Bucket(vacation.CategoryVacation).Used.String())
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemory_ReturnedBalancesAreCopies(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	require.NoError(t, m.SaveBalance(ctx, vacation.NewBalance("emp-1", 2025, vacation.DefaultTotals(), now)))

	b, _ := m.GetBalance(ctx, "emp-1", 2025)
	b.SetUsed(vacation.CategoryVacation, generic.Days(9))

	again, _ := m.GetBalance(ctx, "emp-1", 2025)
	assert.Equal(t, "0", again.Bucket(vacation.CategoryVacation).Used.String())
}

func TestMemory_WithTxRollsBackOnError(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(s vacation.Store) error {
		require.NoError(t, s.InsertRequest(ctx, vacation.Request{ID: "r1", UserID: "emp-1", Status: vacation.StatusPending}))
		require.NoError(t, s.SaveBalance(ctx, vacation.NewBalance("emp-1", 2025, vacation.DefaultTotals(), now)))
		require.NoError(t, s.SavePolicy(ctx, vacation.Policy{ID: "p", MaxApprovedPerDay: 4, Active: true}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	r, _ := m.GetRequest(ctx, "r1")
	assert.Nil(t, r)
	b, _ := m.GetBalance(ctx, "emp-1", 2025)
	assert.Nil(t, b)
	p, _ := m.GetActivePolicy(ctx)
	assert.Nil(t, p)
}

func TestMemory_WithTxCommits(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	err := m.WithTx(ctx, func(s vacation.Store) error {
		return s.InsertRequest(ctx, vacation.Request{ID: "r1", UserID: "emp-1", Status: vacation.StatusPending})
	})
	require.NoError(t, err)

	r, _ := m.GetRequest(ctx, "r1")
	require.NotNil(t, r)
	assert.Equal(t, vacation.StatusPending, r.Status)
}

func TestMemory_UpdateUnknownRequest(t *testing.T) {
	m := memory.New()
	err := m.UpdateRequest(context.Background(), vacation.Request{ID: "ghost"})
	assert.True(t, generic.IsNotFound(err))
}

func TestMemory_Profiles(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	require.NoError(t, m.SaveProfile(ctx, vacation.Profile{UserID: "a", Role: vacation.RoleAdmin}))

	p, err := m.GetProfile(ctx, "a")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())

	p, err = m.GetProfile(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, p)
}
