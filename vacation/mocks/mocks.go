// Package mocks provides testify mocks of the vacation collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/warp/vacation-ledger/vacation"
)

// Directory is a mock type for the vacation.Directory type
type Directory struct {
	mock.Mock
}

// GetProfile provides a mock function with given fields: ctx, userID
func (m *Directory) GetProfile(ctx context.Context, userID string) (*vacation.Profile, error) {
	ret := m.Called(ctx, userID)

	var r0 *vacation.Profile
	if rf, ok := ret.Get(0).(func(context.Context, string) *vacation.Profile); ok {
		r0 = rf(ctx, userID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*vacation.Profile)
	}

	return r0, ret.Error(1)
}

// Notifier is a mock type for the vacation.Notifier type
type Notifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, event
func (m *Notifier) Notify(ctx context.Context, event vacation.Event) error {
	ret := m.Called(ctx, event)
	return ret.Error(0)
}
