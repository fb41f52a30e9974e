// Package memory provides an in-memory vacation.TxStore and vacation.Directory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu       sync.RWMutex
	data     state
	profiles map[string]vacation.Profile
}

type balanceKey struct {
	UserID string
	Year   int
}

type state struct {
	balances map[balanceKey]vacation.Balance
	requests map[string]vacation.Request
	policy   *vacation.Policy
	blocked  map[string]vacation.BlockedDate
}

func New() *Store {
	return &Store{
		data: state{
			balances: make(map[balanceKey]vacation.Balance),
			requests: make(map[string]vacation.Request),
			blocked:  make(map[string]vacation.BlockedDate),
		},
		profiles: make(map[string]vacation.Profile),
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Store) SaveProfile(_ context.Context, p vacation.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *Store) GetProfile(_ context.Context, userID string) (*vacation.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// =============================================================================
// STORE (locking wrappers around the *Locked helpers)
// =============================================================================

func (m *Store) GetBalance(_ context.Context, userID string, year int) (*vacation.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getBalance(userID, year), nil
}

func (m *Store) ListBalances(_ context.Context, year int) ([]vacation.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listBalances(year), nil
}

func (m *Store) SaveBalance(_ context.Context, b *vacation.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.saveBalance(b)
}

func (m *Store) GetRequest(_ context.Context, id string) (*vacation.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.getRequest(id), nil
}

func (m *Store) ListRequests(_ context.Context, filter vacation.RequestFilter) ([]vacation.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listRequests(filter), nil
}

func (m *Store) InsertRequest(_ context.Context, r vacation.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.insertRequest(r)
}

func (m *Store) UpdateRequest(_ context.Context, r vacation.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.updateRequest(r)
}

func (m *Store) GetActivePolicy(_ context.Context) (*vacation.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.activePolicy(), nil
}

func (m *Store) SavePolicy(_ context.Context, p vacation.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.policy = &p
	return nil
}

func (m *Store) ListBlockedDates(_ context.Context, within *generic.Period) ([]vacation.BlockedDate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.listBlocked(within), nil
}

func (m *Store) SaveBlockedDate(_ context.Context, d vacation.BlockedDate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.blocked[d.ID] = d
	return nil
}

func (m *Store) DeleteBlockedDate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.deleteBlocked(id)
}

// =============================================================================
// STATE HELPERS - Callers hold the lock
// =============================================================================

func (s *state) getBalance(userID string, year int) *vacation.Balance {
	b, ok := s.balances[balanceKey{UserID: userID, Year: year}]
	if !ok {
		return nil
	}
	return b.Clone()
}

func (s *state) listBalances(year int) []vacation.Balance {
	var out []vacation.Balance
	for k, b := range s.balances {
		if k.Year == year {
			out = append(out, *b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *state) saveBalance(b *vacation.Balance) error {
	k := balanceKey{UserID: b.UserID, Year: b.Year}
	current, exists := s.balances[k]
	switch {
	case b.Version == 0 && exists:
		return generic.ErrConcurrentModification
	case b.Version != 0 && (!exists || current.Version != b.Version):
		return generic.ErrConcurrentModification
	}
	b.Version++
	s.balances[k] = *b.Clone()
	return nil
}

func (s *state) getRequest(id string) *vacation.Request {
	r, ok := s.requests[id]
	if !ok {
		return nil
	}
	return &r
}

func (s *state) listRequests(filter vacation.RequestFilter) []vacation.Request {
	var out []vacation.Request
	for _, r := range s.requests {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateFrom.Equal(out[j].DateFrom) {
			return out[i].DateFrom.Before(out[j].DateFrom)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *state) insertRequest(r vacation.Request) error {
	if _, exists := s.requests[r.ID]; exists {
		return generic.ErrConcurrentModification
	}
	s.requests[r.ID] = r
	return nil
}

func (s *state) updateRequest(r vacation.Request) error {
	if _, exists := s.requests[r.ID]; !exists {
		return &generic.NotFoundError{Resource: "request", ID: r.ID}
	}
	s.requests[r.ID] = r
	return nil
}

func (s *state) activePolicy() *vacation.Policy {
	if s.policy == nil || !s.policy.Active {
		return nil
	}
	p := *s.policy
	return &p
}

func (s *state) listBlocked(within *generic.Period) []vacation.BlockedDate {
	var out []vacation.BlockedDate
	for _, d := range s.blocked {
		if within == nil || d.Period().Overlaps(*within) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateFrom.Equal(out[j].DateFrom) {
			return out[i].DateFrom.Before(out[j].DateFrom)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *state) deleteBlocked(id string) error {
	if _, ok := s.blocked[id]; !ok {
		return &generic.NotFoundError{Resource: "blocked_date", ID: id}
	}
	delete(s.blocked, id)
	return nil
}

func (s *state) clone() state {
	cp := state{
		balances: make(map[balanceKey]vacation.Balance, len(s.balances)),
		requests: make(map[string]vacation.Request, len(s.requests)),
		blocked:  make(map[string]vacation.BlockedDate, len(s.blocked)),
	}
	for k, b := range s.balances {
		cp.balances[k] = *b.Clone()
	}
	for k, r := range s.requests {
		cp.requests[k] = r
	}
	for k, d := range s.blocked {
		cp.blocked[k] = d
	}
	if s.policy != nil {
		p := *s.policy
		cp.policy = &p
	}
	return cp
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Store) WithTx(ctx context.Context, fn func(vacation.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&txView{data: &m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// txView operates on the parent's state while the parent lock is held.
type txView struct {
	data *state
}

func (tv *txView) GetBalance(_ context.Context, userID string, year int) (*vacation.Balance, error) {
	return tv.data.getBalance(userID, year), nil
}

func (tv *txView) ListBalances(_ context.Context, year int) ([]vacation.Balance, error) {
	return tv.data.listBalances(year), nil
}

func (tv *txView) SaveBalance(_ context.Context, b *vacation.Balance) error {
	return tv.data.saveBalance(b)
}

func (tv *txView) GetRequest(_ context.Context, id string) (*vacation.Request, error) {
	return tv.data.getRequest(id), nil
}

func (tv *txView) ListRequests(_ context.Context, filter vacation.RequestFilter) ([]vacation.Request, error) {
	return tv.data.listRequests(filter), nil
}

func (tv *txView) InsertRequest(_ context.Context, r vacation.Request) error {
	return tv.data.insertRequest(r)
}

func (tv *txView) UpdateRequest(_ context.Context, r vacation.Request) error {
	return tv.data.updateRequest(r)
}

func (tv *txView) GetActivePolicy(_ context.Context) (*vacation.Policy, error) {
	return tv.data.activePolicy(), nil
}

func (tv *txView) SavePolicy(_ context.Context, p vacation.Policy) error {
	tv.data.policy = &p
	return nil
}

func (tv *txView) ListBlockedDates(_ context.Context, within *generic.Period) ([]vacation.BlockedDate, error) {
	return tv.data.listBlocked(within), nil
}

func (tv *txView) SaveBlockedDate(_ context.Context, d vacation.BlockedDate) error {
	tv.data.blocked[d.ID] = d
	return nil
}

func (tv *txView) DeleteBlockedDate(_ context.Context, id string) error {
	return tv.data.deleteBlocked(id)
}
