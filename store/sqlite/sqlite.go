/*
Package sqlite provides a SQLite-backed implementation of the vacation store.

PURPOSE:
  Implements vacation.TxStore and vacation.Directory on SQLite. The same
  schema runs on PostgreSQL through store/postgres.

INTERFACES IMPLEMENTED:
  vacation.Store:     Balances, requests, policy, blocked dates
  vacation.TxStore:   WithTx over a single sql.Tx
  vacation.Directory: Profile lookup for role checks

KEY TABLES:
  balances:          One row per (user_id, year), {prefix}_total/{prefix}_usados per category
  vacation_requests: Requests, never deleted
  vacation_policies: Single active row
  blocked_dates:     Calendar blocks
  profiles:          User roles

NUMERIC COLUMNS:
  Day counts are stored as TEXT decimals so half days survive the round trip.
  Dates are stored as "YYYY-MM-DD" so range predicates compare lexically.

OPTIMISTIC LOCKING:
  balances.version is bumped on every write. SaveBalance updates
  WHERE version = ? and reports generic.ErrConcurrentModification when no
  row matched.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; WithTx holds the write lock for the
  whole transaction. Queries issued inside a transaction go through the
  sql.Tx, never the pool.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/vacations.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := vacation.New(store, store)

SEE ALSO:
  - vacation/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	q  queries
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, q: queries{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS balances (
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		vacaciones_total TEXT NOT NULL DEFAULT '0',
		vacaciones_usados TEXT NOT NULL DEFAULT '0',
		permisos_retribuidos_total TEXT NOT NULL DEFAULT '0',
		permisos_retribuidos_usados TEXT NOT NULL DEFAULT '0',
		permisos_no_retribuidos_total TEXT NOT NULL DEFAULT '0',
		permisos_no_retribuidos_usados TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, year)
	);

	CREATE INDEX IF NOT EXISTS idx_balances_year ON balances(year);

	CREATE TABLE IF NOT EXISTS vacation_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		date_from TEXT NOT NULL,
		date_to TEXT NOT NULL,
		days_count TEXT NOT NULL,
		status TEXT NOT NULL,
		comment_user TEXT,
		comment_admin TEXT,
		admin_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overlap and reservation checks (hot path of SubmitRequest)
	CREATE INDEX IF NOT EXISTS idx_vacation_requests_user_status
		ON vacation_requests(user_id, status);
	-- Calendar aggregation
	CREATE INDEX IF NOT EXISTS idx_vacation_requests_status_range
		ON vacation_requests(status, date_from, date_to);

	CREATE TABLE IF NOT EXISTS vacation_policies (
		id TEXT PRIMARY KEY,
		max_approved_per_day INTEGER NOT NULL DEFAULT 1,
		count_holidays INTEGER NOT NULL DEFAULT 0,
		count_weekends INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS blocked_dates (
		id TEXT PRIMARY KEY,
		date_from TEXT NOT NULL,
		date_to TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		display_name TEXT,
		role TEXT NOT NULL DEFAULT 'employee'
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STORE (vacation.Store interface)
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, userID string, year int) (*vacation.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.getBalance(ctx, userID, year)
}

func (s *Store) ListBalances(ctx context.Context, year int) ([]vacation.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.listBalances(ctx, year)
}

func (s *Store) SaveBalance(ctx context.Context, b *vacation.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.saveBalance(ctx, b)
}

func (s *Store) GetRequest(ctx context.Context, id string) (*vacation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.getRequest(ctx, id)
}

func (s *Store) ListRequests(ctx context.Context, filter vacation.RequestFilter) ([]vacation.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.listRequests(ctx, filter)
}

func (s *Store) InsertRequest(ctx context.Context, r vacation.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.insertRequest(ctx, r)
}

func (s *Store) UpdateRequest(ctx context.Context, r vacation.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.updateRequest(ctx, r)
}

func (s *Store) GetActivePolicy(ctx context.Context) (*vacation.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.getActivePolicy(ctx)
}

// SavePolicy upserts p and, when p is active, deactivates every other row.
func (s *Store) SavePolicy(ctx context.Context, p vacation.Policy) error {
	return s.WithTx(ctx, func(tx vacation.Store) error {
		return tx.SavePolicy(ctx, p)
	})
}

func (s *Store) ListBlockedDates(ctx context.Context, within *generic.Period) ([]vacation.BlockedDate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.listBlockedDates(ctx, within)
}

func (s *Store) SaveBlockedDate(ctx context.Context, d vacation.BlockedDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.saveBlockedDate(ctx, d)
}

func (s *Store) DeleteBlockedDate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.deleteBlockedDate(ctx, id)
}

// =============================================================================
// TRANSACTIONAL STORE (vacation.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store vacation.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: queries{db: sqlTx}}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	q queries
}

func (ts *txStore) GetBalance(ctx context.Context, userID string, year int) (*vacation.Balance, error) {
	return ts.q.getBalance(ctx, userID, year)
}

func (ts *txStore) ListBalances(ctx context.Context, year int) ([]vacation.Balance, error) {
	return ts.q.listBalances(ctx, year)
}

func (ts *txStore) SaveBalance(ctx context.Context, b *vacation.Balance) error {
	return ts.q.saveBalance(ctx, b)
}

func (ts *txStore) GetRequest(ctx context.Context, id string) (*vacation.Request, error) {
	return ts.q.getRequest(ctx, id)
}

func (ts *txStore) ListRequests(ctx context.Context, filter vacation.RequestFilter) ([]vacation.Request, error) {
	return ts.q.listRequests(ctx, filter)
}

func (ts *txStore) InsertRequest(ctx context.Context, r vacation.Request) error {
	return ts.q.insertRequest(ctx, r)
}

func (ts *txStore) UpdateRequest(ctx context.Context, r vacation.Request) error {
	return ts.q.updateRequest(ctx, r)
}

func (ts *txStore) GetActivePolicy(ctx context.Context) (*vacation.Policy, error) {
	return ts.q.getActivePolicy(ctx)
}

func (ts *txStore) SavePolicy(ctx context.Context, p vacation.Policy) error {
	return ts.q.savePolicy(ctx, p)
}

func (ts *txStore) ListBlockedDates(ctx context.Context, within *generic.Period) ([]vacation.BlockedDate, error) {
	return ts.q.listBlockedDates(ctx, within)
}

func (ts *txStore) SaveBlockedDate(ctx context.Context, d vacation.BlockedDate) error {
	return ts.q.saveBlockedDate(ctx, d)
}

func (ts *txStore) DeleteBlockedDate(ctx context.Context, id string) error {
	return ts.q.deleteBlockedDate(ctx, id)
}

// =============================================================================
// PROFILE STORE (vacation.Directory interface)
// =============================================================================

// SaveProfile upserts a user profile.
func (s *Store) SaveProfile(ctx context.Context, p vacation.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO profiles (id, display_name, role)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			role = excluded.role
	`
	_, err := s.db.ExecContext(ctx, query, p.UserID, p.DisplayName, string(p.Role))
	return err
}

// GetProfile returns nil, nil for unknown users.
func (s *Store) GetProfile(ctx context.Context, userID string) (*vacation.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p           vacation.Profile
		displayName sql.NullString
		role        string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, display_name, role FROM profiles WHERE id = ?", userID,
	).Scan(&p.UserID, &displayName, &role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.DisplayName = displayName.String
	p.Role = vacation.Role(role)
	return &p, nil
}

// =============================================================================
// QUERIES - Shared by Store and txStore
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db querier
}

type scanner interface {
	Scan(dest ...any) error
}

const balanceColumns = `user_id, year,
	vacaciones_total, vacaciones_usados,
	permisos_retribuidos_total, permisos_retribuidos_usados,
	permisos_no_retribuidos_total, permisos_no_retribuidos_usados,
	version, created_at, updated_at`

func (q queries) getBalance(ctx context.Context, userID string, year int) (*vacation.Balance, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+balanceColumns+" FROM balances WHERE user_id = ? AND year = ?", userID, year)
	b, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, nil
}

func (q queries) listBalances(ctx context.Context, year int) ([]vacation.Balance, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+balanceColumns+" FROM balances WHERE year = ? ORDER BY user_id", year)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []vacation.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *b)
	}
	return balances, rows.Err()
}

func (q queries) saveBalance(ctx context.Context, b *vacation.Balance) error {
	vac := b.Bucket(vacation.CategoryVacation)
	paid := b.Bucket(vacation.CategoryPaidLeave)
	unpaid := b.Bucket(vacation.CategoryUnpaidLeave)

	if b.Version == 0 {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO balances (`+balanceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`,
			b.UserID, b.Year,
			vac.Total.String(), vac.Used.String(),
			paid.Total.String(), paid.Used.String(),
			unpaid.Total.String(), unpaid.Used.String(),
			formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return generic.ErrConcurrentModification
			}
			return fmt.Errorf("failed to insert balance: %w", err)
		}
		b.Version = 1
		return nil
	}

	res, err := q.db.ExecContext(ctx, `
		UPDATE balances SET
			vacaciones_total = ?, vacaciones_usados = ?,
			permisos_retribuidos_total = ?, permisos_retribuidos_usados = ?,
			permisos_no_retribuidos_total = ?, permisos_no_retribuidos_usados = ?,
			version = version + 1,
			updated_at = ?
		WHERE user_id = ? AND year = ? AND version = ?
	`,
		vac.Total.String(), vac.Used.String(),
		paid.Total.String(), paid.Used.String(),
		unpaid.Total.String(), unpaid.Used.String(),
		formatTime(b.UpdatedAt),
		b.UserID, b.Year, b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n == 0 {
		return generic.ErrConcurrentModification
	}
	b.Version++
	return nil
}

func scanBalance(row scanner) (*vacation.Balance, error) {
	var (
		b                       vacation.Balance
		vacTotal, vacUsed       string
		paidTotal, paidUsed     string
		unpaidTotal, unpaidUsed string
		createdAt, updatedAt    string
	)
	err := row.Scan(
		&b.UserID, &b.Year,
		&vacTotal, &vacUsed,
		&paidTotal, &paidUsed,
		&unpaidTotal, &unpaidUsed,
		&b.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	var dec columnDecoder
	b.Buckets = map[vacation.Category]vacation.Bucket{
		vacation.CategoryVacation:    {Total: dec.days("vacaciones_total", vacTotal), Used: dec.days("vacaciones_usados", vacUsed)},
		vacation.CategoryPaidLeave:   {Total: dec.days("permisos_retribuidos_total", paidTotal), Used: dec.days("permisos_retribuidos_usados", paidUsed)},
		vacation.CategoryUnpaidLeave: {Total: dec.days("permisos_no_retribuidos_total", unpaidTotal), Used: dec.days("permisos_no_retribuidos_usados", unpaidUsed)},
	}
	if dec.err != nil {
		return nil, fmt.Errorf("balance %s/%d: %w", b.UserID, b.Year, dec.err)
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

const requestColumns = `id, user_id, type, date_from, date_to, days_count, status,
	comment_user, comment_admin, admin_id, created_at, updated_at`

func (q queries) getRequest(ctx context.Context, id string) (*vacation.Request, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM vacation_requests WHERE id = ?", id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return r, nil
}

func (q queries) listRequests(ctx context.Context, f vacation.RequestFilter) ([]vacation.Request, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Category != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Category))
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN (?"+strings.Repeat(", ?", len(f.Statuses)-1)+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	if f.Overlapping != nil {
		where = append(where, "date_from <= ? AND date_to >= ?")
		args = append(args, f.Overlapping.End.String(), f.Overlapping.Start.String())
	}

	query := "SELECT " + requestColumns + " FROM vacation_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date_from ASC, created_at ASC, id ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []vacation.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func (q queries) insertRequest(ctx context.Context, r vacation.Request) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO vacation_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.UserID, string(r.Category), r.DateFrom.String(), r.DateTo.String(),
		r.DayCount.String(), string(r.Status),
		nullString(r.UserComment), nullString(r.AdminComment), nullString(r.AdminID),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

func (q queries) updateRequest(ctx context.Context, r vacation.Request) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE vacation_requests SET
			status = ?, comment_admin = ?, admin_id = ?, updated_at = ?
		WHERE id = ?
	`,
		string(r.Status), nullString(r.AdminComment), nullString(r.AdminID), formatTime(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Resource: "request", ID: r.ID}
	}
	return nil
}

func scanRequest(row scanner) (*vacation.Request, error) {
	var (
		r                                  vacation.Request
		category, status                   string
		dateFrom, dateTo, dayCount         string
		commentUser, commentAdmin, adminID sql.NullString
		createdAt, updatedAt               string
	)
	err := row.Scan(
		&r.ID, &r.UserID, &category, &dateFrom, &dateTo, &dayCount, &status,
		&commentUser, &commentAdmin, &adminID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Category = vacation.Category(category)
	r.Status = vacation.Status(status)
	var dec columnDecoder
	r.DateFrom = dec.date("date_from", dateFrom)
	r.DateTo = dec.date("date_to", dateTo)
	r.DayCount = dec.days("days_count", dayCount)
	if dec.err != nil {
		return nil, fmt.Errorf("request %s: %w", r.ID, dec.err)
	}
	r.UserComment = commentUser.String
	r.AdminComment = commentAdmin.String
	r.AdminID = adminID.String
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func (q queries) getActivePolicy(ctx context.Context) (*vacation.Policy, error) {
	var (
		p         vacation.Policy
		updatedAt string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT id, max_approved_per_day, count_holidays, count_weekends, active, updated_at
		FROM vacation_policies
		WHERE active = 1
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&p.ID, &p.MaxApprovedPerDay, &p.CountHolidays, &p.CountWeekends, &p.Active, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (q queries) savePolicy(ctx context.Context, p vacation.Policy) error {
	if p.Active {
		if _, err := q.db.ExecContext(ctx,
			"UPDATE vacation_policies SET active = 0 WHERE id != ?", p.ID); err != nil {
			return fmt.Errorf("failed to deactivate policies: %w", err)
		}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO vacation_policies (id, max_approved_per_day, count_holidays, count_weekends, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			max_approved_per_day = excluded.max_approved_per_day,
			count_holidays = excluded.count_holidays,
			count_weekends = excluded.count_weekends,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, p.ID, p.MaxApprovedPerDay, p.CountHolidays, p.CountWeekends, p.Active, formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (q queries) listBlockedDates(ctx context.Context, within *generic.Period) ([]vacation.BlockedDate, error) {
	query := "SELECT id, date_from, date_to, reason, created_at FROM blocked_dates"
	var args []any
	if within != nil {
		query += " WHERE date_from <= ? AND date_to >= ?"
		args = append(args, within.End.String(), within.Start.String())
	}
	query += " ORDER BY date_from ASC, id ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked dates: %w", err)
	}
	defer rows.Close()

	var dates []vacation.BlockedDate
	for rows.Next() {
		var (
			d                   vacation.BlockedDate
			from, to, createdAt string
			reason              sql.NullString
		)
		if err := rows.Scan(&d.ID, &from, &to, &reason, &createdAt); err != nil {
			return nil, err
		}
		var dec columnDecoder
		d.DateFrom = dec.date("date_from", from)
		d.DateTo = dec.date("date_to", to)
		if dec.err != nil {
			return nil, fmt.Errorf("blocked date %s: %w", d.ID, dec.err)
		}
		d.Reason = reason.String
		d.CreatedAt = parseTime(createdAt)
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (q queries) saveBlockedDate(ctx context.Context, d vacation.BlockedDate) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO blocked_dates (id, date_from, date_to, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date_from = excluded.date_from,
			date_to = excluded.date_to,
			reason = excluded.reason
	`, d.ID, d.DateFrom.String(), d.DateTo.String(), nullString(d.Reason), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save blocked date: %w", err)
	}
	return nil
}

func (q queries) deleteBlockedDate(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM blocked_dates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete blocked date: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Resource: "blocked_date", ID: id}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// columnDecoder parses TEXT columns and keeps the first failure, so a
// corrupt value is reported instead of read as zero.
type columnDecoder struct {
	err error
}

func (d *columnDecoder) days(column, s string) generic.Amount {
	a, err := generic.ParseDays(s)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("corrupt %s %q: %w", column, s, err)
	}
	return a
}

func (d *columnDecoder) date(column, s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("corrupt %s: %w", column, err)
	}
	return tp
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
