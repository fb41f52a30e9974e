/*
Package postgres provides a PostgreSQL implementation of the vacation store.

PURPOSE:
  Same contract as store/sqlite, backed by gorm. Selected with
  DB_DRIVER=postgres and DATABASE_URL.

TRANSACTIONS:
  WithTx runs fn inside db.Transaction with a Store bound to the tx.
  Inside a transaction, balance and request reads take a row lock
  (SELECT ... FOR UPDATE) so the read-modify-write of "used" is
  serialized at the database.

OPTIMISTIC LOCKING:
  Balance updates are conditional on the version column, exactly as in
  SQLite. Row locks make lost races rare; the version check catches the
  writers that read outside a transaction.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db   *gorm.DB
	inTx bool
}

// New connects to dsn and migrates the schema.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewFromDB(db)
}

// NewFromDB wraps an existing gorm connection and migrates the schema.
func NewFromDB(db *gorm.DB) (*Store, error) {
	err := db.AutoMigrate(
		&balanceRow{},
		&requestRow{},
		&policyRow{},
		&blockedDateRow{},
		&profileRow{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// forUpdate adds a row lock when running inside WithTx.
func (s *Store) forUpdate(ctx context.Context) *gorm.DB {
	if s.inTx {
		return s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return s.conn(ctx)
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(vacation.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, userID string, year int) (*vacation.Balance, error) {
	var row balanceRow
	err := s.forUpdate(ctx).Where("user_id = ? AND year = ?", userID, year).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListBalances(ctx context.Context, year int) ([]vacation.Balance, error) {
	var rows []balanceRow
	if err := s.conn(ctx).Where("year = ?", year).Order("user_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]vacation.Balance, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.toDomain())
	}
	return out, nil
}

func (s *Store) SaveBalance(ctx context.Context, b *vacation.Balance) error {
	row := toBalanceRow(b)

	if b.Version == 0 {
		row.Version = 1
		err := s.conn(ctx).Create(&row).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return generic.ErrConcurrentModification
		}
		if err != nil {
			return err
		}
		b.Version = 1
		return nil
	}

	res := s.conn(ctx).Model(&balanceRow{}).
		Where("user_id = ? AND year = ? AND version = ?", b.UserID, b.Year, b.Version).
		Updates(map[string]any{
			"vacaciones_total":               row.VacacionesTotal,
			"vacaciones_usados":              row.VacacionesUsados,
			"permisos_retribuidos_total":     row.PermisosRetribuidosTotal,
			"permisos_retribuidos_usados":    row.PermisosRetribuidosUsados,
			"permisos_no_retribuidos_total":  row.PermisosNoRetribuidosTotal,
			"permisos_no_retribuidos_usados": row.PermisosNoRetribuidosUsados,
			"version":                        gorm.Expr("version + 1"),
			"updated_at":                     b.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return generic.ErrConcurrentModification
	}
	b.Version++
	return nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) GetRequest(ctx context.Context, id string) (*vacation.Request, error) {
	var row requestRow
	err := s.forUpdate(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r := row.toDomain()
	return &r, nil
}

func (s *Store) ListRequests(ctx context.Context, f vacation.RequestFilter) ([]vacation.Request, error) {
	q := s.conn(ctx).Model(&requestRow{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Category != "" {
		q = q.Where("type = ?", string(f.Category))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.Overlapping != nil {
		q = q.Where("date_from <= ? AND date_to >= ?", f.Overlapping.End.Time, f.Overlapping.Start.Time)
	}

	var rows []requestRow
	if err := q.Order("date_from ASC, created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]vacation.Request, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) InsertRequest(ctx context.Context, r vacation.Request) error {
	row := toRequestRow(r)
	return s.conn(ctx).Create(&row).Error
}

func (s *Store) UpdateRequest(ctx context.Context, r vacation.Request) error {
	res := s.conn(ctx).Model(&requestRow{}).Where("id = ?", r.ID).Updates(map[string]any{
		"status":        string(r.Status),
		"comment_admin": r.AdminComment,
		"admin_id":      r.AdminID,
		"updated_at":    r.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &generic.NotFoundError{Resource: "request", ID: r.ID}
	}
	return nil
}

// =============================================================================
// POLICY
// =============================================================================

func (s *Store) GetActivePolicy(ctx context.Context) (*vacation.Policy, error) {
	var row policyRow
	err := s.conn(ctx).Where("active = ?", true).Order("updated_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// SavePolicy upserts p and, when p is active, deactivates every other row.
func (s *Store) SavePolicy(ctx context.Context, p vacation.Policy) error {
	return s.WithTx(ctx, func(tx vacation.Store) error {
		db := tx.(*Store).conn(ctx)
		if p.Active {
			if err := db.Model(&policyRow{}).Where("id <> ?", p.ID).Update("active", false).Error; err != nil {
				return err
			}
		}
		row := policyRow{
			ID:                p.ID,
			MaxApprovedPerDay: p.MaxApprovedPerDay,
			CountHolidays:     p.CountHolidays,
			CountWeekends:     p.CountWeekends,
			Active:            p.Active,
			UpdatedAt:         p.UpdatedAt,
		}
		return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	})
}

// =============================================================================
// BLOCKED DATES
// =============================================================================

func (s *Store) ListBlockedDates(ctx context.Context, within *generic.Period) ([]vacation.BlockedDate, error) {
	q := s.conn(ctx).Model(&blockedDateRow{})
	if within != nil {
		q = q.Where("date_from <= ? AND date_to >= ?", within.End.Time, within.Start.Time)
	}
	var rows []blockedDateRow
	if err := q.Order("date_from ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]vacation.BlockedDate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) SaveBlockedDate(ctx context.Context, d vacation.BlockedDate) error {
	row := blockedDateRow{
		ID:        d.ID,
		DateFrom:  d.DateFrom.Time,
		DateTo:    d.DateTo.Time,
		Reason:    d.Reason,
		CreatedAt: d.CreatedAt,
	}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"date_from", "date_to", "reason"}),
	}).Create(&row).Error
}

func (s *Store) DeleteBlockedDate(ctx context.Context, id string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&blockedDateRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &generic.NotFoundError{Resource: "blocked_date", ID: id}
	}
	return nil
}

// =============================================================================
// PROFILES (vacation.Directory)
// =============================================================================

func (s *Store) SaveProfile(ctx context.Context, p vacation.Profile) error {
	row := profileRow{ID: p.UserID, DisplayName: p.DisplayName, Role: string(p.Role)}
	return s.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*vacation.Profile, error) {
	var row profileRow
	err := s.conn(ctx).Where("id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vacation.Profile{UserID: row.ID, DisplayName: row.DisplayName, Role: vacation.Role(row.Role)}, nil
}
