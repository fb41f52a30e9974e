package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

// balanceRow maps the balances table. Column names follow the
// {prefix}_total / {prefix}_usados convention shared with SQLite.
type balanceRow struct {
	UserID                      string          `gorm:"type:varchar(64);primaryKey"`
	Year                        int             `gorm:"primaryKey;autoIncrement:false;index"`
	VacacionesTotal             decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	VacacionesUsados            decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	PermisosRetribuidosTotal    decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	PermisosRetribuidosUsados   decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	PermisosNoRetribuidosTotal  decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	PermisosNoRetribuidosUsados decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Version                     int64           `gorm:"not null;default:1"`
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

func (balanceRow) TableName() string { return "balances" }

func toBalanceRow(b *vacation.Balance) balanceRow {
	vac := b.Bucket(vacation.CategoryVacation)
	paid := b.Bucket(vacation.CategoryPaidLeave)
	unpaid := b.Bucket(vacation.CategoryUnpaidLeave)
	return balanceRow{
		UserID:                      b.UserID,
		Year:                        b.Year,
		VacacionesTotal:             vac.Total.Value,
		VacacionesUsados:            vac.Used.Value,
		PermisosRetribuidosTotal:    paid.Total.Value,
		PermisosRetribuidosUsados:   paid.Used.Value,
		PermisosNoRetribuidosTotal:  unpaid.Total.Value,
		PermisosNoRetribuidosUsados: unpaid.Used.Value,
		Version:                     b.Version,
		CreatedAt:                   b.CreatedAt,
		UpdatedAt:                   b.UpdatedAt,
	}
}

func (r balanceRow) toDomain() *vacation.Balance {
	return &vacation.Balance{
		UserID: r.UserID,
		Year:   r.Year,
		Buckets: map[vacation.Category]vacation.Bucket{
			vacation.CategoryVacation: {
				Total: generic.DaysFromDecimal(r.VacacionesTotal),
				Used:  generic.DaysFromDecimal(r.VacacionesUsados),
			},
			vacation.CategoryPaidLeave: {
				Total: generic.DaysFromDecimal(r.PermisosRetribuidosTotal),
				Used:  generic.DaysFromDecimal(r.PermisosRetribuidosUsados),
			},
			vacation.CategoryUnpaidLeave: {
				Total: generic.DaysFromDecimal(r.PermisosNoRetribuidosTotal),
				Used:  generic.DaysFromDecimal(r.PermisosNoRetribuidosUsados),
			},
		},
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type requestRow struct {
	ID           string          `gorm:"type:varchar(64);primaryKey"`
	UserID       string          `gorm:"type:varchar(64);not null;index:idx_vacation_requests_user_status"`
	Type         string          `gorm:"type:varchar(20);not null"`
	DateFrom     time.Time       `gorm:"type:date;not null;index:idx_vacation_requests_range"`
	DateTo       time.Time       `gorm:"type:date;not null;index:idx_vacation_requests_range"`
	DaysCount    decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	Status       string          `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_vacation_requests_user_status"`
	CommentUser  string          `gorm:"type:text"`
	CommentAdmin string          `gorm:"type:text"`
	AdminID      string          `gorm:"type:varchar(64)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (requestRow) TableName() string { return "vacation_requests" }

func toRequestRow(r vacation.Request) requestRow {
	return requestRow{
		ID:           r.ID,
		UserID:       r.UserID,
		Type:         string(r.Category),
		DateFrom:     r.DateFrom.Time,
		DateTo:       r.DateTo.Time,
		DaysCount:    r.DayCount.Value,
		Status:       string(r.Status),
		CommentUser:  r.UserComment,
		CommentAdmin: r.AdminComment,
		AdminID:      r.AdminID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r requestRow) toDomain() vacation.Request {
	return vacation.Request{
		ID:           r.ID,
		UserID:       r.UserID,
		Category:     vacation.Category(r.Type),
		DateFrom:     generic.FromTime(r.DateFrom),
		DateTo:       generic.FromTime(r.DateTo),
		DayCount:     generic.DaysFromDecimal(r.DaysCount),
		Status:       vacation.Status(r.Status),
		UserComment:  r.CommentUser,
		AdminComment: r.CommentAdmin,
		AdminID:      r.AdminID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type policyRow struct {
	ID                string `gorm:"type:varchar(64);primaryKey"`
	MaxApprovedPerDay int    `gorm:"not null;default:1"`
	CountHolidays     bool   `gorm:"not null;default:false"`
	CountWeekends     bool   `gorm:"not null;default:false"`
	Active            bool   `gorm:"not null;default:true;index"`
	UpdatedAt         time.Time
}

func (policyRow) TableName() string { return "vacation_policies" }

func (r policyRow) toDomain() *vacation.Policy {
	return &vacation.Policy{
		ID:                r.ID,
		MaxApprovedPerDay: r.MaxApprovedPerDay,
		CountHolidays:     r.CountHolidays,
		CountWeekends:     r.CountWeekends,
		Active:            r.Active,
		UpdatedAt:         r.UpdatedAt,
	}
}

type blockedDateRow struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	DateFrom  time.Time `gorm:"type:date;not null;index"`
	DateTo    time.Time `gorm:"type:date;not null"`
	Reason    string    `gorm:"type:text"`
	CreatedAt time.Time
}

func (blockedDateRow) TableName() string { return "blocked_dates" }

func (r blockedDateRow) toDomain() vacation.BlockedDate {
	return vacation.BlockedDate{
		ID:        r.ID,
		DateFrom:  generic.FromTime(r.DateFrom),
		DateTo:    generic.FromTime(r.DateTo),
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}
}

type profileRow struct {
	ID          string `gorm:"type:varchar(64);primaryKey"`
	DisplayName string `gorm:"type:varchar(255)"`
	Role        string `gorm:"type:varchar(20);not null;default:'employee'"`
}

func (profileRow) TableName() string { return "profiles" }
