package vacation

import (
	"context"

	"github.com/warp/vacation-ledger/generic"
)

// =============================================================================
// CALENDAR - Team availability per day
// =============================================================================

type Color string

const (
	ColorRed   Color = "red"   // blocked, or approved count reached capacity
	ColorAmber Color = "amber" // some approved absences, below capacity
	ColorGreen Color = "green" // nobody off, not blocked
)

type CalendarDay struct {
	Date   generic.TimePoint
	Color  Color
	Count  int
	Reason string // blocked-date reason, if any
}

// GetCalendar classifies every day of month ("YYYY-MM") by the number of
// APPROVED requests covering it (any user, any category) and by blocked
// dates. The result is keyed by "YYYY-MM-DD".
func (l *Ledger) GetCalendar(ctx context.Context, month string) (map[string]CalendarDay, error) {
	first, err := generic.ParseMonth(month)
	if err != nil {
		return nil, &generic.ValidationError{Field: "month", Reason: "must be formatted YYYY-MM"}
	}
	period := generic.MonthPeriod(first)

	policy, err := activePolicy(ctx, l.store)
	if err != nil {
		return nil, err
	}
	approved, err := l.store.ListRequests(ctx, RequestFilter{
		Statuses:    []Status{StatusApproved},
		Overlapping: &period,
	})
	if err != nil {
		return nil, generic.Upstream("list approved requests", err)
	}
	blocked, err := l.store.ListBlockedDates(ctx, &period)
	if err != nil {
		return nil, generic.Upstream("list blocked dates", err)
	}

	capacity := policy.Capacity()
	days := make(map[string]CalendarDay, len(period.Days()))
	for _, day := range period.Days() {
		cd := CalendarDay{Date: day}
		for _, r := range approved {
			if r.Period().Contains(day) {
				cd.Count++
			}
		}
		isBlocked := false
		for _, b := range blocked {
			if b.Period().Contains(day) {
				isBlocked = true
				cd.Reason = b.Reason
				break
			}
		}
		cd.Color = classify(cd.Count, capacity, isBlocked)
		days[day.String()] = cd
	}
	return days, nil
}

func classify(count, capacity int, blocked bool) Color {
	switch {
	case blocked || count >= capacity:
		return ColorRed
	case count > 0:
		return ColorAmber
	default:
		return ColorGreen
	}
}
