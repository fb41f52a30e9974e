package generic_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/warp/vacation-ledger/generic"
)

// =============================================================================
// AMOUNT
// =============================================================================

func TestAmount_HalfDaysAreExact(t *testing.T) {
	half := generic.MustParseDays("0.5")
	total := generic.Sum(half, half, generic.Days(2))

	if !total.Equal(generic.Days(3)) {
		t.Errorf("0.5 + 0.5 + 2 = %s, want 3", total)
	}
}

func TestAmount_ClampZero(t *testing.T) {
	got := generic.Days(2).Sub(generic.Days(5)).ClampZero()
	if !got.IsZero() {
		t.Errorf("clamped = %s, want 0", got)
	}
	if got := generic.Days(4).ClampZero(); !got.Equal(generic.Days(4)) {
		t.Errorf("positive clamp = %s, want 4", got)
	}
}

func TestAmount_JSONAcceptsNumbersAndStrings(t *testing.T) {
	var a, b generic.Amount
	if err := json.Unmarshal([]byte(`1.5`), &a); err != nil {
		t.Fatalf("number: %v", err)
	}
	if err := json.Unmarshal([]byte(`"1.5"`), &b); err != nil {
		t.Fatalf("string: %v", err)
	}
	if !a.Equal(b) {
		t.Errorf("%s != %s", a, b)
	}

	out, _ := json.Marshal(a)
	if string(out) != "1.5" {
		t.Errorf("marshal = %s, want 1.5", out)
	}
}

// =============================================================================
// PERIOD
// =============================================================================

func day(s string) generic.TimePoint {
	tp, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

func TestPeriod_Overlaps(t *testing.T) {
	existing := generic.Period{Start: day("2025-06-01"), End: day("2025-06-05")}

	tests := []struct {
		name string
		p    generic.Period
		want bool
	}{
		{"inside", generic.Period{Start: day("2025-06-02"), End: day("2025-06-03")}, true},
		{"tail overlap", generic.Period{Start: day("2025-06-03"), End: day("2025-06-10")}, true},
		{"touching end", generic.Period{Start: day("2025-06-05"), End: day("2025-06-06")}, true},
		{"touching start", generic.Period{Start: day("2025-05-25"), End: day("2025-06-01")}, true},
		{"covering", generic.Period{Start: day("2025-05-01"), End: day("2025-07-01")}, true},
		{"after", generic.Period{Start: day("2025-06-06"), End: day("2025-06-10")}, false},
		{"before", generic.Period{Start: day("2025-05-01"), End: day("2025-05-31")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := existing.Overlaps(tt.p); got != tt.want {
				t.Errorf("Overlaps(%s) = %v, want %v", tt.p, got, tt.want)
			}
			if got := tt.p.Overlaps(existing); got != tt.want {
				t.Errorf("overlap must be symmetric for %s", tt.p)
			}
		})
	}
}

func TestPeriod_DaysAndValidate(t *testing.T) {
	p := generic.MonthPeriod(generic.NewTimePoint(2024, time.February, 10))
	if n := len(p.Days()); n != 29 {
		t.Errorf("February 2024 has %d days, want 29", n)
	}

	_, err := generic.NewPeriod(day("2025-06-05"), day("2025-06-01"))
	if !errors.Is(err, generic.ErrInvalidPeriod) {
		t.Errorf("reversed period: got %v, want ErrInvalidPeriod", err)
	}
}

func TestParseMonth(t *testing.T) {
	tp, err := generic.ParseMonth("2025-06")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if tp.String() != "2025-06-01" {
		t.Errorf("got %s, want 2025-06-01", tp)
	}
	if _, err := generic.ParseMonth("June"); err == nil {
		t.Error("expected error for malformed month")
	}
}

// =============================================================================
// ERRORS
// =============================================================================

func TestErrors_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		client    bool
		notFound  bool
		retryable bool
	}{
		{"validation", &generic.ValidationError{Field: "day_count", Reason: "must be positive"}, true, false, false},
		{"conflict", &generic.ConflictError{ExistingID: "r1"}, true, false, false},
		{"insufficient", &generic.InsufficientBalanceError{Remaining: generic.Days(2)}, true, false, false},
		{"not found", &generic.NotFoundError{Resource: "request", ID: "x"}, false, true, false},
		{"forbidden", &generic.ForbiddenError{UserID: "u", Role: "employee"}, false, false, false},
		{"upstream cas", &generic.UpstreamError{Op: "save balance", Err: generic.ErrConcurrentModification}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if got := generic.IsClientError(wrapped); got != tt.client {
				t.Errorf("IsClientError = %v, want %v", got, tt.client)
			}
			if got := generic.IsNotFound(wrapped); got != tt.notFound {
				t.Errorf("IsNotFound = %v, want %v", got, tt.notFound)
			}
			if got := generic.IsRetryable(wrapped); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestInsufficientBalanceError_CitesRemainingDays(t *testing.T) {
	err := &generic.InsufficientBalanceError{
		Category:  "VACATION",
		Available: generic.Days(2),
		Remaining: generic.Days(2),
		Requested: generic.Days(5),
	}
	want := "insufficient balance: only 2 days remaining for VACATION, requested 5"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestUpstream_PassesDomainErrorsThrough(t *testing.T) {
	conflict := &generic.ConflictError{ExistingID: "r1"}
	if got := generic.Upstream("insert", conflict); got != conflict {
		t.Errorf("domain error was rewrapped: %v", got)
	}

	cause := errors.New("disk full")
	got := generic.Upstream("insert", cause)
	if !errors.Is(got, generic.ErrUpstream) || !errors.Is(got, cause) {
		t.Errorf("infrastructure error not wrapped as upstream: %v", got)
	}
	if generic.Upstream("noop", nil) != nil {
		t.Error("nil must stay nil")
	}
}
