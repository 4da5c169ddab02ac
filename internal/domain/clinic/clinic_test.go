package clinic

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 2024 || d.Month != time.June || d.Day != 10 {
		t.Errorf("unexpected date: %+v", d)
	}
	if d.String() != "2024-06-10" {
		t.Errorf("expected 2024-06-10, got %s", d.String())
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, s := range []string{"", "10/06/2024", "2024-13-01", "2024-02-30"} {
		if _, err := ParseDate(s); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseDate(%q): expected ErrInvalidInput, got %v", s, err)
		}
	}
}

func TestDate_CompareAndAddDays(t *testing.T) {
	a := MustParseDate("2024-06-10")
	b := MustParseDate("2024-06-17")
	if !a.Before(b) || b.Before(a) || !b.After(a) {
		t.Error("expected 2024-06-10 before 2024-06-17")
	}
	if a.Compare(a) != 0 {
		t.Error("expected date to compare equal to itself")
	}
	if got := a.AddDays(7); got != b {
		t.Errorf("expected %s, got %s", b, got)
	}
	if got := MustParseDate("2024-12-31").AddDays(1); got.String() != "2025-01-01" {
		t.Errorf("expected year rollover, got %s", got)
	}
}

func TestDate_JSON(t *testing.T) {
	var v struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2024-06-10"}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"date":"2024-06-10"}` {
		t.Errorf("unexpected JSON: %s", out)
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]string{
		"09:00":    "09:00",
		"23:59":    "23:59",
		"10:30:00": "10:30",
		" 7:05":    "07:05",
	}
	for in, want := range cases {
		c, err := ParseClock(in)
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error: %v", in, err)
			continue
		}
		if c.String() != want {
			t.Errorf("ParseClock(%q) = %s, want %s", in, c, want)
		}
	}
}

func TestParseClock_Invalid(t *testing.T) {
	for _, s := range []string{"", "24:00", "9am", "12:60", "10:00:30", "12:00:59"} {
		if _, err := ParseClock(s); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseClock(%q): expected ErrInvalidInput, got %v", s, err)
		}
	}
}

func TestClock_Microseconds(t *testing.T) {
	c := MustParseClock("10:15")
	if got := ClockFromMicroseconds(c.Microseconds()); got != c {
		t.Errorf("expected %s, got %s", c, got)
	}
	if MustParseClock("09:00") >= MustParseClock("12:00") {
		t.Error("expected 09:00 < 12:00")
	}
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{"admin": RoleAdmin, "Doctor": RoleDoctor, "PATIENT": RolePatient} {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRole("nurse"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestActor(t *testing.T) {
	id := uuid.New()
	a := Actor{ID: id, Role: RoleDoctor}
	if !a.Is(RoleDoctor, id) || a.Is(RolePatient, id) || a.Is(RoleDoctor, uuid.New()) {
		t.Error("unexpected Is result")
	}
	if a.IsAdmin() {
		t.Error("doctor must not be admin")
	}
	if err := a.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Actor{Role: RoleAdmin}).Validate(); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for anonymous actor, got %v", err)
	}
}

func TestHTTPError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", ErrForbidden), http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrNoAvailability, http.StatusConflict},
		{ErrSlotTaken, http.StatusConflict},
		{ErrInvalidTransition, http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPError(tc.err).Code; got != tc.code {
			t.Errorf("HTTPError(%v) = %d, want %d", tc.err, got, tc.code)
		}
	}
	if IsDomainError(errors.New("boom")) {
		t.Error("plain error must not be a domain error")
	}
	if !IsDomainError(fmt.Errorf("x: %w", ErrSlotTaken)) {
		t.Error("wrapped ErrSlotTaken must be a domain error")
	}
}
