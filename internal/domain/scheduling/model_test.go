package scheduling

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

func TestStatus_Transitions(t *testing.T) {
	all := []Status{StatusPending, StatusBooked, StatusCancelled, StatusCompleted}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusBooked}:    true,
		{StatusPending, StatusCancelled}: true,
		{StatusBooked, StatusCancelled}:  true,
		{StatusBooked, StatusCompleted}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
			err := checkTransition(from, to)
			if want && err != nil {
				t.Errorf("%s -> %s: unexpected error %v", from, to, err)
			}
			if !want && !errors.Is(err, clinic.ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusPending.IsTerminal() || StatusBooked.IsTerminal() {
		t.Error("Pending and Booked must not be terminal")
	}
	if !StatusCancelled.IsTerminal() || !StatusCompleted.IsTerminal() {
		t.Error("Cancelled and Completed must be terminal")
	}
}

func TestParseStatus(t *testing.T) {
	if st, err := ParseStatus("Booked"); err != nil || st != StatusBooked {
		t.Errorf("ParseStatus(Booked) = %q, %v", st, err)
	}
	for _, s := range []string{"", "booked", "Confirmed"} {
		if _, err := ParseStatus(s); !errors.Is(err, clinic.ErrInvalidInput) {
			t.Errorf("ParseStatus(%q): expected ErrInvalidInput, got %v", s, err)
		}
	}
}

func TestAppointmentFilter_Match(t *testing.T) {
	doc, pat := uuid.New(), uuid.New()
	a := &Appointment{
		DoctorID:  doc,
		PatientID: pat,
		Date:      clinic.MustParseDate("2024-06-10"),
		Status:    StatusPending,
	}
	cases := []struct {
		name string
		f    AppointmentFilter
		want bool
	}{
		{"empty", AppointmentFilter{}, true},
		{"doctor", AppointmentFilter{DoctorID: doc}, true},
		{"other doctor", AppointmentFilter{DoctorID: uuid.New()}, false},
		{"other patient", AppointmentFilter{PatientID: uuid.New()}, false},
		{"status", AppointmentFilter{Statuses: []Status{StatusBooked, StatusPending}}, true},
		{"wrong status", AppointmentFilter{Statuses: []Status{StatusBooked}}, false},
		{"from inclusive", AppointmentFilter{From: a.Date}, true},
		{"to inclusive", AppointmentFilter{To: a.Date}, true},
		{"after range", AppointmentFilter{To: a.Date.AddDays(-1)}, false},
		{"before range", AppointmentFilter{From: a.Date.AddDays(1)}, false},
	}
	for _, tc := range cases {
		if got := tc.f.Match(a); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAppointmentFilter_Validate(t *testing.T) {
	d := clinic.MustParseDate("2024-06-10")
	if err := (AppointmentFilter{From: d, To: d.AddDays(-1)}).validate(); !errors.Is(err, clinic.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for inverted range, got %v", err)
	}
	if err := (AppointmentFilter{Statuses: []Status{"Lost"}}).validate(); !errors.Is(err, clinic.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestSlotKey(t *testing.T) {
	doc := uuid.MustParse("7d1f6c3e-9b1a-4c59-8a55-0d7e2b7c1a10")
	got := SlotKey(doc, clinic.MustParseDate("2024-06-10"), clinic.MustParseClock("10:00"))
	want := "slot:7d1f6c3e-9b1a-4c59-8a55-0d7e2b7c1a10:2024-06-10:10:00"
	if got != want {
		t.Errorf("SlotKey = %q, want %q", got, want)
	}
}
