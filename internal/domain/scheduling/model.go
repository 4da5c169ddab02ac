package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

// AgendaDays is how far ahead DoctorAgenda looks, today included.
const AgendaDays = 7

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusBooked    Status = "Booked"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

// transitions lists every legal move. Cancelled and Completed are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusBooked, StatusCancelled},
	StatusBooked:  {StatusCancelled, StatusCompleted},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", clinic.ErrInvalidInput, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusBooked, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition returns clinic.ErrInvalidTransition for an illegal move.
func checkTransition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", clinic.ErrInvalidTransition, from, to)
	}
	return nil
}

// Appointment is one scheduling request between a patient and a doctor.
type Appointment struct {
	ID        uuid.UUID    `json:"id"`
	PatientID uuid.UUID    `json:"patient_id"`
	DoctorID  uuid.UUID    `json:"doctor_id"`
	Date      clinic.Date  `json:"date"`
	Time      clinic.Clock `json:"time"`
	Reason    string       `json:"reason"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Treatment is the clinical outcome recorded when an appointment completes.
type Treatment struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Diagnosis     string    `json:"diagnosis"`
	Prescription  string    `json:"prescription"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      clinic.Date
	Time      clinic.Clock
	Reason    string
}

type TreatmentInput struct {
	Diagnosis    string
	Prescription string
	Notes        string
}

// AppointmentFilter narrows an appointment search. Zero fields match
// everything; From and To are inclusive.
type AppointmentFilter struct {
	DoctorID   uuid.UUID
	PatientID  uuid.UUID
	Statuses   []Status
	From       clinic.Date
	To         clinic.Date
	Descending bool
}

// Match reports whether a satisfies the filter.
func (f AppointmentFilter) Match(a *Appointment) bool {
	if f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	if !f.From.IsZero() && a.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.Date.After(f.To) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if a.Status == s {
			return true
		}
	}
	return false
}

func (f AppointmentFilter) validate() error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown status %q", clinic.ErrInvalidInput, s)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return fmt.Errorf("%w: from must not be after to", clinic.ErrInvalidInput)
	}
	return nil
}

// Less orders appointments by date then time, the way every listing
// presents them.
func Less(a, b *Appointment) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c < 0
	}
	return a.Time < b.Time
}

// PatientAppointments splits a patient's appointments the way the patient
// dashboard shows them.
type PatientAppointments struct {
	Upcoming []*Appointment `json:"upcoming"`
	Past     []*Appointment `json:"past"`
}

// HistoryEntry is a completed appointment with its treatment.
type HistoryEntry struct {
	Appointment *Appointment `json:"appointment"`
	Treatment   *Treatment   `json:"treatment"`
}

type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}

// SlotKey names the lock serialising work on one doctor/date/time.
func SlotKey(doctorID uuid.UUID, date clinic.Date, t clinic.Clock) string {
	return fmt.Sprintf("slot:%s:%s:%s", doctorID, date, t)
}
