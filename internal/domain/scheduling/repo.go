package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/Soumo31428/HospitalManagement/internal/domain/availability"
	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	// GetByID returns clinic.ErrNotFound for an unknown id.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateStatus moves a from its current status to the given one only if
	// the stored status still equals a.Status; otherwise it returns
	// clinic.ErrInvalidTransition. On success a is updated in place.
	UpdateStatus(ctx context.Context, a *Appointment, to Status) error
	// FindBooked returns the Booked appointment holding the slot, or
	// clinic.ErrNotFound.
	FindBooked(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock) (*Appointment, error)
	// LockSlot serialises transactions working on one slot. It must be
	// called inside Transactor.WithinTx.
	LockSlot(ctx context.Context, key string) error
	Search(ctx context.Context, f AppointmentFilter) ([]*Appointment, error)
	ListPatientsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
	// List returns all appointments, newest date first, and the total count.
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type TreatmentRepository interface {
	// Create returns clinic.ErrInvalidTransition when the appointment
	// already has a treatment.
	Create(ctx context.Context, t *Treatment) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error)
	ListByAppointments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]*Treatment, error)
}

// Transactor runs fn as one atomic unit; repositories called with the ctx
// passed to fn take part in it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SlotLocker provides mutual exclusion per slot key across callers.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// WindowFinder is the part of the availability ledger bookings consult.
type WindowFinder interface {
	FindCoveringWindow(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock) (*availability.Window, error)
}
