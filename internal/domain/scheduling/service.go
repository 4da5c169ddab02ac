package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

// Service is the appointment scheduler.
type Service struct {
	ledger       WindowFinder
	appointments AppointmentRepository
	treatments   TreatmentRepository
	tx           Transactor
	locker       SlotLocker
	logger       zerolog.Logger
}

func NewService(ledger WindowFinder, appts AppointmentRepository, treatments TreatmentRepository,
	tx Transactor, locker SlotLocker, logger zerolog.Logger) *Service {
	return &Service{
		ledger:       ledger,
		appointments: appts,
		treatments:   treatments,
		tx:           tx,
		locker:       locker,
		logger:       logger.With().Str("component", "scheduling").Logger(),
	}
}

// withSlot runs fn atomically while holding the slot's lock: first the
// locker (shared by every replica), then the transaction's own slot lock.
func (s *Service) withSlot(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.appointments.LockSlot(ctx, key); err != nil {
			return err
		}
		return fn(ctx)
	})
}

// -- Commands --

// Book requests the slot for the patient. The covering-window check runs
// before the double-booking check, so a doctor who is not available is
// reported as such even when the slot is also taken.
func (s *Service) Book(ctx context.Context, actor clinic.Actor, req BookingRequest) (*Appointment, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Is(clinic.RolePatient, req.PatientID) {
		return nil, fmt.Errorf("%w: patients may only book for themselves", clinic.ErrForbidden)
	}
	if err := validateBooking(req); err != nil {
		return nil, err
	}

	log := s.logger.With().
		Str("actor", actor.String()).
		Str("doctor_id", req.DoctorID.String()).
		Str("date", req.Date.String()).
		Str("time", req.Time.String()).
		Logger()

	var appt *Appointment
	err := s.withSlot(ctx, SlotKey(req.DoctorID, req.Date, req.Time), func(ctx context.Context) error {
		if _, err := s.ledger.FindCoveringWindow(ctx, req.DoctorID, req.Date, req.Time); err != nil {
			return err
		}
		if err := s.ensureSlotFree(ctx, req.DoctorID, req.Date, req.Time, uuid.Nil); err != nil {
			return err
		}
		a := &Appointment{
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			Date:      req.Date,
			Time:      req.Time,
			Reason:    strings.TrimSpace(req.Reason),
			Status:    StatusPending,
		}
		if err := s.appointments.Create(ctx, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Msg("booking rejected")
		return nil, err
	}
	log.Info().Str("appointment_id", appt.ID.String()).Msg("appointment requested")
	return appt, nil
}

func validateBooking(req BookingRequest) error {
	switch {
	case req.PatientID == uuid.Nil:
		return fmt.Errorf("%w: patient_id is required", clinic.ErrInvalidInput)
	case req.DoctorID == uuid.Nil:
		return fmt.Errorf("%w: doctor_id is required", clinic.ErrInvalidInput)
	case req.Date.IsZero():
		return fmt.Errorf("%w: date is required", clinic.ErrInvalidInput)
	case !req.Time.Valid():
		return fmt.Errorf("%w: time is out of range", clinic.ErrInvalidInput)
	}
	return nil
}

// ensureSlotFree returns clinic.ErrSlotTaken when an appointment other than
// self holds the slot as Booked.
func (s *Service) ensureSlotFree(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock, self uuid.UUID) error {
	booked, err := s.appointments.FindBooked(ctx, doctorID, date, t)
	switch {
	case errors.Is(err, clinic.ErrNotFound):
		return nil
	case err != nil:
		return err
	case booked.ID != self:
		return clinic.ErrSlotTaken
	}
	return nil
}

// Approve confirms a pending appointment. The ledger is not consulted again,
// but a slot already Booked by another appointment yields ErrSlotTaken.
func (s *Service) Approve(ctx context.Context, actor clinic.Actor, id uuid.UUID) (*Appointment, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin may approve appointments", clinic.ErrForbidden)
	}
	current, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var appt *Appointment
	err = s.withSlot(ctx, SlotKey(current.DoctorID, current.Date, current.Time), func(ctx context.Context) error {
		a, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(a.Status, StatusBooked); err != nil {
			return err
		}
		if err := s.ensureSlotFree(ctx, a.DoctorID, a.Date, a.Time, a.ID); err != nil {
			return err
		}
		if err := s.appointments.UpdateStatus(ctx, a, StatusBooked); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("appointment_id", id.String()).Msg("approval rejected")
		return nil, err
	}
	s.logger.Info().Str("appointment_id", id.String()).Str("actor", actor.String()).Msg("appointment booked")
	return appt, nil
}

// Cancel withdraws a pending or booked appointment. Admins may cancel any
// appointment, doctors and patients only their own.
func (s *Service) Cancel(ctx context.Context, actor clinic.Actor, id uuid.UUID) (*Appointment, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, a) {
		return nil, fmt.Errorf("%w: appointment belongs to someone else", clinic.ErrForbidden)
	}
	if err := checkTransition(a.Status, StatusCancelled); err != nil {
		return nil, err
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.appointments.UpdateStatus(ctx, a, StatusCancelled)
	}); err != nil {
		return nil, err
	}
	s.logger.Info().Str("appointment_id", id.String()).Str("actor", actor.String()).Msg("appointment cancelled")
	return a, nil
}

// Complete records the treatment and closes a booked appointment. Only the
// assigned doctor may do so; the status change and the treatment are
// written together or not at all.
func (s *Service) Complete(ctx context.Context, actor clinic.Actor, id uuid.UUID, in TreatmentInput) (*Appointment, *Treatment, error) {
	if err := actor.Validate(); err != nil {
		return nil, nil, err
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !actor.Is(clinic.RoleDoctor, a.DoctorID) {
		return nil, nil, fmt.Errorf("%w: only the assigned doctor may complete an appointment", clinic.ErrForbidden)
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		return nil, nil, fmt.Errorf("%w: diagnosis is required", clinic.ErrInvalidInput)
	}
	if err := checkTransition(a.Status, StatusCompleted); err != nil {
		return nil, nil, err
	}

	t := &Treatment{
		AppointmentID: a.ID,
		Diagnosis:     strings.TrimSpace(in.Diagnosis),
		Prescription:  strings.TrimSpace(in.Prescription),
		Notes:         strings.TrimSpace(in.Notes),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.appointments.UpdateStatus(ctx, a, StatusCompleted); err != nil {
			return err
		}
		return s.treatments.Create(ctx, t)
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("appointment_id", id.String()).Msg("completion rejected")
		return nil, nil, err
	}
	s.logger.Info().Str("appointment_id", id.String()).Str("actor", actor.String()).Msg("appointment completed")
	return a, t, nil
}

// canManage reports whether actor may see or cancel a.
func canManage(actor clinic.Actor, a *Appointment) bool {
	return actor.IsAdmin() ||
		actor.Is(clinic.RoleDoctor, a.DoctorID) ||
		actor.Is(clinic.RolePatient, a.PatientID)
}

// -- Queries --

func (s *Service) Get(ctx context.Context, actor clinic.Actor, id uuid.UUID) (*Appointment, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, a) {
		return nil, fmt.Errorf("%w: appointment belongs to someone else", clinic.ErrForbidden)
	}
	return a, nil
}

// GetTreatment returns the treatment of a completed appointment visible to
// actor.
func (s *Service) GetTreatment(ctx context.Context, actor clinic.Actor, appointmentID uuid.UUID) (*Treatment, error) {
	if _, err := s.Get(ctx, actor, appointmentID); err != nil {
		return nil, err
	}
	return s.treatments.GetByAppointment(ctx, appointmentID)
}

func authorizeDoctor(actor clinic.Actor, doctorID uuid.UUID) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.IsAdmin() && !actor.Is(clinic.RoleDoctor, doctorID) {
		return fmt.Errorf("%w: not this doctor's records", clinic.ErrForbidden)
	}
	return nil
}

func authorizePatient(actor clinic.Actor, patientID uuid.UUID) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.IsAdmin() && !actor.Is(clinic.RolePatient, patientID) {
		return fmt.Errorf("%w: not this patient's records", clinic.ErrForbidden)
	}
	return nil
}

func authorizeAdmin(actor clinic.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin only", clinic.ErrForbidden)
	}
	return nil
}

// DoctorAppointments lists the doctor's appointments matching f, ordered by
// date and time.
func (s *Service) DoctorAppointments(ctx context.Context, actor clinic.Actor, doctorID uuid.UUID, f AppointmentFilter) ([]*Appointment, error) {
	if err := authorizeDoctor(actor, doctorID); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	f.DoctorID = doctorID
	f.PatientID = uuid.Nil
	items, err := s.appointments.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// DoctorAgenda lists the doctor's booked appointments from today through
// AgendaDays ahead.
func (s *Service) DoctorAgenda(ctx context.Context, actor clinic.Actor, doctorID uuid.UUID, today clinic.Date) ([]*Appointment, error) {
	return s.DoctorAppointments(ctx, actor, doctorID, AppointmentFilter{
		Statuses: []Status{StatusBooked},
		From:     today,
		To:       today.AddDays(AgendaDays),
	})
}

// PatientAppointments splits the patient's appointments into upcoming
// (today or later, Pending or Booked, soonest first) and past (Completed or
// Cancelled, latest first).
func (s *Service) PatientAppointments(ctx context.Context, actor clinic.Actor, patientID uuid.UUID, today clinic.Date) (*PatientAppointments, error) {
	if err := authorizePatient(actor, patientID); err != nil {
		return nil, err
	}
	upcoming, err := s.appointments.Search(ctx, AppointmentFilter{
		PatientID: patientID,
		Statuses:  []Status{StatusBooked, StatusPending},
		From:      today,
	})
	if err != nil {
		return nil, err
	}
	past, err := s.appointments.Search(ctx, AppointmentFilter{
		PatientID:  patientID,
		Statuses:   []Status{StatusCompleted, StatusCancelled},
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	return &PatientAppointments{Upcoming: nonNil(upcoming), Past: nonNil(past)}, nil
}

// DoctorPatients returns every patient who has had an appointment with the
// doctor, each once.
func (s *Service) DoctorPatients(ctx context.Context, actor clinic.Actor, doctorID uuid.UUID) ([]uuid.UUID, error) {
	if err := authorizeDoctor(actor, doctorID); err != nil {
		return nil, err
	}
	ids, err := s.appointments.ListPatientsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

// PatientHistory returns the completed appointments between the doctor and
// the patient with their treatments, latest first. The doctor, the patient
// and admins may read it.
func (s *Service) PatientHistory(ctx context.Context, actor clinic.Actor, doctorID, patientID uuid.UUID) ([]HistoryEntry, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Is(clinic.RoleDoctor, doctorID) && !actor.Is(clinic.RolePatient, patientID) {
		return nil, fmt.Errorf("%w: not a party to this history", clinic.ErrForbidden)
	}

	appts, err := s.appointments.Search(ctx, AppointmentFilter{
		DoctorID:   doctorID,
		PatientID:  patientID,
		Statuses:   []Status{StatusCompleted},
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(appts))
	for i, a := range appts {
		ids[i] = a.ID
	}
	treatments, err := s.treatments.ListByAppointments(ctx, ids)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryEntry, 0, len(appts))
	for _, a := range appts {
		history = append(history, HistoryEntry{Appointment: a, Treatment: treatments[a.ID]})
	}
	return history, nil
}

// AllAppointments is the admin listing, newest date first.
func (s *Service) AllAppointments(ctx context.Context, actor clinic.Actor, limit, offset int) ([]*Appointment, int, error) {
	if err := authorizeAdmin(actor); err != nil {
		return nil, 0, err
	}
	items, total, err := s.appointments.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return nonNil(items), total, nil
}

// Stats counts appointments overall and per status.
func (s *Service) Stats(ctx context.Context, actor clinic.Actor) (*Stats, error) {
	if err := authorizeAdmin(actor); err != nil {
		return nil, err
	}
	counts, err := s.appointments.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{ByStatus: make(map[Status]int, 4)}
	for _, status := range []Status{StatusPending, StatusBooked, StatusCancelled, StatusCompleted} {
		st.ByStatus[status] = counts[status]
		st.Total += counts[status]
	}
	return st, nil
}

func nonNil(items []*Appointment) []*Appointment {
	if items == nil {
		return []*Appointment{}
	}
	return items
}
