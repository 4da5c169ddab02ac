package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

// Service is the availability ledger: the windows each doctor has declared
// open.
type Service struct {
	windows WindowRepository
	logger  zerolog.Logger
}

func NewService(windows WindowRepository, logger zerolog.Logger) *Service {
	return &Service{
		windows: windows,
		logger:  logger.With().Str("component", "availability").Logger(),
	}
}

// DeclareWindow opens [start, end] for the doctor on date. Only an admin or
// the doctor themself may do so. Overlapping windows are accepted.
func (s *Service) DeclareWindow(ctx context.Context, actor clinic.Actor, doctorID uuid.UUID, date clinic.Date, start, end clinic.Clock) (*Window, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Is(clinic.RoleDoctor, doctorID) {
		return nil, fmt.Errorf("%w: only the doctor or an admin may declare availability", clinic.ErrForbidden)
	}
	if doctorID == uuid.Nil {
		return nil, fmt.Errorf("%w: doctor_id is required", clinic.ErrInvalidInput)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", clinic.ErrInvalidInput)
	}
	if !start.Valid() || !end.Valid() || start >= end {
		return nil, fmt.Errorf("%w: start time must be before end time", clinic.ErrInvalidInput)
	}

	w := &Window{
		DoctorID:  doctorID,
		Date:      date,
		Start:     start,
		End:       end,
		Available: true,
	}
	if err := s.windows.Create(ctx, w); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("doctor_id", doctorID.String()).
		Str("date", date.String()).
		Str("start", start.String()).
		Str("end", end.String()).
		Msg("availability window declared")
	return w, nil
}

// FindCoveringWindow returns an open window of the doctor on date that
// contains t, or clinic.ErrNoAvailability. Among several matches any one may
// be returned.
func (s *Service) FindCoveringWindow(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock) (*Window, error) {
	w, err := s.windows.FindCovering(ctx, doctorID, date, t)
	if errors.Is(err, clinic.ErrNotFound) {
		return nil, fmt.Errorf("%w: no open window on %s at %s", clinic.ErrNoAvailability, date, t)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListWindows returns the doctor's windows dated from..to inclusive,
// ordered by date.
func (s *Service) ListWindows(ctx context.Context, doctorID uuid.UUID, from, to clinic.Date) ([]*Window, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: from and to are required", clinic.ErrInvalidInput)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: from must not be after to", clinic.ErrInvalidInput)
	}
	return s.windows.ListByDoctor(ctx, doctorID, from, to)
}

// UpcomingWindows lists the windows from today through UpcomingDays ahead.
func (s *Service) UpcomingWindows(ctx context.Context, doctorID uuid.UUID, today clinic.Date) ([]*Window, error) {
	return s.ListWindows(ctx, doctorID, today, today.AddDays(UpcomingDays))
}
