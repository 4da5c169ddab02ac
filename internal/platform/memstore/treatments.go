package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
	"github.com/Soumo31428/HospitalManagement/internal/domain/scheduling"
)

type treatmentRepo struct{ s *Store }

func (r *treatmentRepo) Create(ctx context.Context, t *scheduling.Treatment) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.treatments[t.AppointmentID]; exists {
		return fmt.Errorf("%w: appointment already has a treatment", clinic.ErrInvalidTransition)
	}
	if _, ok := r.s.appointments[t.AppointmentID]; !ok {
		return clinic.ErrNotFound
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = r.s.now()
	r.s.treatments[t.AppointmentID] = *t
	return nil
}

func (r *treatmentRepo) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*scheduling.Treatment, error) {
	defer r.s.rlock(ctx)()
	t, ok := r.s.treatments[appointmentID]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	return &t, nil
}

func (r *treatmentRepo) ListByAppointments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]*scheduling.Treatment, error) {
	defer r.s.rlock(ctx)()
	result := make(map[uuid.UUID]*scheduling.Treatment, len(appointmentIDs))
	for _, id := range appointmentIDs {
		if t, ok := r.s.treatments[id]; ok {
			result[id] = &t
		}
	}
	return result, nil
}
