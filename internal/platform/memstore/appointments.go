package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
	"github.com/Soumo31428/HospitalManagement/internal/domain/scheduling"
)

type appointmentRepo struct{ s *Store }

func slotOf(a *scheduling.Appointment) string {
	return scheduling.SlotKey(a.DoctorID, a.Date, a.Time)
}

// claimSlot records a as the Booked holder of its slot, mirroring the
// partial unique index of the Postgres schema.
func (s *Store) claimSlot(a *scheduling.Appointment) error {
	key := slotOf(a)
	if holder, ok := s.bookedSlots[key]; ok && holder != a.ID {
		return clinic.ErrSlotTaken
	}
	s.bookedSlots[key] = a.ID
	return nil
}

func (r *appointmentRepo) Create(ctx context.Context, a *scheduling.Appointment) error {
	defer r.s.lock(ctx)()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == scheduling.StatusBooked {
		if err := r.s.claimSlot(a); err != nil {
			return err
		}
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.appointments[a.ID] = *a
	return nil
}

func (r *appointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	defer r.s.rlock(ctx)()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	return &a, nil
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, a *scheduling.Appointment, to scheduling.Status) error {
	defer r.s.lock(ctx)()
	stored, ok := r.s.appointments[a.ID]
	if !ok {
		return clinic.ErrNotFound
	}
	if stored.Status != a.Status {
		return fmt.Errorf("%w: appointment is no longer %s", clinic.ErrInvalidTransition, a.Status)
	}

	switch {
	case to == scheduling.StatusBooked:
		if err := r.s.claimSlot(&stored); err != nil {
			return err
		}
	case stored.Status == scheduling.StatusBooked:
		delete(r.s.bookedSlots, slotOf(&stored))
	}

	stored.Status = to
	stored.UpdatedAt = r.s.now()
	r.s.appointments[a.ID] = stored
	*a = stored
	return nil
}

func (r *appointmentRepo) FindBooked(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock) (*scheduling.Appointment, error) {
	defer r.s.rlock(ctx)()
	id, ok := r.s.bookedSlots[scheduling.SlotKey(doctorID, date, t)]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	a := r.s.appointments[id]
	return &a, nil
}

// LockSlot is a no-op: a transaction already holds the whole store.
func (r *appointmentRepo) LockSlot(ctx context.Context, key string) error {
	if !r.s.inTx(ctx) {
		return fmt.Errorf("slot lock %q requires a transaction", key)
	}
	return nil
}

// sorted returns copies of the matching appointments ordered by date, time
// and creation.
func (s *Store) sorted(match func(*scheduling.Appointment) bool, descending bool) []*scheduling.Appointment {
	var items []*scheduling.Appointment
	for _, a := range s.appointments {
		a := a
		if match(&a) {
			items = append(items, &a)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if descending {
			a, b = b, a
		}
		if scheduling.Less(a, b) {
			return true
		}
		if scheduling.Less(b, a) {
			return false
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return items
}

func (r *appointmentRepo) Search(ctx context.Context, f scheduling.AppointmentFilter) ([]*scheduling.Appointment, error) {
	defer r.s.rlock(ctx)()
	return r.s.sorted(f.Match, f.Descending), nil
}

// ListPatientsByDoctor orders patients by their earliest appointment date.
func (r *appointmentRepo) ListPatientsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	defer r.s.rlock(ctx)()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, a := range r.s.sorted(func(a *scheduling.Appointment) bool { return a.DoctorID == doctorID }, false) {
		if !seen[a.PatientID] {
			seen[a.PatientID] = true
			ids = append(ids, a.PatientID)
		}
	}
	return ids, nil
}

func (r *appointmentRepo) List(ctx context.Context, limit, offset int) ([]*scheduling.Appointment, int, error) {
	defer r.s.rlock(ctx)()
	all := r.s.sorted(func(*scheduling.Appointment) bool { return true }, true)
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (r *appointmentRepo) CountByStatus(ctx context.Context) (map[scheduling.Status]int, error) {
	defer r.s.rlock(ctx)()
	counts := make(map[scheduling.Status]int)
	for _, a := range r.s.appointments {
		counts[a.Status]++
	}
	return counts, nil
}
