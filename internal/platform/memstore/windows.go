package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Soumo31428/HospitalManagement/internal/domain/availability"
	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

type windowRepo struct{ s *Store }

func (r *windowRepo) Create(ctx context.Context, w *availability.Window) error {
	defer r.s.lock(ctx)()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.CreatedAt = r.s.now()
	r.s.windows = append(r.s.windows, *w)
	return nil
}

// FindCovering returns the first match in declaration order.
func (r *windowRepo) FindCovering(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock) (*availability.Window, error) {
	defer r.s.rlock(ctx)()
	for i := range r.s.windows {
		w := r.s.windows[i]
		if w.DoctorID == doctorID && w.Date == date && w.Covers(t) {
			return &w, nil
		}
	}
	return nil, clinic.ErrNotFound
}

func (r *windowRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to clinic.Date) ([]*availability.Window, error) {
	defer r.s.rlock(ctx)()
	var items []*availability.Window
	for i := range r.s.windows {
		w := r.s.windows[i]
		if w.DoctorID != doctorID || w.Date.Before(from) || w.Date.After(to) {
			continue
		}
		items = append(items, &w)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if c := items[i].Date.Compare(items[j].Date); c != 0 {
			return c < 0
		}
		return items[i].Start < items[j].Start
	})
	return items, nil
}

// SetAvailable flips the open flag of a window. No API path closes windows
// yet; tests use it to exercise closed windows.
func (s *Store) SetAvailable(id uuid.UUID, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.windows {
		if s.windows[i].ID == id {
			s.windows[i].Available = available
			return nil
		}
	}
	return clinic.ErrNotFound
}
