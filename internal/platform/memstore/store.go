// Package memstore keeps windows, appointments and treatments in process
// memory. It backs STORE=memory and the service tests.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Soumo31428/HospitalManagement/internal/domain/availability"
	"github.com/Soumo31428/HospitalManagement/internal/domain/scheduling"
)

type txKey struct{}

// Store is an in-memory implementation of every repository plus a
// transactor. A transaction holds the store's write lock for its whole
// duration and is rolled back from a snapshot when its function fails.
type Store struct {
	txs          *semaphore.Weighted // one transaction at a time; waits honour ctx
	mu           sync.RWMutex
	windows      []availability.Window
	appointments map[uuid.UUID]scheduling.Appointment
	treatments   map[uuid.UUID]scheduling.Treatment // appointment ID -> treatment
	bookedSlots  map[string]uuid.UUID               // slot key -> Booked appointment ID
	now          func() time.Time
}

func New() *Store {
	return &Store{
		txs:          semaphore.NewWeighted(1),
		appointments: make(map[uuid.UUID]scheduling.Appointment),
		treatments:   make(map[uuid.UUID]scheduling.Treatment),
		bookedSlots:  make(map[string]uuid.UUID),
		now:          time.Now,
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) == s
}

// lock takes the write lock unless ctx already belongs to one of this
// store's transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

type snapshot struct {
	windows      []availability.Window
	appointments map[uuid.UUID]scheduling.Appointment
	treatments   map[uuid.UUID]scheduling.Treatment
	bookedSlots  map[string]uuid.UUID
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		windows:      slices.Clone(s.windows),
		appointments: maps.Clone(s.appointments),
		treatments:   maps.Clone(s.treatments),
		bookedSlots:  maps.Clone(s.bookedSlots),
	}
}

func (s *Store) restore(snap snapshot) {
	s.windows = snap.windows
	s.appointments = snap.appointments
	s.treatments = snap.treatments
	s.bookedSlots = snap.bookedSlots
}

// WithinTx runs fn with exclusive access to the store. Nested calls join
// the outer transaction. Any error from fn discards every change fn made,
// and so does ctx ending before fn returns.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := s.txs.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer s.txs.Release(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		s.restore(snap)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping always succeeds; it lets the store stand in for the database in the
// health check.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Windows() availability.WindowRepository { return &windowRepo{s: s} }

func (s *Store) Appointments() scheduling.AppointmentRepository { return &appointmentRepo{s: s} }

func (s *Store) Treatments() scheduling.TreatmentRepository { return &treatmentRepo{s: s} }
