package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
	"github.com/Soumo31428/HospitalManagement/internal/platform/db"
)

const (
	bookedSlotIndex           = "uq_appointments_booked_slot"
	treatmentUniqueConstraint = "uq_treatments_appointment"
)

func pgClock(c clinic.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: c.Microseconds(), Valid: true}
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, patient_id, doctor_id, date, time, reason, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		date   time.Time
		clock  pgtype.Time
		status string
	)
	if err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &date, &clock,
		&a.Reason, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Date = clinic.DateOf(date)
	a.Time = clinic.ClockFromMicroseconds(clock.Microseconds)
	a.Status = Status(status)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date, time, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.Date.Time(), pgClock(a.Time), a.Reason, string(a.Status),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err, bookedSlotIndex) {
		return clinic.ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, a *Appointment, to Status) error {
	var updatedAt time.Time
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING updated_at`,
		a.ID, string(a.Status), string(to),
	).Scan(&updatedAt)
	switch {
	case db.IsNoRows(err):
		return fmt.Errorf("%w: appointment is no longer %s", clinic.ErrInvalidTransition, a.Status)
	case db.IsUniqueViolation(err, bookedSlotIndex):
		return clinic.ErrSlotTaken
	case err != nil:
		return fmt.Errorf("update appointment status: %w", err)
	}
	a.Status = to
	a.UpdatedAt = updatedAt
	return nil
}

func (r *appointmentRepoPG) FindBooked(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND time = $3 AND status = $4
		LIMIT 1`,
		doctorID, date.Time(), pgClock(t), string(StatusBooked)))
	if db.IsNoRows(err) {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find booked appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) LockSlot(ctx context.Context, key string) error {
	return db.AdvisoryXactLock(ctx, key)
}

func (r *appointmentRepoPG) Search(ctx context.Context, f AppointmentFilter) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointments WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.DoctorID != uuid.Nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, f.DoctorID)
		idx++
	}
	if f.PatientID != uuid.Nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		query += fmt.Sprintf(` AND status = ANY($%d)`, idx)
		args = append(args, statuses)
		idx++
	}
	if !f.From.IsZero() {
		query += fmt.Sprintf(` AND date >= $%d`, idx)
		args = append(args, f.From.Time())
		idx++
	}
	if !f.To.IsZero() {
		query += fmt.Sprintf(` AND date <= $%d`, idx)
		args = append(args, f.To.Time())
	}

	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	query += strings.ReplaceAll(` ORDER BY date DIR, time DIR, created_at DIR`, "DIR", dir)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *appointmentRepoPG) ListPatientsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT patient_id FROM appointments
		WHERE doctor_id = $1
		GROUP BY patient_id
		ORDER BY MIN(date), MIN(created_at)`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list doctor patients: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan patient id: %w", err)
	}
	return ids, nil
}

func (r *appointmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments
		ORDER BY date DESC, time DESC, created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	items, err := collectAppointments(rows)
	return items, total, err
}

func (r *appointmentRepoPG) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// =========== Treatment Repository ===========

type treatmentRepoPG struct{ pool *pgxpool.Pool }

func NewTreatmentRepoPG(pool *pgxpool.Pool) TreatmentRepository {
	return &treatmentRepoPG{pool: pool}
}

func (r *treatmentRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const treatmentCols = `id, appointment_id, diagnosis, prescription, notes, created_at`

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	err := row.Scan(&t.ID, &t.AppointmentID, &t.Diagnosis, &t.Prescription, &t.Notes, &t.CreatedAt)
	return &t, err
}

func (r *treatmentRepoPG) Create(ctx context.Context, t *Treatment) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatments (id, appointment_id, diagnosis, prescription, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		t.ID, t.AppointmentID, t.Diagnosis, t.Prescription, t.Notes,
	).Scan(&t.CreatedAt)
	if db.IsUniqueViolation(err, treatmentUniqueConstraint) {
		return fmt.Errorf("%w: appointment already has a treatment", clinic.ErrInvalidTransition)
	}
	if err != nil {
		return fmt.Errorf("insert treatment: %w", err)
	}
	return nil
}

func (r *treatmentRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error) {
	t, err := scanTreatment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+treatmentCols+` FROM treatments WHERE appointment_id = $1`, appointmentID))
	if db.IsNoRows(err) {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get treatment: %w", err)
	}
	return t, nil
}

func (r *treatmentRepoPG) ListByAppointments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]*Treatment, error) {
	result := make(map[uuid.UUID]*Treatment, len(appointmentIDs))
	if len(appointmentIDs) == 0 {
		return result, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+treatmentCols+` FROM treatments WHERE appointment_id = ANY($1)`, appointmentIDs)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		result[t.AppointmentID] = t
	}
	return result, rows.Err()
}
