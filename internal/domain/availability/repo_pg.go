package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
	"github.com/Soumo31428/HospitalManagement/internal/platform/db"
)

type windowRepoPG struct{ pool *pgxpool.Pool }

func NewWindowRepoPG(pool *pgxpool.Pool) WindowRepository { return &windowRepoPG{pool: pool} }

func (r *windowRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const windowCols = `id, doctor_id, date, start_time, end_time, is_available, created_at`

func scanWindow(row pgx.Row) (*Window, error) {
	var (
		w          Window
		date       time.Time
		start, end pgtype.Time
	)
	if err := row.Scan(&w.ID, &w.DoctorID, &date, &start, &end, &w.Available, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Date = clinic.DateOf(date)
	w.Start = clinic.ClockFromMicroseconds(start.Microseconds)
	w.End = clinic.ClockFromMicroseconds(end.Microseconds)
	return &w, nil
}

func pgClock(c clinic.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: c.Microseconds(), Valid: true}
}

func (r *windowRepoPG) Create(ctx context.Context, w *Window) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_availability (id, doctor_id, date, start_time, end_time, is_available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		w.ID, w.DoctorID, w.Date.Time(), pgClock(w.Start), pgClock(w.End), w.Available,
	).Scan(&w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert availability window: %w", err)
	}
	return nil
}

func (r *windowRepoPG) FindCovering(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock) (*Window, error) {
	w, err := scanWindow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+windowCols+` FROM doctor_availability
		WHERE doctor_id = $1 AND date = $2 AND is_available
			AND start_time <= $3 AND end_time >= $3
		LIMIT 1`,
		doctorID, date.Time(), pgClock(t)))
	if db.IsNoRows(err) {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find covering window: %w", err)
	}
	return w, nil
}

func (r *windowRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to clinic.Date) ([]*Window, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+windowCols+` FROM doctor_availability
		WHERE doctor_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, start_time`,
		doctorID, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	defer rows.Close()

	var items []*Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		items = append(items, w)
	}
	return items, rows.Err()
}
