package availability

import (
	"context"

	"github.com/google/uuid"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

type WindowRepository interface {
	Create(ctx context.Context, w *Window) error
	// FindCovering returns an open window of the doctor on date whose
	// [Start, End] contains t, or clinic.ErrNotFound.
	FindCovering(ctx context.Context, doctorID uuid.UUID, date clinic.Date, t clinic.Clock) (*Window, error)
	// ListByDoctor returns windows with from <= Date <= to ordered by date
	// then start time.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to clinic.Date) ([]*Window, error)
}
