package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

// UpcomingDays is how far ahead UpcomingWindows looks, today included.
const UpcomingDays = 7

// Window is one open interval a doctor declared on a calendar date.
type Window struct {
	ID        uuid.UUID    `json:"id"`
	DoctorID  uuid.UUID    `json:"doctor_id"`
	Date      clinic.Date  `json:"date"`
	Start     clinic.Clock `json:"start_time"`
	End       clinic.Clock `json:"end_time"`
	Available bool         `json:"is_available"`
	CreatedAt time.Time    `json:"created_at"`
}

// Covers reports whether t falls inside the window, bounds included, and
// the window is open.
func (w *Window) Covers(t clinic.Clock) bool {
	return w.Available && w.Start <= t && t <= w.End
}
