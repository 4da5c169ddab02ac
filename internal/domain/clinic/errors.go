package clinic

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error kinds returned by the scheduling core. Callers match them with
// errors.Is; anything else is an infrastructure failure.
var (
	ErrNoAvailability    = errors.New("doctor is not available at this time")
	ErrSlotTaken         = errors.New("time slot is already booked")
	ErrForbidden         = errors.New("not authorized for this record")
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
)

var domainErrors = []error{
	ErrNoAvailability,
	ErrSlotTaken,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidTransition,
	ErrInvalidInput,
}

// IsDomainError reports whether err carries one of the core's error kinds.
func IsDomainError(err error) bool {
	for _, kind := range domainErrors {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// HTTPError maps an error returned by the core to an echo HTTP error.
// Infrastructure errors are reported as 500 without their message.
func HTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoAvailability),
		errors.Is(err, ErrSlotTaken),
		errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
