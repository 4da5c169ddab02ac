package availability

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
	"github.com/Soumo31428/HospitalManagement/internal/platform/auth"
	"github.com/Soumo31428/HospitalManagement/internal/platform/validation"
)

type Handler struct {
	svc   *Service
	today func() clinic.Date
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, today: clinic.Today}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/doctors/:id/windows", h.DeclareWindow, auth.RequireRole(clinic.RoleDoctor))
	api.GET("/doctors/:id/windows", h.ListWindows)
	api.GET("/doctors/:id/windows/upcoming", h.UpcomingWindows)
}

type declareWindowRequest struct {
	Date      string `json:"date" validate:"required,isodate"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

func doctorParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	return id, nil
}

func (h *Handler) DeclareWindow(c echo.Context) error {
	doctorID, err := doctorParam(c)
	if err != nil {
		return err
	}
	var req declareWindowRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	// Formats were checked by the validator.
	date, _ := clinic.ParseDate(req.Date)
	start, _ := clinic.ParseClock(req.StartTime)
	end, _ := clinic.ParseClock(req.EndTime)

	ctx := c.Request().Context()
	w, err := h.svc.DeclareWindow(ctx, auth.ActorFromContext(ctx), doctorID, date, start, end)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) ListWindows(c echo.Context) error {
	doctorID, err := doctorParam(c)
	if err != nil {
		return err
	}
	from, err := clinic.ParseDate(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
	}
	to, err := clinic.ParseDate(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
	}
	items, err := h.svc.ListWindows(c.Request().Context(), doctorID, from, to)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, windowList(items))
}

func (h *Handler) UpcomingWindows(c echo.Context) error {
	doctorID, err := doctorParam(c)
	if err != nil {
		return err
	}
	items, err := h.svc.UpcomingWindows(c.Request().Context(), doctorID, h.today())
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, windowList(items))
}

// windowList keeps empty results rendered as [] rather than null.
func windowList(items []*Window) []*Window {
	if items == nil {
		return []*Window{}
	}
	return items
}
