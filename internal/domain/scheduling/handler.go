package scheduling

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
	"github.com/Soumo31428/HospitalManagement/internal/platform/auth"
	"github.com/Soumo31428/HospitalManagement/internal/platform/validation"
	"github.com/Soumo31428/HospitalManagement/pkg/pagination"
)

type Handler struct {
	svc   *Service
	today func() clinic.Date
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, today: clinic.Today}
}

// WithToday overrides the clock used for "upcoming" and agenda listings.
func (h *Handler) WithToday(today func() clinic.Date) *Handler {
	h.today = today
	return h
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.Book, auth.RequireRole(clinic.RolePatient))
	api.GET("/appointments/:id", h.Get)
	api.GET("/appointments/:id/treatment", h.GetTreatment)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.POST("/appointments/:id/complete", h.Complete, auth.RequireRole(clinic.RoleDoctor))

	// Admin
	admin := api.Group("", auth.RequireRole(clinic.RoleAdmin))
	admin.GET("/appointments", h.ListAll)
	admin.GET("/appointments/stats", h.Stats)
	admin.POST("/appointments/:id/approve", h.Approve)

	// Doctor
	doctor := api.Group("/doctors/:id", auth.RequireRole(clinic.RoleDoctor))
	doctor.GET("/appointments", h.DoctorAppointments)
	doctor.GET("/agenda", h.DoctorAgenda)
	doctor.GET("/patients", h.DoctorPatients)

	// Patient history is readable by the doctor and the patient.
	api.GET("/doctors/:id/patients/:patient_id/history", h.PatientHistory)

	api.GET("/patients/:id/appointments", h.PatientAppointments, auth.RequireRole(clinic.RolePatient))
}

type bookRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id" validate:"required,uuid"`
	Date      string `json:"date" validate:"required,isodate"`
	Time      string `json:"time" validate:"required,clock"`
	Reason    string `json:"reason" validate:"max=1000"`
}

type completeRequest struct {
	Diagnosis    string `json:"diagnosis" validate:"required,max=2000"`
	Prescription string `json:"prescription" validate:"max=2000"`
	Notes        string `json:"notes" validate:"max=4000"`
}

type completeResponse struct {
	Appointment *Appointment `json:"appointment"`
	Treatment   *Treatment   `json:"treatment"`
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func actorOf(c echo.Context) clinic.Actor {
	return auth.ActorFromContext(c.Request().Context())
}

// -- Commands --

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	actor := actorOf(c)

	// A patient books for themself unless patient_id says otherwise.
	patientID := actor.ID
	if req.PatientID != "" {
		id, err := uuid.Parse(req.PatientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = id
	}
	doctorID, _ := uuid.Parse(req.DoctorID)
	date, _ := clinic.ParseDate(req.Date)
	at, _ := clinic.ParseClock(req.Time)

	appt, err := h.svc.Book(c.Request().Context(), actor, BookingRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      at,
		Reason:    req.Reason,
	})
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.svc.Approve(c.Request().Context(), actorOf(c), id)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.svc.Cancel(c.Request().Context(), actorOf(c), id)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req completeRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	appt, treatment, err := h.svc.Complete(c.Request().Context(), actorOf(c), id, TreatmentInput{
		Diagnosis:    req.Diagnosis,
		Prescription: req.Prescription,
		Notes:        req.Notes,
	})
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, completeResponse{Appointment: appt, Treatment: treatment})
}

// -- Queries --

func (h *Handler) Get(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.svc.Get(c.Request().Context(), actorOf(c), id)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) GetTreatment(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.GetTreatment(c.Request().Context(), actorOf(c), id)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListAll(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.AllAppointments(c.Request().Context(), actorOf(c), pg.Limit, pg.Offset)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context(), actorOf(c))
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// filterFromQuery parses ?status=Pending,Booked&from=YYYY-MM-DD&to=YYYY-MM-DD.
func filterFromQuery(c echo.Context) (AppointmentFilter, error) {
	var f AppointmentFilter
	if raw := c.QueryParam("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := ParseStatus(strings.TrimSpace(part))
			if err != nil {
				return f, echo.NewHTTPError(http.StatusBadRequest, "invalid status")
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if raw := c.QueryParam("from"); raw != "" {
		d, err := clinic.ParseDate(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		f.From = d
	}
	if raw := c.QueryParam("to"); raw != "" {
		d, err := clinic.ParseDate(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		f.To = d
	}
	return f, nil
}

func (h *Handler) DoctorAppointments(c echo.Context) error {
	doctorID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.DoctorAppointments(c.Request().Context(), actorOf(c), doctorID, f)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DoctorAgenda(c echo.Context) error {
	doctorID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.DoctorAgenda(c.Request().Context(), actorOf(c), doctorID, h.today())
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DoctorPatients(c echo.Context) error {
	doctorID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	ids, err := h.svc.DoctorPatients(c.Request().Context(), actorOf(c), doctorID)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patient_ids": ids})
}

func (h *Handler) PatientHistory(c echo.Context) error {
	doctorID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	patientID, err := uuidParam(c, "patient_id")
	if err != nil {
		return err
	}
	history, err := h.svc.PatientHistory(c.Request().Context(), actorOf(c), doctorID, patientID)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) PatientAppointments(c echo.Context) error {
	patientID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.PatientAppointments(c.Request().Context(), actorOf(c), patientID, h.today())
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}
