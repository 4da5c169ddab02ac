package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Soumo31428/HospitalManagement/internal/platform/auth"
)

// AuditEntry records who changed what in the schedule.
type AuditEntry struct {
	Time      time.Time
	RequestID string
	Actor     string
	Method    string
	Path      string
	Resource  string
	TargetID  string
	Action    string
	Status    int
	RemoteIP  string
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAudit(entry AuditEntry) error
}

// AuditRecorderFunc adapts a function to AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAudit(entry AuditEntry) error { return f(entry) }

// Audit logs every state-changing API call (booking, approval, cancellation,
// completion, window declaration) once the handler has run. Reads are not
// audited. Optional recorders receive the same entry.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == http.MethodGet || req.Method == http.MethodHead || req.Method == http.MethodOptions {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Time:     time.Now().UTC(),
				Method:   req.Method,
				Path:     req.URL.Path,
				Status:   c.Response().Status,
				RemoteIP: c.RealIP(),
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.Status = he.Code
			} else if err != nil {
				entry.Status = http.StatusInternalServerError
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			if actor := auth.ActorFromContext(c.Request().Context()); actor.ID != uuid.Nil {
				entry.Actor = actor.String()
			}
			entry.Resource, entry.TargetID, entry.Action = describe(req.URL.Path)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAudit(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("actor", entry.Actor).
				Str("resource", entry.Resource).
				Str("target_id", entry.TargetID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Int("status", entry.Status).
				Str("remote_ip", entry.RemoteIP).
				Msg("schedule_change")

			return err
		}
	}
}

// describe splits an API path into resource, target id and action:
//
//	/api/v1/appointments                 -> appointments, "", create
//	/api/v1/appointments/<id>/approve    -> appointments, <id>, approve
//	/api/v1/doctors/<id>/windows         -> doctors, <id>, windows
func describe(path string) (resource, id, action string) {
	path = strings.TrimPrefix(path, "/api/v1")
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return "unknown", "", "create"
	}
	resource = segs[0]
	action = "create"
	if len(segs) > 1 {
		if _, err := uuid.Parse(segs[1]); err == nil {
			id = segs[1]
		}
	}
	if len(segs) > 2 {
		action = segs[len(segs)-1]
	}
	return resource, id, action
}
