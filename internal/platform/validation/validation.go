// Package validation plugs go-playground/validator into echo.
package validation

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Soumo31428/HospitalManagement/internal/domain/clinic"
)

// Validator implements echo.Validator. Besides the built-in tags it knows
// "isodate" (YYYY-MM-DD) and "clock" (24-hour HH:MM).
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := clinic.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := clinic.ParseClock(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

// Validate returns a 400 HTTP error describing every failed field.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, FormatError(err))
	}
	return nil
}

// FormatError renders validator errors as "field: rule" pairs.
func FormatError(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "isodate":
			msgs = append(msgs, fmt.Sprintf("%s must be YYYY-MM-DD", e.Field()))
		case "clock":
			msgs = append(msgs, fmt.Sprintf("%s must be HH:MM", e.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Field(), e.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}

// BindAndValidate decodes the request body into obj and validates it.
func BindAndValidate(c echo.Context, obj interface{}) error {
	if err := c.Bind(obj); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request payload")
	}
	return c.Validate(obj)
}
