package httpapi

import (
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerValidators adds the request tags used by the DTOs to gin's
// validator. Safe to call more than once.
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		return err
	}
	if err := v.RegisterValidation("ymd", validateYMD); err != nil {
		return err
	}
	return v.RegisterValidation("role", validateRole)
}

// hhmm: "HH:MM" time of day, 24:00 allowed as an end of day marker
func validateHHMM(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "24:00" {
		return true
	}
	_, err := model.ParseTimeOfDay(s)
	return err == nil
}

// ymd: calendar date "YYYY-MM-DD"
func validateYMD(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.DateOnly, fl.Field().String())
	return err == nil
}

func validateRole(fl validator.FieldLevel) bool {
	return model.Role(fl.Field().String()).Valid()
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

func parseTimeOfDay(s string) (model.TimeOfDay, error) {
	if s == "24:00" {
		return model.NewTimeOfDay(24, 0), nil
	}
	return model.ParseTimeOfDay(s)
}
