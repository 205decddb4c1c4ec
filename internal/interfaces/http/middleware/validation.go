package middleware

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator registers custom binding validators. Call once at
// startup before any request binding happens.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("actdate", validActDate)
	}
}

// validActDate accepts an empty string or a YYYY-MM-DD date. The
// domain layer re-validates; this only gives callers an early 400.
func validActDate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}
