package notify

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goroute-booking/internal/booking"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names so errors match the form fields.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs the struct tags on req. The first failing field comes back as
// a ValidationError together with the rule it broke.
func check(req interface{}) (booking.ValidationError, string, bool) {
	err := validate.Struct(req)
	if err == nil {
		return booking.ValidationError{}, "", true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return booking.ValidationError{Msg: err.Error()}, "", false
	}

	fe := fieldErrs[0]
	vErr := booking.ValidationError{Field: fe.Field()}
	switch fe.Tag() {
	case "required":
		vErr.Msg = "is required"
	case "email":
		vErr.Msg = "must be a valid email address"
	case "min", "max":
		vErr.Msg = fmt.Sprintf("must be between %d and %d", MinMinutesBefore, MaxMinutesBefore)
	default:
		vErr.Msg = fmt.Sprintf("failed %s", fe.Tag())
	}
	return vErr, fe.Tag(), false
}
