package services

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Field() reports the label tag so messages read "Username is required".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})
	// max counts runes; bcrypt cares about bytes.
	v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return v
}

// validateStruct runs the struct's validate tags and turns the first failure
// into a *ValidationError with a client-facing message.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return invalid("%s is required", e.Field())
	case "email":
		return invalid("Invalid email format")
	case "eqfield":
		return invalid("Passwords do not match")
	case "gte", "min":
		return invalid("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return invalid("%s must be at most %s characters", e.Field(), e.Param())
	case "maxbytes":
		return invalid("%s must be at most %s bytes", e.Field(), e.Param())
	case "oneof":
		return invalid("%s must be one of %s", e.Field(), strings.ReplaceAll(e.Param(), " ", ", "))
	}
	return invalid("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
}
