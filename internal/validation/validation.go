// Package validation holds the shared struct validator used by request
// payloads and domain inputs.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("vehicle_year", validateVehicleYear)
}

// validateVehicleYear accepts model years from 1900 up to next year.
func validateVehicleYear(fl validator.FieldLevel) bool {
	year := fl.Field().Int()
	return year >= 1900 && year <= int64(time.Now().Year()+1)
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	return validate.Struct(s)
}

// Fields flattens a validator error into field path -> failed rule. Paths use
// json names without the root type. It returns nil when err carries no field
// errors.
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		out[path] = fe.Tag()
	}
	return out
}

// Echo adapts the shared validator to echo's Validator interface.
type Echo struct{}

func (Echo) Validate(i any) error {
	return validate.Struct(i)
}
