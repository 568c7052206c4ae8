// Package validate runs struct-tag validation on inbound DTOs.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "vetting/pkg/domain-errors"
)

// v is the package-level singleton validator. Custom registrations happen in
// init before the first call to Struct.
var v = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report JSON/form field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// Struct validates s using its validate tags. Failures come back as a
// CodeValidation domain error listing every offending field.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "validator misconfigured")
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return dErrors.New(dErrors.CodeValidation, strings.Join(msgs, "; "))
}
