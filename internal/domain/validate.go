package domain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON field names so errors match the wire shape of the record.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks a domain record at the boundary where external data enters
// the system. It returns nil for a valid record.
func Validate(record interface{}) error {
	if err := validate.Struct(record); err != nil {
		return fmt.Errorf("Validate: %T: %w", record, err)
	}
	return nil
}
