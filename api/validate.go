package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("linefield", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "|\r\n")
	})
	return v
}

// fieldErrors flattens validator errors into response entries.
func fieldErrors(err error) []FieldErrorDTO {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldErrorDTO, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldErrorDTO{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
