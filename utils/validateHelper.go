package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// report json names so messages line up with query parameters
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStruct runs the `validate` tags of s. Failed fields are reported with
// the message found in messages[field], or "Please select <field>" otherwise.
// Returns nil when s is valid.
func ValidateStruct(s any, messages map[string]string) FieldErrors {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return FieldErrors{"_": err.Error()}
	}

	fe := FieldErrors{}
	for _, ve := range validationErrors {
		field := ve.Field()
		if msg, ok := messages[field]; ok {
			fe[field] = msg
		} else {
			fe[field] = "Please select " + field
		}
	}
	return fe
}
