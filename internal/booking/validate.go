package booking

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"detailing-booking/internal/model"
	"detailing-booking/internal/parse"
)

var fieldMessages = map[string]string{
	"name":  "Please enter your name.",
	"phone": "Please enter a valid phone number.",
	"email": "Please enter a valid email address.",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterValidations(v)
	return v
}

// RegisterValidations adds the custom tags used by model types to v and
// reports fields by their JSON names. Call it on gin's engine so request
// binding accepts the same tags.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return parse.ValidPhone(fl.Field().String())
	})
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// TrimInfo strips surrounding whitespace from every contact field.
func TrimInfo(info model.Info) model.Info {
	return model.Info{
		Name:  strings.TrimSpace(info.Name),
		Phone: strings.TrimSpace(info.Phone),
		Email: strings.TrimSpace(info.Email),
	}
}

// ValidateInfo checks the contact block and returns per-field messages.
func ValidateInfo(info model.Info) map[string]string {
	return FieldErrors(validate.Struct(TrimInfo(info)))
}

// FieldErrors turns validation errors into per-field messages keyed by JSON
// name. It returns nil for nil and for errors that are not validation errors.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = "Invalid " + fe.Field() + "."
		}
		fields[fe.Field()] = msg
	}
	return fields
}
